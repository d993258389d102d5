package lifetime

import "fmt"

// Kind names a lifetime policy.
type Kind int

const (
	Transient Kind = iota
	ContainerControlled
	Hierarchical
	PerThread
	PerResolve
	ExternallyControlled
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case ContainerControlled:
		return "container"
	case Hierarchical:
		return "hierarchical"
	case PerThread:
		return "per_thread"
	case PerResolve:
		return "per_resolve"
	case ExternallyControlled:
		return "external"
	default:
		return "unknown"
	}
}

// OwnedByRegistrar reports whether values of this kind are built in, and
// owned by, the scope that holds the registration rather than the scope
// that asked for them.
func (k Kind) OwnedByRegistrar() bool {
	return k == ContainerControlled || k == ExternallyControlled
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "transient", "":
		return Transient, nil
	case "container", "singleton", "container_controlled":
		return ContainerControlled, nil
	case "hierarchical":
		return Hierarchical, nil
	case "per_thread", "thread":
		return PerThread, nil
	case "per_resolve", "resolve":
		return PerResolve, nil
	case "external", "externally_controlled":
		return ExternallyControlled, nil
	default:
		return Transient, fmt.Errorf("unknown lifetime %q", s)
	}
}

// New returns a fresh manager for the given kind.
func New(k Kind, opts ...Option) Manager {
	switch k {
	case ContainerControlled:
		return NewContainerControlled(opts...)
	case Hierarchical:
		return NewHierarchical(opts...)
	case PerThread:
		return NewPerThread()
	case PerResolve:
		return NewPerResolve()
	case ExternallyControlled:
		return NewExternallyControlled()
	default:
		return NewTransient()
	}
}
