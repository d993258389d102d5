package container

import (
	"fmt"
	"reflect"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/registry"
	"github.com/danpasecinic/thimble/introspect"
)

// MatchRank orders how well a dependency can be satisfied.
type MatchRank int

const (
	NoMatch MatchRank = iota
	Compatible
	HigherProspect
	ExactMatch
)

func (r MatchRank) String() string {
	switch r {
	case ExactMatch:
		return "exact"
	case HigherProspect:
		return "higher-prospect"
	case Compatible:
		return "compatible"
	default:
		return "no-match"
	}
}

// Selection is the constructor chosen for a build and its dependencies.
type Selection struct {
	Constructor introspect.Constructor
	Params      []Dependency
	Score       int
}

// rank scores d as seen from scope. illegal is set when d can never be
// satisfied, as opposed to merely having nothing registered for it.
func (e *engine) rank(scope *registry.Scope, d *Dependency) (rank MatchRank, illegal bool) {
	if d.fromValue() {
		v := d.Explicit.Value
		if v == nil {
			if _, ok := ireflect.AssignableValue(nil, d.Type); ok {
				return Compatible, false
			}
			return NoMatch, true
		}
		switch vt := reflect.TypeOf(v); {
		case vt == d.Type:
			return ExactMatch, false
		case vt.AssignableTo(d.Type):
			return Compatible, false
		}
		return NoMatch, true
	}

	if d.Explicit != nil && d.Explicit.Type != nil {
		switch rt := d.Explicit.Type; {
		case rt == d.Type:
		case rt.AssignableTo(d.Type):
			return Compatible, false
		default:
			return NoMatch, true
		}
	}

	if d.ByRef {
		return NoMatch, true
	}

	t := d.resolveType()
	switch {
	case t == contextType:
		return ExactMatch, false
	case e.isRegistered(scope, t, d.Contract):
		return ExactMatch, false
	}
	if _, _, ok := collectionElem(t); ok {
		return HigherProspect, false
	}
	if t.Kind() == reflect.Ptr && e.isRegistered(scope, t.Elem(), d.Contract) {
		return HigherProspect, false
	}
	if d.Optional {
		return Compatible, false
	}
	if _, err := e.introspector.Describe(t); err == nil {
		return Compatible, false
	}
	return NoMatch, false
}

// score sums the ranks of deps. ok is false when any of them cannot match.
func (e *engine) score(scope *registry.Scope, deps []Dependency) (total int, ok, illegal bool) {
	for i := range deps {
		r, bad := e.rank(scope, &deps[i])
		if r == NoMatch {
			return 0, false, bad
		}
		total += int(r)
	}
	return total, true, false
}

// selectConstructor picks the constructor with the highest score. Ties go to
// the constructor declared first. When every constructor is unresolvable the
// first one is returned so the build reports the missing dependency.
func (e *engine) selectConstructor(p *Plan) (*Selection, error) {
	reg := p.Registration

	if reg.Constructor != nil {
		return e.selectExplicit(p)
	}

	ctors := p.Info.Constructors
	if len(ctors) == 0 {
		return nil, errInvalidRegistration(nil, fmt.Sprintf("%s has no constructor", ireflect.TypeName(p.Target)), nil)
	}

	var (
		best       *Selection
		fallback   *Selection
		allIllegal = true
	)
	for _, ctor := range ctors {
		deps := paramDependencies(ctor.Params, nil)
		total, ok, illegal := e.score(p.Scope, deps)
		if !ok {
			if !illegal {
				allIllegal = false
				if fallback == nil {
					fallback = &Selection{Constructor: ctor, Params: deps}
				}
			}
			continue
		}
		allIllegal = false
		if best == nil || total > best.Score {
			best = &Selection{Constructor: ctor, Params: deps, Score: total}
		}
	}

	switch {
	case best != nil:
		return best, nil
	case fallback != nil:
		return fallback, nil
	case allIllegal:
		return nil, errInvalidRegistration(
			nil,
			fmt.Sprintf("no constructor of %s can be used for injection", ireflect.TypeName(p.Target)),
			nil,
		)
	}
	return nil, errInvalidRegistration(nil, fmt.Sprintf("%s has no usable constructor", ireflect.TypeName(p.Target)), nil)
}

func (e *engine) selectExplicit(p *Plan) (*Selection, error) {
	m := p.Registration.Constructor

	var candidates []introspect.Constructor
	if m.Func.IsValid() {
		ctor, err := constructorOf(m.Func, p.Info)
		if err != nil {
			return nil, err
		}
		candidates = []introspect.Constructor{ctor}
	} else {
		for _, ctor := range p.Info.Constructors {
			if len(ctor.Params) == len(m.Params) {
				candidates = append(candidates, ctor)
			}
		}
	}

	var refErr error
	for _, ctor := range candidates {
		if len(m.Params) != 0 && len(m.Params) != len(ctor.Params) {
			continue
		}
		deps := paramDependencies(ctor.Params, m.Params)
		if err := checkByRef(p, "constructor", deps); err != nil {
			refErr = err
			continue
		}
		if total, ok, _ := e.score(p.Scope, deps); ok || len(candidates) == 1 {
			return &Selection{Constructor: ctor, Params: deps, Score: total}, nil
		}
	}
	if refErr != nil {
		return nil, refErr
	}

	return nil, errInvalidRegistration(
		nil,
		fmt.Sprintf("no constructor of %s matches the %d injection parameters given", ireflect.TypeName(p.Target), len(m.Params)),
		nil,
	)
}

// constructorOf describes fn, reusing the catalog's descriptor for the same
// function when there is one.
func constructorOf(fn reflect.Value, info *introspect.TypeInfo) (introspect.Constructor, error) {
	if info != nil {
		for _, ctor := range info.Constructors {
			if !ctor.IsZero() && ctor.Func.Pointer() == fn.Pointer() {
				return ctor, nil
			}
		}
	}

	ft := fn.Type()
	if ft.Kind() != reflect.Func || ft.NumOut() == 0 || ft.NumOut() > 2 || (ft.NumOut() == 2 && !ireflect.ReturnsError(ft)) {
		return introspect.Constructor{}, errInvalidRegistration(nil, fmt.Sprintf("%s is not a constructor", ft), introspect.ErrInvalidMember)
	}

	params := make([]introspect.Param, ft.NumIn())
	for i := range params {
		params[i] = introspect.Param{
			Type:  ft.In(i),
			ByRef: ireflect.IsByRef(ft.In(i)),
		}
	}
	return introspect.Constructor{
		Func:         fn,
		Params:       params,
		ReturnsError: ft.NumOut() == 2,
	}, nil
}
