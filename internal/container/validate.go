package container

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/danpasecinic/thimble/internal/contract"
	"github.com/danpasecinic/thimble/internal/graph"
	"github.com/danpasecinic/thimble/internal/registry"
	"github.com/danpasecinic/thimble/lifetime"
)

// Validate walks the static dependency graph of every registration visible
// from this scope without building anything. It reports dependency cycles,
// required dependencies nothing can satisfy, and registrations that cannot
// be planned. Factories are opaque and contribute no edges.
func (c *Container) Validate() error {
	v := &validator{
		engine:  c.engine,
		scope:   c.scope,
		graph:   graph.New[contract.Contract](),
		visited: make(map[contract.Contract]bool),
	}

	for _, info := range c.Registrations() {
		if info.Contract.IsOpen() {
			continue
		}
		v.walk(info.Contract)
	}

	errs := v.errs
	for _, path := range v.graph.CyclePaths() {
		e := &Error{Code: ErrCodeCircularDependency, Chain: path}
		e.Message = "circular dependency detected: " + e.ChainString()
		if len(path) > 0 {
			e.Failing = path[0]
		}
		errs = append(errs, e)
	}
	for _, edge := range v.graph.Missing() {
		errs = append(errs, &Error{
			Code:    ErrCodeResolutionFailed,
			Message: fmt.Sprintf("no registration for %s", edge.To),
			Failing: edge.To,
			Chain:   []contract.Contract{edge.From, edge.To},
		})
	}

	c.engine.logger.Debug().
		Int("nodes", v.graph.Size()).
		Int("errors", len(errs)).
		Msg("validated registrations")
	return errors.Join(errs...)
}

type validator struct {
	engine  *engine
	scope   *registry.Scope
	graph   *graph.Graph[contract.Contract]
	visited map[contract.Contract]bool
	errs    []error
}

func (v *validator) walk(ct contract.Contract) {
	if v.visited[ct] {
		return
	}
	v.visited[ct] = true

	reg, ok := v.registration(ct)
	if !ok {
		return
	}

	deps, err := v.engine.dependencies(reg)
	if err != nil {
		v.fail(ct, err)
	}

	var edges []contract.Contract
	for _, d := range deps {
		if v.satisfiedWithoutNode(d) {
			continue
		}
		edges = append(edges, d)
	}
	v.graph.AddNode(ct, edges...)
	for _, d := range edges {
		v.walk(d)
	}
}

// fail records err against ct when it has no resolve chain of its own.
func (v *validator) fail(ct contract.Contract, err error) {
	var e *Error
	if errors.As(err, &e) && len(e.Chain) == 0 {
		e.Failing = ct
		e.Chain = []contract.Contract{ct}
	}
	v.errs = append(v.errs, err)
}

// registration finds what a resolve of ct would build, without creating
// bound or implicit registrations.
func (v *validator) registration(ct contract.Contract) (*registry.Registration, bool) {
	if reg, _ := v.scope.Lookup(ct); reg != nil {
		return reg, true
	}

	if open, owner, args := v.engine.openFor(v.scope, ct); open != nil {
		if bound, ok := open.Bound(ct); ok {
			return bound, true
		}
		closed, err := closeOpen(open, ct, args)
		if err != nil {
			v.fail(ct, err)
			return nil, false
		}
		return closedRegistration(open, ct, closed, lifetime.NewTransient(), owner), true
	}

	if _, err := v.engine.introspector.Describe(ct.Type); err != nil {
		return nil, false
	}
	return &registry.Registration{
		Contract: ct,
		Category: registry.Cache,
		MappedTo: ct.Type,
		Lifetime: lifetime.NewTransient(),
		Owner:    v.scope.Root(),
	}, true
}

// satisfiedWithoutNode reports dependencies that always resolve and need no
// node in the graph.
func (v *validator) satisfiedWithoutNode(d contract.Contract) bool {
	if d.Type == contextType {
		if reg, _ := v.scope.Lookup(d); reg == nil {
			return true
		}
	}
	if _, _, ok := collectionElem(d.Type); ok {
		reg, _ := v.scope.Lookup(d)
		return reg == nil
	}
	return false
}

// dependencies lists the contracts a build of reg requires. Optional
// dependencies and values supplied by the registration are left out.
func (e *engine) dependencies(reg *registry.Registration) ([]contract.Contract, error) {
	switch reg.Category {
	case registry.Instance, registry.Factory:
		return nil, nil
	}
	if delegates(reg) {
		return []contract.Contract{contract.New(reg.MappedTo, reg.Contract.Name)}, nil
	}

	plan, err := e.newPlan(reg)
	if err != nil {
		return nil, err
	}
	sel, err := e.selectConstructor(plan)
	if err != nil {
		return nil, err
	}

	var out []contract.Contract
	add := func(d *Dependency) {
		if d.Optional || d.fromValue() {
			return
		}
		out = append(out, contract.New(d.resolveType(), d.Contract))
	}
	for i := range sel.Params {
		add(&sel.Params[i])
	}

	fields, err := planFields(plan)
	if err != nil {
		return out, err
	}
	for i := range fields {
		add(&fields[i].dep)
	}
	props, err := planProperties(plan)
	if err != nil {
		return out, err
	}
	for i := range props {
		add(&props[i].dep)
	}
	calls, err := planMethods(plan)
	if err != nil {
		return out, err
	}
	for i := range calls {
		for j := range calls[i].params {
			add(&calls[i].params[j])
		}
	}
	return out, nil
}

// DependencyTypes lists what a build of t under name requires, for
// diagnostics.
func (c *Container) DependencyTypes(t reflect.Type, name string) ([]string, error) {
	ct := contract.New(t, name)
	v := &validator{engine: c.engine, scope: c.scope}
	reg, ok := v.registration(ct)
	if !ok {
		return nil, errResolutionFailed(nil, fmt.Sprintf("no registration for %s", ct), nil)
	}
	deps, err := c.engine.dependencies(reg)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = d.String()
	}
	return out, nil
}
