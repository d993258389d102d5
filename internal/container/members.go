package container

import (
	"fmt"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/registry"
	"github.com/danpasecinic/thimble/introspect"
)

// planFields lists the fields a build of p injects: the ones marked by the
// introspector and the ones the registration names.
func planFields(p *Plan) ([]fieldTarget, error) {
	explicit := membersOf(p.Registration, registry.MemberField)

	var targets []fieldTarget
	for _, f := range p.Info.Fields {
		m, ok := explicit[f.Name]
		if !ok && !f.Inject {
			continue
		}
		delete(explicit, f.Name)

		d := Dependency{
			Kind:     DependencyField,
			Name:     f.Name,
			Type:     f.Type,
			Contract: f.Dependency,
			Optional: f.Optional,
		}
		if ok && len(m.Params) > 0 {
			d.apply(&m.Params[0])
		}
		targets = append(targets, fieldTarget{index: f.Index, dep: d})
	}
	if err := unknownMembers(p, registry.MemberField, explicit); err != nil {
		return nil, err
	}
	return targets, nil
}

func planProperties(p *Plan) ([]propertySet, error) {
	explicit := membersOf(p.Registration, registry.MemberProperty)

	var sets []propertySet
	for _, prop := range p.Info.Properties {
		m, ok := explicit[prop.Name]
		if !ok && !prop.Inject {
			continue
		}
		delete(explicit, prop.Name)

		d := Dependency{
			Kind:     DependencyProperty,
			Name:     prop.Name,
			Type:     prop.Type,
			Contract: prop.Dependency,
			Optional: prop.Optional,
		}
		if ok && len(m.Params) > 0 {
			d.apply(&m.Params[0])
		}
		sets = append(sets, propertySet{setter: prop.Setter, dep: d, returnsError: prop.ReturnsError})
	}
	if err := unknownMembers(p, registry.MemberProperty, explicit); err != nil {
		return nil, err
	}
	return sets, nil
}

func planMethods(p *Plan) ([]methodCall, error) {
	explicit := membersOf(p.Registration, registry.MemberMethod)

	var calls []methodCall
	for _, m := range p.Info.Methods {
		em, ok := explicit[m.Name]
		if !ok && !m.Inject {
			continue
		}
		delete(explicit, m.Name)

		var given []registry.Param
		if ok {
			if len(em.Params) != 0 && len(em.Params) != len(m.Params) {
				return nil, errInvalidRegistration(
					nil,
					fmt.Sprintf("method %s.%s takes %d parameters, %d given", ireflect.TypeName(p.Target), m.Name, len(m.Params), len(em.Params)),
					introspect.ErrInvalidMember,
				)
			}
			given = em.Params
		}
		params := paramDependencies(m.Params, given)
		if err := checkByRef(p, "method "+m.Name, params); err != nil {
			return nil, err
		}
		calls = append(calls, methodCall{
			name:         m.Name,
			params:       params,
			returnsError: m.ReturnsError,
		})
	}
	if err := unknownMembers(p, registry.MemberMethod, explicit); err != nil {
		return nil, err
	}
	return calls, nil
}

// checkByRef rejects parameters that can only act as out parameters unless
// the registration supplies their value.
func checkByRef(p *Plan, member string, deps []Dependency) error {
	for i := range deps {
		if deps[i].ByRef && !deps[i].fromValue() {
			return errInvalidRegistration(
				nil,
				fmt.Sprintf("%s of %s takes %s, which cannot be injected", member, ireflect.TypeName(p.Target), ireflect.TypeName(deps[i].Type)),
				introspect.ErrInvalidMember,
			)
		}
	}
	return nil
}
