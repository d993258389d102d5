package container

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/danpasecinic/thimble/internal/contract"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/introspect"
)

// resolveCollection builds a slice or sequence of elem from every matching
// registration visible to ctx. Slices hold the named registrations only;
// sequences also hold the default one. Registrations whose generic
// constraints reject elem are skipped; any other failure fails the
// collection.
func (e *engine) resolveCollection(ctx *Context, elem reflect.Type, seq bool) (any, error) {
	var def contract.Definition
	if g, _, ok := e.introspector.GenericOf(elem); ok {
		def = g
	}
	regs := ctx.Scope.Collect(elem, def)

	sliceType := ctx.Contract.Type
	if seq {
		sliceType = reflect.SliceOf(elem)
	}
	out := reflect.MakeSlice(sliceType, 0, len(regs))

	for _, reg := range regs {
		name := reg.Contract.Name
		if name == "" && !seq {
			continue
		}

		ec := contract.New(elem, name)
		v, err := e.resolve(ctx.child(ec))
		if err != nil {
			if constraintRejected(err, ec) {
				ctx.Logger().Debug().
					Stringer("contract", reg.Contract).
					Err(err).
					Msg("skipped collection element")
				continue
			}
			return nil, err
		}

		rv, ok := ireflect.AssignableValue(v, elem)
		if !ok {
			return nil, errResolutionFailed(ctx, fmt.Sprintf("collection element %T is not a %s", v, ireflect.TypeName(elem)), nil)
		}
		out = reflect.Append(out, rv)
	}

	if seq {
		return seqOf(ctx.Contract.Type, out).Interface(), nil
	}
	return out.Interface(), nil
}

// constraintRejected reports whether err is the generic binding of c
// failing its constraints, as opposed to a failure further down the build.
func constraintRejected(err error, c contract.Contract) bool {
	var e *Error
	return errors.As(err, &e) &&
		e.Code == ErrCodeInvalidRegistration &&
		e.Failing == c &&
		errors.Is(e.Cause, introspect.ErrConstraint)
}

// seqOf returns a function of type seqType yielding the elements of items.
func seqOf(seqType reflect.Type, items reflect.Value) reflect.Value {
	return reflect.MakeFunc(seqType, func(args []reflect.Value) []reflect.Value {
		yield := args[0]
		for i := 0; i < items.Len(); i++ {
			if !yield.Call([]reflect.Value{items.Index(i)})[0].Bool() {
				break
			}
		}
		return nil
	})
}
