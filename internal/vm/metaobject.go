package vm

// metaRegistry adapts an ObjectDefinition's resolved Metaobject to the
// metaDispatch interface arith.go expects, so arithmetic stays ignorant of
// how the lookup happens (the definition's own Meta field with parent
// fallback, see ObjectDefinition.ResolvedMeta; no table keyed by TypeID).
type metaRegistry struct{}

var defaultMetaRegistry = &metaRegistry{}

func (r *metaRegistry) dispatch(op string, lhs, rhs Value) (Value, bool, error) {
	inst := lhs.AsObject()
	if inst == nil {
		return Value{}, false, nil
	}
	meta := inst.Def.ResolvedMeta()
	if meta == nil {
		return Value{}, false, nil
	}
	var hook func(Value, Value) (Value, error)
	switch op {
	case "Add":
		hook = meta.Add
	case "Subtract":
		hook = meta.Subtract
	case "Append":
		hook = meta.Append
	case "Remove":
		hook = meta.Remove
	case "Combine":
		hook = meta.Combine
	case "Output":
		hook = meta.Output
	}
	if hook == nil {
		return Value{}, false, nil
	}
	v, err := hook(lhs, rhs)
	return v, true, err
}
