package vm

// ArgTuple is the pair (positional, named) of either values or identifiers
// arriving at a call site. It is materialized (identifiers resolved to
// their current value) only at the point of binding to a proc's parameters.
type ArgTuple struct {
	Positional []StackEntry
	Named      map[string]StackEntry
}

// NewArgTuple creates an empty tuple.
func NewArgTuple() ArgTuple {
	return ArgTuple{Named: make(map[string]StackEntry)}
}

// Materialize resolves every entry (Value stays, Identifier is read) into a
// plain positional/named Value tuple, the shape a proc activation binds
// against.
func (a ArgTuple) Materialize() ([]Value, map[string]Value, error) {
	pos := make([]Value, len(a.Positional))
	for i, e := range a.Positional {
		v, err := e.AsValue()
		if err != nil {
			return nil, nil, err
		}
		pos[i] = v
	}
	named := make(map[string]Value, len(a.Named))
	for k, e := range a.Named {
		v, err := e.AsValue()
		if err != nil {
			return nil, nil, err
		}
		named[k] = v
	}
	return pos, named, nil
}

// ProcDef describes a compiled proc: parameter names (ordered), which
// prefix is required vs defaulted, whether the last parameter is a
// variadic/arglist sink, and the body chunk.
type ProcDef struct {
	Name          string
	Params        []string
	RequiredArity int
	Variadic      bool
	Defaults      map[string]Value
	Chunk         *Chunk
}

// BindArguments performs ordered + named + arglist-splat parameter binding
// into a fresh local scope, per spec §4.E. Positional args fill parameters
// left to right; named args fill by name (including filling a positional
// slot out of order); a variadic last parameter collects any positional
// overflow into a List.
func BindArguments(def *ProcDef, pos []Value, named map[string]Value) (map[string]Value, error) {
	bound := make(map[string]Value, len(def.Params))
	n := len(def.Params)
	fixedCount := n
	if def.Variadic && n > 0 {
		fixedCount = n - 1
	}
	for i := 0; i < len(pos) && i < fixedCount; i++ {
		bound[def.Params[i]] = pos[i]
	}
	if def.Variadic && n > 0 {
		rest := NewList()
		if len(pos) > fixedCount {
			for _, v := range pos[fixedCount:] {
				rest.Add(v)
			}
		}
		bound[def.Params[n-1]] = ListAsValue(rest)
	}
	for name, v := range named {
		bound[name] = v
	}
	for _, p := range def.Params {
		if _, ok := bound[p]; !ok {
			if dv, ok := def.Defaults[p]; ok {
				bound[p] = dv
			} else {
				bound[p] = NullVal()
			}
		}
	}
	return bound, nil
}

// PushArgumentList flattens a list into positional + named entries
// (arglist splat, the `arglist(L)` / PushArgumentList opcode): associative
// string keys become named; every other (non-associative) value becomes
// positional, in positional order.
func PushArgumentList(l *List) ArgTuple {
	tuple := NewArgTuple()
	handled := make(map[int]bool)
	for k, v := range l.assoc {
		if k.kind == ValString {
			tuple.Named[k.str] = ValueEntry(v)
		}
	}
	for i, item := range l.items {
		if ak, ok := assocKeyOf(item); ok {
			if _, isNamedKey := l.assoc[ak]; isNamedKey && ak.kind == ValString {
				// This positional slot holds a key that was promoted to an
				// associative entry (Set's "insert key into positional
				// sequence" behavior) - it is not itself a positional value.
				continue
			}
		}
		if handled[i] {
			continue
		}
		tuple.Positional = append(tuple.Positional, ValueEntry(item))
	}
	return tuple
}

// ListAsValue boxes a *List as a Value. Lists are represented as Object
// values whose Instance has no ObjectDefinition (a "bare" container) and a
// non-nil list backing; AsList and IsInList check the list backing,
// Dereference and the I/O recipient resolution test for the nil Def.
func ListAsValue(l *List) Value {
	return Value{Type: ValObject, Ptr: &Instance{listBacking: l}}
}

// AsList extracts the *List backing a Value produced by ListAsValue, or nil
// if the value is not a list.
func AsList(v Value) *List {
	if v.Type != ValObject {
		return nil
	}
	inst, ok := v.Ptr.(*Instance)
	if !ok {
		return nil
	}
	return inst.listBacking
}
