package vm

// IdentKind tags which variant of identifier handle is held.
type IdentKind uint8

const (
	IdentLocal IdentKind = iota
	IdentField
	IdentGlobal
	IdentListIndex
	IdentSelfProc
)

// Identifier is a writable reference: a local var, an object field, a
// global slot, a list index, or the currently executing proc (self-proc;
// the `..` super form does not use it, opCall dispatches `..` by name).
// Identifiers are
// short-lived within one opcode dispatch; they are never stored across a
// suspension point because there are none.
type Identifier struct {
	Kind IdentKind

	scope  *Scope  // Local
	name   string  // Local, Field
	object *Instance // Field
	global uint32  // Global
	list   *List   // ListIndex
	key    Value   // ListIndex

	vmRef *VM // SelfProc, and Global's value store
}

func LocalIdent(scope *Scope, name string) Identifier {
	return Identifier{Kind: IdentLocal, scope: scope, name: name}
}

func FieldIdent(object *Instance, name string, owner *VM) Identifier {
	return Identifier{Kind: IdentField, object: object, name: name, vmRef: owner}
}

func GlobalIdent(owner *VM, id uint32) Identifier {
	return Identifier{Kind: IdentGlobal, vmRef: owner, global: id}
}

func ListIndexIdent(list *List, key Value) Identifier {
	return Identifier{Kind: IdentListIndex, list: list, key: key}
}

func SelfProcIdent(owner *VM) Identifier {
	return Identifier{Kind: IdentSelfProc, vmRef: owner}
}

// Get reads the current value the identifier points to.
func (id Identifier) Get() (Value, error) {
	switch id.Kind {
	case IdentLocal:
		return id.scope.Get(id.name)
	case IdentField:
		if id.object == nil {
			return Value{}, &NullDerefError{Op: "field read"}
		}
		if v, ok := id.object.Fields[id.name]; ok {
			return v, nil
		}
		if v, def := id.object.Def.LookupVariable(id.name); v != nil {
			_ = def
			return v.Default, nil
		}
		return Value{}, &UnresolvedNameError{Type: id.object.Def.Path.String(), Name: id.name}
	case IdentGlobal:
		return id.vmRef.GetGlobal(id.global), nil
	case IdentListIndex:
		return id.list.Get(id.key)
	case IdentSelfProc:
		return id.vmRef.currentProcValue(), nil
	default:
		return Value{}, &StackTypeError{Want: "identifier", Got: "unknown"}
	}
}

// Assign writes v through the identifier. A const field is rejected.
func (id Identifier) Assign(v Value) error {
	switch id.Kind {
	case IdentLocal:
		id.scope.Assign(id.name, v)
		return nil
	case IdentField:
		if id.object == nil {
			return &NullDerefError{Op: "field assign"}
		}
		variable, _ := id.object.Def.LookupVariable(id.name)
		if variable != nil && variable.Flags.Has(FlagConst) {
			return &ConstAssignError{Name: id.name}
		}
		id.object.Fields[id.name] = v
		if variable != nil && variable.Flags.Has(FlagSaved) && id.vmRef != nil && id.vmRef.persist != nil {
			id.vmRef.persist.OnAssign(id.object.Def.TypeID, id.name, id.object.Handle, v)
		}
		return nil
	case IdentGlobal:
		id.vmRef.SetGlobal(id.global, v)
		return nil
	case IdentListIndex:
		return id.list.Set(id.key, v)
	case IdentSelfProc:
		return &StackTypeError{Want: "assignable identifier", Got: "self-proc"}
	default:
		return &StackTypeError{Want: "identifier", Got: "unknown"}
	}
}
