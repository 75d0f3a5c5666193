package vm

// opGetIdentifier resolves name in the current scope chain and pushes a
// Local identifier handle. "src"/"args" (and "usr", when the call bound an
// argument of that name) are ordinary local bindings seeded into the
// frame's top scope at proc-activation time (see InvokeProc in
// vm_calls.go); ".." resolves specially only as a Call target, not here.
func (vm *VM) opGetIdentifier() error {
	name, err := vm.readString()
	if err != nil {
		return err
	}
	return vm.push(IdentEntry(LocalIdent(vm.frame().scope, name)))
}

// opDefineVariable pops a value and creates a local binding in the current
// (innermost) scope.
func (vm *VM) opDefineVariable() error {
	name, err := vm.readString()
	if err != nil {
		return err
	}
	v, err := vm.popValue()
	if err != nil {
		return err
	}
	vm.frame().scope.Define(name, v)
	return nil
}

// opAssign pops an identifier then a value, and writes through.
func (vm *VM) opAssign() error {
	id, err := vm.popIdent()
	if err != nil {
		return err
	}
	v, err := vm.popValue()
	if err != nil {
		return err
	}
	if err := id.Assign(v); err != nil {
		return err
	}
	return vm.push(ValueEntry(v))
}

// opDereference reads an inline name operand and pops an object value,
// yielding a field identifier. Fails if the receiver is not an object, is null, or the type
// has neither the field, a global, nor a proc of that name.
func (vm *VM) opDereference() error {
	name, err := vm.readString()
	if err != nil {
		return err
	}
	v, err := vm.popValue()
	if err != nil {
		return err
	}
	if v.Type != ValObject {
		return &TypeMismatchError{Context: "dereference", Value: v}
	}
	inst := v.AsObject()
	if inst == nil {
		return &NullDerefError{Op: "dereference " + name}
	}
	if inst.Def == nil {
		return &TypeMismatchError{Context: "dereference of list value", Value: v}
	}
	if _, ok := inst.Fields[name]; ok {
		return vm.push(IdentEntry(FieldIdent(inst, name, vm)))
	}
	if variable, _ := inst.Def.LookupVariable(name); variable != nil {
		return vm.push(IdentEntry(FieldIdent(inst, name, vm)))
	}
	if id, ok := inst.Def.LookupGlobal(name); ok {
		return vm.push(IdentEntry(GlobalIdent(vm, id)))
	}
	if _, ok := inst.Def.LookupProc(name); ok {
		return vm.push(ValueEntry(ProcVal(ProcRef{Owner: inst.Def.Path, Name: name, Recv: inst})))
	}
	return &UnresolvedNameError{Type: inst.Def.Path.String(), Name: name}
}

// opGuardNull implements a dereference chain's Safe-variant null guard: peek
// TOS (the receiver); if it is null, jump to the chain's end label, popping
// the receiver first when popOnNull is true (PopNull mode) and leaving it in
// place otherwise (KeepNull mode, the usual read-consumer choice). A
// non-null receiver is left untouched on the stack for the operation that
// follows.
func (vm *VM) opGuardNull(target int32, popOnNull bool) error {
	top := vm.peek(0)
	v, err := top.AsValue()
	if err != nil {
		return err
	}
	if !v.IsNullObject() {
		return nil
	}
	if popOnNull {
		if _, err := vm.pop(); err != nil {
			return err
		}
	} else if top.Kind == EntryIdent {
		// Collapse a null identifier read down to a plain Null value so the
		// chain's end label always finds a Value, never a stale identifier.
		if _, err := vm.pop(); err != nil {
			return err
		}
		if err := vm.push(ValueEntry(NullVal())); err != nil {
			return err
		}
	}
	vm.frame().ip = int(target)
	return nil
}

func (vm *VM) opArith(op Opcode) error {
	rhs, err := vm.popValue()
	if err != nil {
		return err
	}
	lhs, err := vm.popValue()
	if err != nil {
		return err
	}
	var result Value
	switch op {
	case OpAdd:
		result, err = Add(lhs, rhs, defaultMetaRegistry)
	case OpSubtract:
		result, err = Sub(lhs, rhs, defaultMetaRegistry)
	case OpMultiply:
		result, err = Mul(lhs, rhs, defaultMetaRegistry)
	case OpDivide:
		result, err = Div(lhs, rhs, defaultMetaRegistry)
	case OpModulus:
		result, err = Mod(lhs, rhs, defaultMetaRegistry)
	}
	if err != nil {
		return err
	}
	return vm.push(ValueEntry(result))
}

func (vm *VM) opUnary(f func(Value) (Value, error)) error {
	v, err := vm.popValue()
	if err != nil {
		return err
	}
	result, err := f(v)
	if err != nil {
		return err
	}
	return vm.push(ValueEntry(result))
}

func (vm *VM) opBitwise(op Opcode) error {
	rhs, err := vm.popValue()
	if err != nil {
		return err
	}
	lhs, err := vm.popValue()
	if err != nil {
		return err
	}
	var result Value
	switch op {
	case OpBitAnd:
		result, err = BitAnd(lhs, rhs)
	case OpBitOr:
		result, err = BitOr(lhs, rhs)
	case OpBitXor:
		result, err = BitXor(lhs, rhs)
	case OpBitShiftLeft:
		result, err = BitShiftLeft(lhs, rhs)
	}
	if err != nil {
		return err
	}
	return vm.push(ValueEntry(result))
}

// opCompoundAssign implements Append/Remove/Combine/Mask: each pops an
// identifier, then a value, reads the identifier's current value, applies
// the operator, and assigns the result back.
func (vm *VM) opCompoundAssign(op Opcode) error {
	id, err := vm.popIdent()
	if err != nil {
		return err
	}
	rhs, err := vm.popValue()
	if err != nil {
		return err
	}
	lhs, err := id.Get()
	if err != nil {
		return err
	}
	var result Value
	switch op {
	case OpAppend:
		result, err = Append(lhs, rhs, defaultMetaRegistry)
	case OpRemoveOp:
		result, err = Remove(lhs, rhs, defaultMetaRegistry)
	case OpCombine:
		result, err = Combine(lhs, rhs, defaultMetaRegistry)
	case OpMask:
		result, err = BitAnd(lhs, rhs)
	}
	if err != nil {
		return err
	}
	if err := id.Assign(result); err != nil {
		return err
	}
	return vm.push(ValueEntry(result))
}

func (vm *VM) opCompare(op Opcode) error {
	rhs, err := vm.popValue()
	if err != nil {
		return err
	}
	lhs, err := vm.popValue()
	if err != nil {
		return err
	}
	var truth bool
	switch op {
	case OpCompareEquals:
		truth = lhs.Equals(rhs)
	case OpCompareNotEquals:
		truth = !lhs.Equals(rhs)
	case OpCompareLessThan:
		truth, err = lhs.LessThan(rhs)
	case OpCompareLessOrEqual:
		var gt bool
		gt, err = lhs.GreaterThan(rhs)
		truth = !gt
	case OpCompareGreaterThan:
		truth, err = lhs.GreaterThan(rhs)
	case OpCompareGreaterOrEqual:
		var lt bool
		lt, err = lhs.LessThan(rhs)
		truth = !lt
	}
	if err != nil {
		return err
	}
	if truth {
		return vm.push(ValueEntry(IntVal(1)))
	}
	return vm.push(ValueEntry(IntVal(0)))
}
