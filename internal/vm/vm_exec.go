package vm

// Run drives the frame's byte-code stream until Return sets the result, an
// error unwinds the interpreter, or the stream runs out (treated as an
// implicit Return of the current default result). On exit, both the
// operand stack and the frame stack are unconditionally reset to the depth
// they had on entry, which leaves them empty for a top-level run.
func (vm *VM) Run(chunk *Chunk, scope *Scope, src *Instance, proc ProcRef, callerArgs ArgTuple) (Value, error) {
	startFrame := vm.frameCount
	startSP := vm.sp
	if err := vm.pushFrame(CallFrame{chunk: chunk, scope: scope, src: src, procRef: proc, callerTup: callerArgs}); err != nil {
		return Value{}, err
	}
	vm.result = NullVal()

	result, err := vm.runLoop(startFrame)

	vm.frameCount = startFrame
	vm.sp = startSP
	return result, err
}

func (vm *VM) runLoop(stopFrame int) (Value, error) {
	for vm.frameCount > stopFrame {
		if vm.atEnd() {
			vm.popFrame()
			if vm.frameCount == stopFrame {
				return vm.result, nil
			}
			continue
		}
		op := Opcode(vm.readByte())
		if err := vm.executeOneOp(op); err != nil {
			return Value{}, err
		}
		if op == OpReturn && vm.frameCount == stopFrame {
			return vm.result, nil
		}
	}
	return vm.result, nil
}

func (vm *VM) executeOneOp(op Opcode) error {
	switch op {
	case OpPushInt:
		return vm.push(ValueEntry(IntVal(vm.readInt32())))
	case OpPushDouble:
		return vm.push(ValueEntry(DoubleVal(vm.readDouble())))
	case OpPushString:
		s, err := vm.readString()
		if err != nil {
			return err
		}
		return vm.push(ValueEntry(StringVal(s)))
	case OpPushPath:
		s, err := vm.readString()
		if err != nil {
			return err
		}
		return vm.push(ValueEntry(PathVal(NewPath(s))))
	case OpPushNull:
		return vm.push(ValueEntry(NullVal()))
	case OpPushConstant:
		v, err := vm.readConstant()
		if err != nil {
			return err
		}
		return vm.push(ValueEntry(v))
	case OpPushResource:
		s, err := vm.readString()
		if err != nil {
			return err
		}
		return vm.push(ValueEntry(ResourceVal(&Resource{Name: s})))
	case OpPushSrc:
		return vm.push(ValueEntry(ObjectVal(vm.frame().src)))
	case OpPushSelf:
		return vm.push(ValueEntry(vm.currentProcValue()))
	case OpPushSuperProc:
		return vm.push(ValueEntry(vm.currentProcValue()))

	case OpGetIdentifier:
		return vm.opGetIdentifier()
	case OpDefineVariable:
		return vm.opDefineVariable()
	case OpAssign:
		return vm.opAssign()
	case OpDereference:
		return vm.opDereference()
	case OpPushGlobal:
		id := uint32(vm.readInt32())
		return vm.push(IdentEntry(GlobalIdent(vm, id)))

	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpModulus:
		return vm.opArith(op)
	case OpNegate:
		return vm.opUnary(Neg)
	case OpBitAnd, OpBitOr, OpBitXor, OpBitShiftLeft:
		return vm.opBitwise(op)
	case OpBitNot:
		return vm.opUnary(BitNot)
	case OpAppend, OpRemoveOp, OpCombine, OpMask:
		return vm.opCompoundAssign(op)

	case OpCompareEquals, OpCompareNotEquals, OpCompareLessThan, OpCompareLessOrEqual,
		OpCompareGreaterThan, OpCompareGreaterOrEqual:
		return vm.opCompare(op)

	case OpJump:
		target := vm.readInt32()
		vm.frame().ip = int(target)
		return nil
	case OpJumpIfTrue:
		target := vm.readInt32()
		v, err := vm.popValue()
		if err != nil {
			return err
		}
		if v.IsTruthy() {
			vm.frame().ip = int(target)
		}
		return nil
	case OpJumpIfFalse:
		target := vm.readInt32()
		v, err := vm.popValue()
		if err != nil {
			return err
		}
		if !v.IsTruthy() {
			vm.frame().ip = int(target)
		}
		return nil
	case OpBooleanAnd:
		return vm.opShortCircuit(vm.readInt32(), false)
	case OpBooleanOr:
		return vm.opShortCircuit(vm.readInt32(), true)
	case OpBooleanNot:
		v, err := vm.popValue()
		if err != nil {
			return err
		}
		if v.IsTruthy() {
			return vm.push(ValueEntry(IntVal(0)))
		}
		return vm.push(ValueEntry(IntVal(1)))
	case OpSwitchCase:
		return vm.opSwitchCase(vm.readInt32())

	case OpReturn:
		v, err := vm.popValue()
		if err != nil {
			return err
		}
		vm.result = v
		vm.popFrame()
		return nil

	case OpError:
		return &InvalidOperationError{Kind: "error"}

	case OpCreateScope:
		f := vm.frame()
		f.scope = f.scope.Create()
		return nil
	case OpDestroyScope:
		f := vm.frame()
		if f.scope.parent == nil {
			return &ScopeUnderflowError{}
		}
		f.scope = f.scope.parent
		return nil

	case OpGuardNullKeep:
		return vm.opGuardNull(vm.readInt32(), false)
	case OpGuardNullPop:
		return vm.opGuardNull(vm.readInt32(), true)

	case OpPushArguments:
		return vm.opPushArguments()
	case OpCall:
		return vm.opCall()
	case OpCallStatement:
		return vm.opCallStatement()
	case OpCreateObject:
		return vm.opCreateObject()

	case OpCreateList:
		return vm.push(ValueEntry(ListAsValue(NewList())))
	case OpListAppend:
		return vm.opListAppend(false)
	case OpListAppendAssociated:
		return vm.opListAppend(true)
	case OpIndexList:
		return vm.opIndexList()
	case OpIsInList:
		return vm.opIsInList()
	case OpPushArgumentList:
		return vm.opPushArgumentList()
	case OpCreateListEnumerator:
		return vm.opCreateListEnumerator()
	case OpEnumerateList:
		return vm.opEnumerateList()
	case OpDestroyListEnumerator:
		if len(vm.enumerators) == 0 {
			return &EnumeratorUnderflowError{}
		}
		vm.enumerators = vm.enumerators[:len(vm.enumerators)-1]
		return nil

	case OpBrowse:
		return vm.opBrowse()
	case OpBrowseResource:
		return vm.opBrowseResource()
	case OpOutputControl:
		return vm.opOutputControl()

	case OpFormatString:
		return vm.opFormatString()

	case OpDeleteObject:
		return vm.opDeleteObject()
	case OpInitial:
		return vm.opInitial()
	case OpIsSaved:
		return vm.opIsSaved()

	case OpPop:
		_, err := vm.pop()
		return err
	case OpHalt:
		vm.frameCount = 0
		return nil

	default:
		return &InvalidOpcodeError{Opcode: byte(op)}
	}
}

// opShortCircuit implements BooleanAnd/BooleanOr: inspect TOS; if the
// short-circuit case holds (falsy for And, truthy for Or), leave TOS in
// place and jump; else pop and continue.
func (vm *VM) opShortCircuit(target int32, orMode bool) error {
	top := vm.peek(0)
	v, err := top.AsValue()
	if err != nil {
		return err
	}
	shortCircuit := v.IsTruthy() == orMode
	if shortCircuit {
		vm.frame().ip = int(target)
		return nil
	}
	_, err = vm.pop()
	return err
}

// opSwitchCase compares two TOS values (subject below, case-test on top);
// on match, pops the test value and the subject, leaves nothing, and jumps;
// on mismatch, pops only the test value and keeps the subject for the next
// SwitchCase/fallthrough.
func (vm *VM) opSwitchCase(target int32) error {
	test, err := vm.popValue()
	if err != nil {
		return err
	}
	subjectEntry := vm.peek(0)
	subject, err := subjectEntry.AsValue()
	if err != nil {
		return err
	}
	if subject.Equals(test) {
		_, err := vm.pop()
		if err != nil {
			return err
		}
		vm.frame().ip = int(target)
	}
	return nil
}
