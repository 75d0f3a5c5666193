package vm

// OpKind identifies one non-head operation in a dereference chain, as the
// parser hands it down: a field access, an index, or a call, each in a
// plain and a Safe (short-circuiting) and/or Search (base-class-walking)
// variant.
type OpKind uint8

const (
	KindField OpKind = iota
	KindFieldSearch
	KindFieldSafe
	KindFieldSafeSearch
	KindIndex
	KindIndexSafe
	KindCall
	KindCallSearch
	KindCallSafe
	KindCallSafeSearch
)

func (k OpKind) isSafe() bool {
	switch k {
	case KindFieldSafe, KindFieldSafeSearch, KindIndexSafe, KindCallSafe, KindCallSafeSearch:
		return true
	}
	return false
}

func (k OpKind) isField() bool {
	switch k {
	case KindField, KindFieldSearch, KindFieldSafe, KindFieldSafeSearch:
		return true
	}
	return false
}

func (k OpKind) isIndex() bool { return k == KindIndex || k == KindIndexSafe }

func (k OpKind) isCall() bool {
	switch k {
	case KindCall, KindCallSearch, KindCallSafe, KindCallSafeSearch:
		return true
	}
	return false
}

// ChainOp is one operation in a dereference chain. EmitOperand supplies the
// operation's own sub-expression bytecode: for Index, code that pushes the
// index value; for Call, code that pushes a fully materialized ArgTuple
// entry (i.e. ends in an OpPushArguments or equivalent).
type ChainOp struct {
	Kind        OpKind
	Name        string // Field*/Call* member name
	StaticPath  *Path  // statically known result type, nil if unknown
	EmitOperand func(ch *Chunk, line int)
}

// Consumer selects which of the four lowering protocols a chain compiles
// for: the value (Read), an assignable handle (Reference), or one of the
// two compile-time-metadata queries (Initial, IsSaved).
type Consumer uint8

const (
	ConsumeRead Consumer = iota
	ConsumeReference
	ConsumeInitial
	ConsumeIsSaved
)

// ShortCircuitMode picks what a Safe guard leaves on the stack at the
// chain's end label when a receiver turns out null. Reads always use
// KeepNull; Reference consumers choose per call site.
type ShortCircuitMode uint8

const (
	KeepNull ShortCircuitMode = iota
	PopNull
)

// Chain is a lowered dereference chain: a head expression emitter plus the
// operation sequence applied to it.
type Chain struct {
	EmitHead       func(ch *Chunk, line int)
	HeadStaticPath *Path // nil if the head's type is not statically known
	Ops            []ChainOp
}

// CanShortCircuit reports whether any operation in the chain is a Safe
// variant. Callers use this to decide whether a fused end-label is needed.
func (c Chain) CanShortCircuit() bool {
	for _, op := range c.Ops {
		if op.Kind.isSafe() {
			return true
		}
	}
	return false
}

func (c Chain) penultimateStaticPath() *Path {
	if len(c.Ops) <= 1 {
		return c.HeadStaticPath
	}
	return c.Ops[len(c.Ops)-2].StaticPath
}

// Fold attempts compile-time constant folding. Foldable when the
// penultimate static path is known and the terminal operation is a field
// (any safe/search variant) whose Variable is const (folds to its own
// value) or compile-time readonly (folds opportunistically).
func (c Chain) Fold(tree ObjectTree) (Value, bool) {
	if len(c.Ops) == 0 {
		return Value{}, false
	}
	last := c.Ops[len(c.Ops)-1]
	if !last.Kind.isField() {
		return Value{}, false
	}
	path := c.penultimateStaticPath()
	if path == nil || tree == nil {
		return Value{}, false
	}
	def, ok := tree.GetObject(*path)
	if !ok {
		return Value{}, false
	}
	variable, _ := def.LookupVariable(last.Name)
	if variable == nil {
		return Value{}, false
	}
	if variable.Flags.Has(FlagConst) || variable.Flags.Has(FlagCompiletimeReadonly) {
		return variable.Default, true
	}
	return Value{}, false
}

// Lower emits chain's bytecode into ch for the given consumer. scMode only
// affects Reference consumers (Read/Initial/IsSaved always use KeepNull, so
// the chain's result is always a plain Null value rather than a stale
// identifier when it short-circuits).
func Lower(ch *Chunk, chain Chain, consumer Consumer, scMode ShortCircuitMode, line int) error {
	if consumer != ConsumeReference {
		scMode = KeepNull
	}
	if chain.EmitHead == nil {
		return &ShapeError{Reason: "dereference chain has no head expression", Line: line}
	}
	chain.EmitHead(ch, line)

	if len(chain.Ops) == 0 {
		return nil
	}

	needsEndLabel := chain.CanShortCircuit()
	var endJumps []int
	n := len(chain.Ops)

	for i, op := range chain.Ops {
		isTerminal := i == n-1

		if op.Kind.isSafe() {
			guardOp := OpGuardNullKeep
			if scMode == PopNull {
				guardOp = OpGuardNullPop
			}
			ch.WriteOp(guardOp, line)
			pos := ch.Len()
			ch.WriteInt32(0, line) // patched below once the end label is known
			endJumps = append(endJumps, pos)
		}

		if !isTerminal {
			if err := emitNonTerminal(ch, op, line); err != nil {
				return err
			}
			continue
		}

		switch consumer {
		case ConsumeRead:
			if err := emitNonTerminal(ch, op, line); err != nil {
				return err
			}
		case ConsumeReference:
			if err := emitReferenceTerminal(ch, op, line); err != nil {
				return err
			}
		case ConsumeInitial:
			if err := emitInitialTerminal(ch, op, false, line); err != nil {
				return err
			}
		case ConsumeIsSaved:
			if err := emitInitialTerminal(ch, op, true, line); err != nil {
				return err
			}
		}
	}

	if needsEndLabel {
		end := ch.Len()
		for _, pos := range endJumps {
			ch.PatchInt32(pos, int32(end))
		}
	}
	return nil
}

func emitNonTerminal(ch *Chunk, op ChainOp, line int) error {
	switch {
	case op.Kind.isField():
		ch.WriteOp(OpDereference, line)
		ch.WriteString(op.Name, line)
		return nil
	case op.Kind.isIndex():
		if op.EmitOperand == nil {
			return &ShapeError{Reason: "index operation missing its index expression", Line: line}
		}
		op.EmitOperand(ch, line)
		ch.WriteOp(OpIndexList, line)
		return nil
	case op.Kind.isCall():
		ch.WriteOp(OpDereference, line)
		ch.WriteString(op.Name, line)
		if op.EmitOperand == nil {
			return &ShapeError{Reason: "call operation missing its argument tuple", Line: line}
		}
		op.EmitOperand(ch, line)
		ch.WriteOp(OpCall, line)
		return nil
	default:
		return &ShapeError{Reason: "invalid dereference-chain operation kind", Line: line}
	}
}

// emitReferenceTerminal produces a first-class reference handle (field-ref
// or list-index-ref); a call terminal is rejected since a call result is
// never an l-value.
func emitReferenceTerminal(ch *Chunk, op ChainOp, line int) error {
	switch {
	case op.Kind.isField():
		ch.WriteOp(OpDereference, line)
		ch.WriteString(op.Name, line)
		return nil
	case op.Kind.isIndex():
		if op.EmitOperand == nil {
			return &ShapeError{Reason: "index operation missing its index expression", Line: line}
		}
		op.EmitOperand(ch, line)
		ch.WriteOp(OpIndexList, line)
		return nil
	default:
		return &ShapeError{Reason: "call result is not an l-value", Line: line}
	}
}

// emitInitialTerminal handles the Initial/IsSaved terminal: for a field, it
// emits the name inline; for an index, it emits the index expression. A
// call terminal is rejected with a location-tagged error.
func emitInitialTerminal(ch *Chunk, op ChainOp, wantSaved bool, line int) error {
	opcode := OpInitial
	if wantSaved {
		opcode = OpIsSaved
	}
	switch {
	case op.Kind.isField():
		ch.WriteOp(opcode, line)
		ch.WriteByte(0, line)
		ch.WriteString(op.Name, line)
		return nil
	case op.Kind.isIndex():
		if op.EmitOperand == nil {
			return &ShapeError{Reason: "index operation missing its index expression", Line: line}
		}
		op.EmitOperand(ch, line)
		ch.WriteOp(opcode, line)
		ch.WriteByte(1, line)
		return nil
	default:
		return &ShapeError{Reason: "initial/issaved on a call result", Line: line}
	}
}

// LowerScopeRef implements the `E::name` scope-reference form: the head
// must have a statically known type (headPath). name resolves as an
// instance variable first - compiled as (push head; Initial with the name
// as an inline operand),
// i.e. it reads the definition-time default, never a live field - else as a
// global (a direct global load, bypassing the head entirely). Constant-folds
// through the static variable table exactly like Fold.
func LowerScopeRef(ch *Chunk, tree ObjectTree, emitHead func(ch *Chunk, line int), headPath Path, name string, line int) error {
	def, ok := tree.GetObject(headPath)
	if !ok {
		return &UnresolvedNameError{Type: headPath.String(), Name: name, Line: line}
	}
	if variable, _ := def.LookupVariable(name); variable != nil {
		if variable.Flags.Has(FlagConst) || variable.Flags.Has(FlagCompiletimeReadonly) {
			idx := ch.AddConstant(variable.Default)
			ch.WriteOp(OpPushConstant, line)
			ch.WriteConstantIndex(idx, line)
			return nil
		}
		if emitHead == nil {
			return &ShapeError{Reason: "scope reference has no head expression", Line: line}
		}
		emitHead(ch, line)
		ch.WriteOp(OpInitial, line)
		ch.WriteByte(0, line)
		ch.WriteString(name, line)
		return nil
	}
	if id, ok := def.LookupGlobal(name); ok {
		ch.WriteOp(OpPushGlobal, line)
		ch.WriteInt32(int32(id), line)
		return nil
	}
	return &UnresolvedNameError{Type: headPath.String(), Name: name, Line: line}
}
