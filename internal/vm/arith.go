package vm

// metaDispatch is implemented by the metaobject registry (metaobject.go). It
// lets arith.go stay ignorant of how metaobjects are looked up.
type metaDispatch interface {
	dispatch(op string, lhs, rhs Value) (Value, bool, error)
}

// Add implements "+": numeric promotes to the wider type; String+anything
// and anything+String concatenate; Object dispatches to the metaobject's Add
// hook if present.
func Add(lhs, rhs Value, meta metaDispatch) (Value, error) {
	if lhs.Type == ValString || rhs.Type == ValString {
		return StringVal(lhs.Stringify() + rhs.Stringify()), nil
	}
	if lhs.IsNumeric() && rhs.IsNumeric() {
		return promote(lhs, rhs, func(a, b int32) int32 { return a + b }, func(a, b float64) float64 { return a + b }), nil
	}
	if v, ok, err := tryMeta(meta, "Add", lhs, rhs); ok || err != nil {
		return v, err
	}
	return Value{}, &InvalidOperationError{Kind: "add", LHS: lhs, RHS: rhs}
}

// Sub implements "-".
func Sub(lhs, rhs Value, meta metaDispatch) (Value, error) {
	if lhs.IsNumeric() && rhs.IsNumeric() {
		return promote(lhs, rhs, func(a, b int32) int32 { return a - b }, func(a, b float64) float64 { return a - b }), nil
	}
	if v, ok, err := tryMeta(meta, "Subtract", lhs, rhs); ok || err != nil {
		return v, err
	}
	return Value{}, &InvalidOperationError{Kind: "subtract", LHS: lhs, RHS: rhs}
}

// Mul implements "*".
func Mul(lhs, rhs Value, meta metaDispatch) (Value, error) {
	if lhs.IsNumeric() && rhs.IsNumeric() {
		return promote(lhs, rhs, func(a, b int32) int32 { return a * b }, func(a, b float64) float64 { return a * b }), nil
	}
	return Value{}, &InvalidOperationError{Kind: "multiply", LHS: lhs, RHS: rhs}
}

// Div implements "/". Integer/Integer division still returns a Double: the
// source's four GetValueAsNumber arms were identical, so this collapses to
// one numeric path per the Open Question in spec/design notes §9.
func Div(lhs, rhs Value, meta metaDispatch) (Value, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return Value{}, &InvalidOperationError{Kind: "divide", LHS: lhs, RHS: rhs}
	}
	if rhs.asNumber() == 0 {
		return Value{}, &DivideByZeroError{}
	}
	return DoubleVal(lhs.asNumber() / rhs.asNumber()), nil
}

// Mod implements "%": integer modulus when both sides are integers,
// otherwise a floating remainder.
func Mod(lhs, rhs Value, meta metaDispatch) (Value, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return Value{}, &InvalidOperationError{Kind: "modulus", LHS: lhs, RHS: rhs}
	}
	if lhs.Type == ValInteger && rhs.Type == ValInteger {
		if rhs.AsInt() == 0 {
			return Value{}, &DivideByZeroError{}
		}
		return IntVal(lhs.AsInt() % rhs.AsInt()), nil
	}
	if rhs.asNumber() == 0 {
		return Value{}, &DivideByZeroError{}
	}
	a, b := lhs.asNumber(), rhs.asNumber()
	r := a - b*float64(int64(a/b))
	return DoubleVal(r), nil
}

// Neg implements unary "-".
func Neg(v Value) (Value, error) {
	switch v.Type {
	case ValInteger:
		return IntVal(-v.AsInt()), nil
	case ValDouble:
		return DoubleVal(-v.AsDouble()), nil
	default:
		return Value{}, &InvalidOperationError{Kind: "negate", LHS: v}
	}
}

// BitAnd, BitOr, BitXor, BitShiftLeft implement the integer bitwise family.
func BitAnd(lhs, rhs Value) (Value, error) { return bitOp(lhs, rhs, "and", func(a, b int32) int32 { return a & b }) }
func BitOr(lhs, rhs Value) (Value, error)  { return bitOp(lhs, rhs, "or", func(a, b int32) int32 { return a | b }) }
func BitXor(lhs, rhs Value) (Value, error) { return bitOp(lhs, rhs, "xor", func(a, b int32) int32 { return a ^ b }) }
func BitShiftLeft(lhs, rhs Value) (Value, error) {
	return bitOp(lhs, rhs, "shl", func(a, b int32) int32 { return a << uint32(b) })
}

func bitOp(lhs, rhs Value, kind string, f func(a, b int32) int32) (Value, error) {
	if lhs.Type != ValInteger || rhs.Type != ValInteger {
		return Value{}, &InvalidOperationError{Kind: "bit" + kind, LHS: lhs, RHS: rhs}
	}
	return IntVal(f(lhs.AsInt(), rhs.AsInt())), nil
}

// BitNot implements "~x", truncated to 24 bits: ~0 -> 0xFFFFFF, ~1 -> 0xFFFFFE.
func BitNot(v Value) (Value, error) {
	if v.Type != ValInteger {
		return Value{}, &InvalidOperationError{Kind: "bitnot", LHS: v}
	}
	return IntVal(int32(^uint32(v.AsInt()) & 0xFFFFFF)), nil
}

// Append, Remove, Combine, Output dispatch purely to the metaobject: they
// have no built-in numeric/string meaning in the spec beyond what a type's
// operator overrides define.
func Append(lhs, rhs Value, meta metaDispatch) (Value, error) {
	return metaOnly(meta, "Append", lhs, rhs)
}
func Remove(lhs, rhs Value, meta metaDispatch) (Value, error) {
	return metaOnly(meta, "Remove", lhs, rhs)
}
func Combine(lhs, rhs Value, meta metaDispatch) (Value, error) {
	return metaOnly(meta, "Combine", lhs, rhs)
}
func Output(lhs, rhs Value, meta metaDispatch) (Value, error) {
	return metaOnly(meta, "Output", lhs, rhs)
}

func metaOnly(meta metaDispatch, op string, lhs, rhs Value) (Value, error) {
	if v, ok, err := tryMeta(meta, op, lhs, rhs); ok || err != nil {
		return v, err
	}
	return Value{}, &InvalidOperationError{Kind: op, LHS: lhs, RHS: rhs}
}

func tryMeta(meta metaDispatch, op string, lhs, rhs Value) (Value, bool, error) {
	if meta == nil || lhs.Type != ValObject || lhs.AsObject() == nil {
		return Value{}, false, nil
	}
	return meta.dispatch(op, lhs, rhs)
}

func promote(lhs, rhs Value, intOp func(a, b int32) int32, floatOp func(a, b float64) float64) Value {
	if lhs.Type == ValInteger && rhs.Type == ValInteger {
		return IntVal(intOp(lhs.AsInt(), rhs.AsInt()))
	}
	return DoubleVal(floatOp(lhs.asNumber(), rhs.asNumber()))
}
