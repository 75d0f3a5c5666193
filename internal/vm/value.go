package vm

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// ValueType tags the variant held by a Value.
type ValueType uint8

const (
	ValNull ValueType = iota
	ValInteger
	ValDouble
	ValString
	ValPath
	ValObject
	ValResource
	ValProc
)

// ProcRef names a proc on a type: the owning type path plus the proc's own
// name, e.g. /mob/verb/attack -> {Owner: /mob, Name: "attack"}. Recv is the
// bound receiver instance a Dereference produced this value from (nil only
// for a proc path with no live receiver, which Call then cannot invoke).
type ProcRef struct {
	Owner Path
	Name  string
	Recv  *Instance
}

// Instance is a live object: a pointer to its definition plus a mutable
// field map. Created by CreateObject, destroyed by explicit Delete.
type Instance struct {
	Def     *ObjectDefinition
	Fields  map[string]Value
	ID      uint64    // tree-assigned monotonic id
	Handle  uuid.UUID // stable cross-process handle (connection bridge, persistence)
	Deleted bool

	// listBacking is non-nil only for the bare container Instances that
	// ListAsValue produces to box a *List as a Value; Def is nil for these.
	// AsList/IsInList tell a list apart from a user object by this field.
	listBacking *List
}

// Resource is a handle into the resource manager (icons, sounds, files).
// The VM never interprets its contents; it is opaque payload forwarded to
// BrowseResource.
type Resource struct {
	ID     uuid.UUID
	Name   string
	Bytes  []byte
}

// Value is a tagged union representing every runtime value DM code can hold.
// Primitives (Null, Integer, Double) are stored inline in Data to avoid heap
// allocation; String/Path/Object/Resource/Proc carry a pointer-ish payload
// in Ptr.
type Value struct {
	Type ValueType
	Data uint64 // int32/float64 bits for numeric variants
	Ptr  any    // string, Path, *Instance, *Resource, ProcRef
}

// Constructors

func NullVal() Value { return Value{Type: ValNull} }

func IntVal(v int32) Value {
	return Value{Type: ValInteger, Data: uint64(uint32(v))}
}

func DoubleVal(v float64) Value {
	return Value{Type: ValDouble, Data: math.Float64bits(v)}
}

func StringVal(s string) Value {
	return Value{Type: ValString, Ptr: s}
}

func PathVal(p Path) Value {
	return Value{Type: ValPath, Ptr: p}
}

func ObjectVal(inst *Instance) Value {
	if inst == nil {
		return NullVal()
	}
	return Value{Type: ValObject, Ptr: inst}
}

func ResourceVal(r *Resource) Value {
	if r == nil {
		return NullVal()
	}
	return Value{Type: ValResource, Ptr: r}
}

func ProcVal(ref ProcRef) Value {
	return Value{Type: ValProc, Ptr: ref}
}

// Accessors (caller must check Type first; these panic on mismatch like a
// type assertion would)

func (v Value) AsInt() int32      { return int32(uint32(v.Data)) }
func (v Value) AsDouble() float64 { return math.Float64frombits(v.Data) }
func (v Value) AsString() string  { return v.Ptr.(string) }
func (v Value) AsPath() Path      { return v.Ptr.(Path) }
func (v Value) AsObject() *Instance {
	if v.Type != ValObject {
		return nil
	}
	return v.Ptr.(*Instance)
}
func (v Value) AsResource() *Resource { return v.Ptr.(*Resource) }
func (v Value) AsProc() ProcRef       { return v.Ptr.(ProcRef) }

func (v Value) IsNull() bool     { return v.Type == ValNull }
func (v Value) IsNumeric() bool  { return v.Type == ValInteger || v.Type == ValDouble }
func (v Value) IsObject() bool   { return v.Type == ValObject }
func (v Value) IsNullObject() bool {
	return v.Type == ValNull || (v.Type == ValObject && v.AsObject() == nil)
}

// asNumber returns the value widened to float64, for mixed-numeric ops.
func (v Value) asNumber() float64 {
	if v.Type == ValInteger {
		return float64(v.AsInt())
	}
	return v.AsDouble()
}

// IsTruthy implements DM truthiness: Null -> false; Integer 0 -> false;
// empty String -> false; everything else -> true.
func (v Value) IsTruthy() bool {
	switch v.Type {
	case ValNull:
		return false
	case ValInteger:
		return v.AsInt() != 0
	case ValDouble:
		return true
	case ValString:
		return v.AsString() != ""
	case ValObject:
		return v.AsObject() != nil
	default:
		return true
	}
}

// Equals implements type-first equality: cross-type numeric compares
// coerce; object/path compares are identity/path-equal; mixing object with
// number/string is always unequal; Null equals only Null or a null Object.
func (v Value) Equals(o Value) bool {
	if v.IsNullObject() && o.IsNullObject() {
		return true
	}
	if v.IsNullObject() != o.IsNullObject() {
		return false
	}
	if v.IsNumeric() && o.IsNumeric() {
		if v.Type == ValInteger && o.Type == ValInteger {
			return v.AsInt() == o.AsInt()
		}
		return v.asNumber() == o.asNumber()
	}
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case ValString:
		return v.AsString() == o.AsString()
	case ValPath:
		return v.AsPath().Equal(o.AsPath())
	case ValObject:
		return v.AsObject() == o.AsObject()
	case ValResource:
		return v.AsResource() == o.AsResource()
	case ValProc:
		a, b := v.AsProc(), o.AsProc()
		return a.Name == b.Name && a.Owner.Equal(b.Owner)
	default:
		return false
	}
}

// LessThan / GreaterThan are only defined for numeric and string operands
// (string compares lexicographically, matching how DM orders text).
func (v Value) LessThan(o Value) (bool, error) {
	if v.IsNumeric() && o.IsNumeric() {
		return v.asNumber() < o.asNumber(), nil
	}
	if v.Type == ValString && o.Type == ValString {
		return v.AsString() < o.AsString(), nil
	}
	return false, &InvalidOperationError{Kind: "less_than", LHS: v, RHS: o}
}

func (v Value) GreaterThan(o Value) (bool, error) {
	if v.IsNumeric() && o.IsNumeric() {
		return v.asNumber() > o.asNumber(), nil
	}
	if v.Type == ValString && o.Type == ValString {
		return v.AsString() > o.AsString(), nil
	}
	return false, &InvalidOperationError{Kind: "greater_than", LHS: v, RHS: o}
}

// Inspect renders a debug string representation.
func (v Value) Inspect() string {
	switch v.Type {
	case ValNull:
		return "null"
	case ValInteger:
		return fmt.Sprintf("%d", v.AsInt())
	case ValDouble:
		return fmt.Sprintf("%g", v.AsDouble())
	case ValString:
		return v.AsString()
	case ValPath:
		return v.AsPath().String()
	case ValObject:
		inst := v.AsObject()
		if inst == nil {
			return "null"
		}
		if inst.Def == nil {
			if inst.listBacking != nil {
				return fmt.Sprintf("/list(len=%d)", inst.listBacking.Len())
			}
			return "/list"
		}
		return fmt.Sprintf("%s#%d", inst.Def.Path.String(), inst.ID)
	case ValResource:
		return fmt.Sprintf("resource(%s)", v.AsResource().Name)
	case ValProc:
		ref := v.AsProc()
		return fmt.Sprintf("%s/proc/%s", ref.Owner.String(), ref.Name)
	default:
		return "?"
	}
}

// Stringify is the coercion FormatString/join/output use to turn any value
// into display text; unlike Inspect it is meant to match what DM code would
// see from text-concatenation, not a debug rendering.
func (v Value) Stringify() string {
	switch v.Type {
	case ValNull:
		return ""
	default:
		return v.Inspect()
	}
}
