package vm

// TypeID is a stable, monotonically assigned identifier for an
// ObjectDefinition, used as the join key in the persistence bridge's
// snapshot table. Metaobject lookup does not use it (see ResolvedMeta).
type TypeID uint32

// VarFlag is a bitset of compile-time facts about a Variable.
type VarFlag uint8

const (
	FlagNone VarFlag = 0
	// FlagConst marks a variable whose value is fixed at compile time; it
	// never appears as the target of an Assign-producing identifier.
	FlagConst VarFlag = 1 << iota
	FlagGlobal
	// FlagCompiletimeReadonly marks a variable the compiler may fold
	// opportunistically even though it is not formally const.
	FlagCompiletimeReadonly
	// FlagSaved marks a variable whose live value is tracked by the
	// persistence bridge (issaved()).
	FlagSaved
)

func (f VarFlag) Has(bit VarFlag) bool { return f&bit != 0 }

// Variable is a type's declared instance (or global) variable: its default
// value and compile-time facts.
type Variable struct {
	Name    string
	Default Value
	Flags   VarFlag
}

// Metaobject supplies per-type operator overrides. A type without one (or
// with a nil hook) falls through to InvalidOperationError for the ops it
// doesn't implement.
type Metaobject struct {
	Add      func(lhs, rhs Value) (Value, error)
	Subtract func(lhs, rhs Value) (Value, error)
	Append   func(lhs, rhs Value) (Value, error)
	Remove   func(lhs, rhs Value) (Value, error)
	Combine  func(lhs, rhs Value) (Value, error)
	Output   func(lhs, rhs Value) (Value, error)
}

// ObjectDefinition is the immutable per-type record the object tree hands
// back: owning path, parent link, variable/proc/global tables, and an
// optional metaobject.
type ObjectDefinition struct {
	TypeID    TypeID
	Path      Path
	Parent    *ObjectDefinition
	Variables map[string]*Variable
	Procs     map[string]*ProcDef
	Globals   map[string]uint32 // name -> global id
	Meta      *Metaobject
}

// LookupVariable walks the type's own table, then its parent chain.
func (d *ObjectDefinition) LookupVariable(name string) (*Variable, *ObjectDefinition) {
	for t := d; t != nil; t = t.Parent {
		if v, ok := t.Variables[name]; ok {
			return v, t
		}
	}
	return nil, nil
}

// LookupProc walks the type's own table, then its parent chain (the "Search"
// variants' base-class walk).
func (d *ObjectDefinition) LookupProc(name string) (*ProcDef, bool) {
	for t := d; t != nil; t = t.Parent {
		if p, ok := t.Procs[name]; ok {
			return p, true
		}
	}
	return nil, false
}

// LookupGlobal walks the type's own table, then its parent chain.
func (d *ObjectDefinition) LookupGlobal(name string) (uint32, bool) {
	for t := d; t != nil; t = t.Parent {
		if id, ok := t.Globals[name]; ok {
			return id, true
		}
	}
	return 0, false
}

// IsA reports whether d's type is other or a descendant of other.
func (d *ObjectDefinition) IsA(other *ObjectDefinition) bool {
	for t := d; t != nil; t = t.Parent {
		if t == other || t.Path.Equal(other.Path) {
			return true
		}
	}
	return false
}

// ResolvedMeta returns the nearest metaobject in the type's own chain: each
// ObjectDefinition holds its own optional Meta, and a type with none of its
// own falls back to its parent's. There is no separate table indexed by
// TypeID.
func (d *ObjectDefinition) ResolvedMeta() *Metaobject {
	for t := d; t != nil; t = t.Parent {
		if t.Meta != nil {
			return t.Meta
		}
	}
	return nil
}

// ObjectTree is the external loader interface the core consumes: type
// metadata, variable/global lookup, object construction. The production
// loader lives outside this module; internal/objtree supplies a reference
// in-memory implementation for the CLI and for tests.
type ObjectTree interface {
	GetObject(path Path) (*ObjectDefinition, bool)
	GetVariable(def *ObjectDefinition, name string) (*Variable, bool)
	GetGlobalID(def *ObjectDefinition, name string) (uint32, bool)
	CreateObject(path Path, args ArgTuple) (*Instance, error)
	DeleteObject(inst *Instance) error
}
