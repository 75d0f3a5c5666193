package vm

// Scope holds a back-reference to the owning object (src), a local variable
// map, and a link to its parent scope. Lookup walks the chain, then falls
// back to the object's fields, then globals.
type Scope struct {
	src    *Instance
	locals map[string]Value
	parent *Scope
	tree   ObjectTree
	vmRef  *VM
}

// NewScope creates a root scope bound to src.
func NewScope(src *Instance, tree ObjectTree, owner *VM) *Scope {
	return &Scope{src: src, locals: make(map[string]Value), tree: tree, vmRef: owner}
}

// Create pushes a child scope with the same src (CreateScope opcode).
func (s *Scope) Create() *Scope {
	return &Scope{src: s.src, locals: make(map[string]Value), parent: s, tree: s.tree, vmRef: s.vmRef}
}

// Get resolves name: local chain -> owning object's field -> global.
// Unknown names fail with UnresolvedNameError.
func (s *Scope) Get(name string) (Value, error) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.locals[name]; ok {
			return v, nil
		}
	}
	if s.src != nil {
		if v, ok := s.src.Fields[name]; ok {
			return v, nil
		}
		if def := s.src.Def; def != nil {
			if id, ok := def.LookupGlobal(name); ok && s.vmRef != nil {
				return s.vmRef.GetGlobal(id), nil
			}
		}
	}
	return Value{}, &UnresolvedNameError{Name: name}
}

// Assign writes to the nearest local scope that already defines name; if no
// scope in the chain defines it, a local is created in the topmost
// (innermost) scope, matching DefineVariable's implicit-declaration
// behavior for bare assignment to an undeclared name.
func (s *Scope) Assign(name string, v Value) {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.locals[name]; ok {
			sc.locals[name] = v
			return
		}
	}
	s.locals[name] = v
}

// Define creates (or overwrites) a local binding in this exact scope
// (DefineVariable opcode).
func (s *Scope) Define(name string, v Value) {
	s.locals[name] = v
}

// Src returns the scope's owning object.
func (s *Scope) Src() *Instance { return s.src }
