// Package objtree supplies an in-memory reference implementation of
// vm.ObjectTree: a flat map from type path to definition. spec.md treats the
// production object-tree loader as external; this is the loader the CLI and
// the test suite use to run the VM standalone.
package objtree

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dreamruntime/dmrt/internal/vm"
)

// StaticTree is a fixed set of type definitions, keyed by their dotted path.
// Object creation assigns instance ids from a monotonic counter and a fresh
// uuid.UUID handle; it does not invoke any constructor proc itself, and
// neither do its callers (the VM's OpCreateObject opcode and
// embed.Runtime.CreateObject).
type StaticTree struct {
	mu      sync.Mutex
	byPath  map[string]*vm.ObjectDefinition
	nextID  uint64
	deleted map[*vm.Instance]bool
}

// NewStaticTree indexes defs by path. A later entry with a path already seen
// overwrites the earlier one.
func NewStaticTree(defs ...*vm.ObjectDefinition) *StaticTree {
	t := &StaticTree{
		byPath:  make(map[string]*vm.ObjectDefinition, len(defs)),
		deleted: make(map[*vm.Instance]bool),
	}
	for _, d := range defs {
		t.byPath[d.Path.String()] = d
	}
	return t
}

func (t *StaticTree) GetObject(path vm.Path) (*vm.ObjectDefinition, bool) {
	d, ok := t.byPath[path.String()]
	return d, ok
}

func (t *StaticTree) GetVariable(def *vm.ObjectDefinition, name string) (*vm.Variable, bool) {
	v, _ := def.LookupVariable(name)
	return v, v != nil
}

func (t *StaticTree) GetGlobalID(def *vm.ObjectDefinition, name string) (uint32, bool) {
	return def.LookupGlobal(name)
}

// CreateObject instantiates def's fields from their declared defaults,
// walking the parent chain outward-in so a subtype's own default shadows its
// parent's. Named constructor arguments that match a declared field name are
// then applied directly on top (positional arguments have no field-name to
// bind to without a compiled parameter list for a constructor proc, so they
// are dropped here - a reference-loader judgment call, not a spec
// requirement).
func (t *StaticTree) CreateObject(path vm.Path, args vm.ArgTuple) (*vm.Instance, error) {
	def, ok := t.GetObject(path)
	if !ok {
		return nil, &vm.UnresolvedNameError{Type: path.String(), Name: "(type)"}
	}

	fields := make(map[string]vm.Value)
	var chain []*vm.ObjectDefinition
	for d := def; d != nil; d = d.Parent {
		chain = append(chain, d)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for name, variable := range chain[i].Variables {
			fields[name] = variable.Default
		}
	}

	_, named, err := args.Materialize()
	if err != nil {
		return nil, err
	}
	for name, v := range named {
		if _, ok := fields[name]; ok {
			fields[name] = v
		}
	}

	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.mu.Unlock()

	return &vm.Instance{
		Def:    def,
		Fields: fields,
		ID:     id,
		Handle: uuid.New(),
	}, nil
}

// DeleteObject marks inst deleted and runs its type's metaobject-registered
// destroy hook, if any. No hook is currently defined for destroy in the
// value model, so this reduces to the marker flag plus an entry in the
// tree's own deleted set (which nothing else in this reference
// implementation reads).
func (t *StaticTree) DeleteObject(inst *vm.Instance) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	inst.Deleted = true
	t.deleted[inst] = true
	return nil
}
