// Package embed is the host-facing API a Go program imports to run compiled
// dmrt bytecode: construct a Runtime over an object tree and a connection
// bridge, then invoke a proc by path. It mirrors the teacher's pkg/embed
// host wrapper shape (New/Bind-style surface around a lower-level VM), cut
// down to this runtime's scope - there is no source-level Eval here, only
// pre-lowered bytecode execution.
package embed

import (
	"github.com/dreamruntime/dmrt/internal/config"
	"github.com/dreamruntime/dmrt/internal/vm"
)

// Runtime owns one VM and the object tree it was constructed against.
// Procs are invoked by type path + proc name; each call runs to completion
// (or error) on the calling goroutine, matching the VM's single-threaded
// cooperative execution model.
type Runtime struct {
	machine *vm.VM
	tree    vm.ObjectTree
}

// New constructs a Runtime against tree (component H) and conn (component
// K). conn may be nil, in which case Browse/BrowseResource/OutputControl
// opcodes run against vm.NullConnection and always succeed as no-ops.
func New(tree vm.ObjectTree, conn vm.Connection) *Runtime {
	if conn == nil {
		conn = vm.NullConnection{}
	}
	return &Runtime{machine: vm.New(tree, conn), tree: tree}
}

// NewWithConfig is New with explicit stack/frame limits from a loaded
// RuntimeConfig (component N).
func NewWithConfig(tree vm.ObjectTree, conn vm.Connection, cfg *config.RuntimeConfig) *Runtime {
	if conn == nil {
		conn = vm.NullConnection{}
	}
	return &Runtime{machine: vm.NewWithLimits(tree, conn, cfg.MaxFrameCount, cfg.MaxStackSize), tree: tree}
}

// SetPersistHook installs the persistence bridge (component J) on the
// underlying VM. Call before any proc that assigns an issaved field runs.
func (r *Runtime) SetPersistHook(h vm.PersistHook) { r.machine.SetPersistHook(h) }

// CreateObject instantiates typePath via the registered object tree,
// passing args through to instance-field initialization.
func (r *Runtime) CreateObject(typePath string, args vm.ArgTuple) (*vm.Instance, error) {
	return r.tree.CreateObject(vm.NewPath(typePath), args)
}

// Invoke runs recv's proc named procName to completion and returns its
// result. args becomes the callee's own argument tuple (what `..` resends
// with zero args of its own). Binding and scope seeding (src/usr/args, the
// same ones a nested Call gets) go through vm.InvokeProc, so a proc that
// references those identifiers behaves identically whether it is reached
// as an entry point or a nested call.
func (r *Runtime) Invoke(recv *vm.Instance, procName string, args vm.ArgTuple) (vm.Value, error) {
	if recv == nil || recv.Def == nil {
		return vm.Value{}, &vm.UnresolvedNameError{Name: procName}
	}
	proc, ok := recv.Def.LookupProc(procName)
	if !ok {
		return vm.Value{}, &vm.UnresolvedNameError{Type: recv.Def.Path.String(), Name: procName}
	}
	ref := vm.ProcRef{Owner: recv.Def.Path, Name: procName, Recv: recv}
	return r.machine.InvokeProc(proc, recv, args, ref)
}

// InvokeByPath resolves typePath's definition, binds procName against it,
// and runs it with src as the executing instance (nil for a type-level
// call with no live receiver, e.g. a world-scoped entry point). See Invoke
// for the scope-seeding guarantee.
func (r *Runtime) InvokeByPath(typePath, procName string, src *vm.Instance, args vm.ArgTuple) (vm.Value, error) {
	def, ok := r.tree.GetObject(vm.NewPath(typePath))
	if !ok {
		return vm.Value{}, &vm.UnresolvedNameError{Type: typePath, Name: "(type)"}
	}
	proc, ok := def.LookupProc(procName)
	if !ok {
		return vm.Value{}, &vm.UnresolvedNameError{Type: typePath, Name: procName}
	}
	ref := vm.ProcRef{Owner: def.Path, Name: procName, Recv: src}
	return r.machine.InvokeProc(proc, src, args, ref)
}
