package embed

import (
	"testing"

	"github.com/dreamruntime/dmrt/internal/objtree"
	"github.com/dreamruntime/dmrt/internal/vm"
)

// buildAdderChunk compiles a proc body equivalent to `return a + b`
// by hand: push both bound locals, add, return.
func buildAdderChunk() *vm.Chunk {
	c := vm.NewChunk()
	c.WriteOp(vm.OpGetIdentifier, 1)
	c.WriteString("a", 1)
	c.WriteOp(vm.OpGetIdentifier, 1)
	c.WriteString("b", 1)
	c.WriteOp(vm.OpAdd, 1)
	c.WriteOp(vm.OpReturn, 1)
	return c
}

func TestRuntimeInvokeRunsBoundProc(t *testing.T) {
	def := &vm.ObjectDefinition{
		Path:  vm.NewPath("/obj/calc"),
		Procs: map[string]*vm.ProcDef{},
	}
	def.Procs["add"] = &vm.ProcDef{
		Name:          "add",
		Params:        []string{"a", "b"},
		RequiredArity: 2,
		Chunk:         buildAdderChunk(),
	}
	tree := objtree.NewStaticTree(def)

	rt := New(tree, nil)
	inst, err := rt.CreateObject("/obj/calc", vm.NewArgTuple())
	if err != nil {
		t.Fatalf("CreateObject failed: %v", err)
	}

	args := vm.NewArgTuple()
	args.Positional = append(args.Positional, vm.ValueEntry(vm.IntVal(2)), vm.ValueEntry(vm.IntVal(3)))

	result, err := rt.Invoke(inst, "add", args)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if result.AsInt() != 5 {
		t.Errorf("result: got %d, want 5", result.AsInt())
	}
}

func TestRuntimeInvokeUnknownProcFails(t *testing.T) {
	def := &vm.ObjectDefinition{Path: vm.NewPath("/obj/calc")}
	tree := objtree.NewStaticTree(def)
	rt := New(tree, nil)

	inst, err := rt.CreateObject("/obj/calc", vm.NewArgTuple())
	if err != nil {
		t.Fatalf("CreateObject failed: %v", err)
	}
	if _, err := rt.Invoke(inst, "nonexistent", vm.NewArgTuple()); err == nil {
		t.Fatal("expected error invoking an undeclared proc")
	}
}
