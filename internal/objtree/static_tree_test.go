package objtree

import (
	"testing"

	"github.com/dreamruntime/dmrt/internal/vm"
)

func TestCreateObjectAppliesParentChainDefaultsOutwardIn(t *testing.T) {
	root := &vm.ObjectDefinition{
		Path: vm.NewPath("/obj"),
		Variables: map[string]*vm.Variable{
			"hp":   {Name: "hp", Default: vm.IntVal(10)},
			"name": {Name: "name", Default: vm.StringVal("thing")},
		},
	}
	child := &vm.ObjectDefinition{
		Path:   vm.NewPath("/obj/mob"),
		Parent: root,
		Variables: map[string]*vm.Variable{
			"hp": {Name: "hp", Default: vm.IntVal(100)},
		},
	}
	tree := NewStaticTree(root, child)

	inst, err := tree.CreateObject(vm.NewPath("/obj/mob"), vm.NewArgTuple())
	if err != nil {
		t.Fatalf("CreateObject failed: %v", err)
	}
	if got := inst.Fields["hp"].AsInt(); got != 100 {
		t.Errorf("hp: got %d, want 100 (subtype default should shadow parent)", got)
	}
	if got := inst.Fields["name"].AsString(); got != "thing" {
		t.Errorf("name: got %q, want \"thing\" (inherited from parent)", got)
	}
}

func TestCreateObjectOverlaysNamedArguments(t *testing.T) {
	def := &vm.ObjectDefinition{
		Path: vm.NewPath("/obj/mob"),
		Variables: map[string]*vm.Variable{
			"hp": {Name: "hp", Default: vm.IntVal(100)},
		},
	}
	tree := NewStaticTree(def)

	args := vm.NewArgTuple()
	args.Named["hp"] = vm.ValueEntry(vm.IntVal(5))
	args.Named["unknown_field"] = vm.ValueEntry(vm.IntVal(1))

	inst, err := tree.CreateObject(vm.NewPath("/obj/mob"), args)
	if err != nil {
		t.Fatalf("CreateObject failed: %v", err)
	}
	if got := inst.Fields["hp"].AsInt(); got != 5 {
		t.Errorf("hp: got %d, want 5 (named arg overlay)", got)
	}
	if _, ok := inst.Fields["unknown_field"]; ok {
		t.Error("unknown_field should not appear: no declared field with that name")
	}
}

func TestCreateObjectUnknownPathFails(t *testing.T) {
	tree := NewStaticTree()
	if _, err := tree.CreateObject(vm.NewPath("/obj/ghost"), vm.NewArgTuple()); err == nil {
		t.Fatal("expected error for unregistered type path")
	}
}

func TestDeleteObjectMarksDeleted(t *testing.T) {
	def := &vm.ObjectDefinition{Path: vm.NewPath("/obj")}
	tree := NewStaticTree(def)

	inst, err := tree.CreateObject(vm.NewPath("/obj"), vm.NewArgTuple())
	if err != nil {
		t.Fatalf("CreateObject failed: %v", err)
	}
	if err := tree.DeleteObject(inst); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	if !inst.Deleted {
		t.Error("instance should be marked Deleted")
	}
}
