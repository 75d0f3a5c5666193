package objtree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dreamruntime/dmrt/internal/vm"
)

const sampleTree = `
types:
  - path: /obj
    variables:
      - name: hp
        default: {kind: integer, value: "10"}
  - path: /obj/mob
    parent: /obj
    variables:
      - name: hp
        default: {kind: integer, value: "100"}
      - name: title
        default: {kind: string, value: "a mob"}
        flags: [saved]
    globals:
      - name: population
        id: 0
`

func TestLoadFileBuildsParentLinkedTree(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.yaml")
	if err := os.WriteFile(path, []byte(sampleTree), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	tree, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	mob, ok := tree.GetObject(vm.NewPath("/obj/mob"))
	if !ok {
		t.Fatal("expected /obj/mob to be registered")
	}
	if mob.Parent == nil || mob.Parent.Path.String() != "/obj" {
		t.Fatal("expected /obj/mob's parent to be /obj")
	}

	title, _ := mob.LookupVariable("title")
	if title == nil {
		t.Fatal("expected title variable to resolve")
	}
	if !title.Flags.Has(vm.FlagSaved) {
		t.Error("title should carry FlagSaved")
	}

	id, ok := tree.GetGlobalID(mob, "population")
	if !ok || id != 0 {
		t.Errorf("population global id: got %d (ok=%v), want 0", id, ok)
	}
}
