package persist

import (
	"testing"

	"github.com/google/uuid"

	"github.com/dreamruntime/dmrt/internal/vm"
)

func TestStoreLoadMissesBeforeCommit(t *testing.T) {
	s, err := Open("file::memory:?cache=shared&mode=memory")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	handle := uuid.New()
	s.OnAssign(1, "hp", handle, vm.IntVal(100))

	if _, ok, err := s.Load(1, "hp", handle); err != nil {
		t.Fatalf("Load failed: %v", err)
	} else if ok {
		t.Fatal("Load should not see an uncommitted write")
	}
}

func TestStoreCommitThenLoadRoundtrips(t *testing.T) {
	s, err := Open("file::memory:?cache=shared&mode=memory")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	handle := uuid.New()
	s.OnAssign(1, "hp", handle, vm.IntVal(100))
	s.OnAssign(1, "name", handle, vm.StringVal("ash"))

	if err := s.CommitProc(); err != nil {
		t.Fatalf("CommitProc failed: %v", err)
	}

	hp, ok, err := s.Load(1, "hp", handle)
	if err != nil {
		t.Fatalf("Load(hp) failed: %v", err)
	}
	if !ok {
		t.Fatal("Load(hp) should find a committed row")
	}
	if hp.AsInt() != 100 {
		t.Errorf("hp: got %d, want 100", hp.AsInt())
	}

	name, ok, err := s.Load(1, "name", handle)
	if err != nil {
		t.Fatalf("Load(name) failed: %v", err)
	}
	if !ok || name.AsString() != "ash" {
		t.Errorf("name: got %q (ok=%v), want \"ash\"", name.AsString(), ok)
	}
}

func TestStoreCommitOverwritesPriorSnapshot(t *testing.T) {
	s, err := Open("file::memory:?cache=shared&mode=memory")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	handle := uuid.New()
	s.OnAssign(1, "hp", handle, vm.IntVal(100))
	if err := s.CommitProc(); err != nil {
		t.Fatalf("first CommitProc failed: %v", err)
	}

	s.OnAssign(1, "hp", handle, vm.IntVal(50))
	if err := s.CommitProc(); err != nil {
		t.Fatalf("second CommitProc failed: %v", err)
	}

	hp, ok, err := s.Load(1, "hp", handle)
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if hp.AsInt() != 50 {
		t.Errorf("hp: got %d, want 50 after overwrite", hp.AsInt())
	}
}
