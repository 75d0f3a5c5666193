package bytestream

import (
	"testing"

	"github.com/dreamruntime/dmrt/internal/vm"
)

func buildTestChunk() *vm.Chunk {
	c := vm.NewChunk()
	idx := c.AddConstant(vm.StringVal("hello"))
	c.WriteOp(vm.OpPushConstant, 1)
	c.WriteConstantIndex(idx, 1)
	c.WriteOp(vm.OpReturn, 2)
	c.File = "test.dmsrc"
	c.Constants = append(c.Constants, vm.IntVal(42), vm.DoubleVal(3.5), vm.PathVal(vm.NewPath("/obj/item")))
	return c
}

func TestEncodeDecodeChunkRoundtrip(t *testing.T) {
	chunk := buildTestChunk()

	data, err := Encode(chunk)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	restored, err := DecodeChunk(data)
	if err != nil {
		t.Fatalf("DecodeChunk failed: %v", err)
	}

	if restored.File != chunk.File {
		t.Errorf("File: got %q, want %q", restored.File, chunk.File)
	}
	if string(restored.Code) != string(chunk.Code) {
		t.Errorf("Code: got %v, want %v", restored.Code, chunk.Code)
	}
	if len(restored.Lines) != len(chunk.Lines) {
		t.Fatalf("Lines length: got %d, want %d", len(restored.Lines), len(chunk.Lines))
	}
	for i := range chunk.Lines {
		if restored.Lines[i] != chunk.Lines[i] {
			t.Errorf("Lines[%d]: got %d, want %d", i, restored.Lines[i], chunk.Lines[i])
		}
	}
	if len(restored.Constants) != len(chunk.Constants) {
		t.Fatalf("Constants length: got %d, want %d", len(restored.Constants), len(chunk.Constants))
	}
	for i, want := range chunk.Constants {
		got := restored.Constants[i]
		if got.Type != want.Type {
			t.Errorf("Constants[%d].Type: got %v, want %v", i, got.Type, want.Type)
		}
		if !got.Equals(want) {
			t.Errorf("Constants[%d]: got %v, want %v", i, got.Stringify(), want.Stringify())
		}
	}
}

func TestDecodeChunkRejectsTruncatedData(t *testing.T) {
	chunk := buildTestChunk()
	data, err := Encode(chunk)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if _, err := DecodeChunk(data[:len(data)-3]); err == nil {
		t.Fatal("expected DecodeChunk to reject truncated data, got nil error")
	}
}
