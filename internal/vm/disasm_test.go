package vm

import "testing"

func TestDisassembleRendersOffsetsAndNames(t *testing.T) {
	c := NewChunk()
	idx := c.AddConstant(StringVal("hi"))
	c.WriteOp(OpPushConstant, 1)
	c.WriteConstantIndex(idx, 1)
	c.WriteOp(OpPushInt, 2)
	c.WriteInt32(7, 2)
	c.WriteOp(OpReturn, 2)

	out := Disassemble(c, "sample")

	if out == "" {
		t.Fatal("Disassemble returned empty output")
	}
	for _, want := range []string{"sample", "PUSH_CONSTANT", "PUSH_INT", "RETURN", "0000"} {
		if !contains(out, want) {
			t.Errorf("expected disassembly to contain %q, got:\n%s", want, out)
		}
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
