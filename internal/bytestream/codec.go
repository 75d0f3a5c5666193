// Package bytestream implements the on-disk wire format for a vm.Chunk:
// component L, independent of the in-process Chunk builder the compiler
// writes to directly during lowering. Built on github.com/funvibe/funbit's
// Erlang-style bit-syntax matching/building, the one place in this module
// shaped like fixed-width tagged fields in a flat byte stream - exactly what
// funbit's pattern-matching idiom targets, unlike the single append-only
// pass the in-process builder does.
package bytestream

import (
	"github.com/funvibe/funbit/pkg/binary"

	"github.com/dreamruntime/dmrt/internal/vm"
)

const (
	constNull = iota
	constInteger
	constDouble
	constString
	constPath
)

// Encode serializes c to the on-disk format: file name, code length + raw
// code bytes, the per-instruction line table, then the constant pool. Only
// the scalar constant variants (Null/Integer/Double/String/Path) are
// supported - a compiled chunk's constant pool never holds an Object,
// Resource, or Proc value, since those only ever arise at runtime.
func Encode(c *vm.Chunk) ([]byte, error) {
	b := binary.NewBuilder()
	b.AddBinary([]byte(c.File), binary.WithNullTerminated(true))
	b.AddInteger(int64(len(c.Code)), binary.WithSize(32), binary.WithEndianness(binary.BigEndian))
	b.AddBinary(c.Code)

	b.AddInteger(int64(len(c.Lines)), binary.WithSize(32), binary.WithEndianness(binary.BigEndian))
	for _, line := range c.Lines {
		b.AddInteger(int64(line), binary.WithSize(32), binary.WithEndianness(binary.BigEndian))
	}

	b.AddInteger(int64(len(c.Constants)), binary.WithSize(32), binary.WithEndianness(binary.BigEndian))
	for _, v := range c.Constants {
		if err := encodeConstant(b, v); err != nil {
			return nil, err
		}
	}

	out, err := b.Build()
	if err != nil {
		return nil, &vm.CodecError{Reason: err.Error()}
	}
	return out, nil
}

func encodeConstant(b *binary.Builder, v vm.Value) error {
	switch v.Type {
	case vm.ValNull:
		b.AddInteger(int64(constNull), binary.WithSize(8))
	case vm.ValInteger:
		b.AddInteger(int64(constInteger), binary.WithSize(8))
		b.AddInteger(int64(v.AsInt()), binary.WithSize(32), binary.WithEndianness(binary.BigEndian))
	case vm.ValDouble:
		b.AddInteger(int64(constDouble), binary.WithSize(8))
		b.AddFloat(v.AsDouble(), binary.WithSize(64))
	case vm.ValString:
		b.AddInteger(int64(constString), binary.WithSize(8))
		b.AddBinary([]byte(v.AsString()), binary.WithNullTerminated(true))
	case vm.ValPath:
		b.AddInteger(int64(constPath), binary.WithSize(8))
		b.AddBinary([]byte(v.AsPath().String()), binary.WithNullTerminated(true))
	default:
		return &vm.CodecError{Reason: "unencodable constant pool value type"}
	}
	return nil
}

// DecodeChunk parses data produced by Encode back into an equivalent Chunk:
// same code bytes, constant pool, and line table.
func DecodeChunk(data []byte) (*vm.Chunk, error) {
	var file []byte
	var codeLen int64
	m := binary.NewMatcher()
	m.Binary(&file, binary.WithNullTerminated(true))
	m.Integer(&codeLen, binary.WithSize(32), binary.WithEndianness(binary.BigEndian))
	if _, err := m.Match(data); err != nil {
		return nil, &vm.CodecError{Reason: err.Error()}
	}

	var code []byte
	m2 := binary.NewMatcher()
	m2.Binary(&code, binary.WithBytes(int(codeLen)))
	var lineCount int64
	m2.Integer(&lineCount, binary.WithSize(32), binary.WithEndianness(binary.BigEndian))
	rest := m.Remaining()
	if _, err := m2.Match(rest); err != nil {
		return nil, &vm.CodecError{Reason: err.Error()}
	}

	lines := make([]int, lineCount)
	cursor := m2.Remaining()
	for i := range lines {
		var v int64
		lm := binary.NewMatcher()
		lm.Integer(&v, binary.WithSize(32), binary.WithEndianness(binary.BigEndian))
		if _, err := lm.Match(cursor); err != nil {
			return nil, &vm.CodecError{Reason: err.Error()}
		}
		lines[i] = int(v)
		cursor = lm.Remaining()
	}

	var constCount int64
	cm := binary.NewMatcher()
	cm.Integer(&constCount, binary.WithSize(32), binary.WithEndianness(binary.BigEndian))
	if _, err := cm.Match(cursor); err != nil {
		return nil, &vm.CodecError{Reason: err.Error()}
	}
	cursor = cm.Remaining()

	constants := make([]vm.Value, constCount)
	for i := range constants {
		val, remaining, err := decodeConstant(cursor)
		if err != nil {
			return nil, err
		}
		constants[i] = val
		cursor = remaining
	}

	return &vm.Chunk{
		Code:      code,
		Constants: constants,
		Lines:     lines,
		File:      string(file),
	}, nil
}

func decodeConstant(data []byte) (vm.Value, []byte, error) {
	var kind int64
	m := binary.NewMatcher()
	m.Integer(&kind, binary.WithSize(8))
	if _, err := m.Match(data); err != nil {
		return vm.Value{}, nil, &vm.CodecError{Reason: err.Error()}
	}
	rest := m.Remaining()

	switch kind {
	case constNull:
		return vm.NullVal(), rest, nil
	case constInteger:
		var v int64
		im := binary.NewMatcher()
		im.Integer(&v, binary.WithSize(32), binary.WithEndianness(binary.BigEndian))
		if _, err := im.Match(rest); err != nil {
			return vm.Value{}, nil, &vm.CodecError{Reason: err.Error()}
		}
		return vm.IntVal(int32(v)), im.Remaining(), nil
	case constDouble:
		var v float64
		fm := binary.NewMatcher()
		fm.Float(&v, binary.WithSize(64))
		if _, err := fm.Match(rest); err != nil {
			return vm.Value{}, nil, &vm.CodecError{Reason: err.Error()}
		}
		return vm.DoubleVal(v), fm.Remaining(), nil
	case constString:
		var s []byte
		sm := binary.NewMatcher()
		sm.Binary(&s, binary.WithNullTerminated(true))
		if _, err := sm.Match(rest); err != nil {
			return vm.Value{}, nil, &vm.CodecError{Reason: err.Error()}
		}
		return vm.StringVal(string(s)), sm.Remaining(), nil
	case constPath:
		var s []byte
		pm := binary.NewMatcher()
		pm.Binary(&s, binary.WithNullTerminated(true))
		if _, err := pm.Match(rest); err != nil {
			return vm.Value{}, nil, &vm.CodecError{Reason: err.Error()}
		}
		return vm.PathVal(vm.NewPath(string(s))), pm.Remaining(), nil
	default:
		return vm.Value{}, nil, &vm.CodecError{Reason: "unknown constant pool tag"}
	}
}
