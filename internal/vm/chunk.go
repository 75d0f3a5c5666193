package vm

import (
	"encoding/binary"
	"math"
)

// Chunk is a sequence of bytecode instructions with inline opcode operands:
// null-terminated ASCII for strings, big-endian 32-bit for ints, IEEE-754
// double (little-endian) for floats.
type Chunk struct {
	Code      []byte
	Constants []Value
	Lines     []int
	File      string
}

// NewChunk creates an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{Code: make([]byte, 0, 256), Constants: make([]Value, 0, 16), Lines: make([]int, 0, 256)}
}

func (c *Chunk) writeByte(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op Opcode, line int) int {
	pos := len(c.Code)
	c.writeByte(byte(op), line)
	return pos
}

// WriteInt32 appends a big-endian signed 32-bit operand.
func (c *Chunk) WriteInt32(v int32, line int) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	for _, b := range buf {
		c.writeByte(b, line)
	}
}

// WriteDouble appends an IEEE-754 double operand (little-endian byte order).
func (c *Chunk) WriteDouble(v float64, line int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	for _, b := range buf {
		c.writeByte(b, line)
	}
}

// WriteString appends a NUL-terminated string operand.
func (c *Chunk) WriteString(s string, line int) {
	for i := 0; i < len(s); i++ {
		c.writeByte(s[i], line)
	}
	c.writeByte(0, line)
}

// WriteByte appends a single raw byte operand (e.g. the Initial/IsSaved
// field-vs-index discriminator).
func (c *Chunk) WriteByte(b byte, line int) {
	c.writeByte(b, line)
}

// AddConstant interns v into the constant pool and returns its index.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// WriteConstantIndex appends a 2-byte big-endian constant pool index.
func (c *Chunk) WriteConstantIndex(idx int, line int) {
	c.writeByte(byte(idx>>8), line)
	c.writeByte(byte(idx), line)
}

// Len returns the number of bytes emitted so far.
func (c *Chunk) Len() int { return len(c.Code) }

// PatchInt32 overwrites the 4-byte big-endian operand at offset - used to
// back-patch jump targets once the end label's position is known.
func (c *Chunk) PatchInt32(offset int, v int32) {
	binary.BigEndian.PutUint32(c.Code[offset:offset+4], uint32(v))
}
