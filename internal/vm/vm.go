package vm

import (
	"math"

	"github.com/google/uuid"

	"github.com/dreamruntime/dmrt/internal/config"
)

// PersistHook receives a write-through notification every time an IsSaved
// field is assigned. internal/persist's Store is the production
// implementation; it is never on the hot path of ordinary opcode execution
// for fields that are not marked saved.
type PersistHook interface {
	OnAssign(typeID TypeID, varName string, handle uuid.UUID, v Value)
}

// CallFrame is one ongoing proc activation.
type CallFrame struct {
	chunk     *Chunk
	ip        int
	scope     *Scope
	src       *Instance
	procRef   ProcRef
	callerTup ArgTuple // this frame's own argument tuple, for `..` with zero args
}

// VM is the bytecode interpreter: operand stack, scope stack (implicit via
// CallFrame.scope chain), list-enumerator stack, and a single default
// return slot. It executes one byte-code stream at a time; nested proc
// calls get their own CallFrame, never their own goroutine (single-threaded
// cooperative execution, per the concurrency model).
type VM struct {
	stack []StackEntry
	sp    int

	frames     []CallFrame
	frameCount int

	globals    []Value
	globalByID map[uint32]int

	enumerators []*enumeratorFrame

	tree    ObjectTree
	conn    Connection
	persist PersistHook

	maxFrames int
	maxStack  int

	result Value
}

// SetPersistHook installs the persistence bridge's write-through hook. A nil
// hook (the default) means Assign never consults persistence.
func (vm *VM) SetPersistHook(h PersistHook) { vm.persist = h }

type enumeratorFrame struct {
	items []Value
	pos   int
}

// New creates a VM against tree (the external object-tree loader) and conn
// (the external connection bridge for Browse/BrowseResource/OutputControl).
// Either may be nil for a tree-less/conn-less smoke test; opcodes that need
// them do not panic: CreateObject fails with an error, while DeleteObject
// (which then only sets the instance's Deleted flag) and the I/O bridge
// opcodes fall back to no-ops.
func New(tree ObjectTree, conn Connection) *VM {
	return NewWithLimits(tree, conn, config.DefaultMaxFrameCount, config.DefaultMaxStackSize)
}

// NewWithLimits is New with explicit stack/frame caps (from RuntimeConfig).
func NewWithLimits(tree ObjectTree, conn Connection, maxFrames, maxStack int) *VM {
	return &VM{
		stack:      make([]StackEntry, 0, 256),
		frames:     make([]CallFrame, 0, 64),
		globalByID: make(map[uint32]int),
		tree:       tree,
		conn:       conn,
		maxFrames:  maxFrames,
		maxStack:   maxStack,
	}
}

func (vm *VM) push(e StackEntry) error {
	if vm.sp >= vm.maxStack {
		return &StackTypeError{Want: "room on operand stack", Got: "overflow"}
	}
	if vm.sp < len(vm.stack) {
		vm.stack[vm.sp] = e
	} else {
		vm.stack = append(vm.stack, e)
	}
	vm.sp++
	return nil
}

func (vm *VM) pop() (StackEntry, error) {
	if vm.sp == 0 {
		return StackEntry{}, &StackTypeError{Want: "operand stack entry", Got: "empty stack"}
	}
	vm.sp--
	return vm.stack[vm.sp], nil
}

func (vm *VM) popValue() (Value, error) {
	e, err := vm.pop()
	if err != nil {
		return Value{}, err
	}
	return e.AsValue()
}

func (vm *VM) popIdent() (Identifier, error) {
	e, err := vm.pop()
	if err != nil {
		return Identifier{}, err
	}
	return e.AsIdent()
}

func (vm *VM) popArgTuple() (ArgTuple, error) {
	e, err := vm.pop()
	if err != nil {
		return ArgTuple{}, err
	}
	return e.AsArgTuple()
}

func (vm *VM) peek(distance int) StackEntry {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) frame() *CallFrame {
	return &vm.frames[vm.frameCount-1]
}

func (vm *VM) pushFrame(f CallFrame) error {
	if vm.frameCount >= vm.maxFrames {
		return &StackTypeError{Want: "room on call stack", Got: "overflow"}
	}
	if vm.frameCount < len(vm.frames) {
		vm.frames[vm.frameCount] = f
	} else {
		vm.frames = append(vm.frames, f)
	}
	vm.frameCount++
	return nil
}

func (vm *VM) popFrame() {
	vm.frameCount--
}

// GetGlobal/SetGlobal back the Global identifier variant and the scope
// chain's global fallback lookup; globals are addressed by a dense id
// assigned by the object tree, not by name, at VM runtime.
func (vm *VM) GetGlobal(id uint32) Value {
	if idx, ok := vm.globalByID[id]; ok {
		return vm.globals[idx]
	}
	return NullVal()
}

func (vm *VM) SetGlobal(id uint32, v Value) {
	if idx, ok := vm.globalByID[id]; ok {
		vm.globals[idx] = v
		return
	}
	vm.globalByID[id] = len(vm.globals)
	vm.globals = append(vm.globals, v)
}

func (vm *VM) currentProcValue() Value {
	if vm.frameCount == 0 {
		return NullVal()
	}
	return ProcVal(vm.frame().procRef)
}

// byte-stream cursor helpers: the running frame's chunk + ip.

func (vm *VM) readByte() byte {
	f := vm.frame()
	b := f.chunk.Code[f.ip]
	f.ip++
	return b
}

func (vm *VM) readInt32() int32 {
	f := vm.frame()
	b0, b1, b2, b3 := f.chunk.Code[f.ip], f.chunk.Code[f.ip+1], f.chunk.Code[f.ip+2], f.chunk.Code[f.ip+3]
	f.ip += 4
	return int32(uint32(b0)<<24 | uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3))
}

func (vm *VM) readDouble() float64 {
	f := vm.frame()
	var bits uint64
	for i := 0; i < 8; i++ {
		bits |= uint64(f.chunk.Code[f.ip+i]) << (8 * uint(i))
	}
	f.ip += 8
	return math.Float64frombits(bits)
}

func (vm *VM) readString() (string, error) {
	f := vm.frame()
	start := f.ip
	for f.ip < len(f.chunk.Code) {
		if f.chunk.Code[f.ip] == 0 {
			s := string(f.chunk.Code[start:f.ip])
			f.ip++
			return s, nil
		}
		f.ip++
	}
	return "", &StringNotTerminatedError{Offset: start}
}

func (vm *VM) readConstant() (Value, error) {
	f := vm.frame()
	if f.ip+2 > len(f.chunk.Code) {
		return Value{}, &TruncatedBytecodeError{Offset: f.ip}
	}
	idx := int(f.chunk.Code[f.ip])<<8 | int(f.chunk.Code[f.ip+1])
	f.ip += 2
	if idx < 0 || idx >= len(f.chunk.Constants) {
		return Value{}, &TruncatedBytecodeError{Offset: f.ip}
	}
	return f.chunk.Constants[idx], nil
}

func (vm *VM) atEnd() bool {
	f := vm.frame()
	return f.ip >= len(f.chunk.Code)
}

func (vm *VM) currentLine() int {
	f := vm.frame()
	if f.ip >= 0 && f.ip < len(f.chunk.Lines) {
		return f.chunk.Lines[f.ip]
	}
	return 0
}
