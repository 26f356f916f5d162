// Package bytecode lifts host method bodies into an instruction-list form
// that can be pattern-matched and spliced, then lowered back to raw bytes.
// It also implements the structural verifier mirroring the host loader's
// acceptance rules, so a rewritten body is checked before the host ever
// sees it.
package bytecode

import "fmt"

// Opcode is one instruction of the host's stack machine.
// Opcodes are grouped into ranges by category.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop  Opcode = 0x00 // No operation
	OpPop  Opcode = 0x01 // Discard top of stack
	OpDup  Opcode = 0x02 // Duplicate top of stack
	OpSwap Opcode = 0x03 // Swap top two stack values

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpPushConst Opcode = 0x10 // Push pool constant: OpPushConst <index:u16>
	OpPushNull  Opcode = 0x11 // Push null reference
	OpPushTrue  Opcode = 0x12 // Push true
	OpPushFalse Opcode = 0x13 // Push false

	// ========================================================================
	// Local variables (0x20-0x2F)
	// ========================================================================

	OpLoad  Opcode = 0x20 // Push local: OpLoad <slot:u8>
	OpStore Opcode = 0x21 // Pop into local: OpStore <slot:u8>

	// ========================================================================
	// Fields (0x30-0x3F)
	// ========================================================================

	OpGetField  Opcode = 0x30 // Pop receiver, push field: OpGetField <member:u16>
	OpPutField  Opcode = 0x31 // Pop value and receiver: OpPutField <member:u16>
	OpGetStatic Opcode = 0x32 // Push static field: OpGetStatic <member:u16>
	OpPutStatic Opcode = 0x33 // Pop into static field: OpPutStatic <member:u16>

	// ========================================================================
	// Calls and allocation (0x40-0x4F)
	// ========================================================================

	OpCallVirtual Opcode = 0x40 // Pop args then receiver, push result: OpCallVirtual <member:u16>
	OpCallStatic  Opcode = 0x41 // Pop args, push result: OpCallStatic <member:u16>
	OpNew         Opcode = 0x42 // Push new instance: OpNew <class:u16>

	// ========================================================================
	// Arithmetic (0x50-0x5F) - operands must share a numeric kind
	// ========================================================================

	OpAdd Opcode = 0x50
	OpSub Opcode = 0x51
	OpMul Opcode = 0x52
	OpDiv Opcode = 0x53
	OpNeg Opcode = 0x54

	// ========================================================================
	// Comparison (0x60-0x6F) - push bool
	// ========================================================================

	OpCmpEq Opcode = 0x60 // Any matching kind
	OpCmpNe Opcode = 0x61 // Any matching kind
	OpCmpLt Opcode = 0x62 // Numeric only
	OpCmpLe Opcode = 0x63 // Numeric only
	OpCmpGt Opcode = 0x64 // Numeric only
	OpCmpGe Opcode = 0x65 // Numeric only

	// ========================================================================
	// Branches (0x80-0x8F): OpJump* <offset:i16> relative to next instruction
	// ========================================================================

	OpJump          Opcode = 0x80 // Unconditional
	OpJumpIfTrue    Opcode = 0x81 // Pop bool, branch if true
	OpJumpIfFalse   Opcode = 0x82 // Pop bool, branch if false
	OpJumpIfNull    Opcode = 0x83 // Pop reference, branch if null
	OpJumpIfNotNull Opcode = 0x84 // Pop reference, branch if not null

	// ========================================================================
	// Exits (0xF0-0xFF)
	// ========================================================================

	OpReturn      Opcode = 0xF0 // Return void
	OpReturnValue Opcode = 0xF1 // Pop and return declared type
	OpThrow       Opcode = 0xF2 // Pop reference, raise it
)

// OperandKind describes how an opcode's operand bytes are interpreted.
type OperandKind uint8

const (
	OperandNone   OperandKind = iota // no operand
	OperandSlot                      // u8 local slot
	OperandPool                      // u16 constant pool index
	OperandBranch                    // i16 relative offset
)

// OpInfo is per-opcode metadata used by the decoder, the verifier and the
// disassembler.
type OpInfo struct {
	Name    string
	Operand OperandKind
}

var opInfoTable = map[Opcode]OpInfo{
	OpNop:  {"NOP", OperandNone},
	OpPop:  {"POP", OperandNone},
	OpDup:  {"DUP", OperandNone},
	OpSwap: {"SWAP", OperandNone},

	OpPushConst: {"PUSH_CONST", OperandPool},
	OpPushNull:  {"PUSH_NULL", OperandNone},
	OpPushTrue:  {"PUSH_TRUE", OperandNone},
	OpPushFalse: {"PUSH_FALSE", OperandNone},

	OpLoad:  {"LOAD", OperandSlot},
	OpStore: {"STORE", OperandSlot},

	OpGetField:  {"GET_FIELD", OperandPool},
	OpPutField:  {"PUT_FIELD", OperandPool},
	OpGetStatic: {"GET_STATIC", OperandPool},
	OpPutStatic: {"PUT_STATIC", OperandPool},

	OpCallVirtual: {"CALL_VIRTUAL", OperandPool},
	OpCallStatic:  {"CALL_STATIC", OperandPool},
	OpNew:         {"NEW", OperandPool},

	OpAdd: {"ADD", OperandNone},
	OpSub: {"SUB", OperandNone},
	OpMul: {"MUL", OperandNone},
	OpDiv: {"DIV", OperandNone},
	OpNeg: {"NEG", OperandNone},

	OpCmpEq: {"CMP_EQ", OperandNone},
	OpCmpNe: {"CMP_NE", OperandNone},
	OpCmpLt: {"CMP_LT", OperandNone},
	OpCmpLe: {"CMP_LE", OperandNone},
	OpCmpGt: {"CMP_GT", OperandNone},
	OpCmpGe: {"CMP_GE", OperandNone},

	OpJump:          {"JUMP", OperandBranch},
	OpJumpIfTrue:    {"JUMP_IF_TRUE", OperandBranch},
	OpJumpIfFalse:   {"JUMP_IF_FALSE", OperandBranch},
	OpJumpIfNull:    {"JUMP_IF_NULL", OperandBranch},
	OpJumpIfNotNull: {"JUMP_IF_NOT_NULL", OperandBranch},

	OpReturn:      {"RETURN", OperandNone},
	OpReturnValue: {"RETURN_VALUE", OperandNone},
	OpThrow:       {"THROW", OperandNone},
}

// Info returns metadata for an opcode. Unknown opcodes get a synthesized
// name and no operand.
func (op Opcode) Info() OpInfo {
	if info, ok := opInfoTable[op]; ok {
		return info
	}
	return OpInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the opcode's mnemonic.
func (op Opcode) String() string {
	return op.Info().Name
}

// Known reports whether the opcode is part of the host's instruction set.
func (op Opcode) Known() bool {
	_, ok := opInfoTable[op]
	return ok
}

// Len returns the encoded instruction length in bytes.
func (op Opcode) Len() int {
	switch op.Info().Operand {
	case OperandSlot:
		return 2
	case OperandPool, OperandBranch:
		return 3
	default:
		return 1
	}
}

// IsBranch reports whether the opcode transfers control by offset.
func (op Opcode) IsBranch() bool {
	return op.Info().Operand == OperandBranch
}

// IsConditional reports whether the opcode is a conditional branch.
func (op Opcode) IsConditional() bool {
	return op.IsBranch() && op != OpJump
}

// IsReturn reports whether the opcode leaves the method normally.
func (op Opcode) IsReturn() bool {
	return op == OpReturn || op == OpReturnValue
}

// IsExit reports whether the opcode terminates its control-flow path.
func (op Opcode) IsExit() bool {
	return op.IsReturn() || op == OpThrow
}
