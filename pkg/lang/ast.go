package lang

// opcode identifies an instruction. The jump opcodes are contiguous at the
// end so the machine can treat them uniformly.
type opcode uint8

const (
	opRead opcode = iota
	opWrite
	opSet
	opAdd
	opSub
	opMul
	opDiv
	opCmp
	opPush
	opPop
	opJmp
	opJez
	opJnz
	opJlz
	opJgz
)

var opcodeNames = [...]string{
	"READ", "WRITE", "SET", "ADD", "SUB", "MUL", "DIV", "CMP",
	"PUSH", "POP", "JMP", "JEZ", "JNZ", "JLZ", "JGZ",
}

func (o opcode) String() string { return opcodeNames[o] }

func (o opcode) isJump() bool { return o >= opJmp }

// conditional reports whether the jump consumes a condition value.
func (o opcode) conditional() bool { return o > opJmp }

// regKind distinguishes the register families.
type regKind uint8

const (
	regNull     regKind = iota // RZR: reads zero, writes are discarded
	regInputLen                // RLI: remaining input length, read-only
	regStackLen                // RS<n>: stack length, read-only
	regUser                    // RX<n>
)

// regRef names one register. idx is meaningful for regStackLen and
// regUser only.
type regRef struct {
	kind regKind
	idx  int
}

func (r regRef) writable() bool { return r.kind == regNull || r.kind == regUser }

// valueSrc is something an instruction reads: a literal or a register.
type valueSrc struct {
	isConst bool
	lit     int32
	reg     regRef
}

// Parse-level nodes carry the span of the token they came from so
// validation can point at the exact operand.

type regNode struct {
	ref regRef
	sp  span
}

type valueNode struct {
	src valueSrc
	sp  span
}

type stackNode struct {
	idx int
	sp  span
}

type labelNode struct {
	name string
	sp   span
}

type stmtKind uint8

const (
	stmtLabel stmtKind = iota
	stmtOperator
	stmtJump
)

// statement is one parsed line. Which argument fields are populated
// depends on the opcode; see the parser's per-opcode shapes.
type statement struct {
	kind  stmtKind
	op    opcode
	sp    span
	label labelNode // declaration for stmtLabel, target for stmtJump
	reg   regNode
	val   valueNode
	val2  valueNode
	stack stackNode
}

// instr is a delabeled, directly executable instruction.
type instr struct {
	op      opcode
	reg     regRef
	val     valueSrc
	val2    valueSrc
	stack   int
	offset  int           // jump displacement relative to this instruction
	element SourceElement // full statement text, for listings and errors
	stackEl SourceElement // stack operand text, for stack errors
}
