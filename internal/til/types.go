package til

import "fmt"

// BaseType is the representation class of a scalar type.
type BaseType uint8

const (
	BaseVoid BaseType = iota
	BaseBool
	BaseInt
	BaseFloat
	BaseString
)

// ScalarType is a built-in type. Scalar types are process-wide singletons
// and are shared, never copied.
type ScalarType struct {
	node
	Name string
	Base BaseType
	Size uint8 // in bytes, 0 if not applicable
}

func (*ScalarType) Opcode() Opcode { return OpScalarType }

var (
	Void    = &ScalarType{Name: "void", Base: BaseVoid}
	Bool    = &ScalarType{Name: "bool", Base: BaseBool, Size: 1}
	Int     = &ScalarType{Name: "int", Base: BaseInt, Size: 4}
	Int64   = &ScalarType{Name: "int64", Base: BaseInt, Size: 8}
	Float64 = &ScalarType{Name: "float64", Base: BaseFloat, Size: 8}
	String  = &ScalarType{Name: "string", Base: BaseString}
)

var scalarTypes = map[string]*ScalarType{}

func init() {
	for _, st := range []*ScalarType{Void, Bool, Int, Int64, Float64, String} {
		scalarTypes[st.Name] = st
	}
}

// LookupScalarType returns the singleton scalar type with the given name.
func LookupScalarType(name string) (*ScalarType, bool) {
	st, ok := scalarTypes[name]
	return st, ok
}

// CallingConvention of a Code or Call node.
type CallingConvention uint8

const (
	CallDefault CallingConvention = iota
	CallCDecl
	CallFast
)

var callingConventionNames = [...]string{"default", "cdecl", "fast"}

func (cc CallingConvention) String() string {
	if int(cc) < len(callingConventionNames) {
		return callingConventionNames[cc]
	}
	return fmt.Sprintf("cc(%d)", uint8(cc))
}

// SlotModifier is a bit set of record slot modifiers.
type SlotModifier uint16

const (
	SlotFinal SlotModifier = 1 << iota
	SlotHidden
	SlotVirtual
)

// ApplyKind distinguishes ordinary and self application.
type ApplyKind uint8

const (
	ApplyNormal ApplyKind = iota
	ApplySelf
)

// AllocKind selects where an Alloc places its object.
type AllocKind uint8

const (
	AllocLocal AllocKind = iota
	AllocHeap
)

// UnaryOpcode enumerates unary operators.
type UnaryOpcode uint8

const (
	UopMinus UnaryOpcode = iota
	UopBitNot
	UopLogicNot
)

var unaryOpNames = [...]string{"neg", "bitnot", "not"}

func (op UnaryOpcode) String() string {
	if int(op) < len(unaryOpNames) {
		return unaryOpNames[op]
	}
	return fmt.Sprintf("uop(%d)", uint8(op))
}

// BinaryOpcode enumerates binary operators.
type BinaryOpcode uint8

const (
	BopAdd BinaryOpcode = iota
	BopSub
	BopMul
	BopDiv
	BopRem
	BopShl
	BopShr
	BopBitAnd
	BopBitXor
	BopBitOr
	BopEq
	BopNeq
	BopLt
	BopLeq
	BopLogicAnd
	BopLogicOr
)

var binaryOpNames = [...]string{
	"add", "sub", "mul", "div", "rem", "shl", "shr", "and", "xor", "or",
	"eq", "neq", "lt", "leq", "land", "lor",
}

func (op BinaryOpcode) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("bop(%d)", uint8(op))
}

// CastOpcode enumerates conversions.
type CastOpcode uint8

const (
	CastNone CastOpcode = iota
	CastExtendNum
	CastTruncNum
	CastToFloat
	CastToInt
)

var castOpNames = [...]string{"none", "extend", "trunc", "tofloat", "toint"}

func (op CastOpcode) String() string {
	if int(op) < len(castOpNames) {
		return castOpNames[op]
	}
	return fmt.Sprintf("cast(%d)", uint8(op))
}

// ParseUnaryOpcode, ParseBinaryOpcode and ParseCastOpcode invert String.

func ParseUnaryOpcode(s string) (UnaryOpcode, bool) {
	for i, n := range unaryOpNames {
		if n == s {
			return UnaryOpcode(i), true
		}
	}
	return 0, false
}

func ParseBinaryOpcode(s string) (BinaryOpcode, bool) {
	for i, n := range binaryOpNames {
		if n == s {
			return BinaryOpcode(i), true
		}
	}
	return 0, false
}

func ParseCastOpcode(s string) (CastOpcode, bool) {
	for i, n := range castOpNames {
		if n == s {
			return CastOpcode(i), true
		}
	}
	return 0, false
}

func ParseCallingConvention(s string) (CallingConvention, bool) {
	for i, n := range callingConventionNames {
		if n == s {
			return CallingConvention(i), true
		}
	}
	return 0, false
}
