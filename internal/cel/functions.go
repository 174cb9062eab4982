package cel

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/twinfer/xtf-plugin/pkg/record"
)

// RecordFunctions returns little-endian readers over a bytes value:
// u1(b, off), u2le(b, off), u4le(b, off), s2le(b, off), s4le(b, off),
// f4le(b, off) and text(b, off, n). Reads past the end are errors.
func RecordFunctions() cel.EnvOption {
	return cel.Lib(&recordLib{})
}

type recordLib struct{}

func intReader(name string, read func(r *record.Reader, off int) (int64, error)) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(name+"_bytes_int", []*cel.Type{cel.BytesType, cel.IntType}, cel.IntType,
			cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
				data, ok1 := lhs.(types.Bytes)
				off, ok2 := rhs.(types.Int)
				if !ok1 || !ok2 {
					return types.NewErr("invalid arguments to %s", name)
				}
				v, err := read(record.NewReader([]byte(data)), int(off))
				if err != nil {
					return types.NewErr("%s: %v", name, err)
				}
				return types.Int(v)
			}),
		),
	)
}

func (*recordLib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		intReader("u1", func(r *record.Reader, off int) (int64, error) {
			v, err := r.Uint8(off)
			return int64(v), err
		}),
		intReader("u2le", func(r *record.Reader, off int) (int64, error) {
			v, err := r.Uint16(off)
			return int64(v), err
		}),
		intReader("u4le", func(r *record.Reader, off int) (int64, error) {
			v, err := r.Uint32(off)
			return int64(v), err
		}),
		intReader("s2le", func(r *record.Reader, off int) (int64, error) {
			v, err := r.Int16(off)
			return int64(v), err
		}),
		intReader("s4le", func(r *record.Reader, off int) (int64, error) {
			v, err := r.Int32(off)
			return int64(v), err
		}),

		cel.Function("f4le",
			cel.Overload("f4le_bytes_int", []*cel.Type{cel.BytesType, cel.IntType}, cel.DoubleType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					data, ok1 := lhs.(types.Bytes)
					off, ok2 := rhs.(types.Int)
					if !ok1 || !ok2 {
						return types.NewErr("invalid arguments to f4le")
					}
					v, err := record.NewReader([]byte(data)).Float32(int(off))
					if err != nil {
						return types.NewErr("f4le: %v", err)
					}
					return types.Double(v)
				}),
			),
		),

		cel.Function("text",
			cel.Overload("text_bytes_int_int", []*cel.Type{cel.BytesType, cel.IntType, cel.IntType}, cel.StringType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					if len(args) != 3 {
						return types.NewErr("text requires 3 arguments")
					}
					data, ok1 := args[0].(types.Bytes)
					off, ok2 := args[1].(types.Int)
					n, ok3 := args[2].(types.Int)
					if !ok1 || !ok2 || !ok3 {
						return types.NewErr("invalid arguments to text")
					}
					s, err := record.NewReader([]byte(data)).Text(int(off), int(n))
					if err != nil {
						return types.NewErr("text: %v", err)
					}
					return types.String(s)
				}),
			),
		),
	}
}

func (*recordLib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

// BitwiseFunctions returns bitAnd, bitOr and bitShiftRight over ints.
func BitwiseFunctions() cel.EnvOption {
	return cel.Lib(&bitwiseLib{})
}

type bitwiseLib struct{}

func bitwise(name string, op func(a, b int64) ref.Val) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(name+"_int_int", []*cel.Type{cel.IntType, cel.IntType}, cel.IntType,
			cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
				a, ok1 := lhs.(types.Int)
				b, ok2 := rhs.(types.Int)
				if !ok1 || !ok2 {
					return types.NewErr("arguments to %s must be integers", name)
				}
				return op(int64(a), int64(b))
			}),
		),
	)
}

func (*bitwiseLib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		bitwise("bitAnd", func(a, b int64) ref.Val { return types.Int(a & b) }),
		bitwise("bitOr", func(a, b int64) ref.Val { return types.Int(a | b) }),
		bitwise("bitShiftRight", func(a, b int64) ref.Val {
			if b < 0 {
				return types.NewErr("shift amount cannot be negative: %d", b)
			}
			return types.Int(a >> uint(b))
		}),
	}
}

func (*bitwiseLib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}
