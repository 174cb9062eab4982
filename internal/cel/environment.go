package cel

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// Variables available to ping validation expressions. Values that lie past
// the end of the buffer are -1.
const (
	VarOffset     = "offset"      // position of the magic number
	VarRemaining  = "remaining"   // bytes from offset to the end of the buffer
	VarHeaderType = "header_type" // byte after the magic number
	VarSubChannel = "sub_channel" // SubChannelNumber byte
	VarNumChans   = "num_chans"   // NumChansToFollow
	VarWindow     = "window"      // up to one ping header of raw bytes from offset
)

// NewEnvironment creates a CEL environment for ping validation expressions.
func NewEnvironment() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.CustomTypeAdapter(NewRecordTypeAdapter()),

		cel.Variable(VarOffset, cel.IntType),
		cel.Variable(VarRemaining, cel.IntType),
		cel.Variable(VarHeaderType, cel.IntType),
		cel.Variable(VarSubChannel, cel.IntType),
		cel.Variable(VarNumChans, cel.IntType),
		cel.Variable(VarWindow, cel.BytesType),

		cel.StdLib(),
		RecordFunctions(),
		BitwiseFunctions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// RecordTypeAdapter extends the default type adapter to handle the narrow
// integer types of raw record fields, such as the header bytes in PingVariables.
type RecordTypeAdapter struct {
	types.Adapter
}

// NewRecordTypeAdapter creates a RecordTypeAdapter.
func NewRecordTypeAdapter() *RecordTypeAdapter {
	return &RecordTypeAdapter{
		Adapter: types.DefaultTypeAdapter,
	}
}

// NativeToValue converts Go native types to CEL values.
func (a *RecordTypeAdapter) NativeToValue(value any) ref.Val {
	switch v := value.(type) {
	case int8:
		return types.Int(v)
	case int16:
		return types.Int(v)
	case int32:
		return types.Int(v)
	case uint8:
		return types.Int(v)
	case uint16:
		return types.Int(v)
	case uint32:
		return types.Int(v)
	case float32:
		return types.Double(v)
	default:
		return a.Adapter.NativeToValue(value)
	}
}
