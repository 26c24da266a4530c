package applet

import (
	"github.com/wippyai/firmlet/errors"
)

// Code is the negative result of a failed host function.
type Code int32

const (
	CodeInvalidArgument Code = -1
	CodeNotSupported    Code = -2
	CodeOutOfBounds     Code = -3
	CodeNotFound        Code = -4
	CodeBusy            Code = -5
	CodeCrypto          Code = -6
	CodeIO              Code = -7
	CodeInternal        Code = -8
)

func (c Code) String() string {
	switch c {
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeNotSupported:
		return "not supported"
	case CodeOutOfBounds:
		return "out of bounds"
	case CodeNotFound:
		return "not found"
	case CodeBusy:
		return "busy"
	case CodeCrypto:
		return "crypto"
	case CodeIO:
		return "io"
	case CodeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// CodeOf maps an error to the Code reported to the applet.
func CodeOf(err error) Code {
	switch errors.KindOf(err) {
	case errors.KindInvalidID, errors.KindInvalidInput, errors.KindInvalidData:
		return CodeInvalidArgument
	case errors.KindUnsupported:
		return CodeNotSupported
	case errors.KindOutOfBounds:
		return CodeOutOfBounds
	case errors.KindNotFound:
		return CodeNotFound
	case errors.KindBusy:
		return CodeBusy
	case errors.KindCrypto:
		return CodeCrypto
	case errors.KindIO:
		return CodeIO
	default:
		return CodeInternal
	}
}

// Result folds a handler outcome into the i32 returned to the applet.
func Result(v int32, err error) int32 {
	if err != nil {
		return int32(CodeOf(err))
	}
	return v
}
