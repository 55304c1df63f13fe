// Package errors defines QNet's single tagged error type. Every component
// returns *Error rather than ad-hoc sentinel values, so callers can branch
// on Kind without string-matching messages.
package errors

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Kind groups error codes into the five propagation classes from the error
// handling design: transient network, Byzantine/crypto, storage,
// configuration, resource. Each class carries its own propagation policy.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransientNetwork
	KindByzantine
	KindStorage
	KindConfiguration
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindTransientNetwork:
		return "transient_network"
	case KindByzantine:
		return "byzantine"
	case KindStorage:
		return "storage"
	case KindConfiguration:
		return "configuration"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// ERR is a stable error code, used both for Is-comparison and for mapping to
// CLI exit codes / API error kinds.
type ERR int32

const (
	ERR_UNKNOWN ERR = iota

	// Transient network
	ERR_TIMEOUT
	ERR_TRANSPORT_ERROR
	ERR_REMOTE_UNAVAILABLE

	// Byzantine / crypto
	ERR_SIGNATURE_INVALID
	ERR_CERTIFICATE_INVALID
	ERR_HEIGHT_MISMATCH
	ERR_POH_CHAIN_BROKEN
	ERR_STATE_ROOT_DIVERGENT

	// Storage
	ERR_CORRUPTED_ENTRY
	ERR_MISSING_PARENT
	ERR_DISK_FULL

	// Configuration
	ERR_BAD_KEY
	ERR_BAD_GENESIS_ID
	ERR_UNKNOWN_REGION

	// Resource
	ERR_BUFFER_FULL
	ERR_RATE_LIMITED
	ERR_JAILED_PEER

	// generic
	ERR_INVALID_ARGUMENT
	ERR_NOT_FOUND
	ERR_THRESHOLD_EXCEEDED
	ERR_ERROR
)

var errNames = map[ERR]string{
	ERR_UNKNOWN:              "UNKNOWN",
	ERR_TIMEOUT:              "TIMEOUT",
	ERR_TRANSPORT_ERROR:      "TRANSPORT_ERROR",
	ERR_REMOTE_UNAVAILABLE:   "REMOTE_UNAVAILABLE",
	ERR_SIGNATURE_INVALID:    "SIGNATURE_INVALID",
	ERR_CERTIFICATE_INVALID:  "CERTIFICATE_INVALID",
	ERR_HEIGHT_MISMATCH:      "HEIGHT_MISMATCH",
	ERR_POH_CHAIN_BROKEN:     "POH_CHAIN_BROKEN",
	ERR_STATE_ROOT_DIVERGENT: "STATE_ROOT_DIVERGENT",
	ERR_CORRUPTED_ENTRY:      "CORRUPTED_ENTRY",
	ERR_MISSING_PARENT:       "MISSING_PARENT",
	ERR_DISK_FULL:            "DISK_FULL",
	ERR_BAD_KEY:              "BAD_KEY",
	ERR_BAD_GENESIS_ID:       "BAD_GENESIS_ID",
	ERR_UNKNOWN_REGION:       "UNKNOWN_REGION",
	ERR_BUFFER_FULL:          "BUFFER_FULL",
	ERR_RATE_LIMITED:         "RATE_LIMITED",
	ERR_JAILED_PEER:          "JAILED_PEER",
	ERR_INVALID_ARGUMENT:     "INVALID_ARGUMENT",
	ERR_NOT_FOUND:            "NOT_FOUND",
	ERR_THRESHOLD_EXCEEDED:   "THRESHOLD_EXCEEDED",
	ERR_ERROR:                "ERROR",
}

func (c ERR) Enum() string {
	if n, ok := errNames[c]; ok {
		return n
	}
	return "UNKNOWN"
}

// Kind classifies an ERR into its propagation class.
func (c ERR) Kind() Kind {
	switch c {
	case ERR_TIMEOUT, ERR_TRANSPORT_ERROR, ERR_REMOTE_UNAVAILABLE:
		return KindTransientNetwork
	case ERR_SIGNATURE_INVALID, ERR_CERTIFICATE_INVALID, ERR_HEIGHT_MISMATCH, ERR_POH_CHAIN_BROKEN, ERR_STATE_ROOT_DIVERGENT:
		return KindByzantine
	case ERR_CORRUPTED_ENTRY, ERR_MISSING_PARENT, ERR_DISK_FULL:
		return KindStorage
	case ERR_BAD_KEY, ERR_BAD_GENESIS_ID, ERR_UNKNOWN_REGION:
		return KindConfiguration
	case ERR_BUFFER_FULL, ERR_RATE_LIMITED, ERR_JAILED_PEER:
		return KindResource
	default:
		return KindUnknown
	}
}

// ExitCode maps an error code to the stable CLI exit code from the external
// interfaces section: 2 for configuration errors, 3 for a bad key, 4 for
// storage errors, and 5 for signature/certificate failures. Codes with no
// dedicated exit status return 0.
func (c ERR) ExitCode() int {
	switch c {
	case ERR_BAD_GENESIS_ID, ERR_UNKNOWN_REGION, ERR_BAD_KEY:
		if c == ERR_BAD_KEY {
			return 3
		}
		return 2
	case ERR_DISK_FULL, ERR_CORRUPTED_ENTRY:
		return 4
	case ERR_SIGNATURE_INVALID, ERR_CERTIFICATE_INVALID:
		return 5
	default:
		return 0
	}
}

// ErrData is an optional structured payload attached to an Error; its
// Error() string is folded into the outer message.
type ErrData interface {
	Error() string
}

// Error is QNet's single propagated error type.
type Error struct {
	Code       ERR
	Message    string
	WrappedErr error
	Data       ErrData
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	dataMsg := ""
	if e.Data != nil {
		dataMsg = e.Data.Error()
	}

	if e.WrappedErr == nil {
		if dataMsg == "" {
			return fmt.Sprintf("%s: %v", e.Code.Enum(), e.Message)
		}
		return fmt.Sprintf("%s: %v, data: %s", e.Code.Enum(), e.Message, dataMsg)
	}

	if dataMsg == "" {
		return fmt.Sprintf("%s (%d): %v: %v", e.Code.Enum(), e.Code, e.Message, e.WrappedErr)
	}

	return fmt.Sprintf("%s (%d): %v: %v, data: %s", e.Code.Enum(), e.Code, e.Message, e.WrappedErr, dataMsg)
}

// Kind reports the propagation class of this error's code.
func (e *Error) Kind() Kind {
	if e == nil {
		return KindUnknown
	}
	return e.Code.Kind()
}

// Is reports whether error codes match, walking the wrapped chain.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}

	var ue *Error
	if errors.As(target, &ue) {
		if e.Code == ue.Code {
			return true
		}
		if e.WrappedErr == nil {
			return false
		}
	}

	if unwrapped := errors.Unwrap(e); unwrapped != nil {
		if ue, ok := unwrapped.(*Error); ok {
			return ue.Is(target)
		}
	}

	return false
}

func (e *Error) As(target interface{}) bool {
	if e == nil {
		return false
	}

	if targetErr, ok := target.(**Error); ok {
		*targetErr = e
		return true
	}

	if e.Data != nil {
		if data, ok := e.Data.(error); ok {
			return errors.As(data, target)
		}
	}

	if e.WrappedErr != nil {
		if reflect.ValueOf(e.WrappedErr).IsNil() {
			return false
		}
		return errors.As(e.WrappedErr, target)
	}

	if unwrapped := errors.Unwrap(e); unwrapped != nil {
		return errors.As(unwrapped, target)
	}

	return false
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.WrappedErr
}

// New builds an *Error. The last element of params may be an error (or
// *Error) to wrap; remaining params are applied as fmt.Errorf arguments to
// message.
func New(code ERR, message string, params ...interface{}) *Error {
	var wErr error

	if len(params) > 0 {
		lastParam := params[len(params)-1]

		if err, ok := lastParam.(*Error); ok {
			wErr = err
			params = params[:len(params)-1]
		} else if err, ok := lastParam.(error); ok {
			wErr = err
			params = params[:len(params)-1]
		}
	}

	if len(params) > 0 {
		message = fmt.Errorf(message, params...).Error()
	}

	if _, ok := errNames[code]; !ok {
		return &Error{
			Code:       ERR_UNKNOWN,
			Message:    "invalid error code",
			WrappedErr: wErr,
		}
	}

	return &Error{
		Code:       code,
		Message:    message,
		WrappedErr: wErr,
	}
}

// APIResponse is the {success:false,error:{kind,message}} envelope emitted
// at the outermost REST boundary.
type APIResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ToAPIResponse renders err (nil or *Error) into the stable API envelope.
func ToAPIResponse(err error) APIResponse {
	if err == nil {
		return APIResponse{Success: true}
	}

	var e *Error
	if errors.As(err, &e) {
		return APIResponse{
			Success: false,
			Error: &APIError{
				Kind:    e.Code.Enum(),
				Message: e.Error(),
			},
		}
	}

	return APIResponse{
		Success: false,
		Error:   &APIError{Kind: KindUnknown.String(), Message: err.Error()},
	}
}

func Join(errs ...error) error {
	var messages []string
	for _, err := range errs {
		if err != nil {
			messages = append(messages, err.Error())
		}
	}
	if len(messages) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(messages, ", "))
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
