package snippets

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyVisible indicates a reorder over an empty visible subset.
	ErrEmptyVisible = errors.New("snippets: nothing visible to reorder")

	// ErrUnknownSnippet indicates an id the local collection does not hold.
	ErrUnknownSnippet = errors.New("snippets: unknown snippet")

	errMissingGateway = errors.New("gateway dependency is required")
)

// OperationError reports a failed collection operation with a stable code.
type OperationError struct {
	code string
	err  error
}

func (e *OperationError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *OperationError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code, for example snippets.reorder.gateway_failed.
func (e *OperationError) Code() string {
	return e.code
}

const (
	opNewCollection = "snippets.collection.new"
	opLoad          = "snippets.load"
	opAdd           = "snippets.add"
	opUpdate        = "snippets.update"
	opDelete        = "snippets.delete"
	opReorder       = "snippets.reorder"

	reasonValidation     = "validation_failed"
	reasonGatewayFailed  = "gateway_failed"
	reasonReloadFailed   = "reload_failed"
	reasonInconsistent   = "order_mismatch"
	reasonNotFound       = "not_found"
	reasonMissingGateway = "missing_gateway"
)

func newOperationError(operation, reason string, cause error) error {
	return &OperationError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}
