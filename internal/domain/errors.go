package domain

import (
	"errors"
	"fmt"
)

// Error categories. Typed errors below match these through errors.Is.
var (
	ErrValidation         = errors.New("validation error")
	ErrSchema             = errors.New("schema error")
	ErrStorage            = errors.New("storage error")
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrTransactionFailed  = errors.New("transaction failed")
)

// ValidationError reports a malformed save request. Raised before any I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// SchemaError reports a malformed persisted or imported document.
// Field names the first offending path, e.g. "nodes[2].position.x".
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: %s: %s", e.Field, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

type StorageKind int

const (
	StorageUnavailable StorageKind = iota + 1
	TransactionFailed
)

func (k StorageKind) String() string {
	switch k {
	case StorageUnavailable:
		return "storage unavailable"
	case TransactionFailed:
		return "transaction failed"
	default:
		return "storage failure"
	}
}

// StorageError wraps a backend failure, keeping the original cause.
type StorageError struct {
	Op   string
	Kind StorageKind
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrStorage:
		return true
	case ErrStorageUnavailable:
		return e.Kind == StorageUnavailable
	case ErrTransactionFailed:
		return e.Kind == TransactionFailed
	}
	return false
}

// Unavailable builds a StorageError for a backend that cannot be used at all.
func Unavailable(op string, err error) error {
	return &StorageError{Op: op, Kind: StorageUnavailable, Err: err}
}

// TxFailed builds a StorageError for a failed read or write.
func TxFailed(op string, err error) error {
	return &StorageError{Op: op, Kind: TransactionFailed, Err: err}
}

// NotFoundError is raised when absence of a board is not a valid outcome.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("board %s not found", e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
