package domain

import (
	"errors"
	"fmt"
)

// Error classes surfaced to the command layer. Everything a use case returns
// wraps exactly one of these.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("not authorized")
	ErrNotFound        = errors.New("entity not found")
	ErrOperationFailed = errors.New("storage operation failed")
	ErrTransport       = errors.New("transport failure")
)

var (
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidCode         = fmt.Errorf("activation code rejected: %w", ErrNotFound)
	ErrNoGroups            = fmt.Errorf("no registered groups: %w", ErrNotFound)
	ErrNotGroupChat        = fmt.Errorf("command requires a group chat: %w", ErrInvalidArgument)
	ErrInvalidExecContext  = fmt.Errorf("unsupported executor: %w", ErrInvalidArgument)
	ErrReadDatabaseRow     = fmt.Errorf("read database row: %w", ErrOperationFailed)
	ErrBroadcastInProgress = errors.New("broadcast already in progress")
)

// IsTransient reports whether err is a storage failure a caller may retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrOperationFailed)
}
