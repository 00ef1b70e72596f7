// Package gameerr defines the failure taxonomy surfaced by game commands.
//
// Every failure carries a Code. Two errors match under errors.Is when their
// codes are equal, so callers test against the sentinel values below no matter
// how much context has been wrapped around the original failure.
package gameerr

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code string

// Failure codes.
const (
	CodePlayerNotFound       Code = "PLAYER_NOT_FOUND"
	CodePlayerExists         Code = "PLAYER_EXISTS"
	CodeInsufficientResource Code = "INSUFFICIENT_RESOURCE"
	CodeItemNotFound         Code = "ITEM_NOT_FOUND"
	CodeItemNotHeld          Code = "ITEM_NOT_HELD"
	CodeNotInTeam            Code = "NOT_IN_TEAM"
	CodeTeamNotFound         Code = "TEAM_NOT_FOUND"
	CodeAlreadyClaimed       Code = "ALREADY_CLAIMED"
	CodeInvitationNotFound   Code = "INVITATION_NOT_FOUND"
	CodeInvitationExpired    Code = "INVITATION_EXPIRED"
	CodeInvalidArgument      Code = "INVALID_ARGUMENT"
	CodeConflict             Code = "CONFLICT"
	CodeStorage              Code = "STORAGE"
	CodeInternal             Code = "INTERNAL"
)

// String returns the string representation of the code.
func (c Code) String() string {
	return string(c)
}

// Informational reports whether the code describes an expected outcome
// rather than a fault (a repeated daily claim is not an error state).
func (c Code) Informational() bool {
	return c == CodeAlreadyClaimed
}

// Sentinels for errors.Is comparisons. Never mutate these; use the
// constructors to attach context.
var (
	ErrPlayerNotFound       = &Error{Code: CodePlayerNotFound, Message: "player not found"}
	ErrPlayerExists         = &Error{Code: CodePlayerExists, Message: "player already registered"}
	ErrInsufficientResource = &Error{Code: CodeInsufficientResource, Message: "insufficient resource"}
	ErrItemNotFound         = &Error{Code: CodeItemNotFound, Message: "item not found"}
	ErrItemNotHeld          = &Error{Code: CodeItemNotHeld, Message: "item not in inventory"}
	ErrNotInTeam            = &Error{Code: CodeNotInTeam, Message: "not in an active team"}
	ErrTeamNotFound         = &Error{Code: CodeTeamNotFound, Message: "team not found"}
	ErrAlreadyClaimed       = &Error{Code: CodeAlreadyClaimed, Message: "daily reward already claimed"}
	ErrInvitationNotFound   = &Error{Code: CodeInvitationNotFound, Message: "invitation not found"}
	ErrInvitationExpired    = &Error{Code: CodeInvitationExpired, Message: "invitation expired"}
	ErrInvalidArgument      = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrConflict             = &Error{Code: CodeConflict, Message: "record changed concurrently"}
	ErrStorage              = &Error{Code: CodeStorage, Message: "storage failure"}
)

// Error is a coded failure with optional cause and metadata.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Meta    map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithMeta attaches a metadata entry and returns e.
//
// Precondition: e must not be one of the package sentinels.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err under code. A nil err yields nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// Storage wraps a persistence failure. Codes already present on err are
// preserved so a not-found from the store stays a not-found.
func Storage(err error, op string) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return Wrap(err, CodeStorage, op)
}

// StaleWrite reports a save whose record version no longer matches the
// stored one. The caller may reload and retry.
func StaleWrite(playerID, version int64) *Error {
	return Newf(CodeConflict, "player %d changed since version %d was loaded", playerID, version).
		WithMeta("player_id", playerID).
		WithMeta("version", version)
}

// InsufficientEnergy reports an energy shortfall.
func InsufficientEnergy(have int) *Error {
	return Newf(CodeInsufficientResource, "not enough energy (have %d)", have).
		WithMeta("resource", "energy").
		WithMeta("have", have)
}

// InsufficientGold reports a currency shortfall.
func InsufficientGold(have, need int) *Error {
	return Newf(CodeInsufficientResource, "not enough gold (have %d, need %d)", have, need).
		WithMeta("resource", "gold").
		WithMeta("have", have).
		WithMeta("need", need)
}

// CodeOf extracts the code from err; nil yields "" and uncoded errors CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MetaOf returns the metadata of the outermost coded error in err's chain.
func MetaOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Meta
	}
	return nil
}
