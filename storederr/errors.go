// Package storederr defines the error kinds shared by every layer of
// libstored (§7 of the design: NotFound, TypeMismatch, Bounds, Full,
// BadFrame, ArqLost, IoAgain, IoClosed).
package storederr

import "fmt"

// Kind distinguishes the error categories surfaced at API boundaries. Kinds
// are never combined; each error carries exactly one.
type Kind uint8

const (
	// NotFound indicates a name lookup failed.
	NotFound Kind = iota
	// TypeMismatch indicates a payload of the wrong size for a slot.
	TypeMismatch
	// Bounds indicates an index or length outside a valid range.
	Bounds
	// Full indicates an alias, macro, or stream table is at capacity.
	Full
	// BadFrame indicates a protocol layer rejected its input.
	BadFrame
	// ArqLost indicates the ARQ retransmit budget was exhausted.
	ArqLost
	// IoAgain indicates a transport would block.
	IoAgain
	// IoClosed indicates a transport is no longer usable.
	IoClosed
)

var kindNames = [...]string{
	NotFound:     "not found",
	TypeMismatch: "type mismatch",
	Bounds:       "out of bounds",
	Full:         "capacity exhausted",
	BadFrame:     "bad frame",
	ArqLost:      "arq retransmit budget exhausted",
	IoAgain:      "would block",
	IoClosed:     "transport closed",
}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return fmt.Sprintf("<invalid Kind %d>", k)
	}
	return kindNames[k]
}

// Error is the concrete error type returned across package boundaries. It
// wraps an optional cause and always carries a Kind.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	msg := e.msg
	if msg == "" {
		msg = e.kind.String()
	}
	if e.err != nil {
		return msg + ": " + e.err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the error's category.
func (e *Error) Kind() Kind { return e.kind }

// New builds an Error of the given kind with a message and no cause.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	if cause == nil {
		return New(kind, msg)
	}
	return &Error{kind: kind, msg: msg, err: cause}
}

// Is reports whether err (or something it wraps) is a *Error of kind.
func Is(err error, kind Kind) bool {
	var se *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			se = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return se != nil && se.kind == kind
}
