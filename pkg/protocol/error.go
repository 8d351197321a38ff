package protocol

import (
	"errors"
	"fmt"
	"unicode"
)

// Kind categorizes wire-layer failures.
type Kind int

const (
	KindNone               Kind = iota
	KindMalformedInput          // Structurally invalid bytes: truncation, reserved values, wrong type markers.
	KindBufferTooSmall          // Output capacity insufficient. Nothing was written.
	KindStorageUnavailable      // Non-volatile read or write failed.
	KindPolicyViolation         // A value violates a protocol invariant.
)

var kindNames = map[Kind]string{
	KindNone:               "KIND_NONE",
	KindMalformedInput:     "KIND_MALFORMED_INPUT",
	KindBufferTooSmall:     "KIND_BUFFER_TOO_SMALL",
	KindStorageUnavailable: "KIND_STORAGE_UNAVAILABLE",
	KindPolicyViolation:    "KIND_POLICY_VIOLATION",
}

// String returns a CamelCase name for k.
func (k Kind) String() string {
	// "KIND_MALFORMED_INPUT" -> "MalformedInput"
	const prefix = "KIND_"
	name, ok := kindNames[k]
	if !ok {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	allCaps := name[len(prefix):]
	camelCase := make([]rune, 0, len(allCaps))
	lowerCaseNext := false
	for _, b := range allCaps {
		if b == '_' {
			lowerCaseNext = false
		} else {
			if lowerCaseNext {
				camelCase = append(camelCase, unicode.ToLower(b))
			} else {
				camelCase = append(camelCase, b)
				lowerCaseNext = true
			}
		}
	}
	return string(camelCase)
}

// Error represents a wire-layer error.
//
// Errors with an empty Info act as kind sentinels: errors.Is(err, ErrMalformedInput) holds for
// every *Error of that kind anywhere in err's chain.
type Error struct {
	Kind Kind
	Info string
}

var (
	// ErrMalformedInput matches every error caused by structurally invalid input.
	ErrMalformedInput = &Error{Kind: KindMalformedInput}
	// ErrBufferTooSmall matches every error caused by an undersized output buffer.
	ErrBufferTooSmall = &Error{Kind: KindBufferTooSmall}
	// ErrStorageUnavailable matches every failed non-volatile read or write.
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable}
	// ErrPolicyViolation matches every error raised because a value breaks a protocol invariant.
	ErrPolicyViolation = &Error{Kind: KindPolicyViolation}
)

// NewError returns an error of the given kind.
func NewError(kind Kind, info string) error {
	return &Error{Kind: kind, Info: info}
}

func (e *Error) Error() string {
	if e.Info == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Info)
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Info != "" {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or KindNone.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

// SecurityRelevant returns true if err was caused by received bytes that are malformed or violate
// the protocol. Such errors on inbound traffic may indicate an attack and should be reported rather
// than silently dropped.
func SecurityRelevant(err error) bool {
	switch KindOf(err) {
	case KindMalformedInput, KindPolicyViolation:
		return true
	}
	return false
}

// Recoverable returns true if err's kind allows the caller to retry or continue in a degraded
// mode. Callers that cannot tolerate a particular failure (for example, SSN recovery at context
// establishment) must check for the more specific error instead.
func Recoverable(err error) bool {
	switch KindOf(err) {
	case KindBufferTooSmall, KindStorageUnavailable:
		return true
	}
	return false
}
