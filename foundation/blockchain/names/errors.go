package names

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable, numbered rejection category. Callers branch on the
// kind, never on the message.
type ErrorKind int

// Set of rejection categories. The numbers are part of the external API and
// must not be reordered.
const (
	KindLength          ErrorKind = 1
	KindCollision       ErrorKind = 2
	KindNotFound        ErrorKind = 3
	KindImmature        ErrorKind = 4
	KindNameActive      ErrorKind = 5
	KindExpired         ErrorKind = 6
	KindWrongOwner      ErrorKind = 7
	KindPendingConflict ErrorKind = 8
)

var kindNames = map[ErrorKind]string{
	KindLength:          "LengthError",
	KindCollision:       "CollisionError",
	KindNotFound:        "NotFoundError",
	KindImmature:        "ImmatureError",
	KindNameActive:      "NameActiveError",
	KindExpired:         "ExpiredError",
	KindWrongOwner:      "WrongOwnerError",
	KindPendingConflict: "PendingConflictError",
}

// String implements the fmt.Stringer interface.
func (k ErrorKind) String() string {
	if s, exists := kindNames[k]; exists {
		return s
	}

	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Set of sentinel errors for use with errors.Is.
var (
	ErrLength          = &Error{Kind: KindLength}
	ErrCollision       = &Error{Kind: KindCollision}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrImmature        = &Error{Kind: KindImmature}
	ErrNameActive      = &Error{Kind: KindNameActive}
	ErrExpired         = &Error{Kind: KindExpired}
	ErrWrongOwner      = &Error{Kind: KindWrongOwner}
	ErrPendingConflict = &Error{Kind: KindPendingConflict}
)

// =============================================================================

// Error is a rejected name operation.
type Error struct {
	Kind ErrorKind
	Msg  string
}

// Errorf constructs an error of the specified kind.
func Errorf(kind ErrorKind, format string, args ...any) error {
	return &Error{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is matches any error of the same kind so the sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// KindOf returns the kind of the first name error in the chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}

	return e.Kind, true
}
