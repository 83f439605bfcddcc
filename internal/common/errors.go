package common

// ErrorKind classifies a rejected operation so a transport layer can
// serialize it without a type switch over concrete error values.
type ErrorKind string

const (
	KindUserNotFound            ErrorKind = "UserNotFound"
	KindNotRegistered           ErrorKind = "NotRegistered"
	KindOutOfRange              ErrorKind = "OutOfRange"
	KindInsufficientBuyingPower ErrorKind = "InsufficientBuyingPower"
	KindInsufficientAsset       ErrorKind = "InsufficientAsset"
	KindOrderNotFound           ErrorKind = "OrderNotFound"
)

// Error is the engine's single error type. All rejected operations
// return one of the sentinels below, never a bare fmt.Errorf.
type Error struct {
	kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Kind reports the error's classification as a plain string, so a
// transport layer can serialize it without a type switch over concrete
// error values.
func (e *Error) Kind() string { return string(e.kind) }

func newError(kind ErrorKind, message string) *Error {
	return &Error{kind: kind, Message: message}
}

var (
	ErrUserNotFound            = newError(KindUserNotFound, "user not found")
	ErrNotRegistered           = newError(KindNotRegistered, "user not registered on this book")
	ErrOutOfRange              = newError(KindOutOfRange, "price or volume out of range")
	ErrInsufficientBuyingPower = newError(KindInsufficientBuyingPower, "insufficient buying power")
	ErrInsufficientAsset       = newError(KindInsufficientAsset, "insufficient asset to sell")
	ErrOrderNotFound           = newError(KindOrderNotFound, "order not found")
)
