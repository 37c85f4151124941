package response

import "errors"

// Error is a domain error that knows the HTTP status it maps to.
type Error struct {
	Code int
	Err  error
}

func NewError(code int, msg string) error {
	return &Error{Code: code, Err: errors.New(msg)}
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same status and message, so sentinels
// still match after being wrapped with fmt.Errorf("%w").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

// StatusOf returns the status carried by the first *Error in err's chain,
// or fallback when there is none.
func StatusOf(err error, fallback int) int {
	var respErr *Error
	if errors.As(err, &respErr) {
		return respErr.Code
	}
	return fallback
}
