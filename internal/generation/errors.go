package generation

// Error reports a failed generation attempt. Message is safe to show to API
// callers; Cause keeps the underlying gateway error for errors.As.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(prefix string, cause error) *Error {
	return &Error{Message: prefix + ": " + cause.Error(), Cause: cause}
}
