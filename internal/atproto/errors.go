package atproto

// Kind classifies a resolution or fetch failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidURI
	KindUnsupportedMethod
	KindResolutionFailed
	KindNoHostFound
	KindFetchFailed
	KindNotFoundOrBlocked
	KindUnexpectedFormat
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURI:
		return "invalid uri"
	case KindUnsupportedMethod:
		return "unsupported method"
	case KindResolutionFailed:
		return "resolution failed"
	case KindNoHostFound:
		return "no host found"
	case KindFetchFailed:
		return "fetch failed"
	case KindNotFoundOrBlocked:
		return "not found or blocked"
	case KindUnexpectedFormat:
		return "unexpected format"
	case KindNetwork:
		return "network error"
	default:
		return "unknown error"
	}
}

// Error is returned by every resolve and fetch operation in this package.
// Msg is human readable and is what the widgets display.
type Error struct {
	Kind   Kind
	Msg    string
	Status int   // HTTP status when the failure came from a response
	Err    error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidURI        = &Error{Kind: KindInvalidURI}
	ErrUnsupportedMethod = &Error{Kind: KindUnsupportedMethod}
	ErrResolutionFailed  = &Error{Kind: KindResolutionFailed}
	ErrNoHostFound       = &Error{Kind: KindNoHostFound}
	ErrFetchFailed       = &Error{Kind: KindFetchFailed}
	ErrNotFoundOrBlocked = &Error{Kind: KindNotFoundOrBlocked}
	ErrUnexpectedFormat  = &Error{Kind: KindUnexpectedFormat}
	ErrNetwork           = &Error{Kind: KindNetwork}
)

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func statusError(kind Kind, msg string, status int) *Error {
	return &Error{Kind: kind, Msg: msg, Status: status}
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Msg: err.Error(), Err: err}
}
