package gateway

// ErrorKind categorizes generation failures. Every failure the gateway can
// encounter maps onto exactly one kind; the controller renders user-facing
// messages from the kind without ever seeing the underlying error.
type ErrorKind string

const (
	// KindNone marks a successful outcome.
	KindNone ErrorKind = ""

	// KindServiceUnavailable covers transport failures, timeouts, quota and
	// rate limits, and an open circuit breaker.
	KindServiceUnavailable ErrorKind = "service_unavailable"

	// KindEmptyResponse means the service answered but carried no usable text.
	KindEmptyResponse ErrorKind = "empty_response"

	// KindUnauthorized covers authentication and permission failures.
	KindUnauthorized ErrorKind = "unauthorized"

	// KindUnknown is the fallback for anything unclassified.
	KindUnknown ErrorKind = "unknown"
)

// Outcome is the result of a generation call. It is a value, not an error:
// callers branch on Failed() and never need error handling to stay correct.
type Outcome struct {
	// Text is the trimmed generated text. Empty on failure.
	Text string

	// Kind is KindNone on success, otherwise the failure category.
	Kind ErrorKind
}

// Success wraps generated text in a successful outcome.
func Success(text string) Outcome {
	return Outcome{Text: text}
}

// Failure creates a failed outcome of the given kind.
func Failure(kind ErrorKind) Outcome {
	return Outcome{Kind: kind}
}

// Failed reports whether the outcome is a failure.
func (o Outcome) Failed() bool {
	return o.Kind != KindNone
}
