package model

// FailureKind classifies why a submission did not produce a result.
type FailureKind string

const (
	FailureMissingInput FailureKind = "missing_input"
	FailureService      FailureKind = "service"
	FailureTransport    FailureKind = "transport"
	FailureBusy         FailureKind = "busy"
)

// Outcome is the tagged result of one submission: either a Result or a
// failure message, never both.
type Outcome struct {
	result  *Result
	kind    FailureKind
	message string
}

// Success wraps a result.
func Success(r *Result) Outcome {
	if r == nil {
		r = NewResult(nil, false)
	}
	return Outcome{result: r}
}

// Failure wraps a failure message.
func Failure(kind FailureKind, message string) Outcome {
	return Outcome{kind: kind, message: message}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.result != nil
}

// Result returns the result of a successful outcome, or nil.
func (o Outcome) Result() *Result {
	return o.result
}

// Kind returns the failure kind, or "" on success.
func (o Outcome) Kind() FailureKind {
	return o.kind
}

// Message returns the raw failure message, or "" on success.
func (o Outcome) Message() string {
	return o.message
}

// Notice formats the failure for display to the user.
func (o Outcome) Notice() string {
	switch o.kind {
	case FailureService:
		return "错误: " + o.message
	case FailureTransport:
		return "请求出错: " + o.message
	default:
		return o.message
	}
}
