package event

// Kind tags the result of dispatching one sub-command.
type Kind int

const (
	// Pending means the event has not been dispatched.
	Pending Kind = iota
	// Succeeded means the handler returned a result.
	Succeeded
	// NotFound means no active plugin exposes the command.
	NotFound
	// Failed means the handler returned an error or panicked.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Succeeded:
		return "ok"
	case NotFound:
		return "not_found"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is Ok(text) | NotFound | Failed(cause).
type Outcome struct {
	Kind Kind
	Text string
	Err  error
}

// OK builds a successful outcome.
func OK(text string) Outcome { return Outcome{Kind: Succeeded, Text: text} }

// Missing builds a not-found outcome.
func Missing() Outcome { return Outcome{Kind: NotFound} }

// Failure builds a failed outcome with its cause.
func Failure(err error) Outcome { return Outcome{Kind: Failed, Err: err} }
