package httpsock

// State is the position of a Sock in the request lifecycle.
type State int

const (
	AwaitingConnection State = iota
	Connected
	Headers
	Body
	Disconnected
)

func (s State) String() string {
	switch s {
	case AwaitingConnection:
		return "awaiting_connection"
	case Connected:
		return "connected"
	case Headers:
		return "headers"
	case Body:
		return "body"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
