package helpcentre

type Role int

const (
	RoleUnset Role = iota
	RoleTA
	RoleStudent
)

func (r Role) String() string {
	switch r {
	case RoleTA:
		return "ta"
	case RoleStudent:
		return "student"
	}
	return "unset"
}

// PromptState is the protocol step a connection is waiting on input for.
type PromptState int

const (
	AskUsername PromptState = iota
	AskRole
	AskRoleInvalid
	// ShowMotd writes the role specific greeting and moves on without
	// waiting for input.
	ShowMotd
	AskCourse
	AwaitCommand
	// Invalid is terminal. The connection is about to be collected.
	Invalid
)

// IOState tracks how far the current inbound message has been received.
type IOState int

const (
	PrepareToRead IOState = iota
	AwaitingData
	MessageReady
	Disconnected
)

func (s IOState) String() string {
	switch s {
	case PrepareToRead:
		return "prepare_to_read"
	case AwaitingData:
		return "awaiting_data"
	case MessageReady:
		return "message_ready"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

var ErrInvalidState = errorString("invalid_state")

type errorString string

func (e errorString) Error() string { return string(e) }
