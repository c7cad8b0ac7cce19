package installer

// State is a state of the installation controller.
type State int

const (
	StateIdle State = iota
	StatePresenting
	StateAwaitingSelection
	StateAwaitingConfirmation
	StateInstalling
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePresenting:
		return "presenting"
	case StateAwaitingSelection:
		return "awaiting-selection"
	case StateAwaitingConfirmation:
		return "awaiting-confirmation"
	case StateInstalling:
		return "installing"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Event drives a state transition.
type Event int

const (
	EventStart Event = iota
	EventShown
	EventSelectIndex
	EventSelectAll
	EventInvalidInput
	EventConfirm
	EventDecline
	EventQuit
	EventTaskDone
	EventBatchDone
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventShown:
		return "shown"
	case EventSelectIndex:
		return "select-index"
	case EventSelectAll:
		return "select-all"
	case EventInvalidInput:
		return "invalid-input"
	case EventConfirm:
		return "confirm"
	case EventDecline:
		return "decline"
	case EventQuit:
		return "quit"
	case EventTaskDone:
		return "task-done"
	case EventBatchDone:
		return "batch-done"
	default:
		return "unknown"
	}
}

type transitionKey struct {
	from  State
	event Event
}

var transitions = map[transitionKey]State{
	{StateIdle, EventStart}: StatePresenting,
	{StateIdle, EventQuit}:  StateCompleted,

	// BatchDone at Presenting means nothing is left to offer.
	{StatePresenting, EventShown}:     StateAwaitingSelection,
	{StatePresenting, EventBatchDone}: StateCompleted,
	{StatePresenting, EventQuit}:      StateCompleted,

	{StateAwaitingSelection, EventSelectIndex}:  StateAwaitingConfirmation,
	{StateAwaitingSelection, EventSelectAll}:    StateAwaitingConfirmation,
	{StateAwaitingSelection, EventInvalidInput}: StateAwaitingSelection,
	{StateAwaitingSelection, EventQuit}:         StateCompleted,

	{StateAwaitingConfirmation, EventConfirm}:      StateInstalling,
	{StateAwaitingConfirmation, EventDecline}:      StatePresenting,
	{StateAwaitingConfirmation, EventInvalidInput}: StateAwaitingConfirmation,
	{StateAwaitingConfirmation, EventQuit}:         StateCompleted,

	{StateInstalling, EventTaskDone}:  StatePresenting,
	{StateInstalling, EventBatchDone}: StateCompleted,
	{StateInstalling, EventQuit}:      StateCompleted,
}

// Transition returns the state reached from s on e. ok is false when the
// event is not accepted in s.
func Transition(s State, e Event) (next State, ok bool) {
	next, ok = transitions[transitionKey{s, e}]
	return next, ok
}
