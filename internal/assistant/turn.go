package assistant

// TurnState tracks one chat turn through the poll state machine.
//
//	Submitted -> Queued -> InProgress -> {Completed, Failed, Cancelled, Expired}
//
// TimedOut is synthetic: the poll budget ran out while still non-terminal.
type TurnState string

const (
	TurnSubmitted  TurnState = "submitted"
	TurnQueued     TurnState = "queued"
	TurnInProgress TurnState = "in_progress"
	TurnCompleted  TurnState = "completed"
	TurnFailed     TurnState = "failed"
	TurnCancelled  TurnState = "cancelled"
	TurnExpired    TurnState = "expired"
	TurnTimedOut   TurnState = "timed_out"
)

// Terminal reports whether the turn is finished.
func (s TurnState) Terminal() bool {
	switch s {
	case TurnCompleted, TurnFailed, TurnCancelled, TurnExpired, TurnTimedOut:
		return true
	default:
		return false
	}
}

// Turn is the ephemeral record of one submit-and-poll cycle.
type Turn struct {
	SubmittedMessage string
	UserMessageID    string
	RunID            string
	State            TurnState
	// LastStatus is the raw status from the most recent poll.
	LastStatus RunStatus
	Attempts   int
	Reply      *Reply
}

// Reply is the assistant's answer to a turn.
type Reply struct {
	Text      string
	MessageID string
}

// observe applies a polled run status. Unrecognized statuses count as in progress.
func (t *Turn) observe(status RunStatus) {
	t.LastStatus = status
	switch status {
	case RunQueued:
		t.State = TurnQueued
	case RunCompleted:
		t.State = TurnCompleted
	case RunFailed:
		t.State = TurnFailed
	case RunCancelled:
		t.State = TurnCancelled
	case RunExpired:
		t.State = TurnExpired
	default:
		t.State = TurnInProgress
	}
}
