package pipeline

import "fmt"

// Update reports a state transition of one interaction.
//
// Sent to the observer channel without blocking; updates are dropped when it is full.
type Update struct {
	State   State  // State entered
	User    int64  // User the interaction belongs to
	Message string // Human-readable message for display
	Data    any    // Optional state-specific data ([Error] for [Failed])
}

// State of an interaction.
type State int

const (
	Idle State = iota
	Classifying
	Resolving
	Searching
	AwaitingSelection
	Fetching
	Delivering
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Classifying:
		return "classifying"
	case Resolving:
		return "resolving"
	case Searching:
		return "searching"
	case AwaitingSelection:
		return "awaiting_selection"
	case Fetching:
		return "fetching"
	case Delivering:
		return "delivering"
	case Failed:
		return "error"
	default:
		return ""
	}
}

func classifyingUpdate(user int64, text string) Update {
	return Update{State: Classifying, User: user, Message: fmt.Sprintf("Classifying %q", text)}
}

func resolvingUpdate(user int64, link string) Update {
	return Update{State: Resolving, User: user, Message: "Resolving " + link}
}

func searchingUpdate(user int64, query string) Update {
	return Update{State: Searching, User: user, Message: fmt.Sprintf("Searching for %q", query)}
}

func awaitingUpdate(user int64, n int) Update {
	return Update{State: AwaitingSelection, User: user, Message: fmt.Sprintf("Presented %d candidates", n), Data: n}
}

func fetchingUpdate(user int64, title string) Update {
	return Update{State: Fetching, User: user, Message: "Fetching " + title}
}

func deliveringUpdate(user int64, path string) Update {
	return Update{State: Delivering, User: user, Message: "Delivering " + path}
}

func failedUpdate(user int64, err *Error) Update {
	return Update{State: Failed, User: user, Message: err.Error(), Data: err}
}

func idleUpdate(user int64) Update {
	return Update{State: Idle, User: user, Message: "Done"}
}
