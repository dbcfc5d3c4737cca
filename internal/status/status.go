package status

// State is the shared vocabulary every prerequisite check projects its
// internal phase onto. A check holds exactly one state at a time.
type State string

const (
	// Pending means the check is waiting on an asynchronous operation.
	Pending State = "pending"
	// Failure means the check reached a terminal failure for this mount.
	Failure State = "failure"
	// Success means the prerequisite is satisfied.
	Success State = "success"
	// UserInteractionRequired means the check is paused until the user acts,
	// not blocked on I/O.
	UserInteractionRequired State = "user_interaction_required"
)

var icons = map[State]string{
	Pending:                 "⏳",
	Failure:                 "💥",
	Success:                 "✅",
	UserInteractionRequired: "👋",
}

// All lists every state, in display order.
func All() []State {
	return []State{Pending, Failure, Success, UserInteractionRequired}
}

// Valid reports whether s is one of the four known states.
func (s State) Valid() bool {
	_, ok := icons[s]
	return ok
}

// Icon returns the display glyph for a state. Every valid state maps to
// exactly one glyph; unknown values yield the empty string.
func (s State) Icon() string {
	return icons[s]
}
