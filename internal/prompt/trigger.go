package prompt

// DefaultTriggerCadence is the number of user messages between evolution runs
const DefaultTriggerCadence = 5

// Trigger decides when a conversation has accumulated enough user messages
// to warrant an evolution run.
type Trigger struct {
	Cadence int
}

// NewTrigger returns a trigger with the given cadence, falling back to the default for non-positive values
func NewTrigger(cadence int) Trigger {
	if cadence <= 0 {
		cadence = DefaultTriggerCadence
	}
	return Trigger{Cadence: cadence}
}

// ShouldEvolve reports whether userMessageCount lands on the cadence
func (t Trigger) ShouldEvolve(userMessageCount int) bool {
	cadence := t.Cadence
	if cadence <= 0 {
		cadence = DefaultTriggerCadence
	}
	return userMessageCount > 0 && userMessageCount%cadence == 0
}
