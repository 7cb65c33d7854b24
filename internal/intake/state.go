package intake

// State is the position of an intake conversation.
type State string

const (
	StateAwaitingSymptoms State = "awaiting_symptoms"
	StateAwaitingSeverity State = "awaiting_severity"
	StateAwaitingDuration State = "awaiting_duration"
	StateAwaitingAge      State = "awaiting_age"
	StateComplete         State = "complete"
)

var awaitingState = map[Slot]State{
	SlotSymptoms: StateAwaitingSymptoms,
	SlotSeverity: StateAwaitingSeverity,
	SlotDuration: StateAwaitingDuration,
	SlotAge:      StateAwaitingAge,
}

// Slot returns the slot awaited in s, or SlotNone when complete.
func (s State) Slot() Slot {
	for slot, st := range awaitingState {
		if st == s {
			return slot
		}
	}
	return SlotNone
}

// Complete reports whether no slot is outstanding.
func (s State) Complete() bool { return s == StateComplete }

// Next is the transition function of the intake state machine. It scans the
// fixed slot order and returns the state awaiting the first slot that is
// neither skipped nor filled, or StateComplete. A nil record is a new session.
func Next(r *Record) State {
	if r == nil {
		return StateAwaitingSymptoms
	}
	for _, s := range slotOrder {
		if r.skipped(s) || r.filled(s) {
			continue
		}
		return awaitingState[s]
	}
	return StateComplete
}

// Advance applies Next to r and records the awaited slot, keeping the
// invariant that Awaiting is SlotNone exactly when the record is complete.
func Advance(r *Record) State {
	st := Next(r)
	r.Awaiting = st.Slot()
	return st
}

var prompts = map[Slot]string{
	SlotSymptoms: "Please describe your symptoms in your own words.",
	SlotSeverity: "On a scale of 1 to 10, how severe are your symptoms?",
	SlotDuration: "How long have you had these symptoms?",
	SlotAge:      "How old are you?",
}

// Prompt returns the question asked for slot, or "" for SlotNone.
func Prompt(s Slot) string {
	return prompts[s]
}
