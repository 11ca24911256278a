package challenge

// Phase is the lifecycle position of a challenge.
//
// Completion may happen before acceptance, so the phase set distinguishes a
// challenge completed while unaccepted from one completed after acceptance.
// Every transition only ever adds flags: Accepted, Completed and Finished are
// monotonic by construction.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseAccepted
	PhaseCompletedUnaccepted
	PhaseCompleted
	PhaseFinished
)

var phaseLabels = map[Phase]string{
	PhaseCreated:             "created",
	PhaseAccepted:            "accepted",
	PhaseCompletedUnaccepted: "completed_unaccepted",
	PhaseCompleted:           "completed",
	PhaseFinished:            "finished",
}

// String returns the storage label for the phase.
func (p Phase) String() string {
	if label, ok := phaseLabels[p]; ok {
		return label
	}
	return "unknown"
}

// ParsePhase resolves a storage label back into a Phase.
func ParsePhase(label string) (Phase, bool) {
	for phase, value := range phaseLabels {
		if value == label {
			return phase, true
		}
	}
	return PhaseCreated, false
}

// Accepted reports whether the contender has accepted.
func (p Phase) Accepted() bool {
	return p == PhaseAccepted || p == PhaseCompleted || p == PhaseFinished
}

// Completed reports whether the owner has completed the challenge.
func (p Phase) Completed() bool {
	return p == PhaseCompletedUnaccepted || p == PhaseCompleted || p == PhaseFinished
}

// Finished reports whether the challenger has finished the challenge.
func (p Phase) Finished() bool {
	return p == PhaseFinished
}

func (p Phase) accept() (Phase, bool) {
	switch p {
	case PhaseCreated:
		return PhaseAccepted, true
	case PhaseCompletedUnaccepted:
		return PhaseCompleted, true
	default:
		return p, false
	}
}

func (p Phase) complete() (Phase, bool) {
	switch p {
	case PhaseCreated:
		return PhaseCompletedUnaccepted, true
	case PhaseAccepted:
		return PhaseCompleted, true
	default:
		return p, false
	}
}

func (p Phase) finish() (Phase, bool) {
	if p == PhaseCompleted {
		return PhaseFinished, true
	}
	return p, false
}
