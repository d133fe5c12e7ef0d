package conversation

import "github.com/ourhouse/backend/internal/model/persona"

// Phase is the state of the two-state turn machine.
type Phase int

const (
	PhaseEven Phase = iota
	PhaseOdd
)

// InputMode tells the shell whether free text is needed before advancing.
type InputMode string

const (
	InputNone InputMode = "none"
	InputText InputMode = "text"
)

// Turn answers who speaks now and whether the interface needs text.
type Turn struct {
	Number      int
	Phase       Phase
	Speaker     string
	Listener    string
	HasOperator bool
	Input       InputMode
}

// Schedule is a pure function of the participants and the turn counter.
// With an operator present, the operator speaks on even turns; otherwise p1
// speaks on even turns and p2 on odd ones.
func Schedule(p1, p2 string, turn int) Turn {
	if turn < 0 {
		turn = 0
	}
	t := Turn{Number: turn, Phase: Phase(turn % 2), Input: InputNone}

	first, second := p1, p2
	if persona.IsOperator(p1) || persona.IsOperator(p2) {
		t.HasOperator = true
		if persona.IsOperator(p2) && !persona.IsOperator(p1) {
			first, second = p2, p1
		}
	}

	if t.Phase == PhaseEven {
		t.Speaker, t.Listener = first, second
	} else {
		t.Speaker, t.Listener = second, first
	}

	if t.HasOperator && persona.IsOperator(t.Speaker) {
		t.Input = InputText
	}
	return t
}

// PreviousSpeaker names who produced the latest exchange; blank before the first.
func PreviousSpeaker(p1, p2 string, turn int) string {
	if turn <= 0 {
		return ""
	}
	return Schedule(p1, p2, turn-1).Speaker
}
