package ui

import "github.com/calvinmclean/autofeed"

// stage is how a sequence state is shown in the panel
type stage struct {
	label    string
	progress float64
}

var stages = map[autofeed.State]stage{
	autofeed.StateIdle:              {"Idle", 0},
	autofeed.StateExtendGate:        {"Opening Gate", 0.15},
	autofeed.StateDoseWaitForWeight: {"Waiting for Weight", 0.4},
	autofeed.StateRetractGate:       {"Closing Gate", 0.65},
	autofeed.StateDoseAndAerate:     {"Dosing", 0.85},
	autofeed.StateAborting:          {"Aborting", 1},
	autofeed.StateCompleted:         {"Completed", 1},
}

func stageFor(s autofeed.State) stage {
	st, ok := stages[s]
	if !ok {
		return stage{s.String(), 0}
	}
	return st
}

// outcomeLabel is shown after a sequence returns to Idle
func outcomeLabel(kind autofeed.Kind) string {
	switch kind {
	case autofeed.KindCompleted:
		return "Done"
	case autofeed.KindAborted:
		return "Aborted"
	case autofeed.KindRejected:
		return "Busy"
	default:
		return ""
	}
}
