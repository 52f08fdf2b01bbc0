package engine

// GameOrder is the complete slot sequence of a competitive draft. It is the
// single source of truth for who acts when; changing it breaks compatibility
// with existing broadcast tooling.
var GameOrder = []TurnStep{
	// Ban phase 1
	{Side: SideBlue, Action: ActionBan},
	{Side: SideRed, Action: ActionBan},
	{Side: SideBlue, Action: ActionBan},
	{Side: SideRed, Action: ActionBan},
	{Side: SideBlue, Action: ActionBan},
	{Side: SideRed, Action: ActionBan},
	// Pick phase 1 (snake: B R R B B R)
	{Side: SideBlue, Action: ActionPick},
	{Side: SideRed, Action: ActionPick},
	{Side: SideRed, Action: ActionPick},
	{Side: SideBlue, Action: ActionPick},
	{Side: SideBlue, Action: ActionPick},
	{Side: SideRed, Action: ActionPick},
	// Ban phase 2 (red first)
	{Side: SideRed, Action: ActionBan},
	{Side: SideBlue, Action: ActionBan},
	{Side: SideRed, Action: ActionBan},
	{Side: SideBlue, Action: ActionBan},
	// Pick phase 2 (snake: R B B R)
	{Side: SideRed, Action: ActionPick},
	{Side: SideBlue, Action: ActionPick},
	{Side: SideBlue, Action: ActionPick},
	{Side: SideRed, Action: ActionPick},
}

// phaseStarts maps each drafting phase to its first cursor position.
var phaseStarts = map[Phase]int{
	PhaseBan1:  0,
	PhasePick1: 6,
	PhaseBan2:  12,
	PhasePick2: 16,
}

// DerivePhase maps a cursor into the drafting phase that owns it.
func DerivePhase(cursor int) Phase {
	switch {
	case cursor >= len(GameOrder):
		return PhaseCompleted
	case cursor >= phaseStarts[PhasePick2]:
		return PhasePick2
	case cursor >= phaseStarts[PhaseBan2]:
		return PhaseBan2
	case cursor >= phaseStarts[PhasePick1]:
		return PhasePick1
	default:
		return PhaseBan1
	}
}

// TurnNumber is the slot index within the cursor's phase, starting at 0.
func TurnNumber(cursor int) int {
	p := DerivePhase(cursor)
	if p == PhaseCompleted {
		return 0
	}
	return cursor - phaseStarts[p]
}

func currentStep(s State) (TurnStep, bool) {
	if s.Cursor >= len(GameOrder) {
		return TurnStep{}, true
	}
	return GameOrder[s.Cursor], false
}
