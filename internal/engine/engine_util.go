package engine

// NewState returns a session in the config phase with both team shells in
// place, waiting for registration.
func NewState(cfg Config) State {
	if cfg.TotalGames == 0 {
		cfg.TotalGames = cfg.SeriesType.Games()
	}
	if cfg.GameNumber == 0 {
		cfg.GameNumber = 1
	}
	return State{
		Phase:  PhaseConfig,
		Cursor: 0,
		Teams: map[Side]*TeamState{
			SideBlue: {Side: SideBlue, Bans: []string{}, Picks: []string{}},
			SideRed:  {Side: SideRed, Bans: []string{}, Picks: []string{}},
		},
		Fearless: map[string]bool{},
		Config:   cfg,
	}
}

// CurrentStep returns the acting slot, or done=true once the order is
// exhausted.
func CurrentStep(s State) (step TurnStep, done bool) {
	return currentStep(s)
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
