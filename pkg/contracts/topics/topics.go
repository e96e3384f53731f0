package topics

const (
	// Feed de jogos
	MatchUpdates = "match_updates"

	// Betslips
	SlipConfirmed = "slip_confirmed"
)
