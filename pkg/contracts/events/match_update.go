package events

import "time"

// Evento publicado no tópico "match_updates" a cada jogo lido do feed.
// Date já vem normalizada para UTC pelo ingest.
type MatchUpdate struct {
	MatchID         int64     `json:"match_id"`
	HomeID          int64     `json:"home_id"`
	AwayID          int64     `json:"away_id"`
	HomeTeam        string    `json:"home_team"`
	AwayTeam        string    `json:"away_team"`
	League          string    `json:"league"`
	Status          string    `json:"status"` // texto livre do feed; ver store.TerminalStatus
	Date            time.Time `json:"date"`
	Result          string    `json:"result,omitempty"` // "H-A", presente quando o feed já tem placar
	HomeGoalDetails string    `json:"home_goal_details,omitempty"`
	AwayGoalDetails string    `json:"away_goal_details,omitempty"`
	Source          string    `json:"source"` // "fixtures" | "livescore"
}
