package match

import (
	"fmt"
	"time"
)

// Event type names as the provider spells them.
const (
	EventPass         = "Pass"
	EventShot         = "Shot"
	EventInterception = "Interception"
	EventBlock        = "Block"
	EventClearance    = "Clearance"
	EventPressure     = "Pressure"
	EventTackle       = "Tackle"
)

// ShotOutcomeGoal marks a shot event that scored.
const ShotOutcomeGoal = "Goal"

// DefensiveEventTypes are the event types counted as defensive actions.
var DefensiveEventTypes = map[string]struct{}{
	EventInterception: {},
	EventBlock:        {},
	EventClearance:    {},
	EventPressure:     {},
	EventTackle:       {},
}

// Competition is one competition/season pairing as the source lists it.
type Competition struct {
	ID          int64
	SeasonID    int64
	Name        string
	SeasonName  string
	CountryName string
}

// Match is one fixture inside exactly one competition/season.
type Match struct {
	ID              int64
	Date            time.Time
	CompetitionID   int64
	SeasonID        int64
	CompetitionName string
	SeasonName      string
	HomeTeam        string
	AwayTeam        string
}

func (m Match) Validate() error {
	if m.ID <= 0 {
		return fmt.Errorf("match id must be a positive identifier")
	}
	if m.Date.IsZero() {
		return fmt.Errorf("match date is required")
	}

	return nil
}

// EventRecord is one action recorded within a match. An empty Outcome on a
// pass means the pass completed; the provider omits the outcome in that case.
type EventRecord struct {
	MatchID    int64
	PlayerID   int64
	PlayerName string
	Team       string
	Type       string
	Outcome    string
}

// IsDefensiveAction reports whether the event counts toward defensive_actions.
func (e EventRecord) IsDefensiveAction() bool {
	_, ok := DefensiveEventTypes[e.Type]
	return ok
}

// Appearance is a match in which the target player recorded at least one
// event, together with the player-scoped event rows and team context.
type Appearance struct {
	Match  Match
	Events []EventRecord

	// Team is the player's side in this match when resolvable from the rows.
	Team string

	// TeamPassCompletion is the team-level pass completion for the same
	// match, captured during collection for later anomaly cross-checks.
	TeamPassCompletion *float64
}
