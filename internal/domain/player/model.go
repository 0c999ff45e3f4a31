package player

import "fmt"

// Player is the athlete a collection run targets. Resolved once per run from
// the external provider and immutable afterwards.
type Player struct {
	ID   int64  `json:"player_id"`
	Name string `json:"player_name"`
}

func (p Player) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("player id must be a positive identifier")
	}
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}

	return nil
}
