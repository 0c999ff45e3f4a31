package postgres

import "time"

type analysisRunInsertModel struct {
	PlayerID      int64   `db:"player_id"`
	PlayerName    string  `db:"player_name"`
	MaxMatches    int     `db:"max_matches"`
	MatchesFound  int     `db:"matches_found"`
	Status        string  `db:"status"`
	Payload       string  `db:"payload"`
	ProcessingSec float64 `db:"processing_seconds"`
}

type analysisRunTableModel struct {
	ID            int64     `db:"id"`
	PlayerID      int64     `db:"player_id"`
	PlayerName    string    `db:"player_name"`
	MaxMatches    int       `db:"max_matches"`
	MatchesFound  int       `db:"matches_found"`
	Status        string    `db:"status"`
	Payload       string    `db:"payload"`
	ProcessingSec float64   `db:"processing_seconds"`
	CreatedAt     time.Time `db:"created_at"`
}
