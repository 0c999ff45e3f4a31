package statsbomb

import (
	"sort"
	"strings"
	"time"

	"github.com/playpulse/playpulse/internal/domain/match"
)

// Wire rows mirror the open-data JSON layout. Everything optional is a
// pointer; conversion to domain types tolerates absent relations.

type nameRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type competitionRow struct {
	CompetitionID   int64  `json:"competition_id"`
	SeasonID        int64  `json:"season_id"`
	CountryName     string `json:"country_name"`
	CompetitionName string `json:"competition_name"`
	SeasonName      string `json:"season_name"`
}

type matchCompetitionRef struct {
	CompetitionID int64  `json:"competition_id"`
	CountryName   string `json:"country_name"`
	Name          string `json:"competition_name"`
}

type matchSeasonRef struct {
	SeasonID int64  `json:"season_id"`
	Name     string `json:"season_name"`
}

type homeTeamRef struct {
	ID   int64  `json:"home_team_id"`
	Name string `json:"home_team_name"`
}

type awayTeamRef struct {
	ID   int64  `json:"away_team_id"`
	Name string `json:"away_team_name"`
}

type matchRow struct {
	MatchID     int64               `json:"match_id"`
	MatchDate   string              `json:"match_date"`
	KickOff     string              `json:"kick_off"`
	HomeScore   int                 `json:"home_score"`
	AwayScore   int                 `json:"away_score"`
	Competition matchCompetitionRef `json:"competition"`
	Season      matchSeasonRef      `json:"season"`
	HomeTeam    homeTeamRef         `json:"home_team"`
	AwayTeam    awayTeamRef         `json:"away_team"`
}

type outcomeDetail struct {
	Outcome *nameRef `json:"outcome"`
}

type eventRow struct {
	ID     string         `json:"id"`
	Type   *nameRef       `json:"type"`
	Player *nameRef       `json:"player"`
	Team   *nameRef       `json:"team"`
	Pass   *outcomeDetail `json:"pass"`
	Shot   *outcomeDetail `json:"shot"`
}

// mapCompetitions converts wire rows and orders them newest season first,
// the recency proxy every downstream walk relies on.
func mapCompetitions(rows []competitionRow) []match.Competition {
	out := make([]match.Competition, 0, len(rows))
	for _, row := range rows {
		if row.CompetitionID <= 0 || row.SeasonID <= 0 {
			continue
		}
		out = append(out, match.Competition{
			ID:          row.CompetitionID,
			SeasonID:    row.SeasonID,
			Name:        strings.TrimSpace(row.CompetitionName),
			SeasonName:  strings.TrimSpace(row.SeasonName),
			CountryName: strings.TrimSpace(row.CountryName),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SeasonID != out[j].SeasonID {
			return out[i].SeasonID > out[j].SeasonID
		}
		return out[i].ID < out[j].ID
	})

	return out
}

// mapMatches converts wire rows and orders them newest first.
func mapMatches(rows []matchRow) []match.Match {
	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		if row.MatchID <= 0 {
			continue
		}
		date := parseMatchDate(row.MatchDate, row.KickOff)
		if date.IsZero() {
			continue
		}
		out = append(out, match.Match{
			ID:              row.MatchID,
			Date:            date,
			CompetitionID:   row.Competition.CompetitionID,
			SeasonID:        row.Season.SeasonID,
			CompetitionName: strings.TrimSpace(row.Competition.Name),
			SeasonName:      strings.TrimSpace(row.Season.Name),
			HomeTeam:        strings.TrimSpace(row.HomeTeam.Name),
			AwayTeam:        strings.TrimSpace(row.AwayTeam.Name),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})

	return out
}

// mapEvents converts wire rows for one match. Rows without a type name carry
// no signal for metrics and are dropped; rows without a player are kept for
// team-level aggregation.
func mapEvents(matchID int64, rows []eventRow) []match.EventRecord {
	out := make([]match.EventRecord, 0, len(rows))
	for _, row := range rows {
		if row.Type == nil || strings.TrimSpace(row.Type.Name) == "" {
			continue
		}

		record := match.EventRecord{
			MatchID: matchID,
			Type:    strings.TrimSpace(row.Type.Name),
		}
		if row.Player != nil {
			record.PlayerID = row.Player.ID
			record.PlayerName = strings.TrimSpace(row.Player.Name)
		}
		if row.Team != nil {
			record.Team = strings.TrimSpace(row.Team.Name)
		}
		if row.Pass != nil && row.Pass.Outcome != nil {
			record.Outcome = strings.TrimSpace(row.Pass.Outcome.Name)
		}
		if row.Shot != nil && row.Shot.Outcome != nil {
			record.Outcome = strings.TrimSpace(row.Shot.Outcome.Name)
		}

		out = append(out, record)
	}

	return out
}

// parseMatchDate combines the date and, when present, the kick-off clock.
func parseMatchDate(matchDate, kickOff string) time.Time {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(matchDate))
	if err != nil {
		return time.Time{}
	}

	kickOff = strings.TrimSpace(kickOff)
	if kickOff == "" {
		return date
	}
	for _, layout := range []string{"15:04:05.000", "15:04:05", "15:04"} {
		clock, err := time.Parse(layout, kickOff)
		if err != nil {
			continue
		}
		return date.Add(time.Duration(clock.Hour())*time.Hour +
			time.Duration(clock.Minute())*time.Minute +
			time.Duration(clock.Second())*time.Second)
	}

	return date
}
