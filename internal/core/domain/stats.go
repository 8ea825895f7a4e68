package domain

import "time"

// ProfileStats counts resolved challenges with a winner. Ties count for neither.
type ProfileStats struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Wins      int       `json:"wins" db:"wins"`
	Losses    int       `json:"losses" db:"losses"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank" db:"-"`
	UserID      string `json:"user_id" db:"user_id"`
	Username    string `json:"username" db:"username"`
	DisplayName string `json:"display_name" db:"display_name"`
	Wins        int    `json:"wins" db:"wins"`
	Losses      int    `json:"losses" db:"losses"`
}

type UserProfile struct {
	User  *User         `json:"user"`
	Stats *ProfileStats `json:"stats"`
}

// StatsTally turns the completed challenges into per-user counters.
type StatsTally func(completed []*Challenge) map[string]*ProfileStats

// TallyStats rebuilds win/loss counters from completed challenges.
func TallyStats(challenges []*Challenge, at time.Time) map[string]*ProfileStats {
	out := make(map[string]*ProfileStats)
	get := func(id string) *ProfileStats {
		s, ok := out[id]
		if !ok {
			s = &ProfileStats{UserID: id, UpdatedAt: at.UTC()}
			out[id] = s
		}
		return s
	}

	for _, c := range challenges {
		if c.Status != StatusCompleted || c.WinnerID == nil {
			continue
		}
		winner := *c.WinnerID
		loser := c.CreatorID
		if winner == c.CreatorID {
			loser = c.ChallengerID
		}
		get(winner).Wins++
		get(loser).Losses++
	}
	return out
}
