package domain

import "time"

// Outcome is the result of comparing both participants over the challenge
// window. WinnerID and LoserID are both nil on a tie.
type Outcome struct {
	ChallengeID       string  `json:"challenge_id"`
	CreatorID         string  `json:"creator_id"`
	ChallengerID      string  `json:"challenger_id"`
	CreatorAverage    float64 `json:"creator_average"`
	ChallengerAverage float64 `json:"challenger_average"`
	CreatorDays       int     `json:"creator_days_scored"`
	ChallengerDays    int     `json:"challenger_days_scored"`
	WinnerID          *string `json:"winner_id"`
	LoserID           *string `json:"loser_id"`
}

func (o Outcome) IsTie() bool {
	return o.WinnerID == nil
}

// AverageScore is the mean percentage over the days that have a score. Days
// without a row are not counted; no rows at all averages to 0.
func AverageScore(scores []*DailyScore) float64 {
	if len(scores) == 0 {
		return 0
	}

	sum := 0.0
	for _, s := range scores {
		sum += s.PercentageScore
	}
	return sum / float64(len(scores))
}

// DecideOutcome compares both users' scores inside the challenge window.
// Scores outside [StartDate, EndDate] or belonging to someone else are ignored.
func DecideOutcome(c *Challenge, creatorScores, challengerScores []*DailyScore) Outcome {
	creator := scoresInWindow(c, c.CreatorID, creatorScores)
	challenger := scoresInWindow(c, c.ChallengerID, challengerScores)

	o := Outcome{
		ChallengeID:       c.ID,
		CreatorID:         c.CreatorID,
		ChallengerID:      c.ChallengerID,
		CreatorAverage:    AverageScore(creator),
		ChallengerAverage: AverageScore(challenger),
		CreatorDays:       len(creator),
		ChallengerDays:    len(challenger),
	}

	switch {
	case o.CreatorAverage > o.ChallengerAverage:
		o.WinnerID, o.LoserID = ptr(c.CreatorID), ptr(c.ChallengerID)
	case o.ChallengerAverage > o.CreatorAverage:
		o.WinnerID, o.LoserID = ptr(c.ChallengerID), ptr(c.CreatorID)
	}

	return o
}

func scoresInWindow(c *Challenge, userID string, scores []*DailyScore) []*DailyScore {
	seen := make(map[time.Time]bool, len(scores))
	out := make([]*DailyScore, 0, len(scores))

	for _, s := range scores {
		if s == nil || s.UserID != userID || !c.InRange(s.Date) {
			continue
		}
		day := DateOnly(s.Date)
		if seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, s)
	}
	return out
}

func ptr(s string) *string {
	return &s
}

// ChallengeCompletedEvent is published after a challenge has been settled.
type ChallengeCompletedEvent struct {
	ChallengeID       string    `json:"challenge_id"`
	CreatorID         string    `json:"creator_id"`
	ChallengerID      string    `json:"challenger_id"`
	StartDate         string    `json:"start_date"`
	EndDate           string    `json:"end_date"`
	WinnerID          *string   `json:"winner_id"`
	CreatorAverage    float64   `json:"creator_average"`
	ChallengerAverage float64   `json:"challenger_average"`
	CompletedAt       time.Time `json:"completed_at"`
}

func NewChallengeCompletedEvent(c *Challenge, o Outcome, at time.Time) ChallengeCompletedEvent {
	return ChallengeCompletedEvent{
		ChallengeID:       c.ID,
		CreatorID:         c.CreatorID,
		ChallengerID:      c.ChallengerID,
		StartDate:         FormatDate(c.StartDate),
		EndDate:           FormatDate(c.EndDate),
		WinnerID:          o.WinnerID,
		CreatorAverage:    o.CreatorAverage,
		ChallengerAverage: o.ChallengerAverage,
		CompletedAt:       at.UTC(),
	}
}
