package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ChallengeStatus string

const (
	StatusPending   ChallengeStatus = "pending"
	StatusActive    ChallengeStatus = "active"
	StatusCompleted ChallengeStatus = "completed"
	StatusCancelled ChallengeStatus = "cancelled"
	StatusRejected  ChallengeStatus = "rejected"
)

var (
	ErrChallengeNotFound       = fmt.Errorf("challenge %w", ErrNotFound)
	ErrSelfChallenge           = fmt.Errorf("%w: you cannot challenge yourself", ErrInvalidArgument)
	ErrChallengeInvalidUserID  = fmt.Errorf("%w: invalid participant id", ErrInvalidArgument)
	ErrInvalidChallengeStatus  = fmt.Errorf("%w: unknown challenge status", ErrInvalidArgument)
	ErrNotChallenger           = fmt.Errorf("%w: only the challenged user can respond", ErrForbidden)
	ErrNotCreator              = fmt.Errorf("%w: only the creator can cancel", ErrForbidden)
	ErrChallengeNotPending     = fmt.Errorf("%w: challenge is not pending", ErrInvalidState)
	ErrChallengeNotActive      = fmt.Errorf("%w: challenge is not active", ErrInvalidState)
	ErrChallengeStatusConflict = fmt.Errorf("%w: challenge status changed concurrently", ErrInvalidState)
)

// transitions lists the statuses reachable from each status. Completed,
// cancelled and rejected are terminal.
var transitions = map[ChallengeStatus][]ChallengeStatus{
	StatusPending: {StatusActive, StatusRejected, StatusCancelled},
	StatusActive:  {StatusCompleted},
}

func ParseChallengeStatus(s string) (ChallengeStatus, error) {
	st := ChallengeStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusActive, StatusCompleted, StatusCancelled, StatusRejected:
		return st, nil
	}
	return "", ErrInvalidChallengeStatus
}

func (s ChallengeStatus) CanTransitionTo(next ChallengeStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Challenge compares two users by their average DailyScore between StartDate
// and EndDate, both inclusive. WinnerID is nil until completion and stays nil
// on a tie.
type Challenge struct {
	ID           string          `json:"id" db:"id"`
	CreatorID    string          `json:"creator_id" db:"creator_id"`
	ChallengerID string          `json:"challenger_id" db:"challenger_id"`
	StartDate    time.Time       `json:"start_date" db:"start_date"`
	EndDate      time.Time       `json:"end_date" db:"end_date"`
	Status       ChallengeStatus `json:"status" db:"status"`
	WinnerID     *string         `json:"winner_id" db:"winner_id"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

func NewChallenge(creatorID, challengerID string, start time.Time, duration DurationSpec) (*Challenge, error) {
	if strings.TrimSpace(creatorID) == "" || strings.TrimSpace(challengerID) == "" {
		return nil, ErrChallengeInvalidUserID
	}
	if creatorID == challengerID {
		return nil, ErrSelfChallenge
	}

	end, err := duration.EndDate(start)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Challenge{
		ID:           uuid.NewString(),
		CreatorID:    creatorID,
		ChallengerID: challengerID,
		StartDate:    DateOnly(start),
		EndDate:      end,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (c *Challenge) IsParticipant(userID string) bool {
	return userID != "" && (c.CreatorID == userID || c.ChallengerID == userID)
}

// Respond applies the challenger's answer and returns the new status.
func (c *Challenge) Respond(actorID string, accept bool) (ChallengeStatus, error) {
	if actorID != c.ChallengerID {
		return "", ErrNotChallenger
	}

	next := StatusRejected
	if accept {
		next = StatusActive
	}

	if err := c.moveTo(next, time.Now()); err != nil {
		return "", err
	}
	return next, nil
}

func (c *Challenge) Cancel(actorID string) error {
	if actorID != c.CreatorID {
		return ErrNotCreator
	}

	return c.moveTo(StatusCancelled, time.Now())
}

// IsDue reports whether an active challenge has reached its end date, compared
// as calendar days.
func (c *Challenge) IsDue(now time.Time) bool {
	return c.Status == StatusActive && !DateOnly(c.EndDate).After(DateOnly(now))
}

// Complete records the outcome on an active challenge.
func (c *Challenge) Complete(o Outcome, at time.Time) error {
	if err := c.moveTo(StatusCompleted, at); err != nil {
		return err
	}

	c.WinnerID = o.WinnerID
	return nil
}

func (c *Challenge) moveTo(next ChallengeStatus, at time.Time) error {
	if !c.Status.CanTransitionTo(next) {
		if next == StatusCompleted {
			return ErrChallengeNotActive
		}
		return ErrChallengeNotPending
	}

	c.Status = next
	c.UpdatedAt = at.UTC()
	return nil
}

// InRange reports whether date falls within [StartDate, EndDate].
func (c *Challenge) InRange(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(c.StartDate)) && !d.After(DateOnly(c.EndDate))
}
