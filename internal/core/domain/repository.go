package domain

import (
	"context"
	"time"
)

type TaskRepository interface {
	// Create persists a new task definition.
	Create(ctx context.Context, task *Task) error

	// GetByID retrieves a task regardless of its active flag.
	GetByID(ctx context.Context, id string) (*Task, error)

	// ListByUserID retrieves every task of a user, active or not, oldest first.
	ListByUserID(ctx context.Context, userID string) ([]*Task, error)

	// Update overwrites the mutable fields of an existing task.
	Update(ctx context.Context, task *Task) error
}

// DayStore gives exclusive access to one user's day. Implementations must
// serialize units of work on the same (userID, date) key and apply every
// write of a unit atomically: all or nothing.
type DayStore interface {
	WithinDay(ctx context.Context, userID string, date time.Time, fn func(tx DayTx) error) error
}

// DayTx is the view of storage inside a DayStore unit of work.
type DayTx interface {
	ActiveTasks(ctx context.Context, userID string) ([]*Task, error)
	ListCompletions(ctx context.Context, userID string, date time.Time) ([]*Completion, error)

	// UpsertCompletion inserts or replaces the completion for its (user, task, date) key.
	UpsertCompletion(ctx context.Context, c *Completion) error

	DeleteCompletion(ctx context.Context, userID, taskID string, date time.Time) error
	UpsertDailyScore(ctx context.Context, s *DailyScore) error
}

type CompletionRepository interface {
	DayStore

	// ListByDate returns the committed completions of a user for one day.
	ListByDate(ctx context.Context, userID string, date time.Time) ([]*Completion, error)
}

type ScoreRepository interface {
	// ListRange returns the user's daily scores with from <= date <= to, ordered by date.
	ListRange(ctx context.Context, userID string, from, to time.Time) ([]*DailyScore, error)
}

type ChallengeRepository interface {
	Create(ctx context.Context, c *Challenge) error
	GetByID(ctx context.Context, id string) (*Challenge, error)

	// ListByUserID returns challenges where the user takes part, newest first.
	// An empty status returns every status.
	ListByUserID(ctx context.Context, userID string, status ChallengeStatus) ([]*Challenge, error)

	// ListDue returns active challenges whose end date is on or before asOf.
	ListDue(ctx context.Context, asOf time.Time) ([]*Challenge, error)

	// UpdateStatus is a compare-and-swap: it only succeeds while the stored
	// status still equals from. Otherwise it returns ErrChallengeStatusConflict.
	UpdateStatus(ctx context.Context, id string, from, to ChallengeStatus, at time.Time) error

	// Complete moves an active challenge to completed, stores the winner and
	// bumps the winner's and loser's counters in one atomic step. It returns
	// false, with no changes, when the challenge is no longer active.
	Complete(ctx context.Context, outcome Outcome, at time.Time) (bool, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Search matches username or display name case-insensitively, skipping excludingUserID.
	Search(ctx context.Context, query, excludingUserID string, limit int) ([]*User, error)
}

type StatsRepository interface {
	// GetStats returns zeroed stats for users who never finished a challenge.
	GetStats(ctx context.Context, userID string) (*ProfileStats, error)

	// TopByWins orders by wins descending, then user id ascending.
	TopByWins(ctx context.Context, excludingUserID string, limit int) ([]*LeaderboardEntry, error)

	// Rebuild replaces every counter with tally(completed challenges) and
	// returns how many users carry stats afterwards. No Complete may commit
	// between reading the challenges and writing the counters.
	Rebuild(ctx context.Context, tally StatsTally) (int, error)
}

type OutcomePublisher interface {
	PublishChallengeCompleted(ctx context.Context, event ChallengeCompletedEvent) error
}
