package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
)

type ChallengeService struct {
	challenges domain.ChallengeRepository
	users      domain.UserRepository
	scores     domain.ScoreRepository
	publisher  domain.OutcomePublisher
	logger     *zap.Logger
	now        func() time.Time
}

func NewChallengeService(
	challenges domain.ChallengeRepository,
	users domain.UserRepository,
	scores domain.ScoreRepository,
	publisher domain.OutcomePublisher,
	logger *zap.Logger,
) *ChallengeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChallengeService{
		challenges: challenges,
		users:      users,
		scores:     scores,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the wall clock used for start dates and standings.
func (s *ChallengeService) WithClock(now func() time.Time) *ChallengeService {
	s.now = now
	return s
}

type CreateChallengeInput struct {
	CreatorID          string
	ChallengerUsername string
	Duration           domain.DurationSpec
}

// SweepReport summarizes one sweep run.
type SweepReport struct {
	AsOf      time.Time        `json:"as_of"`
	Examined  int              `json:"examined"`
	Completed int              `json:"completed"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
	Outcomes  []domain.Outcome `json:"outcomes"`
}

func (s *ChallengeService) Create(ctx context.Context, input CreateChallengeInput) (*domain.Challenge, error) {
	if err := input.Duration.Validate(); err != nil {
		return nil, err
	}

	challenger, err := s.users.GetByUsername(ctx, input.ChallengerUsername)
	if err != nil {
		return nil, err
	}

	c, err := domain.NewChallenge(input.CreatorID, challenger.ID, s.now().UTC(), input.Duration)
	if err != nil {
		return nil, err
	}

	if err := s.challenges.Create(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *ChallengeService) Respond(ctx context.Context, challengeID, actorID string, accept bool) (*domain.Challenge, error) {
	c, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	from := c.Status
	next, err := c.Respond(actorID, accept)
	if err != nil {
		return nil, err
	}

	if err := s.challenges.UpdateStatus(ctx, c.ID, from, next, c.UpdatedAt); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *ChallengeService) Cancel(ctx context.Context, challengeID, actorID string) (*domain.Challenge, error) {
	c, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	from := c.Status
	if err := c.Cancel(actorID); err != nil {
		return nil, err
	}

	if err := s.challenges.UpdateStatus(ctx, c.ID, from, c.Status, c.UpdatedAt); err != nil {
		return nil, err
	}

	return c, nil
}

// Get only reveals a challenge to its participants.
func (s *ChallengeService) Get(ctx context.Context, challengeID, actorID string) (*domain.Challenge, error) {
	c, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !c.IsParticipant(actorID) {
		return nil, domain.ErrChallengeNotFound
	}
	return c, nil
}

func (s *ChallengeService) List(ctx context.Context, userID, status string) ([]*domain.Challenge, error) {
	var filter domain.ChallengeStatus
	if status != "" {
		parsed, err := domain.ParseChallengeStatus(status)
		if err != nil {
			return nil, err
		}
		filter = parsed
	}

	return s.challenges.ListByUserID(ctx, userID, filter)
}

// Standing returns the running averages of an active challenge, using the
// scores recorded so far.
func (s *ChallengeService) Standing(ctx context.Context, challengeID, actorID string) (*domain.Outcome, error) {
	c, err := s.Get(ctx, challengeID, actorID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.StatusActive {
		return nil, domain.ErrChallengeNotActive
	}

	to := domain.DateOnly(s.now().UTC())
	if to.After(c.EndDate) {
		to = c.EndDate
	}

	outcome, err := s.decide(ctx, c, to)
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

// SweepCompletions settles every active challenge whose end date is on or
// before now. A failing challenge is logged and counted; the others go on.
func (s *ChallengeService) SweepCompletions(ctx context.Context, now time.Time) (*SweepReport, error) {
	asOf := domain.DateOnly(now.UTC())

	due, err := s.challenges.ListDue(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("sweep: list due challenges: %w", err)
	}

	report := &SweepReport{AsOf: asOf, Outcomes: make([]domain.Outcome, 0, len(due))}

	for _, c := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		report.Examined++

		if !c.IsDue(asOf) {
			report.Skipped++
			continue
		}

		outcome, completed, err := s.complete(ctx, c, now)
		switch {
		case err != nil:
			report.Failed++
			s.logger.Error("[SWEEP] challenge failed",
				zap.String("challenge_id", c.ID),
				zap.Error(err),
			)
		case !completed:
			report.Skipped++
			s.logger.Debug("[SWEEP] challenge already settled", zap.String("challenge_id", c.ID))
		default:
			report.Completed++
			report.Outcomes = append(report.Outcomes, outcome)
		}
	}

	return report, nil
}

func (s *ChallengeService) complete(ctx context.Context, c *domain.Challenge, now time.Time) (domain.Outcome, bool, error) {
	outcome, err := s.decide(ctx, c, c.EndDate)
	if err != nil {
		return domain.Outcome{}, false, err
	}

	ok, err := s.challenges.Complete(ctx, outcome, now)
	if err != nil || !ok {
		return outcome, false, err
	}

	if err := c.Complete(outcome, now); err != nil && !errors.Is(err, domain.ErrChallengeNotActive) {
		return outcome, true, err
	}

	s.publish(ctx, c, outcome, now)

	s.logger.Info("[SWEEP] challenge completed",
		zap.String("challenge_id", c.ID),
		zap.Float64("creator_average", outcome.CreatorAverage),
		zap.Float64("challenger_average", outcome.ChallengerAverage),
		zap.Bool("tie", outcome.IsTie()),
	)

	return outcome, true, nil
}

// decide loads both participants' scores in [StartDate, to] concurrently.
func (s *ChallengeService) decide(ctx context.Context, c *domain.Challenge, to time.Time) (domain.Outcome, error) {
	var creatorScores, challengerScores []*domain.DailyScore

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		creatorScores, err = s.scores.ListRange(gctx, c.CreatorID, c.StartDate, to)
		return err
	})
	g.Go(func() error {
		var err error
		challengerScores, err = s.scores.ListRange(gctx, c.ChallengerID, c.StartDate, to)
		return err
	})

	if err := g.Wait(); err != nil {
		return domain.Outcome{}, fmt.Errorf("load scores for challenge %s: %w", c.ID, err)
	}

	return domain.DecideOutcome(c, creatorScores, challengerScores), nil
}

// publish is best effort: the challenge is already completed in storage.
func (s *ChallengeService) publish(ctx context.Context, c *domain.Challenge, o domain.Outcome, at time.Time) {
	if s.publisher == nil {
		return
	}

	event := domain.NewChallengeCompletedEvent(c, o, at)
	if err := s.publisher.PublishChallengeCompleted(ctx, event); err != nil {
		s.logger.Warn("[SWEEP] failed to publish outcome",
			zap.String("challenge_id", c.ID),
			zap.Error(err),
		)
	}
}
