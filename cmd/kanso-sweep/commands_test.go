package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-duel/internal/app"
	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/comitanigiacomo/kanso-duel/internal/core/services"
	"github.com/comitanigiacomo/kanso-duel/internal/platform/config"
)

// seededApp returns an in-memory application with one accepted challenge
// running 2025-01-01..2025-01-02, which the creator is winning.
func seededApp(t *testing.T) (*app.App, *domain.User) {
	t.Helper()
	ctx := context.Background()

	a, err := app.New(ctx, &config.AppConfig{
		Storage:       config.StorageMemory,
		JWT:           config.JWTConfig{Secret: "cli-test-secret-key", Issuer: "kanso-test", TTL: time.Hour},
		SweepInterval: time.Hour,
	}, zap.NewNop())
	require.NoError(t, err)

	register := func(name string) *domain.User {
		u, err := a.Auth.Register(ctx, services.RegisterInput{
			Email: name + "@kanso.app", Username: name, Password: "PasswordSuperSegreta1!",
		})
		require.NoError(t, err)
		return u
	}
	creator := register("cli_creator")
	challenger := register("cli_challenger")

	a.Challenges.WithClock(func() time.Time { return time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC) })

	c, err := a.Challenges.Create(ctx, services.CreateChallengeInput{
		CreatorID:          creator.ID,
		ChallengerUsername: challenger.Username,
		Duration:           domain.DurationSpec{Unit: domain.UnitDay, Count: 1},
	})
	require.NoError(t, err)
	_, err = a.Challenges.Respond(ctx, c.ID, challenger.ID, true)
	require.NoError(t, err)

	task, err := a.Tasks.Create(ctx, services.CreateTaskInput{UserID: creator.ID, Name: "Run", TargetDurationHours: 1, PointValue: 10})
	require.NoError(t, err)
	_, err = a.Completions.Record(ctx, services.RecordCompletionInput{
		UserID: creator.ID, TaskID: task.ID, Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), ActualDurationHours: 1,
	})
	require.NoError(t, err)

	return a, creator
}

func run(t *testing.T, a *app.App, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out, func(context.Context) (*app.App, error) { return a, nil })
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunOnce_AsOf(t *testing.T) {
	a, creator := seededApp(t)

	out, err := run(t, a, "run-once", "--as-of", "2025-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "examined=0 completed=0")

	out, err = run(t, a, "run-once", "--as-of", "2025-01-02", "--json")
	require.NoError(t, err)

	var report services.SweepReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Completed)
	require.Len(t, report.Outcomes, 1)
	require.NotNil(t, report.Outcomes[0].WinnerID)
	assert.Equal(t, creator.ID, *report.Outcomes[0].WinnerID)

	stats, err := a.Repos.Stats.GetStats(context.Background(), creator.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Wins)
}

func TestRunOnce_InvalidDate(t *testing.T) {
	a, _ := seededApp(t)

	_, err := run(t, a, "run-once", "--as-of", "tomorrow")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRebuildStats(t *testing.T) {
	a, creator := seededApp(t)

	_, err := run(t, a, "run-once", "--as-of", "2025-01-05")
	require.NoError(t, err)

	_, err = a.Repos.Stats.Rebuild(context.Background(), func([]*domain.Challenge) map[string]*domain.ProfileStats {
		return map[string]*domain.ProfileStats{
			creator.ID:       {UserID: creator.ID, Wins: 42},
			uuid.NewString(): {Wins: 3},
		}
	})
	require.NoError(t, err)

	out, err := run(t, a, "rebuild-stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Rebuilt stats for 2 users")

	stats, _ := a.Repos.Stats.GetStats(context.Background(), creator.ID)
	assert.Equal(t, 1, stats.Wins)
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	a, _ := seededApp(t)

	_, err := run(t, a, "migrate")
	assert.Error(t, err)
}
