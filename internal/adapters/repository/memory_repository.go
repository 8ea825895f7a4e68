package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
)

// MemoryStore keeps every entity in process memory. The typed repositories
// returned by its accessors share it, so a unit of work can see tasks,
// completions and scores together. Values are copied on the way in and out.
type MemoryStore struct {
	mu sync.RWMutex

	tasks       map[string]*domain.Task
	completions map[string]*domain.Completion
	scores      map[string]*domain.DailyScore
	challenges  map[string]*domain.Challenge
	users       map[string]*domain.User
	stats       map[string]*domain.ProfileStats

	locksMu  sync.Mutex
	dayLocks map[string]*dayLock
}

// dayLock is a one-slot semaphore so waiters can give up on ctx. Entries are
// dropped once nobody holds or waits for them.
type dayLock struct {
	sem  chan struct{}
	refs int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:       make(map[string]*domain.Task),
		completions: make(map[string]*domain.Completion),
		scores:      make(map[string]*domain.DailyScore),
		challenges:  make(map[string]*domain.Challenge),
		users:       make(map[string]*domain.User),
		stats:       make(map[string]*domain.ProfileStats),
		dayLocks:    make(map[string]*dayLock),
	}
}

func (s *MemoryStore) Tasks() *InMemoryTaskRepository {
	return &InMemoryTaskRepository{s: s}
}

func (s *MemoryStore) Completions() *InMemoryCompletionRepository {
	return &InMemoryCompletionRepository{s: s}
}

func (s *MemoryStore) Scores() *InMemoryScoreRepository {
	return &InMemoryScoreRepository{s: s}
}

func (s *MemoryStore) Challenges() *InMemoryChallengeRepository {
	return &InMemoryChallengeRepository{s: s}
}

func (s *MemoryStore) Users() *InMemoryUserRepository {
	return &InMemoryUserRepository{s: s}
}

func (s *MemoryStore) Stats() *InMemoryStatsRepository {
	return &InMemoryStatsRepository{s: s}
}

func dayKey(userID string, date time.Time) string {
	return userID + "|" + domain.FormatDate(date)
}

func (s *MemoryStore) lockDay(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.locksMu.Lock()
	l, ok := s.dayLocks[key]
	if !ok {
		l = &dayLock{sem: make(chan struct{}, 1)}
		s.dayLocks[key] = l
	}
	l.refs++
	s.locksMu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		s.releaseDay(key, l)
		return nil, ctx.Err()
	}

	return func() {
		<-l.sem
		s.releaseDay(key, l)
	}, nil
}

func (s *MemoryStore) releaseDay(key string, l *dayLock) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(s.dayLocks, key)
	}
}

// ---- tasks ----

type InMemoryTaskRepository struct {
	s *MemoryStore
}

func (r *InMemoryTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	clone := *task
	r.s.tasks[task.ID] = &clone
	return nil
}

func (r *InMemoryTaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *InMemoryTaskRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.listTasks(userID, false), nil
}

func (r *InMemoryTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}

	clone := *task
	r.s.tasks[task.ID] = &clone
	return nil
}

// listTasks expects s.mu to be held.
func (s *MemoryStore) listTasks(userID string, activeOnly bool) []*domain.Task {
	tasks := make([]*domain.Task, 0)
	for _, t := range s.tasks {
		if t.UserID != userID || (activeOnly && !t.Active) {
			continue
		}
		clone := *t
		tasks = append(tasks, &clone)
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

// ---- completions and day units of work ----

type InMemoryCompletionRepository struct {
	s *MemoryStore
}

func (r *InMemoryCompletionRepository) ListByDate(ctx context.Context, userID string, date time.Time) ([]*domain.Completion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.completionsOf(userID, date), nil
}

// completionsOf expects s.mu to be held.
func (s *MemoryStore) completionsOf(userID string, date time.Time) []*domain.Completion {
	day := domain.DateOnly(date)
	out := make([]*domain.Completion, 0)
	for _, c := range s.completions {
		if c.UserID == userID && c.Date.Equal(day) {
			clone := *c
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

// WithinDay runs fn with writes staged in memory and applies them only if fn
// succeeds. Units of work on the same user and day run one at a time.
func (r *InMemoryCompletionRepository) WithinDay(ctx context.Context, userID string, date time.Time, fn func(tx domain.DayTx) error) error {
	unlock, err := r.s.lockDay(ctx, dayKey(userID, date))
	if err != nil {
		return err
	}
	defer unlock()

	tx := &memDayTx{
		s:       r.s,
		upserts: make(map[string]*domain.Completion),
		deletes: make(map[string]bool),
	}

	if err := fn(tx); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for key := range tx.deletes {
		delete(r.s.completions, key)
	}
	for key, c := range tx.upserts {
		r.s.completions[key] = c
	}
	if tx.score != nil {
		r.s.scores[dayKey(tx.score.UserID, tx.score.Date)] = tx.score
	}
	return nil
}

type memDayTx struct {
	s       *MemoryStore
	upserts map[string]*domain.Completion
	deletes map[string]bool
	score   *domain.DailyScore
}

func (tx *memDayTx) ActiveTasks(ctx context.Context, userID string) ([]*domain.Task, error) {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()

	return tx.s.listTasks(userID, true), nil
}

func (tx *memDayTx) ListCompletions(ctx context.Context, userID string, date time.Time) ([]*domain.Completion, error) {
	tx.s.mu.RLock()
	committed := tx.s.completionsOf(userID, date)
	tx.s.mu.RUnlock()

	day := domain.DateOnly(date)
	out := make([]*domain.Completion, 0, len(committed)+len(tx.upserts))
	for _, c := range committed {
		key := c.Key()
		if tx.deletes[key] {
			continue
		}
		if _, staged := tx.upserts[key]; staged {
			continue
		}
		out = append(out, c)
	}
	for _, c := range tx.upserts {
		if c.UserID == userID && c.Date.Equal(day) {
			clone := *c
			out = append(out, &clone)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out, nil
}

func (tx *memDayTx) UpsertCompletion(ctx context.Context, c *domain.Completion) error {
	clone := *c
	key := clone.Key()

	tx.s.mu.RLock()
	if existing, ok := tx.s.completions[key]; ok {
		clone.CreatedAt = existing.CreatedAt
	}
	tx.s.mu.RUnlock()

	delete(tx.deletes, key)
	tx.upserts[key] = &clone
	return nil
}

func (tx *memDayTx) DeleteCompletion(ctx context.Context, userID, taskID string, date time.Time) error {
	key := (&domain.Completion{UserID: userID, TaskID: taskID, Date: domain.DateOnly(date)}).Key()

	if _, staged := tx.upserts[key]; staged {
		delete(tx.upserts, key)
		tx.deletes[key] = true
		return nil
	}

	tx.s.mu.RLock()
	_, exists := tx.s.completions[key]
	tx.s.mu.RUnlock()

	if !exists || tx.deletes[key] {
		return domain.ErrCompletionNotFound
	}

	tx.deletes[key] = true
	return nil
}

func (tx *memDayTx) UpsertDailyScore(ctx context.Context, score *domain.DailyScore) error {
	clone := *score
	tx.score = &clone
	return nil
}

// ---- scores ----

type InMemoryScoreRepository struct {
	s *MemoryStore
}

func (r *InMemoryScoreRepository) ListRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.DailyScore, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	from, to = domain.DateOnly(from), domain.DateOnly(to)
	out := make([]*domain.DailyScore, 0)
	for _, sc := range r.s.scores {
		if sc.UserID != userID || sc.Date.Before(from) || sc.Date.After(to) {
			continue
		}
		clone := *sc
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ---- challenges ----

type InMemoryChallengeRepository struct {
	s *MemoryStore
}

func (r *InMemoryChallengeRepository) Create(ctx context.Context, c *domain.Challenge) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.challenges[c.ID] = cloneChallenge(c)
	return nil
}

func (r *InMemoryChallengeRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.challenges[id]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	return cloneChallenge(c), nil
}

func (r *InMemoryChallengeRepository) ListByUserID(ctx context.Context, userID string, status domain.ChallengeStatus) ([]*domain.Challenge, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Challenge, 0)
	for _, c := range r.s.challenges {
		if !c.IsParticipant(userID) || (status != "" && c.Status != status) {
			continue
		}
		out = append(out, cloneChallenge(c))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *InMemoryChallengeRepository) ListDue(ctx context.Context, asOf time.Time) ([]*domain.Challenge, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	day := domain.DateOnly(asOf)
	out := make([]*domain.Challenge, 0)
	for _, c := range r.s.challenges {
		if c.Status == domain.StatusActive && !c.EndDate.After(day) {
			out = append(out, cloneChallenge(c))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].EndDate.Before(out[j].EndDate)
	})
	return out, nil
}

func (r *InMemoryChallengeRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ChallengeStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.challenges[id]
	if !ok {
		return domain.ErrChallengeNotFound
	}
	if c.Status != from {
		return domain.ErrChallengeStatusConflict
	}

	c.Status = to
	c.UpdatedAt = at.UTC()
	return nil
}

func (r *InMemoryChallengeRepository) Complete(ctx context.Context, o domain.Outcome, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.challenges[o.ChallengeID]
	if !ok {
		return false, domain.ErrChallengeNotFound
	}
	if c.Status != domain.StatusActive {
		return false, nil
	}

	c.Status = domain.StatusCompleted
	c.UpdatedAt = at.UTC()
	c.WinnerID = nil
	if o.WinnerID != nil {
		winner := *o.WinnerID
		c.WinnerID = &winner
	}

	if o.WinnerID != nil && o.LoserID != nil {
		r.s.bumpStats(*o.WinnerID, at, 1, 0)
		r.s.bumpStats(*o.LoserID, at, 0, 1)
	}
	return true, nil
}

// bumpStats expects s.mu to be held for writing.
func (s *MemoryStore) bumpStats(userID string, at time.Time, wins, losses int) {
	st, ok := s.stats[userID]
	if !ok {
		st = &domain.ProfileStats{UserID: userID}
		s.stats[userID] = st
	}
	st.Wins += wins
	st.Losses += losses
	st.UpdatedAt = at.UTC()
}

func cloneChallenge(c *domain.Challenge) *domain.Challenge {
	clone := *c
	if c.WinnerID != nil {
		w := *c.WinnerID
		clone.WinnerID = &w
	}
	return &clone
}

// ---- users ----

type InMemoryUserRepository struct {
	s *MemoryStore
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return domain.ErrEmailAlreadyExists
		}
		if strings.EqualFold(u.Username, user.Username) {
			return domain.ErrUsernameTaken
		}
	}

	clone := *user
	r.s.users[user.ID] = &clone
	return nil
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == strings.ToLower(email) })
}

func (r *InMemoryUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	return r.find(func(u *domain.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *InMemoryUserRepository) find(match func(*domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *InMemoryUserRepository) Search(ctx context.Context, query, excludingUserID string, limit int) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.User, 0)
	for _, u := range r.s.users {
		if u.ID == excludingUserID || !u.MatchesQuery(query) {
			continue
		}
		clone := *u
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- stats ----

type InMemoryStatsRepository struct {
	s *MemoryStore
}

func (r *InMemoryStatsRepository) GetStats(ctx context.Context, userID string) (*domain.ProfileStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st, ok := r.s.stats[userID]
	if !ok {
		return &domain.ProfileStats{UserID: userID}, nil
	}
	clone := *st
	return &clone, nil
}

func (r *InMemoryStatsRepository) TopByWins(ctx context.Context, excludingUserID string, limit int) ([]*domain.LeaderboardEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.LeaderboardEntry, 0, len(r.s.users))
	for _, u := range r.s.users {
		if u.ID == excludingUserID {
			continue
		}
		e := &domain.LeaderboardEntry{UserID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
		if st, ok := r.s.stats[u.ID]; ok {
			e.Wins, e.Losses = st.Wins, st.Losses
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Rebuild holds the write lock from listing to replacing, so Complete cannot
// interleave.
func (r *InMemoryStatsRepository) Rebuild(ctx context.Context, tally domain.StatsTally) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	completed := make([]*domain.Challenge, 0)
	for _, c := range r.s.challenges {
		if c.Status == domain.StatusCompleted {
			completed = append(completed, cloneChallenge(c))
		}
	}

	stats := tally(completed)

	r.s.stats = make(map[string]*domain.ProfileStats, len(stats))
	for id, st := range stats {
		clone := *st
		r.s.stats[id] = &clone
	}
	return len(stats), nil
}
