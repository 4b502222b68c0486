package sync

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/repositories"
	"github.com/desertthunder/wkmcp/internal/shared"
	"github.com/desertthunder/wkmcp/internal/wanikani"
)

// Upstream is the slice of the WaniKani client the orchestrator depends on.
type Upstream interface {
	GetUser(ctx context.Context) (*wanikani.UserRecord, error)
	GetCollection(ctx context.Context, kind wanikani.Collection, updatedAfter *time.Time) ([]wanikani.Envelope, error)
	Close()
}

// ClientFactory builds an [Upstream] for one user's credential.
type ClientFactory func(apiKey string) Upstream

// NewClientFactory returns the production factory: real [wanikani.Client]
// instances sharing one process-wide limiter.
func NewClientFactory(baseURL string, limiter *wanikani.Limiter) ClientFactory {
	return func(apiKey string) Upstream {
		return wanikani.NewClient(baseURL, apiKey, limiter, nil)
	}
}

// Repos bundles the store collaborators the pipeline writes through.
type Repos struct {
	Users       *repositories.UserRepository
	Assignments *repositories.AssignmentRepository
	Stats       *repositories.ReviewStatisticRepository
	Subjects    *repositories.SubjectRepository
	Logs        *repositories.SyncLogRepository
}

// Service is the sync orchestrator plus its interval scheduler.
type Service struct {
	repos     Repos
	newClient ClientFactory
	cfg       shared.SyncConfig
	logger    *log.Logger

	mu       sync.Mutex // guards running / stop
	running  bool
	stop     chan struct{}
	wg       sync.WaitGroup
	inFlight sync.Mutex // single-flight guard for fleet runs
}

// NewService creates a sync [Service]. The factory may be swapped in tests.
func NewService(repos Repos, factory ClientFactory, cfg shared.SyncConfig, logger *log.Logger) *Service {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if cfg.MaxConcurrentSyncs <= 0 {
		cfg.MaxConcurrentSyncs = 3
	}
	if cfg.IntervalMinutes <= 0 {
		cfg.IntervalMinutes = 30
	}
	if cfg.StaleAfterMinutes <= 0 {
		cfg.StaleAfterMinutes = 60
	}
	if cfg.MisfireGraceSeconds <= 0 {
		cfg.MisfireGraceSeconds = 300
	}

	return &Service{
		repos:     repos,
		newClient: factory,
		cfg:       cfg,
		logger:    logger.With("component", "sync"),
	}
}

// SyncUser replicates one user's upstream data into the mirror.
//
// The attempt is recorded as a [models.SyncLog]: opened in progress before
// any fetch, finalized exactly once. The profile step is attempt-fatal and
// finalizes the log as an error; the assignment and review-statistic steps
// are isolated, so their fetch failures and skipped records end up in the
// returned [Report] while the attempt still finalizes as a success with
// partial counts.
func (s *Service) SyncUser(ctx context.Context, user *models.User, syncType models.SyncType) (*Report, error) {
	kind := syncType
	if kind == models.SyncIncremental && user.LastSync == nil {
		kind = models.SyncFull
	}

	syncLog := &models.SyncLog{UserID: user.ID, SyncType: kind}
	if err := s.repos.Logs.Create(syncLog); err != nil {
		return nil, err
	}

	report := &Report{
		UserID:    user.ID,
		LogID:     syncLog.ID,
		SyncType:  kind,
		StartedAt: syncLog.StartedAt,
	}

	logger := s.logger.With("user_id", user.ID, "sync_log", syncLog.ID, "kind", kind)

	client := s.newClient(user.WaniKaniAPIKey)
	defer client.Close()

	profile, err := client.GetUser(ctx)
	if err != nil {
		return report, s.fail(report, logger, err)
	}
	applyProfile(user, profile)
	if err := s.repos.Users.UpdateProfile(user); err != nil {
		return report, s.fail(report, logger, err)
	}
	report.ProfileUpdated = true

	updatedAfter := user.LastSync
	report.Collections = append(report.Collections,
		s.syncAssignments(ctx, logger, user.ID, updatedAfter, client),
		s.syncReviewStatistics(ctx, logger, user.ID, updatedAfter, client),
	)

	now := time.Now().UTC()
	if err := s.repos.Users.UpdateLastSync(user.ID, now); err != nil {
		return report, s.fail(report, logger, err)
	}
	user.LastSync = &now

	report.Status = models.SyncSuccess
	report.CompletedAt = now
	if err := s.repos.Logs.Complete(syncLog.ID, models.SyncSuccess, report.Total(), nil); err != nil {
		return report, err
	}

	logger.Info("sync completed", "records", report.Total(), "skipped", report.SkippedTotal())
	return report, nil
}

// fail finalizes the sync log as an error and hands the cause back.
func (s *Service) fail(report *Report, logger *log.Logger, cause error) error {
	msg := cause.Error()
	report.Status = models.SyncError
	report.CompletedAt = time.Now().UTC()

	if err := s.repos.Logs.Complete(report.LogID, models.SyncError, report.Total(), &msg); err != nil {
		logger.Error("failed to finalize sync log", "err", err)
	}
	logger.Error("sync failed", "err", cause)

	return cause
}

// syncAssignments replicates the /assignments collection. Fetch failures and
// per-record failures stay inside the returned report.
func (s *Service) syncAssignments(ctx context.Context, logger *log.Logger, userID int64, updatedAfter *time.Time, client Upstream) CollectionReport {
	cr := CollectionReport{Collection: wanikani.Assignments}

	envs, err := client.GetCollection(ctx, wanikani.Assignments, updatedAfter)
	if err != nil {
		logger.Error("failed to fetch assignments", "err", err)
		cr.FetchErr = err
		return cr
	}

	logger.Info("syncing assignments", "count", len(envs))
	for _, env := range envs {
		rec, err := wanikani.NormalizeAssignment(env)
		if err != nil {
			logger.Warn("skipping assignment", "id", env.ID, "err", err)
			cr.Skipped = append(cr.Skipped, SkippedRecord{ID: env.ID, Reason: err.Error()})
			continue
		}
		if err := s.repos.Assignments.Upsert(assignmentModel(userID, rec)); err != nil {
			logger.Error("failed to upsert assignment", "id", rec.ID, "err", err)
			cr.Skipped = append(cr.Skipped, SkippedRecord{ID: rec.ID, Reason: err.Error()})
			continue
		}
		cr.Updated++
	}

	return cr
}

// syncReviewStatistics replicates the /review_statistics collection with the
// same isolation rules as syncAssignments.
func (s *Service) syncReviewStatistics(ctx context.Context, logger *log.Logger, userID int64, updatedAfter *time.Time, client Upstream) CollectionReport {
	cr := CollectionReport{Collection: wanikani.ReviewStatistics}

	envs, err := client.GetCollection(ctx, wanikani.ReviewStatistics, updatedAfter)
	if err != nil {
		logger.Error("failed to fetch review statistics", "err", err)
		cr.FetchErr = err
		return cr
	}

	logger.Info("syncing review statistics", "count", len(envs))
	for _, env := range envs {
		rec, err := wanikani.NormalizeReviewStatistic(env)
		if err != nil {
			logger.Warn("skipping review statistic", "id", env.ID, "err", err)
			cr.Skipped = append(cr.Skipped, SkippedRecord{ID: env.ID, Reason: err.Error()})
			continue
		}
		if err := s.repos.Stats.Upsert(reviewStatisticModel(userID, rec)); err != nil {
			logger.Error("failed to upsert review statistic", "id", rec.ID, "err", err)
			cr.Skipped = append(cr.Skipped, SkippedRecord{ID: rec.ID, Reason: err.Error()})
			continue
		}
		cr.Updated++
	}

	return cr
}

// SyncAllDueUsers runs one fleet pass: every user whose last_sync is unset
// or older than the staleness threshold is synced under the concurrency cap.
// Jobs are an unordered fan-out; one user's failure is logged and never
// cancels a sibling.
func (s *Service) SyncAllDueUsers(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.StaleAfter())

	users, err := s.repos.Users.ListDue(cutoff)
	if err != nil {
		s.logger.Error("failed to select due users", "err", err)
		return
	}
	if len(users) == 0 {
		s.logger.Info("no users need syncing")
		return
	}

	s.logger.Info("starting fleet sync", "users", len(users))

	// Counting admission gate: excess jobs queue until a slot frees.
	gate := make(chan struct{}, s.cfg.MaxConcurrentSyncs)
	var wg sync.WaitGroup

	for _, user := range users {
		wg.Add(1)
		go func(u *models.User) {
			defer wg.Done()
			gate <- struct{}{}
			defer func() { <-gate }()

			if report, err := s.SyncUser(ctx, u, models.SyncIncremental); err != nil {
				s.logger.Error("failed to sync user", "username", u.Username, "err", err)
			} else {
				s.logger.Info("synced user", "username", u.Username, "records", report.Total())
			}
		}(user)
	}

	wg.Wait()
	s.logger.Info("fleet sync completed")
}

// SyncSubjects replicates the global subject catalog using the given user's
// credential. Deliberately not part of the incremental cycle; callers
// trigger it as a batch job.
func (s *Service) SyncSubjects(ctx context.Context, user *models.User) (CollectionReport, error) {
	cr := CollectionReport{Collection: wanikani.Subjects}

	client := s.newClient(user.WaniKaniAPIKey)
	defer client.Close()

	envs, err := client.GetCollection(ctx, wanikani.Subjects, nil)
	if err != nil {
		cr.FetchErr = err
		return cr, err
	}

	s.logger.Info("syncing subject catalog", "count", len(envs))
	for _, env := range envs {
		rec, err := wanikani.NormalizeSubject(env)
		if err != nil {
			s.logger.Warn("skipping subject", "id", env.ID, "err", err)
			cr.Skipped = append(cr.Skipped, SkippedRecord{ID: env.ID, Reason: err.Error()})
			continue
		}
		if err := s.repos.Subjects.Upsert(subjectModel(rec)); err != nil {
			s.logger.Error("failed to upsert subject", "id", rec.ID, "err", err)
			cr.Skipped = append(cr.Skipped, SkippedRecord{ID: rec.ID, Reason: err.Error()})
			continue
		}
		cr.Updated++
	}

	return cr, nil
}
