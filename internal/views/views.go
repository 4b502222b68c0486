package views

import (
	"errors"
	"time"

	"github.com/desertthunder/wkmcp/internal/repositories"
	"github.com/desertthunder/wkmcp/internal/shared"
)

// Default forecast horizon and bucket width.
const (
	ForecastHorizon = 7 * 24 * time.Hour
	forecastBucket  = time.Hour
)

// Builder computes derived views from the local mirror.
type Builder struct {
	users       *repositories.UserRepository
	assignments *repositories.AssignmentRepository
	stats       *repositories.ReviewStatisticRepository
	subjects    *repositories.SubjectRepository
	logs        *repositories.SyncLogRepository
}

// NewBuilder creates a view [Builder] over the given repositories.
func NewBuilder(
	users *repositories.UserRepository,
	assignments *repositories.AssignmentRepository,
	stats *repositories.ReviewStatisticRepository,
	subjects *repositories.SubjectRepository,
	logs *repositories.SyncLogRepository,
) *Builder {
	return &Builder{
		users:       users,
		assignments: assignments,
		stats:       stats,
		subjects:    subjects,
		logs:        logs,
	}
}

// Status is the current study snapshot for one user.
type Status struct {
	Username         string     `json:"username"`
	Level            int        `json:"level"`
	LessonsAvailable int        `json:"lessons_available"`
	ReviewsAvailable int        `json:"reviews_available"`
	NextReviewAt     *time.Time `json:"next_review_time"`
	LastSync         *time.Time `json:"last_sync"`
	LastSyncStatus   string     `json:"last_sync_status,omitempty"`
}

// Status builds the study snapshot for a user at the given instant.
func (b *Builder) Status(userID int64, now time.Time) (*Status, error) {
	user, err := b.users.Get(userID)
	if err != nil {
		return nil, err
	}

	lessons, err := b.assignments.CountLessons(userID)
	if err != nil {
		return nil, err
	}

	reviews, err := b.assignments.CountAvailable(userID, now)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Username:         user.Username,
		Level:            user.Level,
		LessonsAvailable: lessons,
		ReviewsAvailable: reviews,
		LastSync:         user.LastSync,
	}

	upcoming, err := b.assignments.ListUpcoming(userID, now, 1)
	if err != nil {
		return nil, err
	}
	if len(upcoming) > 0 {
		status.NextReviewAt = upcoming[0].AvailableAt
	}

	if logs, err := b.logs.ListRecent(userID, 1); err == nil && len(logs) > 0 {
		status.LastSyncStatus = string(logs[0].Status)
	}

	return status, nil
}

// Leech is one poorly retained item, with catalog data when the subject
// mirror has it.
type Leech struct {
	SubjectID         int64   `json:"subject_id"`
	Characters        *string `json:"characters"`
	Slug              *string `json:"slug"`
	SubjectType       string  `json:"subject_type"`
	PercentageCorrect int     `json:"percentage_correct"`
	MeaningIncorrect  int     `json:"meaning_incorrect"`
	ReadingIncorrect  int     `json:"reading_incorrect"`
	IncorrectTotal    int     `json:"incorrect_total"`
}

// Leeches returns a user's worst-retained items, worst first.
func (b *Builder) Leeches(userID int64, limit int) ([]Leech, error) {
	stats, err := b.stats.ListLeeches(userID, limit)
	if err != nil {
		return nil, err
	}

	leeches := make([]Leech, 0, len(stats))
	for _, s := range stats {
		leech := Leech{
			SubjectID:         s.SubjectID,
			SubjectType:       string(s.SubjectType),
			PercentageCorrect: s.PercentageCorrect,
			MeaningIncorrect:  s.MeaningIncorrect,
			ReadingIncorrect:  s.ReadingIncorrect,
			IncorrectTotal:    s.IncorrectTotal(),
		}

		// Catalog data is best-effort; the subject mirror may be empty.
		subject, err := b.subjects.Get(s.SubjectID)
		if err == nil {
			leech.Characters = subject.Characters
			leech.Slug = &subject.Slug
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}

		leeches = append(leeches, leech)
	}

	return leeches, nil
}

// ForecastBucket is one hour of upcoming reviews.
type ForecastBucket struct {
	Time  time.Time `json:"time"`
	Count int       `json:"count"`
}

// Forecast is the timeline of upcoming reviews inside the horizon.
type Forecast struct {
	Buckets []ForecastBucket `json:"forecast"`
	Total   int              `json:"total"`
}

// Forecast buckets a user's upcoming reviews by hour over the horizon.
func (b *Builder) Forecast(userID int64, now time.Time, horizon time.Duration) (*Forecast, error) {
	if horizon <= 0 {
		horizon = ForecastHorizon
	}

	upcoming, err := b.assignments.ListUpcoming(userID, now, 0)
	if err != nil {
		return nil, err
	}

	until := now.Add(horizon)
	forecast := &Forecast{}

	var current *ForecastBucket
	for _, a := range upcoming {
		if a.AvailableAt == nil || a.AvailableAt.After(until) {
			continue
		}
		bucket := a.AvailableAt.UTC().Truncate(forecastBucket)

		if current == nil || !current.Time.Equal(bucket) {
			forecast.Buckets = append(forecast.Buckets, ForecastBucket{Time: bucket})
			current = &forecast.Buckets[len(forecast.Buckets)-1]
		}
		current.Count++
		forecast.Total++
	}

	return forecast, nil
}

// Item is one entry of the item database resource.
type Item struct {
	SubjectID  int64   `json:"id"`
	Characters *string `json:"characters"`
	Slug       *string `json:"slug"`
	Level      *int    `json:"level"`
	SrsStage   int     `json:"srs_stage"`
}

// Items lists a user's studied items joined with the subject catalog.
func (b *Builder) Items(userID int64, limit int) ([]Item, error) {
	rows, err := b.assignments.ListItems(userID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, Item{
			SubjectID:  row.SubjectID,
			Characters: row.Characters,
			Slug:       row.Slug,
			Level:      row.Level,
			SrsStage:   row.SrsStage,
		})
	}

	return items, nil
}
