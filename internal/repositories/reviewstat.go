package repositories

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/shared"
)

// ReviewStatisticRepository persists [models.ReviewStatistic] rows.
type ReviewStatisticRepository struct {
	db *sql.DB
}

// NewReviewStatisticRepository creates a new [ReviewStatisticRepository] with the given database connection
func NewReviewStatisticRepository(db *sql.DB) *ReviewStatisticRepository {
	return &ReviewStatisticRepository{db: db}
}

// Upsert writes one review statistic keyed on its remote id, overwriting
// every remote-defined field on conflict. Single independent statement.
func (r *ReviewStatisticRepository) Upsert(s *models.ReviewStatistic) error {
	if s.ID == 0 {
		return fmt.Errorf("%w: review statistic without id", shared.ErrMalformedRecord)
	}

	query := `
		INSERT INTO review_statistics (
			id, user_id, subject_id, subject_type,
			meaning_correct, meaning_incorrect, meaning_max_streak, meaning_current_streak,
			reading_correct, reading_incorrect, reading_max_streak, reading_current_streak,
			percentage_correct, hidden, created_at, data_updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			subject_id = excluded.subject_id,
			subject_type = excluded.subject_type,
			meaning_correct = excluded.meaning_correct,
			meaning_incorrect = excluded.meaning_incorrect,
			meaning_max_streak = excluded.meaning_max_streak,
			meaning_current_streak = excluded.meaning_current_streak,
			reading_correct = excluded.reading_correct,
			reading_incorrect = excluded.reading_incorrect,
			reading_max_streak = excluded.reading_max_streak,
			reading_current_streak = excluded.reading_current_streak,
			percentage_correct = excluded.percentage_correct,
			hidden = excluded.hidden,
			data_updated_at = excluded.data_updated_at
	`

	_, err := r.db.Exec(query,
		s.ID, s.UserID, s.SubjectID, string(s.SubjectType),
		s.MeaningCorrect, s.MeaningIncorrect, s.MeaningMaxStreak, s.MeaningCurrentStreak,
		s.ReadingCorrect, s.ReadingIncorrect, s.ReadingMaxStreak, s.ReadingCurrentStreak,
		s.PercentageCorrect, s.Hidden, timeNowUTC(), nullTime(s.DataUpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert review statistic %d: %w", s.ID, err)
	}

	return nil
}

const reviewStatColumns = `
	id, user_id, subject_id, subject_type,
	meaning_correct, meaning_incorrect, meaning_max_streak, meaning_current_streak,
	reading_correct, reading_incorrect, reading_max_streak, reading_current_streak,
	percentage_correct, hidden, created_at, data_updated_at
`

// scanReviewStatistic reads one review statistic row.
func scanReviewStatistic(row interface{ Scan(...any) error }) (*models.ReviewStatistic, error) {
	var (
		s           models.ReviewStatistic
		subjectType string
		updated     sql.NullTime
	)

	err := row.Scan(
		&s.ID, &s.UserID, &s.SubjectID, &subjectType,
		&s.MeaningCorrect, &s.MeaningIncorrect, &s.MeaningMaxStreak, &s.MeaningCurrentStreak,
		&s.ReadingCorrect, &s.ReadingIncorrect, &s.ReadingMaxStreak, &s.ReadingCurrentStreak,
		&s.PercentageCorrect, &s.Hidden, &s.CreatedAt, &updated,
	)
	if err != nil {
		return nil, err
	}

	s.SubjectType = models.SubjectType(subjectType)
	s.DataUpdatedAt = timePtr(updated)

	return &s, nil
}

// Get retrieves a review statistic by its remote id.
func (r *ReviewStatisticRepository) Get(id int64) (*models.ReviewStatistic, error) {
	query := "SELECT" + reviewStatColumns + "FROM review_statistics WHERE id = ?"

	s, err := scanReviewStatistic(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: review statistic %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query review statistic: %w", err)
	}

	return s, nil
}

// ListByUser returns every non-hidden review statistic for a user.
func (r *ReviewStatisticRepository) ListByUser(userID int64) ([]*models.ReviewStatistic, error) {
	query := "SELECT" + reviewStatColumns + `FROM review_statistics
		WHERE user_id = ? AND hidden = 0
		ORDER BY id ASC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query review statistics: %w", err)
	}
	defer rows.Close()

	var stats []*models.ReviewStatistic
	for rows.Next() {
		s, err := scanReviewStatistic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review statistic: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return stats, nil
}

// ListLeeches returns the user's leeches, worst accuracy first, then by
// error count. The qualifying rule lives on [models.ReviewStatistic.Leech]
// so the selection logic has exactly one home.
func (r *ReviewStatisticRepository) ListLeeches(userID int64, limit int) ([]*models.ReviewStatistic, error) {
	if limit <= 0 {
		limit = 10
	}

	stats, err := r.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	var leeches []*models.ReviewStatistic
	for _, s := range stats {
		if s.Leech() {
			leeches = append(leeches, s)
		}
	}

	sort.SliceStable(leeches, func(i, j int) bool {
		if leeches[i].PercentageCorrect != leeches[j].PercentageCorrect {
			return leeches[i].PercentageCorrect < leeches[j].PercentageCorrect
		}
		return leeches[i].IncorrectTotal() > leeches[j].IncorrectTotal()
	})

	if len(leeches) > limit {
		leeches = leeches[:limit]
	}

	return leeches, nil
}
