package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/shared"
)

// AssignmentRepository persists [models.Assignment] rows.
type AssignmentRepository struct {
	db *sql.DB
}

// NewAssignmentRepository creates a new [AssignmentRepository] with the given database connection
func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Upsert writes one assignment keyed on its remote id.
//
// Existing rows have every remote-defined field overwritten while created_at
// is preserved. Runs as a single statement, so each record commits
// independently of its batch.
func (r *AssignmentRepository) Upsert(a *models.Assignment) error {
	if a.ID == 0 {
		return fmt.Errorf("%w: assignment without id", shared.ErrMalformedRecord)
	}

	query := `
		INSERT INTO assignments (
			id, user_id, subject_id, subject_type, srs_stage,
			unlocked_at, started_at, passed_at, burned_at, available_at,
			resurrected_at, hidden, created_at, data_updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			subject_id = excluded.subject_id,
			subject_type = excluded.subject_type,
			srs_stage = excluded.srs_stage,
			unlocked_at = excluded.unlocked_at,
			started_at = excluded.started_at,
			passed_at = excluded.passed_at,
			burned_at = excluded.burned_at,
			available_at = excluded.available_at,
			resurrected_at = excluded.resurrected_at,
			hidden = excluded.hidden,
			data_updated_at = excluded.data_updated_at
	`

	now := time.Now().UTC()
	if a.DataUpdatedAt == nil {
		a.DataUpdatedAt = &now
	}

	_, err := r.db.Exec(query,
		a.ID, a.UserID, a.SubjectID, string(a.SubjectType), a.SrsStage,
		nullTime(a.UnlockedAt), nullTime(a.StartedAt), nullTime(a.PassedAt),
		nullTime(a.BurnedAt), nullTime(a.AvailableAt), nullTime(a.ResurrectedAt),
		a.Hidden, now, nullTime(a.DataUpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert assignment %d: %w", a.ID, err)
	}

	return nil
}

// scanAssignment reads one assignment row.
func scanAssignment(row interface{ Scan(...any) error }) (*models.Assignment, error) {
	var (
		a           models.Assignment
		subjectType string
		unlocked    sql.NullTime
		started     sql.NullTime
		passed      sql.NullTime
		burned      sql.NullTime
		available   sql.NullTime
		resurrected sql.NullTime
		updated     sql.NullTime
	)

	err := row.Scan(
		&a.ID, &a.UserID, &a.SubjectID, &subjectType, &a.SrsStage,
		&unlocked, &started, &passed, &burned, &available, &resurrected,
		&a.Hidden, &a.CreatedAt, &updated,
	)
	if err != nil {
		return nil, err
	}

	a.SubjectType = models.SubjectType(subjectType)
	a.UnlockedAt = timePtr(unlocked)
	a.StartedAt = timePtr(started)
	a.PassedAt = timePtr(passed)
	a.BurnedAt = timePtr(burned)
	a.AvailableAt = timePtr(available)
	a.ResurrectedAt = timePtr(resurrected)
	a.DataUpdatedAt = timePtr(updated)

	return &a, nil
}

const assignmentColumns = `
	id, user_id, subject_id, subject_type, srs_stage,
	unlocked_at, started_at, passed_at, burned_at, available_at,
	resurrected_at, hidden, created_at, data_updated_at
`

// Get retrieves an assignment by its remote id.
func (r *AssignmentRepository) Get(id int64) (*models.Assignment, error) {
	query := "SELECT" + assignmentColumns + "FROM assignments WHERE id = ?"

	a, err := scanAssignment(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: assignment %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment: %w", err)
	}

	return a, nil
}

// ListByUser returns every non-hidden assignment for a user.
func (r *AssignmentRepository) ListByUser(userID int64) ([]*models.Assignment, error) {
	query := "SELECT" + assignmentColumns + `FROM assignments
		WHERE user_id = ? AND hidden = 0
		ORDER BY id ASC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return assignments, nil
}

// CountLessons returns how many assignments still wait for their first lesson.
func (r *AssignmentRepository) CountLessons(userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM assignments WHERE user_id = ? AND srs_stage = ? AND hidden = 0",
		userID, models.SrsStageLesson,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return count, nil
}

// CountAvailable returns how many reviews are available at the given instant.
// A NULL available_at counts as immediately available.
func (r *AssignmentRepository) CountAvailable(userID int64, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM assignments
		WHERE user_id = ? AND hidden = 0
			AND srs_stage > ? AND srs_stage < ?
			AND (available_at IS NULL OR available_at <= ?)`,
		userID, models.SrsStageLesson, models.SrsStageBurned, now.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count available reviews: %w", err)
	}
	return count, nil
}

// ListUpcoming returns assignments whose reviews become available after now,
// soonest first, bounded by limit. A non-positive limit returns every row.
func (r *AssignmentRepository) ListUpcoming(userID int64, now time.Time, limit int) ([]*models.Assignment, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means unbounded
	}

	query := "SELECT" + assignmentColumns + `FROM assignments
		WHERE user_id = ? AND hidden = 0
			AND srs_stage > ? AND srs_stage < ?
			AND available_at > ?
		ORDER BY available_at ASC
		LIMIT ?`

	rows, err := r.db.Query(query, userID, models.SrsStageLesson, models.SrsStageBurned, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return assignments, nil
}

// Item pairs a user's assignment with whatever catalog data the subject
// mirror holds. Subject fields are nil when the catalog has not been synced.
type Item struct {
	SubjectID  int64
	SrsStage   int
	Level      *int
	Slug       *string
	Characters *string
	Meanings   *string
}

// ListItems joins a user's assignments against the subject catalog. A
// non-positive limit returns every row.
func (r *AssignmentRepository) ListItems(userID int64, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means unbounded
	}

	query := `
		SELECT a.subject_id, a.srs_stage, s.level, s.slug, s.characters, s.meanings
		FROM assignments a
		LEFT JOIN subjects s ON s.id = a.subject_id
		WHERE a.user_id = ? AND a.hidden = 0
		ORDER BY a.subject_id ASC
		LIMIT ?
	`

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item       Item
			level      sql.NullInt64
			slug       sql.NullString
			characters sql.NullString
			meanings   sql.NullString
		)
		if err := rows.Scan(&item.SubjectID, &item.SrsStage, &level, &slug, &characters, &meanings); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.Level = intPtr(level)
		item.Slug = strPtr(slug)
		item.Characters = strPtr(characters)
		item.Meanings = strPtr(meanings)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}
