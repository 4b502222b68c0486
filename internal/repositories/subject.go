package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/shared"
)

// SubjectRepository persists the global [models.Subject] catalog.
//
// Read-mostly: the incremental sync path never writes here, only the
// separately triggered catalog batch job does.
type SubjectRepository struct {
	db *sql.DB
}

// NewSubjectRepository creates a new [SubjectRepository] with the given database connection
func NewSubjectRepository(db *sql.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// Upsert writes one catalog entry keyed on its remote id.
func (r *SubjectRepository) Upsert(s *models.Subject) error {
	if s.ID == 0 {
		return fmt.Errorf("%w: subject without id", shared.ErrMalformedRecord)
	}

	query := `
		INSERT INTO subjects (
			id, object_type, level, slug, characters, meanings, readings,
			component_subject_ids, amalgamation_subject_ids, document_url,
			hidden_at, created_at, data_updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			object_type = excluded.object_type,
			level = excluded.level,
			slug = excluded.slug,
			characters = excluded.characters,
			meanings = excluded.meanings,
			readings = excluded.readings,
			component_subject_ids = excluded.component_subject_ids,
			amalgamation_subject_ids = excluded.amalgamation_subject_ids,
			document_url = excluded.document_url,
			hidden_at = excluded.hidden_at,
			data_updated_at = excluded.data_updated_at
	`

	_, err := r.db.Exec(query,
		s.ID, string(s.ObjectType), s.Level, s.Slug, nullString(s.Characters),
		s.Meanings, nullString(s.Readings), nullString(s.ComponentSubjectIDs),
		nullString(s.AmalgamationSubjectIDs), s.DocumentURL,
		nullTime(s.HiddenAt), timeNowUTC(), nullTime(s.DataUpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subject %d: %w", s.ID, err)
	}

	return nil
}

// Get retrieves a subject by its remote id.
func (r *SubjectRepository) Get(id int64) (*models.Subject, error) {
	query := `
		SELECT id, object_type, level, slug, characters, meanings, readings,
			component_subject_ids, amalgamation_subject_ids, document_url,
			hidden_at, created_at, data_updated_at
		FROM subjects WHERE id = ?
	`

	var (
		s          models.Subject
		objectType string
		characters sql.NullString
		readings   sql.NullString
		components sql.NullString
		amalgams   sql.NullString
		hiddenAt   sql.NullTime
		updated    sql.NullTime
	)

	err := r.db.QueryRow(query, id).Scan(
		&s.ID, &objectType, &s.Level, &s.Slug, &characters, &s.Meanings,
		&readings, &components, &amalgams, &s.DocumentURL,
		&hiddenAt, &s.CreatedAt, &updated,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: subject %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query subject: %w", err)
	}

	s.ObjectType = models.SubjectType(objectType)
	s.Characters = strPtr(characters)
	s.Readings = strPtr(readings)
	s.ComponentSubjectIDs = strPtr(components)
	s.AmalgamationSubjectIDs = strPtr(amalgams)
	s.HiddenAt = timePtr(hiddenAt)
	s.DataUpdatedAt = timePtr(updated)

	return &s, nil
}

// Count returns how many catalog entries the mirror holds.
func (r *SubjectRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM subjects").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count subjects: %w", err)
	}
	return count, nil
}
