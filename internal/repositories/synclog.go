package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/shared"
)

// SyncLogRepository persists [models.SyncLog] rows.
//
// Rows are append-only from the pipeline's perspective: created once in
// progress and finalized exactly once, never deleted.
type SyncLogRepository struct {
	db *sql.DB
}

// NewSyncLogRepository creates a new [SyncLogRepository] with the given database connection
func NewSyncLogRepository(db *sql.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Create opens a new sync log row in [models.SyncInProgress] and fills in
// the generated id and start time.
func (r *SyncLogRepository) Create(log *models.SyncLog) error {
	now := time.Now().UTC()
	log.StartedAt = now
	log.Status = models.SyncInProgress

	result, err := r.db.Exec(`
		INSERT INTO sync_logs (user_id, sync_type, status, records_updated, started_at)
		VALUES (?, ?, ?, 0, ?)`,
		log.UserID, string(log.SyncType), string(log.Status), now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted id: %w", err)
	}
	log.ID = id

	return nil
}

// Complete finalizes a sync log into a terminal state with its record count,
// optional error text and completion time.
func (r *SyncLogRepository) Complete(id int64, status models.SyncStatus, records int, errMsg *string) error {
	now := time.Now().UTC()

	result, err := r.db.Exec(`
		UPDATE sync_logs
		SET status = ?, records_updated = ?, error_message = ?, completed_at = ?
		WHERE id = ?`,
		string(status), records, nullString(errMsg), now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete sync log: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: sync log %d", shared.ErrNotFound, id)
	}

	return nil
}

// scanSyncLog reads one sync log row.
func scanSyncLog(row interface{ Scan(...any) error }) (*models.SyncLog, error) {
	var (
		log       models.SyncLog
		syncType  string
		status    string
		errMsg    sql.NullString
		completed sql.NullTime
	)

	err := row.Scan(
		&log.ID, &log.UserID, &syncType, &status, &log.RecordsUpdated,
		&errMsg, &log.StartedAt, &completed,
	)
	if err != nil {
		return nil, err
	}

	log.SyncType = models.SyncType(syncType)
	log.Status = models.SyncStatus(status)
	log.ErrorMessage = strPtr(errMsg)
	log.CompletedAt = timePtr(completed)

	return &log, nil
}

const syncLogColumns = `
	id, user_id, sync_type, status, records_updated,
	error_message, started_at, completed_at
`

// Get retrieves a sync log by id.
func (r *SyncLogRepository) Get(id int64) (*models.SyncLog, error) {
	query := "SELECT" + syncLogColumns + "FROM sync_logs WHERE id = ?"

	log, err := scanSyncLog(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: sync log %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync log: %w", err)
	}

	return log, nil
}

// ListRecent returns a user's latest sync attempts, newest first.
func (r *SyncLogRepository) ListRecent(userID int64, limit int) ([]*models.SyncLog, error) {
	if limit <= 0 {
		limit = 10
	}

	query := "SELECT" + syncLogColumns + `FROM sync_logs
		WHERE user_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.SyncLog
	for rows.Next() {
		log, err := scanSyncLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return logs, nil
}
