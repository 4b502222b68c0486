package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/shared"
)

// UserRepository persists [models.User] rows.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, wanikani_api_key, api_key_hash, username, level, profile_url,
	started_at, subscription_active, subscription_type,
	subscription_max_level_granted, subscription_period_ends_at,
	created_at, last_sync
`

// Create inserts a new user and fills in the generated id.
//
// Both credentials are globally unique; a duplicate of either maps to
// [shared.ErrDuplicateUser].
func (r *UserRepository) Create(user *models.User) error {
	if user.WaniKaniAPIKey == "" || user.APIKeyHash == "" {
		return fmt.Errorf("%w: user credentials", shared.ErrMissingCredentials)
	}

	now := time.Now().UTC()
	user.CreatedAt = now

	query := `
		INSERT INTO users (
			wanikani_api_key, api_key_hash, username, level, profile_url,
			started_at, subscription_active, subscription_type,
			subscription_max_level_granted, subscription_period_ends_at,
			created_at, last_sync
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		user.WaniKaniAPIKey, user.APIKeyHash, user.Username, user.Level,
		nullString(user.ProfileURL), nullTime(user.StartedAt),
		user.SubscriptionActive, nullString(user.SubscriptionType),
		nullInt(user.SubscriptionMaxLevelGranted), nullTime(user.SubscriptionPeriodEndsAt),
		now, nullTime(user.LastSync),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: credential already registered", shared.ErrDuplicateUser)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted id: %w", err)
	}
	user.ID = id

	return nil
}

// scanUser reads one user row from a row scanner.
func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var (
		user      models.User
		profile   sql.NullString
		started   sql.NullTime
		subType   sql.NullString
		subLevel  sql.NullInt64
		subEnds   sql.NullTime
		lastSync  sql.NullTime
		subActive bool
	)

	err := row.Scan(
		&user.ID, &user.WaniKaniAPIKey, &user.APIKeyHash, &user.Username,
		&user.Level, &profile, &started, &subActive, &subType, &subLevel,
		&subEnds, &user.CreatedAt, &lastSync,
	)
	if err != nil {
		return nil, err
	}

	user.ProfileURL = strPtr(profile)
	user.StartedAt = timePtr(started)
	user.SubscriptionActive = subActive
	user.SubscriptionType = strPtr(subType)
	user.SubscriptionMaxLevelGranted = intPtr(subLevel)
	user.SubscriptionPeriodEndsAt = timePtr(subEnds)
	user.LastSync = timePtr(lastSync)

	return &user, nil
}

// Get retrieves a user by id.
func (r *UserRepository) Get(id int64) (*models.User, error) {
	query := "SELECT" + userColumns + "FROM users WHERE id = ?"

	user, err := scanUser(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return user, nil
}

// GetByAPIKeyHash retrieves a user by the hash of their locally issued key.
func (r *UserRepository) GetByAPIKeyHash(hash string) (*models.User, error) {
	query := "SELECT" + userColumns + "FROM users WHERE api_key_hash = ?"

	user, err := scanUser(r.db.QueryRow(query, hash))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no user for api key", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return user, nil
}

// GetByWaniKaniKey retrieves a user by their upstream credential.
func (r *UserRepository) GetByWaniKaniKey(key string) (*models.User, error) {
	query := "SELECT" + userColumns + "FROM users WHERE wanikani_api_key = ?"

	user, err := scanUser(r.db.QueryRow(query, key))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no user for credential", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return user, nil
}

// GetByUsername retrieves a user by their WaniKani username.
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	query := "SELECT" + userColumns + "FROM users WHERE username = ?"

	user, err := scanUser(r.db.QueryRow(query, username))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %q", shared.ErrNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return user, nil
}

// List returns every registered user ordered by id.
func (r *UserRepository) List() ([]*models.User, error) {
	query := "SELECT" + userColumns + "FROM users ORDER BY id ASC"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// ListDue returns every user whose last sync is unset or older than cutoff.
func (r *UserRepository) ListDue(cutoff time.Time) ([]*models.User, error) {
	query := "SELECT" + userColumns + `FROM users
		WHERE last_sync IS NULL OR last_sync < ?
		ORDER BY id ASC`

	rows, err := r.db.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query due users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// UpdateProfile overwrites the cached profile fields from an upstream fetch.
func (r *UserRepository) UpdateProfile(user *models.User) error {
	query := `
		UPDATE users
		SET username = ?, level = ?, profile_url = ?, started_at = ?,
			subscription_active = ?, subscription_type = ?,
			subscription_max_level_granted = ?, subscription_period_ends_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		user.Username, user.Level, nullString(user.ProfileURL), nullTime(user.StartedAt),
		user.SubscriptionActive, nullString(user.SubscriptionType),
		nullInt(user.SubscriptionMaxLevelGranted), nullTime(user.SubscriptionPeriodEndsAt),
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, user.ID)
	}

	return nil
}

// UpdateLastSync stamps the user's last successful sync time.
func (r *UserRepository) UpdateLastSync(id int64, at time.Time) error {
	result, err := r.db.Exec("UPDATE users SET last_sync = ? WHERE id = ?", at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last_sync: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}

	return nil
}
