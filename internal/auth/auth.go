// package auth handles learner registration and local API key issuance.
package auth

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/repositories"
	"github.com/desertthunder/wkmcp/internal/shared"
	"github.com/desertthunder/wkmcp/internal/sync"
)

// Registrar validates WaniKani credentials and issues the proxy's own keys.
type Registrar struct {
	users     *repositories.UserRepository
	newClient sync.ClientFactory
	logger    *log.Logger
}

// NewRegistrar creates a [Registrar].
func NewRegistrar(users *repositories.UserRepository, factory sync.ClientFactory, logger *log.Logger) *Registrar {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Registrar{users: users, newClient: factory, logger: logger.With("component", "auth")}
}

// Register validates the given WaniKani token against the live API, creates
// the user with their fetched profile and returns the plaintext of the newly
// issued local API key. The plaintext is never stored, only its hash.
//
// An upstream rejection surfaces as [shared.ErrInvalidCredentials]; a
// credential that is already registered as [shared.ErrDuplicateUser].
// Neither is retried.
func (r *Registrar) Register(ctx context.Context, wanikaniKey string) (*models.User, string, error) {
	if wanikaniKey == "" {
		return nil, "", fmt.Errorf("%w: wanikani api key", shared.ErrMissingCredentials)
	}

	client := r.newClient(wanikaniKey)
	defer client.Close()

	profile, err := client.GetUser(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}

	apiKey := shared.GenerateAPIKey()

	user := &models.User{
		WaniKaniAPIKey: wanikaniKey,
		APIKeyHash:     shared.HashAPIKey(apiKey),
		Username:       profile.Username,
		Level:          profile.Level,
		ProfileURL:     profile.ProfileURL,
		StartedAt:      profile.StartedAt,
	}
	user.SubscriptionActive = profile.SubscriptionActive
	user.SubscriptionType = profile.SubscriptionType
	user.SubscriptionMaxLevelGranted = profile.SubscriptionMaxLevelGranted
	user.SubscriptionPeriodEndsAt = profile.SubscriptionPeriodEndsAt

	if err := r.users.Create(user); err != nil {
		return nil, "", err
	}

	r.logger.Info("registered user", "username", user.Username, "level", user.Level)
	return user, apiKey, nil
}

// Verify resolves a presented local API key to its user.
func (r *Registrar) Verify(apiKey string) (*models.User, error) {
	if apiKey == "" {
		return nil, shared.ErrNotAuthenticated
	}
	user, err := r.users.GetByAPIKeyHash(shared.HashAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	return user, nil
}
