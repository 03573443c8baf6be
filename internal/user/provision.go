package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskgate/taskgate/internal/emailutil"
	"github.com/taskgate/taskgate/internal/idp"
	"github.com/taskgate/taskgate/internal/log"
)

// ErrNoEmailClaim is returned when a provider yields an identity without
// an email address, which is the upsert key.
var ErrNoEmailClaim = errors.New("identity provider returned no email")

// Provisioner turns a federated identity into the local user record.
// Provisioning is idempotent: a login that changes nothing writes nothing.
type Provisioner struct {
	store Store
	now   func() time.Time
}

// NewProvisioner creates a provisioner over the given store.
func NewProvisioner(store Store) *Provisioner {
	return &Provisioner{store: store, now: time.Now}
}

// Provision finds or creates the local user for the identity, keyed by
// normalized email. A federated login implies a verified email, so new
// users are created with EmailConfirmed set. Display fields are updated
// only when they differ from the stored values.
func (p *Provisioner) Provision(ctx context.Context, identity *idp.Identity) (*User, error) {
	if identity.Email == "" {
		return nil, fmt.Errorf("%w: provider %s, identity %q", ErrNoEmailClaim, identity.Provider, identity.DisplayIdentity())
	}

	email := emailutil.Normalize(identity.Email)

	existing, err := p.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return p.refresh(ctx, existing, identity)

	case errors.Is(err, ErrNotFound):
		created, err := p.create(ctx, email, identity)
		if errors.Is(err, ErrDuplicateEmail) {
			// A concurrent login won the insert; fall through to the
			// update path against the winner's record.
			winner, findErr := p.store.FindByEmail(ctx, email)
			if findErr != nil {
				return nil, fmt.Errorf("resolving user after concurrent create: %w", findErr)
			}
			return p.refresh(ctx, winner, identity)
		}
		return created, err

	default:
		return nil, fmt.Errorf("looking up user by email: %w", err)
	}
}

func (p *Provisioner) create(ctx context.Context, email string, identity *idp.Identity) (*User, error) {
	now := p.now()
	u := &User{
		ID:             uuid.New(),
		Email:          email,
		FullName:       identity.Name,
		PictureURL:     identity.Picture,
		EmailConfirmed: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := p.store.Create(ctx, u)
	if err != nil {
		return nil, err
	}

	log.LogInfoWithFields("user", "Created user from federated identity", map[string]any{
		"email":    email,
		"provider": identity.Provider,
	})
	return created, nil
}

func (p *Provisioner) refresh(ctx context.Context, existing *User, identity *idp.Identity) (*User, error) {
	if existing.FullName == identity.Name && existing.PictureURL == identity.Picture {
		return existing, nil
	}

	existing.FullName = identity.Name
	existing.PictureURL = identity.Picture
	existing.UpdatedAt = p.now()

	updated, err := p.store.Update(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("updating user display fields: %w", err)
	}

	log.LogDebugWithFields("user", "Refreshed user display fields", map[string]any{
		"email":    existing.Email,
		"provider": identity.Provider,
	})
	return updated, nil
}
