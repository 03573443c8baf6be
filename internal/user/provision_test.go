package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskgate/taskgate/internal/idp"
)

// countingStore wraps a Store and counts writes
type countingStore struct {
	Store
	creates int
	updates int
}

func (s *countingStore) Create(ctx context.Context, u *User) (*User, error) {
	s.creates++
	return s.Store.Create(ctx, u)
}

func (s *countingStore) Update(ctx context.Context, u *User) (*User, error) {
	s.updates++
	return s.Store.Update(ctx, u)
}

func sampleIdentity() *idp.Identity {
	return &idp.Identity{
		Provider:      "google",
		Subject:       "sub-123",
		Email:         "Ada@Example.com",
		EmailVerified: true,
		Name:          "Ada Lovelace",
		Picture:       "https://img.example.com/ada.png",
	}
}

func TestProvisionCreatesUser(t *testing.T) {
	store := &countingStore{Store: NewMemoryStore()}
	p := NewProvisioner(store)

	created, err := p.Provision(context.Background(), sampleIdentity())
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, "Ada Lovelace", created.FullName)
	assert.Equal(t, "https://img.example.com/ada.png", created.PictureURL)
	assert.True(t, created.EmailConfirmed, "a federated identity implies a verified email")
	assert.NotEqual(t, created.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, 1, store.creates)
}

func TestProvisionIsIdempotent(t *testing.T) {
	store := &countingStore{Store: NewMemoryStore()}
	p := NewProvisioner(store)

	first, err := p.Provision(context.Background(), sampleIdentity())
	require.NoError(t, err)

	// A second login with unchanged claims must not write.
	second, err := p.Provision(context.Background(), sampleIdentity())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.creates)
	assert.Equal(t, 0, store.updates)
}

func TestProvisionUpdatesChangedDisplayFields(t *testing.T) {
	store := &countingStore{Store: NewMemoryStore()}
	p := NewProvisioner(store)

	first, err := p.Provision(context.Background(), sampleIdentity())
	require.NoError(t, err)

	changed := sampleIdentity()
	changed.Name = "Ada King"

	second, err := p.Provision(context.Background(), changed)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ada King", second.FullName)
	assert.Equal(t, 1, store.creates)
	assert.Equal(t, 1, store.updates)

	stored, err := store.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada King", stored.FullName)
}

func TestProvisionFailsWithoutEmail(t *testing.T) {
	store := &countingStore{Store: NewMemoryStore()}
	p := NewProvisioner(store)

	identity := sampleIdentity()
	identity.Email = ""

	_, err := p.Provision(context.Background(), identity)
	require.ErrorIs(t, err, ErrNoEmailClaim)
	assert.Contains(t, err.Error(), "google")
	assert.Contains(t, err.Error(), "Ada Lovelace")

	_, err = store.FindByEmail(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, ErrNotFound, "no user record may be created")
	assert.Equal(t, 0, store.creates)
}

// racingStore reports not-found, then duplicate-on-create, simulating a
// concurrent login winning the insert between the lookup and the create.
type racingStore struct {
	inner  *MemoryStore
	raced  bool
	lookup int
}

func (s *racingStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.lookup++
	if s.lookup == 1 {
		return nil, ErrNotFound
	}
	return s.inner.FindByEmail(ctx, email)
}

func (s *racingStore) Create(ctx context.Context, u *User) (*User, error) {
	if !s.raced {
		s.raced = true
		winner := *u
		winner.FullName = "Winner Name"
		if _, err := s.inner.Create(ctx, &winner); err != nil {
			return nil, err
		}
		return nil, ErrDuplicateEmail
	}
	return s.inner.Create(ctx, u)
}

func (s *racingStore) Update(ctx context.Context, u *User) (*User, error) {
	return s.inner.Update(ctx, u)
}

func TestProvisionResolvesConcurrentCreate(t *testing.T) {
	store := &racingStore{inner: NewMemoryStore()}
	p := NewProvisioner(store)

	resolved, err := p.Provision(context.Background(), sampleIdentity())
	require.NoError(t, err)

	// The loser adopts the winner's record and refreshes display fields.
	assert.Equal(t, "ada@example.com", resolved.Email)
	assert.Equal(t, "Ada Lovelace", resolved.FullName)

	stored, err := store.inner.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, resolved.ID, stored.ID)
}

func TestProvisionTimestamps(t *testing.T) {
	store := NewMemoryStore()
	p := NewProvisioner(store)

	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	created, err := p.Provision(context.Background(), sampleIdentity())
	require.NoError(t, err)
	assert.Equal(t, fixed, created.CreatedAt)
	assert.Equal(t, fixed, created.UpdatedAt)
}
