package user

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/taskgate/taskgate/internal/log"
)

// Ensure FirestoreStore implements the Store interface
var _ Store = (*FirestoreStore)(nil)

// FirestoreStore persists users in Google Cloud Firestore. The document ID
// is the normalized email, which gives the unique-email guarantee the
// provisioning layer relies on.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore connects to Firestore. database may be empty to use
// the default database.
func NewFirestoreStore(ctx context.Context, projectID, database, collection string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if collection == "" {
		collection = "users"
	}

	var client *firestore.Client
	var err error
	if database != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	log.LogInfoWithFields("user", "Firestore user store ready", map[string]any{
		"project":    projectID,
		"collection": collection,
	})

	return &FirestoreStore{client: client, collection: collection}, nil
}

// Close releases the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// FindByEmail looks up the user document keyed by email.
func (s *FirestoreStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	doc, err := s.client.Collection(s.collection).Doc(email).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading user %s: %w", email, err)
	}

	var u User
	if err := doc.DataTo(&u); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", email, err)
	}
	return &u, nil
}

// Create inserts the user document; the Firestore precondition turns a
// concurrent duplicate insert into ErrDuplicateEmail.
func (s *FirestoreStore) Create(ctx context.Context, u *User) (*User, error) {
	_, err := s.client.Collection(s.collection).Doc(u.Email).Create(ctx, u)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("creating user %s: %w", u.Email, err)
	}
	return u, nil
}

// Update overwrites the user document.
func (s *FirestoreStore) Update(ctx context.Context, u *User) (*User, error) {
	_, err := s.client.Collection(s.collection).Doc(u.Email).Set(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("updating user %s: %w", u.Email, err)
	}
	return u, nil
}
