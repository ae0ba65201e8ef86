package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arovia-health/arovia-api/internal/models"
)

var (
	// ErrNotFound means no account matched the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate means an insert violated a unique index (email or
	// googleId). It is the authoritative conflict signal for registration.
	ErrDuplicate = errors.New("account already exists")
)

// UserStore is the account store contract. Handlers and middleware depend on
// this interface; the Mongo implementation is the only production one.
type UserStore interface {
	Insert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByGoogleIDOrEmail(ctx context.Context, googleID, email string) (*models.User, error)
	// UpdateFields applies a field-level $set of the given fields (plus the
	// updatedAt touch) and returns the updated document.
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error)
	PushPrescription(ctx context.Context, id primitive.ObjectID, p models.Prescription) (*models.User, error)
	// PullPrescription removes the matching prescription sub-document. A
	// missing match is a no-op, not an error.
	PullPrescription(ctx context.Context, id, prescriptionID primitive.ObjectID) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// List returns all accounts, most recently modified first.
	List(ctx context.Context) ([]models.User, error)
	Analytics(ctx context.Context) (*models.Analytics, error)
}
