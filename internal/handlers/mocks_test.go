package handlers

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arovia-health/arovia-api/internal/auth"
	"github.com/arovia-health/arovia-api/internal/middleware"
	"github.com/arovia-health/arovia-api/internal/models"
	"github.com/arovia-health/arovia-api/internal/services"
	"github.com/arovia-health/arovia-api/internal/storage"
	"github.com/arovia-health/arovia-api/internal/store"
)

// Compile-time check that the mock satisfies the store contract.
var _ store.UserStore = (*mockStore)(nil)

// mockStore is an in-memory UserStore used to drive the real router in
// tests. It mirrors the Mongo implementation's semantics: unique email and
// googleId, $set-style field updates, updatedAt touched on every mutation.
type mockStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newMockStore() *mockStore {
	return &mockStore{users: make(map[primitive.ObjectID]*models.User)}
}

func cloneUser(u *models.User) *models.User {
	clone := *u
	clone.Prescriptions = append([]models.Prescription(nil), u.Prescriptions...)
	if u.Address != nil {
		addr := *u.Address
		clone.Address = &addr
	}
	return &clone
}

func (m *mockStore) Insert(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return store.ErrDuplicate
		}
		if user.GoogleID != "" && existing.GoogleID == user.GoogleID {
			return store.ErrDuplicate
		}
	}
	now := time.Now()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Prescriptions == nil {
		user.Prescriptions = []models.Prescription{}
	}
	m.users[user.ID] = cloneUser(user)
	return nil
}

func (m *mockStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *mockStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) FindByGoogleIDOrEmail(_ context.Context, googleID, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if (googleID != "" && u.GoogleID == googleID) || u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) UpdateFields(_ context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			u.Name = v.(string)
		case "phone":
			u.Phone = v.(string)
		case "dob":
			dob := v.(time.Time)
			u.DOB = &dob
		case "bloodDonor":
			u.BloodDonor = v.(bool)
		case "isActive":
			u.IsActive = v.(bool)
		case "address":
			u.Address = v.(*models.Address)
		case "password":
			u.Password = v.(string)
		case "googleId":
			u.GoogleID = v.(string)
		case "profilePicture":
			u.ProfilePicture = v.(string)
		case "role":
			u.Role = v.(string)
		}
	}
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (m *mockStore) PushPrescription(_ context.Context, id primitive.ObjectID, p models.Prescription) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Prescriptions = append(u.Prescriptions, p)
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (m *mockStore) PullPrescription(_ context.Context, id, prescriptionID primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	kept := u.Prescriptions[:0]
	for _, p := range u.Prescriptions {
		if p.ID != prescriptionID {
			kept = append(kept, p)
		}
	}
	u.Prescriptions = kept
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (m *mockStore) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockStore) List(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].UpdatedAt.After(users[j].UpdatedAt)
	})
	return users, nil
}

func (m *mockStore) Analytics(_ context.Context) (*models.Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byRole := map[string]int64{}
	since := time.Now().AddDate(0, 0, -7)
	byDay := map[string]int64{}
	var last *models.User
	for _, u := range m.users {
		byRole[u.Role]++
		if u.CreatedAt.After(since) {
			byDay[u.CreatedAt.Format("2006-01-02")]++
		}
		if last == nil || u.UpdatedAt.After(last.UpdatedAt) {
			last = u
		}
	}
	trend := make([]models.RegistrationDay, 0, len(byDay))
	for day, count := range byDay {
		trend = append(trend, models.RegistrationDay{Date: day, Count: count})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Date < trend[j].Date })
	if last != nil {
		last = cloneUser(last)
	}
	return &models.Analytics{
		TotalUsers:        int64(len(m.users)),
		UsersByRole:       byRole,
		RegistrationTrend: trend,
		LastActiveUser:    last,
	}, nil
}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// fakeIdentity stands in for the Google round trip.
type fakeIdentity struct {
	identity *services.Identity
	err      error
}

func (f *fakeIdentity) AuthCodeURL(state string) string {
	return "https://accounts.example.test/auth?state=" + state
}

func (f *fakeIdentity) FetchIdentity(context.Context, string) (*services.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type testEnv struct {
	store  *mockStore
	tokens *auth.Tokens
	files  *storage.FileStore
	google *fakeIdentity
	router *gin.Engine
}

// newTestEnv wires the real router, middleware included, over the mocks.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewTokens("test-secret")
	require.NoError(t, err)
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	users := newMockStore()
	google := &fakeIdentity{}
	h := NewHandler(users, tokens, files, google, "http://client.test")

	r := gin.New()
	r.GET("/api/health", h.Health)

	authRoutes := r.Group("/api/auth")
	{
		authRoutes.POST("/register", h.Register)
		authRoutes.POST("/login", h.Login)
		authRoutes.GET("/google", h.GoogleLogin)
		authRoutes.GET("/google/callback", h.GoogleCallback)
	}

	userRoutes := r.Group("/api/user")
	userRoutes.Use(middleware.Auth(tokens, users))
	{
		userRoutes.GET("/profile", h.GetProfile)
		userRoutes.PUT("/profile", h.UpdateProfile)
		userRoutes.PUT("/address", h.UpdateAddress)
		userRoutes.POST("/change-password", h.ChangePassword)
		userRoutes.POST("/prescription", h.UploadPrescription)
		userRoutes.DELETE("/prescription/:id", h.DeletePrescription)
		userRoutes.DELETE("/delete-account", h.DeleteAccount)
	}

	adminRoutes := r.Group("/api/admin")
	adminRoutes.Use(middleware.Auth(tokens, users), middleware.RequireRole(models.RoleAdmin))
	{
		adminRoutes.GET("/users", h.ListUsers)
		adminRoutes.GET("/analytics", h.GetAnalytics)
		adminRoutes.PATCH("/users/:id/status", h.ToggleUserStatus)
		adminRoutes.DELETE("/users/:id", h.DeleteUser)
	}

	return &testEnv{store: users, tokens: tokens, files: files, google: google, router: r}
}

// createUser seeds an account directly in the store and returns it with a
// valid token.
func (e *testEnv) createUser(t *testing.T, name, email, password, role string) (*models.User, string) {
	t.Helper()
	user := &models.User{
		Name:     name,
		Email:    email,
		Role:     role,
		IsActive: true,
	}
	if password != "" {
		require.NoError(t, user.SetPassword(password))
	}
	require.NoError(t, e.store.Insert(context.Background(), user))
	token, err := e.tokens.Issue(user.ID.Hex())
	require.NoError(t, err)
	return user, token
}
