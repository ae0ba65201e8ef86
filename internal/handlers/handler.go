package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arovia-health/arovia-api/internal/auth"
	"github.com/arovia-health/arovia-api/internal/services"
	"github.com/arovia-health/arovia-api/internal/storage"
	"github.com/arovia-health/arovia-api/internal/store"
)

// Handler bundles the dependencies every route needs: the account store, the
// credential service, the local file store and the external identity
// provider (nil when Google sign-in is not configured).
type Handler struct {
	Store     store.UserStore
	Tokens    *auth.Tokens
	Files     *storage.FileStore
	Google    services.IdentityProvider
	ClientURL string
}

func NewHandler(users store.UserStore, tokens *auth.Tokens, files *storage.FileStore, google services.IdentityProvider, clientURL string) *Handler {
	return &Handler{
		Store:     users,
		Tokens:    tokens,
		Files:     files,
		Google:    google,
		ClientURL: clientURL,
	}
}

// Health is the unauthenticated liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Server is running"})
}

// normalizeEmail lowercases and trims so email uniqueness is
// case-insensitive at the API boundary.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
