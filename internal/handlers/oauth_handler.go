package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/arovia-health/arovia-api/internal/models"
	"github.com/arovia-health/arovia-api/internal/store"
)

const stateCookie = "oauth_state"

// GoogleLogin starts the OAuth round trip: a random anti-CSRF state goes
// into a short-lived cookie and the browser is sent to the provider.
func (h *Handler) GoogleLogin(c *gin.Context) {
	if h.Google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Google sign-in is not configured"})
		return
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to start sign-in"})
		return
	}
	state := hex.EncodeToString(buf)

	c.SetCookie(stateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, h.Google.AuthCodeURL(state))
}

// GoogleCallback consumes the provider's assertion and links or creates the
// local account. Every failure path redirects to the client login view with
// an error indicator instead of surfacing a raw error page.
func (h *Handler) GoogleCallback(c *gin.Context) {
	fail := func() {
		c.Redirect(http.StatusFound, h.ClientURL+"/login?error=auth_failed")
	}

	if h.Google == nil || c.Query("error") != "" {
		fail()
		return
	}

	state := c.Query("state")
	cookieState, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != cookieState {
		fail()
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		fail()
		return
	}

	identity, err := h.Google.FetchIdentity(c.Request.Context(), code)
	if err != nil {
		fail()
		return
	}

	email := normalizeEmail(identity.Email)
	user, err := h.Store.FindByGoogleIDOrEmail(c.Request.Context(), identity.ID, email)
	switch {
	case err == store.ErrNotFound:
		// First sign-in: create an OAuth-only account with no password hash.
		user = &models.User{
			Name:           identity.Name,
			Email:          email,
			GoogleID:       identity.ID,
			ProfilePicture: identity.Picture,
			Role:           models.RoleUser,
			IsActive:       true,
		}
		if err := h.Store.Insert(c.Request.Context(), user); err != nil {
			fail()
			return
		}
	case err != nil:
		fail()
		return
	case user.GoogleID == "":
		// Existing local account with the same email: link it.
		fields := bson.M{"googleId": identity.ID}
		if user.ProfilePicture == "" && identity.Picture != "" {
			fields["profilePicture"] = identity.Picture
		}
		user, err = h.Store.UpdateFields(c.Request.Context(), user.ID, fields)
		if err != nil {
			fail()
			return
		}
	}

	token, err := h.Tokens.Issue(user.ID.Hex())
	if err != nil {
		fail()
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s/login?token=%s&role=%s&name=%s",
		h.ClientURL,
		url.QueryEscape(token),
		url.QueryEscape(user.Role),
		url.QueryEscape(user.Name),
	))
}
