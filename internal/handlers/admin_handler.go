package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arovia-health/arovia-api/internal/store"
)

// ListUsers returns every account, most recently modified first.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to list users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": len(users),
	})
}

// GetAnalytics returns the admin dashboard aggregates: total accounts,
// counts by role, the trailing-7-day registration trend, and the most
// recently modified account as a coarse last-activity signal.
func (h *Handler) GetAnalytics(c *gin.Context) {
	analytics, err := h.Store.Analytics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to compute analytics"})
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// ToggleUserStatus flips the target account's active flag.
func (h *Handler) ToggleUserStatus(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user id"})
		return
	}

	user, err := h.Store.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	updated, err := h.Store.UpdateFields(c.Request.Context(), id, bson.M{"isActive": !user.IsActive})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update user status"})
		return
	}

	message := "User suspended"
	if updated.IsActive {
		message = "User activated"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "user": updated})
}

// DeleteUser removes an account with the same semantics as self-deletion,
// administrator-initiated.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user id"})
		return
	}

	user, err := h.Store.FindByID(c.Request.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete user"})
		return
	}

	h.Files.RemoveUserFiles(user)

	if err := h.Store.Delete(c.Request.Context(), id); err != nil && err != store.ErrNotFound {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
