package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arovia-health/arovia-api/internal/models"
	"github.com/arovia-health/arovia-api/internal/storage"
	"github.com/arovia-health/arovia-api/internal/store"
)

type RegisterRequest struct {
	Name     string `json:"name" form:"name" binding:"required"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=8"`
	Role     string `json:"role" form:"role"`
}

var imageExtensions = map[string]bool{".jpeg": true, ".jpg": true, ".png": true}

// Register creates a local account. The body is JSON, or multipart when an
// initial avatar is attached. The unique index on email is the authoritative
// conflict check.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid role"})
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    normalizeEmail(req.Email),
		Role:     role,
		IsActive: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to hash password"})
		return
	}

	if file, err := c.FormFile("profileImage"); err == nil {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !imageExtensions[ext] {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"message": "Profile image must be .png, .jpg or .jpeg"})
			return
		}
		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to read profile image"})
			return
		}
		defer src.Close()
		urlPath, err := h.Files.SaveProfileImage(src, storage.StoredName(file.Filename))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to store profile image"})
			return
		}
		user.ProfilePicture = urlPath
	}

	if err := h.Store.Insert(c.Request.Context(), &user); err != nil {
		if err == store.ErrDuplicate {
			c.JSON(http.StatusConflict, gin.H{"message": "An account with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create user"})
		return
	}

	token, err := h.Tokens.Issue(user.ID.Hex())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
		"user":    user,
	})
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies local credentials and issues a token. The failure is
// undifferentiated: no caller learns whether the email exists.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	user, err := h.Store.FindByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if err != nil || !user.CheckPassword(req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
		return
	}

	token, err := h.Tokens.Issue(user.ID.Hex())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"role":  user.Role,
		"user":  user,
	})
}
