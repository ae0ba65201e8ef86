package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arovia-health/arovia-api/internal/middleware"
	"github.com/arovia-health/arovia-api/internal/models"
	"github.com/arovia-health/arovia-api/internal/storage"
)

const (
	maxPrescriptionSize = 5 * 1024 * 1024
	dobLayout           = "2006-01-02"
)

var (
	prescriptionExtensions = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".pdf": true}
	prescriptionMimeTypes  = map[string]bool{"image/jpeg": true, "image/png": true, "application/pdf": true}
)

// GetProfile returns the authenticated account, password hash excluded.
func (h *Handler) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

type updateProfileRequest struct {
	Name       *string         `json:"name"`
	Phone      *string         `json:"phone"`
	DOB        *string         `json:"dob"`
	BloodDonor *bool           `json:"bloodDonor"`
	Address    *models.Address `json:"address"`
}

// UpdateProfile applies a partial update: only supplied fields change, the
// address sub-document is replaced as a whole, and email is immutable here.
// Multipart bodies may carry a new profile image.
func (h *Handler) UpdateProfile(c *gin.Context) {
	account := middleware.CurrentUser(c)

	req, err := h.bindProfileUpdate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	fields := bson.M{}
	if req.Name != nil && *req.Name != "" {
		fields["name"] = *req.Name
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}
	if req.DOB != nil {
		dob, err := time.Parse(dobLayout, *req.DOB)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Date of birth must be YYYY-MM-DD"})
			return
		}
		fields["dob"] = dob
	}
	if req.BloodDonor != nil {
		fields["bloodDonor"] = *req.BloodDonor
	}
	if req.Address != nil {
		fields["address"] = req.Address
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
		if strings.HasPrefix(account.ProfilePicture, storage.URLPrefix+"/") {
			h.Files.Remove(account.ProfilePicture)
		}
		fields["profilePicture"] = urlPath
	}

	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No update fields provided"})
		return
	}

	updated, err := h.Store.UpdateFields(c.Request.Context(), account.ID, fields)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update user profile"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// bindProfileUpdate reads the partial update from a JSON body, or from form
// values when the request is multipart (the address arrives JSON-encoded in
// that case).
func (h *Handler) bindProfileUpdate(c *gin.Context) (*updateProfileRequest, error) {
	var req updateProfileRequest
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	if v, ok := c.GetPostForm("name"); ok {
		req.Name = &v
	}
	if v, ok := c.GetPostForm("phone"); ok {
		req.Phone = &v
	}
	if v, ok := c.GetPostForm("dob"); ok {
		req.DOB = &v
	}
	if v, ok := c.GetPostForm("bloodDonor"); ok {
		donor, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		req.BloodDonor = &donor
	}
	if v, ok := c.GetPostForm("address"); ok {
		var addr models.Address
		if err := json.Unmarshal([]byte(v), &addr); err != nil {
			return nil, err
		}
		req.Address = &addr
	}
	return &req, nil
}

// UpdateAddress replaces the postal address sub-document wholesale.
func (h *Handler) UpdateAddress(c *gin.Context) {
	account := middleware.CurrentUser(c)

	var addr models.Address
	if err := c.ShouldBindJSON(&addr); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	updated, err := h.Store.UpdateFields(c.Request.Context(), account.ID, bson.M{"address": &addr})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update address"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// ChangePassword requires the current password to verify before rehashing.
// OAuth-only accounts have no stored digest, so verification fails closed.
func (h *Handler) ChangePassword(c *gin.Context) {
	account := middleware.CurrentUser(c)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if !account.CheckPassword(req.CurrentPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
		return
	}

	rehashed := *account
	if err := rehashed.SetPassword(req.NewPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to hash password"})
		return
	}

	if _, err := h.Store.UpdateFields(c.Request.Context(), account.ID, bson.M{"password": rehashed.Password}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to change password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// UploadPrescription validates the file's size, extension and declared media
// type, stores it under a collision-resistant name, and appends a document
// record to the account.
func (h *Handler) UploadPrescription(c *gin.Context) {
	account := middleware.CurrentUser(c)

	file, err := c.FormFile("prescription")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Prescription file is required"})
		return
	}
	if file.Size > maxPrescriptionSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "File exceeds the 5 MB limit"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	declared := file.Header.Get("Content-Type")
	if !prescriptionExtensions[ext] || !prescriptionMimeTypes[declared] {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"message": "Only .png, .jpg, .jpeg and .pdf format allowed"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to read file"})
		return
	}
	defer src.Close()

	stored := storage.StoredName(file.Filename)
	urlPath, err := h.Files.SavePrescription(src, stored)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to store file"})
		return
	}

	prescription := models.Prescription{
		ID:           primitive.NewObjectID(),
		Filename:     stored,
		OriginalName: file.Filename,
		Path:         urlPath,
		UploadedAt:   time.Now(),
	}

	updated, err := h.Store.PushPrescription(c.Request.Context(), account.ID, prescription)
	if err != nil {
		h.Files.Remove(urlPath)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save prescription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Prescription uploaded successfully",
		"prescription": prescription,
		"user":         updated,
	})
}

// DeletePrescription removes the matching document record. Absence of a
// match is a no-op, not an error.
func (h *Handler) DeletePrescription(c *gin.Context) {
	account := middleware.CurrentUser(c)

	prescriptionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid prescription id"})
		return
	}

	for _, p := range account.Prescriptions {
		if p.ID == prescriptionID {
			h.Files.Remove(p.Path)
			break
		}
	}

	updated, err := h.Store.PullPrescription(c.Request.Context(), account.ID, prescriptionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete prescription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Prescription deleted",
		"user":    updated,
	})
}

// DeleteAccount removes the account's locally stored files best-effort, then
// deletes the record. Irreversible.
func (h *Handler) DeleteAccount(c *gin.Context) {
	account := middleware.CurrentUser(c)

	h.Files.RemoveUserFiles(account)

	if err := h.Store.Delete(c.Request.Context(), account.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete account"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}
