package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arovia-health/arovia-api/internal/auth"
)

// Account roles.
const (
	RoleUser   = "user"
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"
)

// ValidRole reports whether role is one of the enumerated account roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin || role == RoleDoctor
}

// Address is the postal address sub-document. It is always replaced as a
// whole unit, never merged field by field.
type Address struct {
	Country      string `bson:"country,omitempty" json:"country,omitempty"`
	State        string `bson:"state,omitempty" json:"state,omitempty"`
	Pincode      string `bson:"pincode,omitempty" json:"pincode,omitempty"`
	City         string `bson:"city,omitempty" json:"city,omitempty"`
	AddressLine1 string `bson:"addressLine1,omitempty" json:"addressLine1,omitempty"`
	AddressLine2 string `bson:"addressLine2,omitempty" json:"addressLine2,omitempty"`
	Landmark     string `bson:"landmark,omitempty" json:"landmark,omitempty"`
}

// Prescription is one uploaded document in the user's prescription vault.
type Prescription struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Filename     string             `bson:"filename" json:"filename"`
	OriginalName string             `bson:"originalName" json:"originalName"`
	Path         string             `bson:"path" json:"path"`
	UploadedAt   time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}

type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password,omitempty" json:"-"` // Hide from JSON responses; empty for OAuth-only accounts
	GoogleID       string             `bson:"googleId,omitempty" json:"-"`
	Role           string             `bson:"role" json:"role"` // "user", "admin", "doctor"
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	DOB            *time.Time         `bson:"dob,omitempty" json:"dob,omitempty"`
	ProfilePicture string             `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	BloodDonor     bool               `bson:"bloodDonor" json:"bloodDonor"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	Address        *Address           `bson:"address,omitempty" json:"address,omitempty"`
	Prescriptions  []Prescription     `bson:"prescriptions" json:"prescriptions"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SetPassword hashes plaintext and stores the digest. Callers never write a
// plaintext password into the document themselves.
func (u *User) SetPassword(plaintext string) error {
	hash, err := auth.HashPassword(plaintext)
	if err != nil {
		return err
	}
	u.Password = hash
	return nil
}

// CheckPassword verifies plaintext against the stored digest. It fails closed
// when no digest is stored (OAuth-only accounts).
func (u *User) CheckPassword(plaintext string) bool {
	if u.Password == "" {
		return false
	}
	return auth.CheckPasswordHash(plaintext, u.Password)
}

// RegistrationDay is one bucket of the trailing-7-day registration trend.
type RegistrationDay struct {
	Date  string `bson:"_id" json:"date"`
	Count int64  `bson:"count" json:"count"`
}

// Analytics is the admin dashboard aggregate view.
type Analytics struct {
	TotalUsers        int64             `json:"totalUsers"`
	UsersByRole       map[string]int64  `json:"usersByRole"`
	RegistrationTrend []RegistrationDay `json:"registrationTrend"`
	LastActiveUser    *User             `json:"lastActiveUser"`
}
