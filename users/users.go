package users

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

type MFAuthType string

const (
	MFNone          MFAuthType = "none"
	MFAuthenticator MFAuthType = "authenticator"
	MFEmail         MFAuthType = "email"
	MFSms           MFAuthType = "sms"
)

// RoleType represents a user role within a tenant. Role names are
// normalized to lowercase everywhere they are compared or stored.
type RoleType string

const (
	RoleSuperAdmin RoleType = "superadmin" // Can manage all tenants and system configuration
	RoleOwner      RoleType = "owner"      // Owns a tenant, full control including security settings
	RoleAdmin      RoleType = "admin"      // Can manage users and settings within a tenant
	RoleUser       RoleType = "user"       // Regular user within a tenant
	RoleViewer     RoleType = "viewer"     // Read-only access within a tenant
)

type User struct {
	ID           string    `json:"id,omitempty"`          // Unique identifier for the user
	Email        string    `json:"email,omitempty"`       // User's email address
	PasswordHash string    `json:"-"`                     // Hashed password - never serialize
	FirstName    string    `json:"first_name,omitempty"`  // First name of the user
	LastName     string    `json:"last_name,omitempty"`   // Last name of the user
	Role         RoleType  `json:"role,omitempty"`        // Role within the tenant
	TenantID     string    `json:"tenant_id,omitempty"`   // Tenant the user belongs to
	TenantSlug   string    `json:"tenant_slug,omitempty"` // Slug of the tenant (denormalized for token claims)
	DateJoined   time.Time `json:"date_joined,omitempty"` // Date and time when the user registered
	LastLogin    time.Time `json:"last_login,omitempty"`  // Last time the user logged in

	Blocked   bool       `json:"blocked,omitempty"`    // Blocked users cannot log in
	MFType    MFAuthType `json:"mf_type,omitempty"`    // Configured second factor
	MFASecret string     `json:"-"`                    // Shared secret for the second factor - never serialize
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// MFAConfigured reports whether the user has a second factor set up.
func (u *User) MFAConfigured() bool {
	return u.MFType != "" && u.MFType != MFNone
}

// IsPrivileged reports whether the user's role carries administrative
// powers over tenant or system configuration.
func (u *User) IsPrivileged() bool {
	switch u.Role {
	case RoleSuperAdmin, RoleOwner, RoleAdmin:
		return true
	}
	return false
}
