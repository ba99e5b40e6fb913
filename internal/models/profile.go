package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrLicenseExpired     = errors.New("license has expired")
	ErrVerifiedAtRequired = errors.New("verified date must be set when profile is verified")
)

// AdminProfile is the basic profile carried by admin users.
type AdminProfile struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Address     string             `bson:"address,omitempty" json:"address,omitempty"`
	City        string             `bson:"city,omitempty" json:"city,omitempty"`
	State       string             `bson:"state,omitempty" json:"state,omitempty"`
	ZipCode     string             `bson:"zip_code,omitempty" json:"zip_code,omitempty"`
	Country     string             `bson:"country,omitempty" json:"country,omitempty"`
	DateOfBirth *time.Time         `bson:"date_of_birth,omitempty" json:"date_of_birth,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// DriverProfile extends the basic profile with license and verification
// information. Carried by individual drivers, company drivers and company owners.
type DriverProfile struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID                primitive.ObjectID `bson:"user_id" json:"user_id"`
	Address               string             `bson:"address,omitempty" json:"address,omitempty"`
	City                  string             `bson:"city,omitempty" json:"city,omitempty"`
	State                 string             `bson:"state,omitempty" json:"state,omitempty"`
	ZipCode               string             `bson:"zip_code,omitempty" json:"zip_code,omitempty"`
	Country               string             `bson:"country,omitempty" json:"country,omitempty"`
	DateOfBirth           *time.Time         `bson:"date_of_birth,omitempty" json:"date_of_birth,omitempty"`
	LicenseNumber         string             `bson:"license_number,omitempty" json:"license_number,omitempty"`
	LicenseClass          string             `bson:"license_class,omitempty" json:"license_class,omitempty"`
	LicenseExpiry         *time.Time         `bson:"license_expiry,omitempty" json:"license_expiry,omitempty"`
	EmergencyContactName  string             `bson:"emergency_contact_name,omitempty" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string             `bson:"emergency_contact_phone,omitempty" json:"emergency_contact_phone,omitempty"`
	Verified              bool               `bson:"verified" json:"verified"`
	VerifiedAt            *time.Time         `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
	CreatedAt             time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time          `bson:"updated_at" json:"updated_at"`
}

// Validate checks driver profile data before persistence. An expired license
// is a validation error, not grounds for deleting the profile.
func (p *DriverProfile) Validate(now time.Time) error {
	if p.LicenseExpiry != nil && p.LicenseExpiry.Before(now) {
		return ErrLicenseExpired
	}
	if p.Verified && p.VerifiedAt == nil {
		return ErrVerifiedAtRequired
	}
	return nil
}

// MarkVerified marks the profile as verified at the given time.
func (p *DriverProfile) MarkVerified(now time.Time) {
	p.Verified = true
	p.VerifiedAt = &now
}

// IsLicenseExpired reports whether the driver's license is expired.
// Returns false when no expiry is recorded.
func (p *DriverProfile) IsLicenseExpired(now time.Time) bool {
	return p.LicenseExpiry != nil && p.LicenseExpiry.Before(now)
}
