package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Company represents a business entity with an owner and a fleet of drivers.
// Each company carries a unique invite code used for driver onboarding. The
// code is generated once, from the company ID, on first persistence.
type Company struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Address     string             `bson:"address,omitempty" json:"address,omitempty"`
	PhoneNumber string             `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	Email       string             `bson:"email,omitempty" json:"email,omitempty"`
	Website     string             `bson:"website,omitempty" json:"website,omitempty"`
	InviteCode  string             `bson:"invite_code,omitempty" json:"invite_code,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// CompanyDriver links a driver to a company. A company has many drivers and
// a driver may work for several companies; the (driver, company) pair is unique.
type CompanyDriver struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DriverID  primitive.ObjectID `bson:"driver_id" json:"driver_id"`
	CompanyID primitive.ObjectID `bson:"company_id" json:"company_id"`
	IsActive  bool               `bson:"is_active" json:"is_active"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// CanJoinCompany reports whether a user's role permits company membership.
func CanJoinCompany(role Role) bool {
	return role == RoleCompanyDriver || role == RoleCompanyOwner
}
