package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleType classifies a vehicle for trip dispatch.
type VehicleType string

const (
	VehicleMotorcycle VehicleType = "MOTORCYCLE"
	VehicleCar        VehicleType = "CAR"
	VehicleVan        VehicleType = "VAN"
	VehicleTruck      VehicleType = "TRUCK"
)

// IsValidVehicleType checks if a vehicle type is valid
func IsValidVehicleType(t VehicleType) bool {
	switch t {
	case VehicleMotorcycle, VehicleCar, VehicleVan, VehicleTruck:
		return true
	default:
		return false
	}
}

// Vehicle represents a vehicle owned by a single driver.
type Vehicle struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DriverID           primitive.ObjectID `bson:"driver_id" json:"driver_id"`
	Type               VehicleType        `bson:"type" json:"type"`
	Brand              string             `bson:"brand" json:"brand"`
	Model              string             `bson:"model" json:"model"`
	Year               int                `bson:"year" json:"year"`
	LicenseNumber      string             `bson:"license_number" json:"license_number"`
	RegistrationNumber string             `bson:"registration_number" json:"registration_number"`
	ExpiryDate         time.Time          `bson:"expiry_date" json:"expiry_date"`
	Colour             string             `bson:"colour" json:"colour"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}
