package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripStatus represents the lifecycle state of a trip.
type TripStatus string

const (
	TripPending    TripStatus = "PENDING"
	TripAssigned   TripStatus = "ASSIGNED"
	TripInProgress TripStatus = "IN_PROGRESS"
	TripCompleted  TripStatus = "COMPLETED"
	TripCancelled  TripStatus = "CANCELLED"
)

// tripTransitions enumerates the legal edges of the trip state graph.
// COMPLETED and CANCELLED are terminal.
var tripTransitions = map[TripStatus][]TripStatus{
	TripPending:    {TripAssigned, TripCancelled},
	TripAssigned:   {TripInProgress},
	TripInProgress: {TripCompleted},
}

// CanTransition reports whether the trip status graph permits moving
// from one status to another.
func CanTransition(from, to TripStatus) bool {
	for _, next := range tripTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no transition leaves the given status.
func IsTerminalStatus(s TripStatus) bool {
	return len(tripTransitions[s]) == 0
}

// Trip represents a delivery dispatched by a company-owning user to a driver.
// The OTP code is present only between assignment and confirmation and is
// never serialized to anyone but the assigned driver.
type Trip struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	RecipientName     string              `bson:"recipient_name" json:"recipient_name"`
	RecipientPhone    string              `bson:"recipient_phone" json:"recipient_phone"`
	CompanyID         primitive.ObjectID  `bson:"company_id" json:"company_id"`
	DriverID          *primitive.ObjectID `bson:"driver_id,omitempty" json:"driver_id,omitempty"`
	VehicleType       VehicleType         `bson:"vehicle_type" json:"vehicle_type"`
	PickupAddress     string              `bson:"pickup_address" json:"pickup_address"`
	DeliveryAddress   string              `bson:"delivery_address" json:"delivery_address"`
	PickupLatitude    float64             `bson:"pickup_latitude" json:"pickup_latitude"`
	PickupLongitude   float64             `bson:"pickup_longitude" json:"pickup_longitude"`
	DeliveryLatitude  float64             `bson:"delivery_latitude" json:"delivery_latitude"`
	DeliveryLongitude float64             `bson:"delivery_longitude" json:"delivery_longitude"`
	PickupTime        time.Time           `bson:"pickup_time" json:"pickup_time"`
	AssignedAt        *time.Time          `bson:"assigned_at,omitempty" json:"assigned_at,omitempty"`
	StartedAt         *time.Time          `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt       *time.Time          `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CancelledAt       *time.Time          `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	OTPCode           *string             `bson:"otp_code,omitempty" json:"-"`
	Status            TripStatus          `bson:"status" json:"status"`
	Rating            *int                `bson:"rating,omitempty" json:"rating,omitempty"`
	CreatedAt         time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `bson:"updated_at" json:"updated_at"`
}
