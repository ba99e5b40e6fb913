// Package trips implements the trip lifecycle state machine:
// PENDING -> ASSIGNED -> IN_PROGRESS -> COMPLETED, with PENDING -> CANCELLED.
package trips

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dispatchly/lastmile/internal/db"
	"github.com/dispatchly/lastmile/internal/models"
)

var (
	ErrTripNotFound    = errors.New("trip not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidAssignee = errors.New("driver must have COMPANY_DRIVER role")
	ErrOTPNotIssued    = errors.New("OTP not sent")
	ErrOTPMismatch     = errors.New("invalid OTP")
	ErrNotRateable     = errors.New("only completed trips can be rated")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
)

// InvalidStateError reports a transition attempted from a state that does not
// permit it. The current status is included for caller feedback.
type InvalidStateError struct {
	Op     string
	Status models.TripStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s trip in status %s", e.Op, e.Status)
}

// Service drives trip transitions. Each operation checks its preconditions
// against a fresh read, then persists through a status-guarded update; a lost
// race matches nothing and is reported as an invalid state.
type Service struct {
	trips  db.TripCollection
	users  db.UserCollection
	logger log.FieldLogger
}

// NewService creates a new trip service.
func NewService(trips db.TripCollection, users db.UserCollection, logger log.FieldLogger) *Service {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{trips: trips, users: users, logger: logger}
}

// CreateInput carries the caller-supplied fields of a new trip.
type CreateInput struct {
	RecipientName     string             `json:"recipient_name" validate:"required,max=255"`
	RecipientPhone    string             `json:"recipient_phone" validate:"required,max=20"`
	VehicleType       models.VehicleType `json:"vehicle_type" validate:"required"`
	PickupAddress     string             `json:"pickup_address" validate:"required,max=255"`
	DeliveryAddress   string             `json:"delivery_address" validate:"required,max=255"`
	PickupLatitude    float64            `json:"pickup_latitude" validate:"required"`
	PickupLongitude   float64            `json:"pickup_longitude" validate:"required"`
	DeliveryLatitude  float64            `json:"delivery_latitude" validate:"required"`
	DeliveryLongitude float64            `json:"delivery_longitude" validate:"required"`
	PickupTime        time.Time          `json:"pickup_time" validate:"required"`
}

// Create creates a PENDING trip dispatched by the given company user. Driver,
// OTP and all transition timestamps start unset.
func (s *Service) Create(ctx context.Context, companyUserID primitive.ObjectID, in CreateInput) (*models.Trip, error) {
	now := time.Now()
	trip := models.Trip{
		ID:                primitive.NewObjectID(),
		RecipientName:     in.RecipientName,
		RecipientPhone:    in.RecipientPhone,
		CompanyID:         companyUserID,
		VehicleType:       in.VehicleType,
		PickupAddress:     in.PickupAddress,
		DeliveryAddress:   in.DeliveryAddress,
		PickupLatitude:    in.PickupLatitude,
		PickupLongitude:   in.PickupLongitude,
		DeliveryLatitude:  in.DeliveryLatitude,
		DeliveryLongitude: in.DeliveryLongitude,
		PickupTime:        in.PickupTime,
		Status:            models.TripPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.trips.InsertTrip(ctx, trip); err != nil {
		return nil, err
	}
	s.logger.WithFields(log.Fields{
		"trip_id": trip.ID.Hex(),
		"company": companyUserID.Hex(),
	}).Info("Trip created")
	return &trip, nil
}

// Assign assigns a PENDING trip to a company driver, issuing a fresh 6-digit
// OTP and stamping assigned_at.
func (s *Service) Assign(ctx context.Context, tripID, driverID string) error {
	trip, err := s.findTrip(ctx, tripID)
	if err != nil {
		return err
	}

	driver, err := s.users.FindUserByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !models.AssignableAsDriver(driver.Role) {
		return ErrInvalidAssignee
	}

	if trip.Status != models.TripPending {
		return &InvalidStateError{Op: "assign", Status: trip.Status}
	}

	otp := generateOTP()
	matched, err := s.trips.AssignTrip(ctx, tripID, driver.ID, otp, time.Now())
	if err != nil {
		return err
	}
	if !matched {
		// Another transition won the race.
		return s.staleState(ctx, tripID, "assign")
	}

	s.logger.WithFields(log.Fields{
		"trip_id": tripID,
		"driver":  driverID,
	}).Info("Trip assigned")
	return nil
}

// Start moves an ASSIGNED trip to IN_PROGRESS and stamps started_at.
func (s *Service) Start(ctx context.Context, tripID string) error {
	trip, err := s.findTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.Status != models.TripAssigned {
		return &InvalidStateError{Op: "start", Status: trip.Status}
	}

	matched, err := s.trips.StartTrip(ctx, tripID, time.Now())
	if err != nil {
		return err
	}
	if !matched {
		return s.staleState(ctx, tripID, "start")
	}

	s.logger.WithField("trip_id", tripID).Info("Trip started")
	return nil
}

// Confirm completes a trip when the supplied OTP matches the issued one. The
// code is cleared on success, so it is single-use: confirming again reports
// that no OTP is outstanding.
func (s *Service) Confirm(ctx context.Context, tripID, otp string) error {
	trip, err := s.findTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.OTPCode == nil {
		return ErrOTPNotIssued
	}
	if *trip.OTPCode != otp {
		return ErrOTPMismatch
	}

	matched, err := s.trips.CompleteTrip(ctx, tripID, otp, time.Now())
	if err != nil {
		return err
	}
	if !matched {
		// The code was consumed between the read and the guarded write.
		return ErrOTPNotIssued
	}

	s.logger.WithField("trip_id", tripID).Info("Trip completed")
	return nil
}

// Cancel cancels a PENDING trip, clearing any OTP and stamping cancelled_at.
// A trip cannot be cancelled once assigned.
func (s *Service) Cancel(ctx context.Context, tripID string) error {
	trip, err := s.findTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.Status != models.TripPending {
		return &InvalidStateError{Op: "cancel", Status: trip.Status}
	}

	matched, err := s.trips.CancelTrip(ctx, tripID, time.Now())
	if err != nil {
		return err
	}
	if !matched {
		return s.staleState(ctx, tripID, "cancel")
	}

	s.logger.WithField("trip_id", tripID).Info("Trip cancelled")
	return nil
}

// Rate records a 1-5 rating on a COMPLETED trip.
func (s *Service) Rate(ctx context.Context, tripID string, rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	trip, err := s.findTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.Status != models.TripCompleted {
		return ErrNotRateable
	}

	matched, err := s.trips.RateTrip(ctx, tripID, rating)
	if err != nil {
		return err
	}
	if !matched {
		return ErrNotRateable
	}
	return nil
}

func (s *Service) findTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip, err := s.trips.FindTripByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}

// staleState re-reads the trip after a guarded update matched nothing and
// reports the state that beat us.
func (s *Service) staleState(ctx context.Context, tripID, op string) error {
	trip, err := s.findTrip(ctx, tripID)
	if err != nil {
		return err
	}
	return &InvalidStateError{Op: op, Status: trip.Status}
}

// generateOTP returns a uniform random 6-digit code. The OTP is a low-value
// shared secret handed over in person; swapping in crypto/rand is a
// hardening option.
func generateOTP() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}
