package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dispatchly/lastmile/internal/models"
)

// TripCollection defines the interface for trip database operations.
// Every transition method writes only its own field list and is guarded by a
// filter on the expected current status (or stored OTP, for completion), so
// exactly one of two concurrent identical transitions can succeed. The bool
// result reports whether the guarded update matched a document.
type TripCollection interface {
	InsertTrip(ctx context.Context, trip models.Trip) error
	FindTripByID(ctx context.Context, id string) (*models.Trip, error)
	FindTripsByCompany(ctx context.Context, companyUserID primitive.ObjectID) ([]models.Trip, error)
	FindTripsByDriver(ctx context.Context, driverID primitive.ObjectID) ([]models.Trip, error)
	AssignTrip(ctx context.Context, id string, driverID primitive.ObjectID, otp string, at time.Time) (bool, error)
	StartTrip(ctx context.Context, id string, at time.Time) (bool, error)
	CompleteTrip(ctx context.Context, id string, otp string, at time.Time) (bool, error)
	CancelTrip(ctx context.Context, id string, at time.Time) (bool, error)
	RateTrip(ctx context.Context, id string, rating int) (bool, error)
	UnassignDriver(ctx context.Context, driverID primitive.ObjectID) error
	DeleteTripsByCompany(ctx context.Context, companyUserID primitive.ObjectID) error
}

// MongoTripCollection implements TripCollection for MongoDB
type MongoTripCollection struct {
	Collection *mongo.Collection
}

// InsertTrip inserts a trip record into the collection.
func (c *MongoTripCollection) InsertTrip(ctx context.Context, trip models.Trip) error {
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, trip)
	return err
}

// FindTripByID finds a trip by its ID.
func (c *MongoTripCollection) FindTripByID(ctx context.Context, id string) (*models.Trip, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var trip models.Trip
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &trip, nil
}

// FindTripsByCompany lists trips dispatched by a company-owning user.
func (c *MongoTripCollection) FindTripsByCompany(ctx context.Context, companyUserID primitive.ObjectID) ([]models.Trip, error) {
	return c.findTrips(ctx, bson.M{"company_id": companyUserID})
}

// FindTripsByDriver lists trips assigned to a driver.
func (c *MongoTripCollection) FindTripsByDriver(ctx context.Context, driverID primitive.ObjectID) ([]models.Trip, error) {
	return c.findTrips(ctx, bson.M{"driver_id": driverID})
}

func (c *MongoTripCollection) findTrips(ctx context.Context, filter bson.M) ([]models.Trip, error) {
	cursor, err := c.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var trips []models.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// AssignTrip sets driver, OTP, status and assigned_at on a PENDING trip.
func (c *MongoTripCollection) AssignTrip(ctx context.Context, id string, driverID primitive.ObjectID, otp string, at time.Time) (bool, error) {
	return c.guardedUpdate(ctx, id,
		bson.M{"status": models.TripPending},
		bson.M{"$set": bson.M{
			"driver_id":   driverID,
			"otp_code":    otp,
			"status":      models.TripAssigned,
			"assigned_at": at,
			"updated_at":  at,
		}},
	)
}

// StartTrip moves an ASSIGNED trip to IN_PROGRESS.
func (c *MongoTripCollection) StartTrip(ctx context.Context, id string, at time.Time) (bool, error) {
	return c.guardedUpdate(ctx, id,
		bson.M{"status": models.TripAssigned},
		bson.M{"$set": bson.M{
			"status":     models.TripInProgress,
			"started_at": at,
			"updated_at": at,
		}},
	)
}

// CompleteTrip completes a trip whose stored OTP matches, clearing the code.
// The OTP guard makes the code single-use: a second completion with the same
// code matches nothing.
func (c *MongoTripCollection) CompleteTrip(ctx context.Context, id string, otp string, at time.Time) (bool, error) {
	return c.guardedUpdate(ctx, id,
		bson.M{"otp_code": otp},
		bson.M{
			"$set": bson.M{
				"status":       models.TripCompleted,
				"completed_at": at,
				"updated_at":   at,
			},
			"$unset": bson.M{"otp_code": ""},
		},
	)
}

// CancelTrip cancels a PENDING trip, clearing any OTP.
func (c *MongoTripCollection) CancelTrip(ctx context.Context, id string, at time.Time) (bool, error) {
	return c.guardedUpdate(ctx, id,
		bson.M{"status": models.TripPending},
		bson.M{
			"$set": bson.M{
				"status":       models.TripCancelled,
				"cancelled_at": at,
				"updated_at":   at,
			},
			"$unset": bson.M{"otp_code": ""},
		},
	)
}

// RateTrip records a rating on a COMPLETED trip.
func (c *MongoTripCollection) RateTrip(ctx context.Context, id string, rating int) (bool, error) {
	return c.guardedUpdate(ctx, id,
		bson.M{"status": models.TripCompleted},
		bson.M{"$set": bson.M{
			"rating":     rating,
			"updated_at": time.Now(),
		}},
	)
}

// UnassignDriver nullifies the driver reference on all trips assigned to a
// driver. Historical trips are retained when a driver account is deleted.
func (c *MongoTripCollection) UnassignDriver(ctx context.Context, driverID primitive.ObjectID) error {
	_, err := c.Collection.UpdateMany(ctx,
		bson.M{"driver_id": driverID},
		bson.M{"$unset": bson.M{"driver_id": ""}},
	)
	return err
}

// DeleteTripsByCompany removes all trips dispatched by a company user.
// Trips are owned by their dispatching user and cascade with it.
func (c *MongoTripCollection) DeleteTripsByCompany(ctx context.Context, companyUserID primitive.ObjectID) error {
	_, err := c.Collection.DeleteMany(ctx, bson.M{"company_id": companyUserID})
	return err
}

func (c *MongoTripCollection) guardedUpdate(ctx context.Context, id string, guard bson.M, update bson.M) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, ErrNotFound
	}
	filter := bson.M{"_id": objectID}
	for k, v := range guard {
		filter[k] = v
	}
	result, err := c.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}
