package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dispatchly/lastmile/internal/models"
)

// AdminProfileCollection defines the interface for admin profile operations
type AdminProfileCollection interface {
	GetOrCreateAdminProfile(ctx context.Context, userID primitive.ObjectID) (*models.AdminProfile, bool, error)
	FindAdminProfileByUser(ctx context.Context, userID primitive.ObjectID) (*models.AdminProfile, error)
	DeleteAdminProfileByUser(ctx context.Context, userID primitive.ObjectID) error
}

// DriverProfileCollection defines the interface for driver profile operations
type DriverProfileCollection interface {
	GetOrCreateDriverProfile(ctx context.Context, userID primitive.ObjectID) (*models.DriverProfile, bool, error)
	FindDriverProfileByUser(ctx context.Context, userID primitive.ObjectID) (*models.DriverProfile, error)
	UpdateDriverProfile(ctx context.Context, userID primitive.ObjectID, profile models.DriverProfile) error
	DeleteDriverProfileByUser(ctx context.Context, userID primitive.ObjectID) error
}

// MongoAdminProfileCollection implements AdminProfileCollection for MongoDB
type MongoAdminProfileCollection struct {
	Collection *mongo.Collection
}

// GetOrCreateAdminProfile upserts the profile for a user. An existing
// profile is left untouched.
func (c *MongoAdminProfileCollection) GetOrCreateAdminProfile(ctx context.Context, userID primitive.ObjectID) (*models.AdminProfile, bool, error) {
	now := time.Now()
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)
	update := bson.M{"$setOnInsert": bson.M{
		"user_id":    userID,
		"created_at": now,
		"updated_at": now,
	}}

	var before models.AdminProfile
	err := c.Collection.FindOneAndUpdate(ctx, bson.M{"user_id": userID}, update, opts).Decode(&before)
	created := false
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, err
		}
		created = true
	}

	profile, err := c.FindAdminProfileByUser(ctx, userID)
	if err != nil {
		return nil, created, err
	}
	return profile, created, nil
}

// FindAdminProfileByUser finds the admin profile owned by a user
func (c *MongoAdminProfileCollection) FindAdminProfileByUser(ctx context.Context, userID primitive.ObjectID) (*models.AdminProfile, error) {
	var profile models.AdminProfile
	err := c.Collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// DeleteAdminProfileByUser deletes the admin profile owned by a user
func (c *MongoAdminProfileCollection) DeleteAdminProfileByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := c.Collection.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}

// MongoDriverProfileCollection implements DriverProfileCollection for MongoDB
type MongoDriverProfileCollection struct {
	Collection *mongo.Collection
}

// GetOrCreateDriverProfile upserts the profile for a user. An existing
// profile is left untouched.
func (c *MongoDriverProfileCollection) GetOrCreateDriverProfile(ctx context.Context, userID primitive.ObjectID) (*models.DriverProfile, bool, error) {
	now := time.Now()
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)
	update := bson.M{"$setOnInsert": bson.M{
		"user_id":    userID,
		"verified":   false,
		"created_at": now,
		"updated_at": now,
	}}

	var before models.DriverProfile
	err := c.Collection.FindOneAndUpdate(ctx, bson.M{"user_id": userID}, update, opts).Decode(&before)
	created := false
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, err
		}
		created = true
	}

	profile, err := c.FindDriverProfileByUser(ctx, userID)
	if err != nil {
		return nil, created, err
	}
	return profile, created, nil
}

// FindDriverProfileByUser finds the driver profile owned by a user
func (c *MongoDriverProfileCollection) FindDriverProfileByUser(ctx context.Context, userID primitive.ObjectID) (*models.DriverProfile, error) {
	var profile models.DriverProfile
	err := c.Collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// UpdateDriverProfile updates the driver profile owned by a user
func (c *MongoDriverProfileCollection) UpdateDriverProfile(ctx context.Context, userID primitive.ObjectID, profile models.DriverProfile) error {
	result, err := c.Collection.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{"$set": bson.M{
		"address":                 profile.Address,
		"city":                    profile.City,
		"state":                   profile.State,
		"zip_code":                profile.ZipCode,
		"country":                 profile.Country,
		"date_of_birth":           profile.DateOfBirth,
		"license_number":          profile.LicenseNumber,
		"license_class":           profile.LicenseClass,
		"license_expiry":          profile.LicenseExpiry,
		"emergency_contact_name":  profile.EmergencyContactName,
		"emergency_contact_phone": profile.EmergencyContactPhone,
		"verified":                profile.Verified,
		"verified_at":             profile.VerifiedAt,
		"updated_at":              time.Now(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDriverProfileByUser deletes the driver profile owned by a user
func (c *MongoDriverProfileCollection) DeleteDriverProfileByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := c.Collection.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}
