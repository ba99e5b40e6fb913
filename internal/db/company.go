package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dispatchly/lastmile/internal/invite"
	"github.com/dispatchly/lastmile/internal/models"
)

// ErrAlreadyMember is returned when a driver already belongs to a company.
var ErrAlreadyMember = errors.New("driver is already a member of this company")

// CompanyCollection defines the interface for company database operations
type CompanyCollection interface {
	GetOrCreateCompany(ctx context.Context, company models.Company) (*models.Company, bool, error)
	FindCompanyByOwner(ctx context.Context, ownerID primitive.ObjectID) (*models.Company, error)
	FindCompanyByInviteCode(ctx context.Context, code string) (*models.Company, error)
	UpdateCompany(ctx context.Context, id string, company models.Company) error
	DeleteCompanyByOwner(ctx context.Context, ownerID primitive.ObjectID) error
}

// MembershipCollection defines the interface for company-driver memberships
type MembershipCollection interface {
	AddDriver(ctx context.Context, companyID, driverID primitive.ObjectID) (*models.CompanyDriver, error)
	FindMembership(ctx context.Context, companyID, driverID primitive.ObjectID) (*models.CompanyDriver, error)
	FindCompanyDrivers(ctx context.Context, companyID primitive.ObjectID) ([]models.CompanyDriver, error)
	DeleteMembershipsByDriver(ctx context.Context, driverID primitive.ObjectID) error
	DeleteMembershipsByCompany(ctx context.Context, companyID primitive.ObjectID) error
}

// MongoCompanyCollection implements CompanyCollection for MongoDB
type MongoCompanyCollection struct {
	Collection *mongo.Collection
	Invites    *invite.Generator
}

// GetOrCreateCompany upserts the company owned by company.OwnerID. Defaults
// (name, email, phone) are written only on insert and never overwritten on a
// later reconciliation. The invite code is assigned once, from the company ID,
// on first persistence.
func (c *MongoCompanyCollection) GetOrCreateCompany(ctx context.Context, company models.Company) (*models.Company, bool, error) {
	now := time.Now()
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)
	update := bson.M{"$setOnInsert": bson.M{
		"name":         company.Name,
		"owner_id":     company.OwnerID,
		"email":        company.Email,
		"phone_number": company.PhoneNumber,
		"created_at":   now,
		"updated_at":   now,
	}}

	var before models.Company
	err := c.Collection.FindOneAndUpdate(ctx, bson.M{"owner_id": company.OwnerID}, update, opts).Decode(&before)
	created := false
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, err
		}
		created = true
	}

	existing, err := c.FindCompanyByOwner(ctx, company.OwnerID)
	if err != nil {
		return nil, created, err
	}

	if existing.InviteCode == "" {
		code, err := c.Invites.Generate(existing.ID)
		if err != nil {
			return nil, created, err
		}
		_, err = c.Collection.UpdateOne(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": bson.M{"invite_code": code}})
		if err != nil {
			return nil, created, fmt.Errorf("failed to store invite code: %w", err)
		}
		existing.InviteCode = code
	}

	return existing, created, nil
}

// FindCompanyByOwner finds the company owned by a user
func (c *MongoCompanyCollection) FindCompanyByOwner(ctx context.Context, ownerID primitive.ObjectID) (*models.Company, error) {
	var company models.Company
	err := c.Collection.FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&company)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

// FindCompanyByInviteCode finds a company by its invite code
func (c *MongoCompanyCollection) FindCompanyByInviteCode(ctx context.Context, code string) (*models.Company, error) {
	var company models.Company
	err := c.Collection.FindOne(ctx, bson.M{"invite_code": code}).Decode(&company)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

// UpdateCompany updates mutable company fields by ID
func (c *MongoCompanyCollection) UpdateCompany(ctx context.Context, id string, company models.Company) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": bson.M{
		"name":         company.Name,
		"address":      company.Address,
		"phone_number": company.PhoneNumber,
		"email":        company.Email,
		"website":      company.Website,
		"updated_at":   time.Now(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCompanyByOwner deletes the company owned by a user
func (c *MongoCompanyCollection) DeleteCompanyByOwner(ctx context.Context, ownerID primitive.ObjectID) error {
	_, err := c.Collection.DeleteOne(ctx, bson.M{"owner_id": ownerID})
	return err
}

// MongoMembershipCollection implements MembershipCollection for MongoDB
type MongoMembershipCollection struct {
	Collection *mongo.Collection
}

// AddDriver creates a membership linking a driver to a company.
// The (driver, company) pair is unique.
func (c *MongoMembershipCollection) AddDriver(ctx context.Context, companyID, driverID primitive.ObjectID) (*models.CompanyDriver, error) {
	existing, err := c.FindMembership(ctx, companyID, driverID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	now := time.Now()
	membership := models.CompanyDriver{
		ID:        primitive.NewObjectID(),
		DriverID:  driverID,
		CompanyID: companyID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := c.Collection.InsertOne(ctx, membership); err != nil {
		return nil, err
	}
	return &membership, nil
}

// FindMembership finds the membership for a (company, driver) pair
func (c *MongoMembershipCollection) FindMembership(ctx context.Context, companyID, driverID primitive.ObjectID) (*models.CompanyDriver, error) {
	var membership models.CompanyDriver
	err := c.Collection.FindOne(ctx, bson.M{"company_id": companyID, "driver_id": driverID}).Decode(&membership)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &membership, nil
}

// FindCompanyDrivers lists all memberships for a company
func (c *MongoMembershipCollection) FindCompanyDrivers(ctx context.Context, companyID primitive.ObjectID) ([]models.CompanyDriver, error) {
	cursor, err := c.Collection.Find(ctx, bson.M{"company_id": companyID})
	if err != nil {
		return nil, err
	}
	var memberships []models.CompanyDriver
	if err := cursor.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// DeleteMembershipsByDriver removes all memberships for a driver
func (c *MongoMembershipCollection) DeleteMembershipsByDriver(ctx context.Context, driverID primitive.ObjectID) error {
	_, err := c.Collection.DeleteMany(ctx, bson.M{"driver_id": driverID})
	return err
}

// DeleteMembershipsByCompany removes all memberships for a company
func (c *MongoMembershipCollection) DeleteMembershipsByCompany(ctx context.Context, companyID primitive.ObjectID) error {
	_, err := c.Collection.DeleteMany(ctx, bson.M{"company_id": companyID})
	return err
}
