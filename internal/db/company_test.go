package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dispatchly/lastmile/internal/invite"
	"github.com/dispatchly/lastmile/internal/models"
)

func companyFixture(t *testing.T) (*MongoCompanyCollection, *MongoMembershipCollection, func()) {
	t.Helper()
	client, err := ConnectMongo()
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}

	db := client.Database("test_lastmile")
	companies := db.Collection("companies")
	memberships := db.Collection("company_drivers")
	companies.Drop(context.Background())
	memberships.Drop(context.Background())

	gen, err := invite.NewGenerator("test-salt")
	require.NoError(t, err)

	return &MongoCompanyCollection{Collection: companies, Invites: gen},
		&MongoMembershipCollection{Collection: memberships},
		func() { client.Disconnect(context.Background()) }
}

func TestMongoCompanyCollection_GetOrCreateCompany(t *testing.T) {
	companies, _, teardown := companyFixture(t)
	defer teardown()

	ownerID := primitive.NewObjectID()
	seed := models.Company{
		OwnerID:     ownerID,
		Name:        "Test User's Company",
		Email:       "owner@example.com",
		PhoneNumber: "+447700900123",
	}

	company, created, err := companies.GetOrCreateCompany(context.Background(), seed)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Test User's Company", company.Name)
	assert.NotEmpty(t, company.InviteCode)

	// Second call finds the same record and does not regenerate the code.
	again, created, err := companies.GetOrCreateCompany(context.Background(), seed)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, company.ID, again.ID)
	assert.Equal(t, company.InviteCode, again.InviteCode)

	// Defaults are not reapplied once the owner has customised the company.
	again.Name = "Custom Couriers Ltd"
	require.NoError(t, companies.UpdateCompany(context.Background(), again.ID.Hex(), *again))

	third, created, err := companies.GetOrCreateCompany(context.Background(), seed)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Custom Couriers Ltd", third.Name)
}

func TestMongoCompanyCollection_FindCompanyByInviteCode(t *testing.T) {
	companies, _, teardown := companyFixture(t)
	defer teardown()

	ownerID := primitive.NewObjectID()
	company, _, err := companies.GetOrCreateCompany(context.Background(), models.Company{
		OwnerID: ownerID,
		Name:    "Test Company",
	})
	require.NoError(t, err)

	found, err := companies.FindCompanyByInviteCode(context.Background(), company.InviteCode)
	assert.NoError(t, err)
	assert.Equal(t, company.ID, found.ID)

	_, err = companies.FindCompanyByInviteCode(context.Background(), "NOSUCHCODE99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoMembershipCollection_AddDriver(t *testing.T) {
	_, memberships, teardown := companyFixture(t)
	defer teardown()

	companyID := primitive.NewObjectID()
	driverID := primitive.NewObjectID()

	membership, err := memberships.AddDriver(context.Background(), companyID, driverID)
	require.NoError(t, err)
	assert.Equal(t, companyID, membership.CompanyID)
	assert.Equal(t, driverID, membership.DriverID)
	assert.True(t, membership.IsActive)

	// Joining twice is rejected.
	_, err = memberships.AddDriver(context.Background(), companyID, driverID)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	drivers, err := memberships.FindCompanyDrivers(context.Background(), companyID)
	assert.NoError(t, err)
	assert.Len(t, drivers, 1)
}

func TestMongoMembershipCollection_DeleteMemberships(t *testing.T) {
	_, memberships, teardown := companyFixture(t)
	defer teardown()

	companyID := primitive.NewObjectID()
	driverID := primitive.NewObjectID()
	_, err := memberships.AddDriver(context.Background(), companyID, driverID)
	require.NoError(t, err)

	err = memberships.DeleteMembershipsByDriver(context.Background(), driverID)
	assert.NoError(t, err)

	_, err = memberships.FindMembership(context.Background(), companyID, driverID)
	assert.ErrorIs(t, err, ErrNotFound)
}
