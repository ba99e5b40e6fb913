package trips

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dispatchly/lastmile/internal/db"
	"github.com/dispatchly/lastmile/internal/models"
)

// fakeTripCollection is an in-memory TripCollection. Transition methods honour
// the same guards as the Mongo implementation: they match only when the trip
// is in the expected state (or carries the expected OTP).
type fakeTripCollection struct {
	byID map[primitive.ObjectID]*models.Trip
}

func newFakeTripCollection() *fakeTripCollection {
	return &fakeTripCollection{byID: make(map[primitive.ObjectID]*models.Trip)}
}

func (f *fakeTripCollection) get(id string) *models.Trip {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	return f.byID[objectID]
}

func (f *fakeTripCollection) InsertTrip(ctx context.Context, trip models.Trip) error {
	f.byID[trip.ID] = &trip
	return nil
}

func (f *fakeTripCollection) FindTripByID(ctx context.Context, id string) (*models.Trip, error) {
	trip := f.get(id)
	if trip == nil {
		return nil, db.ErrNotFound
	}
	copied := *trip
	return &copied, nil
}

func (f *fakeTripCollection) FindTripsByCompany(ctx context.Context, companyUserID primitive.ObjectID) ([]models.Trip, error) {
	var trips []models.Trip
	for _, trip := range f.byID {
		if trip.CompanyID == companyUserID {
			trips = append(trips, *trip)
		}
	}
	return trips, nil
}

func (f *fakeTripCollection) FindTripsByDriver(ctx context.Context, driverID primitive.ObjectID) ([]models.Trip, error) {
	var trips []models.Trip
	for _, trip := range f.byID {
		if trip.DriverID != nil && *trip.DriverID == driverID {
			trips = append(trips, *trip)
		}
	}
	return trips, nil
}

func (f *fakeTripCollection) AssignTrip(ctx context.Context, id string, driverID primitive.ObjectID, otp string, at time.Time) (bool, error) {
	trip := f.get(id)
	if trip == nil || trip.Status != models.TripPending {
		return false, nil
	}
	trip.DriverID = &driverID
	trip.OTPCode = &otp
	trip.Status = models.TripAssigned
	trip.AssignedAt = &at
	trip.UpdatedAt = at
	return true, nil
}

func (f *fakeTripCollection) StartTrip(ctx context.Context, id string, at time.Time) (bool, error) {
	trip := f.get(id)
	if trip == nil || trip.Status != models.TripAssigned {
		return false, nil
	}
	trip.Status = models.TripInProgress
	trip.StartedAt = &at
	trip.UpdatedAt = at
	return true, nil
}

func (f *fakeTripCollection) CompleteTrip(ctx context.Context, id string, otp string, at time.Time) (bool, error) {
	trip := f.get(id)
	if trip == nil || trip.OTPCode == nil || *trip.OTPCode != otp {
		return false, nil
	}
	trip.Status = models.TripCompleted
	trip.CompletedAt = &at
	trip.UpdatedAt = at
	trip.OTPCode = nil
	return true, nil
}

func (f *fakeTripCollection) CancelTrip(ctx context.Context, id string, at time.Time) (bool, error) {
	trip := f.get(id)
	if trip == nil || trip.Status != models.TripPending {
		return false, nil
	}
	trip.Status = models.TripCancelled
	trip.CancelledAt = &at
	trip.UpdatedAt = at
	trip.OTPCode = nil
	return true, nil
}

func (f *fakeTripCollection) RateTrip(ctx context.Context, id string, rating int) (bool, error) {
	trip := f.get(id)
	if trip == nil || trip.Status != models.TripCompleted {
		return false, nil
	}
	trip.Rating = &rating
	return true, nil
}

func (f *fakeTripCollection) UnassignDriver(ctx context.Context, driverID primitive.ObjectID) error {
	for _, trip := range f.byID {
		if trip.DriverID != nil && *trip.DriverID == driverID {
			trip.DriverID = nil
		}
	}
	return nil
}

func (f *fakeTripCollection) DeleteTripsByCompany(ctx context.Context, companyUserID primitive.ObjectID) error {
	for id, trip := range f.byID {
		if trip.CompanyID == companyUserID {
			delete(f.byID, id)
		}
	}
	return nil
}

// fakeUserCollection is an in-memory UserCollection keyed by ID.
type fakeUserCollection struct {
	byID map[primitive.ObjectID]*models.User
}

func newFakeUserCollection(users ...*models.User) *fakeUserCollection {
	f := &fakeUserCollection{byID: make(map[primitive.ObjectID]*models.User)}
	for _, user := range users {
		f.byID[user.ID] = user
	}
	return f
}

func (f *fakeUserCollection) InsertUser(ctx context.Context, user models.User) error {
	f.byID[user.ID] = &user
	return nil
}

func (f *fakeUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, db.ErrNotFound
	}
	if user, ok := f.byID[objectID]; ok {
		return user, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range f.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeUserCollection) FindUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	for _, user := range f.byID {
		if user.PhoneNumber == phone {
			return user, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeUserCollection) FindUsers(ctx context.Context, filter bson.M) ([]models.User, error) {
	var users []models.User
	for _, user := range f.byID {
		users = append(users, *user)
	}
	return users, nil
}

func (f *fakeUserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	return nil
}

func (f *fakeUserCollection) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	return nil
}

func (f *fakeUserCollection) DeleteUser(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return db.ErrNotFound
	}
	delete(f.byID, objectID)
	return nil
}

func (f *fakeUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	return nil
}

func newDriver(role models.Role) *models.User {
	return &models.User{
		ID:       primitive.NewObjectID(),
		Email:    "driver@example.com",
		Role:     role,
		IsActive: true,
	}
}

func createTestTrip(t *testing.T, service *Service) *models.Trip {
	t.Helper()
	trip, err := service.Create(context.Background(), primitive.NewObjectID(), CreateInput{
		RecipientName:     "Jane Roe",
		RecipientPhone:    "+447700900456",
		VehicleType:       models.VehicleVan,
		PickupAddress:     "1 Pickup Way",
		DeliveryAddress:   "2 Dropoff Road",
		PickupLatitude:    51.5,
		PickupLongitude:   -0.12,
		DeliveryLatitude:  51.52,
		DeliveryLongitude: -0.08,
		PickupTime:        time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return trip
}

func TestService_Create(t *testing.T) {
	store := newFakeTripCollection()
	service := NewService(store, newFakeUserCollection(), nil)

	trip := createTestTrip(t, service)

	assert.Equal(t, models.TripPending, trip.Status)
	assert.Nil(t, trip.DriverID)
	assert.Nil(t, trip.OTPCode)
	assert.Nil(t, trip.AssignedAt)

	stored := store.byID[trip.ID]
	require.NotNil(t, stored)
	assert.Equal(t, models.TripPending, stored.Status)
}

func TestService_Assign(t *testing.T) {
	t.Run("pending trip to company driver", func(t *testing.T) {
		store := newFakeTripCollection()
		driver := newDriver(models.RoleCompanyDriver)
		service := NewService(store, newFakeUserCollection(driver), nil)
		trip := createTestTrip(t, service)

		err := service.Assign(context.Background(), trip.ID.Hex(), driver.ID.Hex())
		assert.NoError(t, err)

		stored := store.byID[trip.ID]
		assert.Equal(t, models.TripAssigned, stored.Status)
		require.NotNil(t, stored.DriverID)
		assert.Equal(t, driver.ID, *stored.DriverID)
		require.NotNil(t, stored.OTPCode)
		assert.Len(t, *stored.OTPCode, 6)
		assert.NotNil(t, stored.AssignedAt)
	})

	t.Run("driver not found", func(t *testing.T) {
		store := newFakeTripCollection()
		service := NewService(store, newFakeUserCollection(), nil)
		trip := createTestTrip(t, service)

		err := service.Assign(context.Background(), trip.ID.Hex(), primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("individual driver not assignable", func(t *testing.T) {
		store := newFakeTripCollection()
		driver := newDriver(models.RoleIndividualDriver)
		service := NewService(store, newFakeUserCollection(driver), nil)
		trip := createTestTrip(t, service)

		err := service.Assign(context.Background(), trip.ID.Hex(), driver.ID.Hex())
		assert.ErrorIs(t, err, ErrInvalidAssignee)
		assert.Equal(t, models.TripPending, store.byID[trip.ID].Status)
	})

	t.Run("already assigned", func(t *testing.T) {
		store := newFakeTripCollection()
		driver := newDriver(models.RoleCompanyDriver)
		service := NewService(store, newFakeUserCollection(driver), nil)
		trip := createTestTrip(t, service)

		require.NoError(t, service.Assign(context.Background(), trip.ID.Hex(), driver.ID.Hex()))
		firstOTP := *store.byID[trip.ID].OTPCode

		err := service.Assign(context.Background(), trip.ID.Hex(), driver.ID.Hex())
		var invalidState *InvalidStateError
		require.ErrorAs(t, err, &invalidState)
		assert.Equal(t, "assign", invalidState.Op)
		assert.Equal(t, models.TripAssigned, invalidState.Status)

		// The OTP issued by the first assignment survives the failed retry.
		assert.Equal(t, firstOTP, *store.byID[trip.ID].OTPCode)
	})

	t.Run("trip not found", func(t *testing.T) {
		service := NewService(newFakeTripCollection(), newFakeUserCollection(), nil)
		err := service.Assign(context.Background(), primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrTripNotFound)
	})
}

func TestService_Start(t *testing.T) {
	t.Run("assigned trip", func(t *testing.T) {
		store := newFakeTripCollection()
		driver := newDriver(models.RoleCompanyDriver)
		service := NewService(store, newFakeUserCollection(driver), nil)
		trip := createTestTrip(t, service)
		require.NoError(t, service.Assign(context.Background(), trip.ID.Hex(), driver.ID.Hex()))

		err := service.Start(context.Background(), trip.ID.Hex())
		assert.NoError(t, err)

		stored := store.byID[trip.ID]
		assert.Equal(t, models.TripInProgress, stored.Status)
		assert.NotNil(t, stored.StartedAt)
		// The OTP issued at assignment is still outstanding.
		assert.NotNil(t, stored.OTPCode)
	})

	t.Run("pending trip cannot start", func(t *testing.T) {
		store := newFakeTripCollection()
		service := NewService(store, newFakeUserCollection(), nil)
		trip := createTestTrip(t, service)

		err := service.Start(context.Background(), trip.ID.Hex())
		var invalidState *InvalidStateError
		require.ErrorAs(t, err, &invalidState)
		assert.Equal(t, models.TripPending, invalidState.Status)
	})
}

func TestService_Confirm(t *testing.T) {
	setup := func(t *testing.T) (*fakeTripCollection, *Service, *models.Trip, string) {
		store := newFakeTripCollection()
		driver := newDriver(models.RoleCompanyDriver)
		service := NewService(store, newFakeUserCollection(driver), nil)
		trip := createTestTrip(t, service)
		require.NoError(t, service.Assign(context.Background(), trip.ID.Hex(), driver.ID.Hex()))
		require.NoError(t, service.Start(context.Background(), trip.ID.Hex()))
		return store, service, trip, *store.byID[trip.ID].OTPCode
	}

	t.Run("correct OTP completes trip", func(t *testing.T) {
		store, service, trip, otp := setup(t)

		err := service.Confirm(context.Background(), trip.ID.Hex(), otp)
		assert.NoError(t, err)

		stored := store.byID[trip.ID]
		assert.Equal(t, models.TripCompleted, stored.Status)
		assert.NotNil(t, stored.CompletedAt)
		assert.Nil(t, stored.OTPCode, "OTP must be cleared on completion")
	})

	t.Run("wrong OTP rejected", func(t *testing.T) {
		store, service, trip, otp := setup(t)
		wrong := "000000"
		if wrong == otp {
			wrong = "000001"
		}

		err := service.Confirm(context.Background(), trip.ID.Hex(), wrong)
		assert.ErrorIs(t, err, ErrOTPMismatch)
		assert.Equal(t, models.TripInProgress, store.byID[trip.ID].Status)
	})

	t.Run("OTP is single use", func(t *testing.T) {
		_, service, trip, otp := setup(t)

		require.NoError(t, service.Confirm(context.Background(), trip.ID.Hex(), otp))

		err := service.Confirm(context.Background(), trip.ID.Hex(), otp)
		assert.ErrorIs(t, err, ErrOTPNotIssued)
	})

	t.Run("no OTP outstanding", func(t *testing.T) {
		store := newFakeTripCollection()
		service := NewService(store, newFakeUserCollection(), nil)
		trip := createTestTrip(t, service)

		err := service.Confirm(context.Background(), trip.ID.Hex(), "123456")
		assert.ErrorIs(t, err, ErrOTPNotIssued)
	})
}

func TestService_Cancel(t *testing.T) {
	t.Run("pending trip", func(t *testing.T) {
		store := newFakeTripCollection()
		service := NewService(store, newFakeUserCollection(), nil)
		trip := createTestTrip(t, service)

		err := service.Cancel(context.Background(), trip.ID.Hex())
		assert.NoError(t, err)

		stored := store.byID[trip.ID]
		assert.Equal(t, models.TripCancelled, stored.Status)
		assert.NotNil(t, stored.CancelledAt)
		assert.Nil(t, stored.OTPCode)
	})

	t.Run("assigned trip cannot be cancelled", func(t *testing.T) {
		store := newFakeTripCollection()
		driver := newDriver(models.RoleCompanyDriver)
		service := NewService(store, newFakeUserCollection(driver), nil)
		trip := createTestTrip(t, service)
		require.NoError(t, service.Assign(context.Background(), trip.ID.Hex(), driver.ID.Hex()))

		err := service.Cancel(context.Background(), trip.ID.Hex())
		var invalidState *InvalidStateError
		require.ErrorAs(t, err, &invalidState)
		assert.Equal(t, "cancel", invalidState.Op)
		assert.Equal(t, models.TripAssigned, invalidState.Status)
	})
}

func TestService_Rate(t *testing.T) {
	completedTrip := func(t *testing.T) (*fakeTripCollection, *Service, *models.Trip) {
		store := newFakeTripCollection()
		driver := newDriver(models.RoleCompanyDriver)
		service := NewService(store, newFakeUserCollection(driver), nil)
		trip := createTestTrip(t, service)
		require.NoError(t, service.Assign(context.Background(), trip.ID.Hex(), driver.ID.Hex()))
		require.NoError(t, service.Start(context.Background(), trip.ID.Hex()))
		otp := *store.byID[trip.ID].OTPCode
		require.NoError(t, service.Confirm(context.Background(), trip.ID.Hex(), otp))
		return store, service, trip
	}

	t.Run("completed trip", func(t *testing.T) {
		store, service, trip := completedTrip(t)

		err := service.Rate(context.Background(), trip.ID.Hex(), 5)
		assert.NoError(t, err)
		require.NotNil(t, store.byID[trip.ID].Rating)
		assert.Equal(t, 5, *store.byID[trip.ID].Rating)
	})

	t.Run("rating out of range", func(t *testing.T) {
		_, service, trip := completedTrip(t)

		assert.ErrorIs(t, service.Rate(context.Background(), trip.ID.Hex(), 0), ErrInvalidRating)
		assert.ErrorIs(t, service.Rate(context.Background(), trip.ID.Hex(), 6), ErrInvalidRating)
	})

	t.Run("pending trip not rateable", func(t *testing.T) {
		store := newFakeTripCollection()
		service := NewService(store, newFakeUserCollection(), nil)
		trip := createTestTrip(t, service)

		err := service.Rate(context.Background(), trip.ID.Hex(), 4)
		assert.ErrorIs(t, err, ErrNotRateable)
	})
}

// racingTripCollection reports a stale read: FindTripByID returns PENDING but
// the guarded update matches nothing, as happens when a concurrent transition
// lands between the read and the write.
type racingTripCollection struct {
	*fakeTripCollection
	staleStatus models.TripStatus
	raceOnce    bool
}

func (r *racingTripCollection) FindTripByID(ctx context.Context, id string) (*models.Trip, error) {
	trip, err := r.fakeTripCollection.FindTripByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.raceOnce {
		r.raceOnce = true
		trip.Status = r.staleStatus
	}
	return trip, nil
}

func TestService_Assign_LostRace(t *testing.T) {
	store := newFakeTripCollection()
	driver := newDriver(models.RoleCompanyDriver)
	racing := &racingTripCollection{fakeTripCollection: store, staleStatus: models.TripPending}
	service := NewService(racing, newFakeUserCollection(driver), nil)

	trip := createTestTrip(t, service)
	// The stored trip was cancelled after our (stale) read saw PENDING.
	store.byID[trip.ID].Status = models.TripCancelled

	err := service.Assign(context.Background(), trip.ID.Hex(), driver.ID.Hex())
	var invalidState *InvalidStateError
	require.ErrorAs(t, err, &invalidState)
	assert.Equal(t, models.TripCancelled, invalidState.Status)
}

func TestService_FullLifecycle(t *testing.T) {
	store := newFakeTripCollection()
	driver := newDriver(models.RoleCompanyDriver)
	service := NewService(store, newFakeUserCollection(driver), nil)

	trip := createTestTrip(t, service)
	ctx := context.Background()

	require.NoError(t, service.Assign(ctx, trip.ID.Hex(), driver.ID.Hex()))
	require.NoError(t, service.Start(ctx, trip.ID.Hex()))
	otp := *store.byID[trip.ID].OTPCode
	require.NoError(t, service.Confirm(ctx, trip.ID.Hex(), otp))
	require.NoError(t, service.Rate(ctx, trip.ID.Hex(), 5))

	stored := store.byID[trip.ID]
	assert.Equal(t, models.TripCompleted, stored.Status)
	assert.NotNil(t, stored.AssignedAt)
	assert.NotNil(t, stored.StartedAt)
	assert.NotNil(t, stored.CompletedAt)
	assert.Nil(t, stored.CancelledAt)
	assert.Nil(t, stored.OTPCode)

	// No further transition is possible from COMPLETED.
	err := service.Cancel(ctx, trip.ID.Hex())
	var invalidState *InvalidStateError
	assert.True(t, errors.As(err, &invalidState))
}
