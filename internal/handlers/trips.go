package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dispatchly/lastmile/internal/db"
	"github.com/dispatchly/lastmile/internal/middleware"
	"github.com/dispatchly/lastmile/internal/models"
	"github.com/dispatchly/lastmile/internal/trips"
)

// TripService drives trip lifecycle transitions.
type TripService interface {
	Create(ctx context.Context, companyUserID primitive.ObjectID, in trips.CreateInput) (*models.Trip, error)
	Assign(ctx context.Context, tripID, driverID string) error
	Start(ctx context.Context, tripID string) error
	Confirm(ctx context.Context, tripID, otp string) error
	Cancel(ctx context.Context, tripID string) error
	Rate(ctx context.Context, tripID string, rating int) error
}

// TripHandler handles trip requests
type TripHandler struct {
	service  TripService
	trips    db.TripCollection
	validate *validator.Validate
}

// NewTripHandler creates a new trip handler
func NewTripHandler(service TripService, tripCollection db.TripCollection) *TripHandler {
	return &TripHandler{
		service:  service,
		trips:    tripCollection,
		validate: validator.New(),
	}
}

// tripView shapes a trip for serialization. The OTP code is exposed only to
// the assigned driver.
type tripView struct {
	models.Trip
	OTPCode *string `json:"otp_code,omitempty"`
}

func viewFor(trip *models.Trip, claims *models.Claims) tripView {
	view := tripView{Trip: *trip}
	if trip.DriverID != nil && trip.DriverID.Hex() == claims.UserID {
		view.OTPCode = trip.OTPCode
	}
	return view
}

// Create creates a PENDING trip dispatched by the current user.
func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var in trips.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !models.IsValidVehicleType(in.VehicleType) {
		http.Error(w, "Invalid vehicle type", http.StatusBadRequest)
		return
	}

	companyUserID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	trip, err := h.service.Create(r.Context(), companyUserID, in)
	if err != nil {
		http.Error(w, "Failed to create trip", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(viewFor(trip, claims))
}

// List returns trips dispatched by the current user.
func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	companyUserID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	tripList, err := h.trips.FindTripsByCompany(r.Context(), companyUserID)
	if err != nil {
		http.Error(w, "Failed to list trips", http.StatusInternalServerError)
		return
	}

	views := make([]tripView, 0, len(tripList))
	for i := range tripList {
		views = append(views, viewFor(&tripList[i], claims))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// ListAssigned returns trips assigned to the current driver.
func (h *TripHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	driverID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	tripList, err := h.trips.FindTripsByDriver(r.Context(), driverID)
	if err != nil {
		http.Error(w, "Failed to list trips", http.StatusInternalServerError)
		return
	}

	views := make([]tripView, 0, len(tripList))
	for i := range tripList {
		views = append(views, viewFor(&tripList[i], claims))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// Get returns a single trip. Only the dispatching user, the assigned driver
// and admins may see it.
func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, trip, ok := h.loadTrip(w, r)
	if !ok {
		return
	}

	if !canViewTrip(trip, claims) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(viewFor(trip, claims))
}

// Assign assigns a trip to a company driver. Only the dispatching user may
// assign; the assignee's role is re-checked inside the state machine.
func (h *TripHandler) Assign(w http.ResponseWriter, r *http.Request) {
	claims, trip, ok := h.loadTrip(w, r)
	if !ok {
		return
	}
	if !isDispatcher(trip, claims) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	var req struct {
		DriverID string `json:"driver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DriverID == "" {
		http.Error(w, "driver_id is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Assign(r.Context(), trip.ID.Hex(), req.DriverID); err != nil {
		writeTripError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Trip assigned"})
}

// Start moves an assigned trip to IN_PROGRESS. Only the assigned driver may
// start it.
func (h *TripHandler) Start(w http.ResponseWriter, r *http.Request) {
	claims, trip, ok := h.loadTrip(w, r)
	if !ok {
		return
	}
	if !isAssignedDriver(trip, claims) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	if err := h.service.Start(r.Context(), trip.ID.Hex()); err != nil {
		writeTripError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Trip started"})
}

// Confirm completes a trip with the recipient's OTP. Only the assigned
// driver may confirm.
func (h *TripHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	claims, trip, ok := h.loadTrip(w, r)
	if !ok {
		return
	}
	if !isAssignedDriver(trip, claims) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	var req struct {
		OTP string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OTP == "" {
		http.Error(w, "otp is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Confirm(r.Context(), trip.ID.Hex(), req.OTP); err != nil {
		writeTripError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "OTP confirmed"})
}

// Cancel cancels a pending trip. Only the dispatching user may cancel.
func (h *TripHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, trip, ok := h.loadTrip(w, r)
	if !ok {
		return
	}
	if !isDispatcher(trip, claims) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	if err := h.service.Cancel(r.Context(), trip.ID.Hex()); err != nil {
		writeTripError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Trip cancelled"})
}

// Rate records a rating on a completed trip. Only the dispatching user may
// rate.
func (h *TripHandler) Rate(w http.ResponseWriter, r *http.Request) {
	claims, trip, ok := h.loadTrip(w, r)
	if !ok {
		return
	}
	if !isDispatcher(trip, claims) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	var req struct {
		Rating int `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.service.Rate(r.Context(), trip.ID.Hex(), req.Rating); err != nil {
		writeTripError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Trip rated"})
}

func (h *TripHandler) loadTrip(w http.ResponseWriter, r *http.Request) (*models.Claims, *models.Trip, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return nil, nil, false
	}

	trip, err := h.trips.FindTripByID(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "Trip not found", notFoundStatus(err))
		return nil, nil, false
	}
	return claims, trip, true
}

func isDispatcher(trip *models.Trip, claims *models.Claims) bool {
	return trip.CompanyID.Hex() == claims.UserID || claims.Role == models.RoleAdmin
}

func isAssignedDriver(trip *models.Trip, claims *models.Claims) bool {
	return trip.DriverID != nil && trip.DriverID.Hex() == claims.UserID
}

func canViewTrip(trip *models.Trip, claims *models.Claims) bool {
	return isDispatcher(trip, claims) || isAssignedDriver(trip, claims)
}

// writeTripError maps state machine errors to HTTP responses.
func writeTripError(w http.ResponseWriter, err error) {
	var invalidState *trips.InvalidStateError
	switch {
	case errors.Is(err, trips.ErrTripNotFound), errors.Is(err, trips.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &invalidState),
		errors.Is(err, trips.ErrInvalidAssignee),
		errors.Is(err, trips.ErrOTPNotIssued),
		errors.Is(err, trips.ErrOTPMismatch),
		errors.Is(err, trips.ErrNotRateable),
		errors.Is(err, trips.ErrInvalidRating):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
