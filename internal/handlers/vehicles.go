package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dispatchly/lastmile/internal/db"
	"github.com/dispatchly/lastmile/internal/models"
)

// VehicleHandler handles vehicle requests
type VehicleHandler struct {
	vehicles db.VehicleCollection
	validate *validator.Validate
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(vehicles db.VehicleCollection) *VehicleHandler {
	return &VehicleHandler{
		vehicles: vehicles,
		validate: validator.New(),
	}
}

type vehicleRequest struct {
	Type               models.VehicleType `json:"type" validate:"required"`
	Brand              string             `json:"brand" validate:"required,max=255"`
	Model              string             `json:"model" validate:"required,max=255"`
	Year               int                `json:"year" validate:"required,gte=1950"`
	LicenseNumber      string             `json:"license_number" validate:"required,max=255"`
	RegistrationNumber string             `json:"registration_number" validate:"required,max=255"`
	ExpiryDate         time.Time          `json:"expiry_date" validate:"required"`
	Colour             string             `json:"colour" validate:"required,max=255"`
}

// Create registers a vehicle owned by the current driver.
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	_, driverID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !models.IsValidVehicleType(req.Type) {
		http.Error(w, "Invalid vehicle type", http.StatusBadRequest)
		return
	}

	vehicle := models.Vehicle{
		ID:                 primitive.NewObjectID(),
		DriverID:           driverID,
		Type:               req.Type,
		Brand:              req.Brand,
		Model:              req.Model,
		Year:               req.Year,
		LicenseNumber:      req.LicenseNumber,
		RegistrationNumber: req.RegistrationNumber,
		ExpiryDate:         req.ExpiryDate,
		Colour:             req.Colour,
	}

	if err := h.vehicles.InsertVehicle(r.Context(), vehicle); err != nil {
		http.Error(w, "Failed to create vehicle", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(vehicle)
}

// List returns the current driver's vehicles.
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	_, driverID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	vehicles, err := h.vehicles.FindVehiclesByDriver(r.Context(), driverID)
	if err != nil {
		http.Error(w, "Failed to list vehicles", http.StatusInternalServerError)
		return
	}
	if vehicles == nil {
		vehicles = []models.Vehicle{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vehicles)
}

// Get returns one of the current driver's vehicles.
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, driverID, vehicle, ok := h.loadOwnedVehicle(w, r)
	if !ok {
		return
	}
	_ = driverID

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vehicle)
}

// Update modifies one of the current driver's vehicles.
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, _, vehicle, ok := h.loadOwnedVehicle(w, r)
	if !ok {
		return
	}

	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !models.IsValidVehicleType(req.Type) {
		http.Error(w, "Invalid vehicle type", http.StatusBadRequest)
		return
	}

	vehicle.Type = req.Type
	vehicle.Brand = req.Brand
	vehicle.Model = req.Model
	vehicle.Year = req.Year
	vehicle.LicenseNumber = req.LicenseNumber
	vehicle.RegistrationNumber = req.RegistrationNumber
	vehicle.ExpiryDate = req.ExpiryDate
	vehicle.Colour = req.Colour

	if err := h.vehicles.UpdateVehicle(r.Context(), vehicle.ID.Hex(), *vehicle); err != nil {
		http.Error(w, "Failed to update vehicle", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vehicle)
}

// Delete removes one of the current driver's vehicles.
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, _, vehicle, ok := h.loadOwnedVehicle(w, r)
	if !ok {
		return
	}

	if err := h.vehicles.DeleteVehicle(r.Context(), vehicle.ID.Hex()); err != nil {
		http.Error(w, "Failed to delete vehicle", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *VehicleHandler) loadOwnedVehicle(w http.ResponseWriter, r *http.Request) (*models.Claims, primitive.ObjectID, *models.Vehicle, bool) {
	claims, driverID, ok := ownerFromContext(w, r)
	if !ok {
		return nil, primitive.NilObjectID, nil, false
	}

	vehicle, err := h.vehicles.FindVehicleByID(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "Vehicle not found", notFoundStatus(err))
		return nil, primitive.NilObjectID, nil, false
	}
	if vehicle.DriverID != driverID && claims.Role != models.RoleAdmin {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return nil, primitive.NilObjectID, nil, false
	}
	return claims, driverID, vehicle, true
}
