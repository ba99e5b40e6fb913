package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dispatchly/lastmile/internal/db"
	"github.com/dispatchly/lastmile/internal/middleware"
)

// DriverHandler handles driver profile requests
type DriverHandler struct {
	profiles db.DriverProfileCollection
}

// NewDriverHandler creates a new driver profile handler
func NewDriverHandler(profiles db.DriverProfileCollection) *DriverHandler {
	return &DriverHandler{profiles: profiles}
}

// GetProfile returns the current driver's profile.
func (h *DriverHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.FindDriverProfileByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "Driver profile not found", notFoundStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// UpdateProfile updates the current driver's profile. Verification fields are
// not editable by the driver.
func (h *DriverHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.FindDriverProfileByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "Driver profile not found", notFoundStatus(err))
		return
	}

	var updateReq struct {
		Address               string     `json:"address"`
		City                  string     `json:"city"`
		State                 string     `json:"state"`
		ZipCode               string     `json:"zip_code"`
		Country               string     `json:"country"`
		DateOfBirth           *time.Time `json:"date_of_birth"`
		LicenseNumber         string     `json:"license_number"`
		LicenseClass          string     `json:"license_class"`
		LicenseExpiry         *time.Time `json:"license_expiry"`
		EmergencyContactName  string     `json:"emergency_contact_name"`
		EmergencyContactPhone string     `json:"emergency_contact_phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if updateReq.Address != "" {
		profile.Address = updateReq.Address
	}
	if updateReq.City != "" {
		profile.City = updateReq.City
	}
	if updateReq.State != "" {
		profile.State = updateReq.State
	}
	if updateReq.ZipCode != "" {
		profile.ZipCode = updateReq.ZipCode
	}
	if updateReq.Country != "" {
		profile.Country = updateReq.Country
	}
	if updateReq.DateOfBirth != nil {
		profile.DateOfBirth = updateReq.DateOfBirth
	}
	if updateReq.LicenseNumber != "" {
		profile.LicenseNumber = updateReq.LicenseNumber
	}
	if updateReq.LicenseClass != "" {
		profile.LicenseClass = updateReq.LicenseClass
	}
	if updateReq.LicenseExpiry != nil {
		profile.LicenseExpiry = updateReq.LicenseExpiry
	}
	if updateReq.EmergencyContactName != "" {
		profile.EmergencyContactName = updateReq.EmergencyContactName
	}
	if updateReq.EmergencyContactPhone != "" {
		profile.EmergencyContactPhone = updateReq.EmergencyContactPhone
	}

	if err := profile.Validate(time.Now()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.profiles.UpdateDriverProfile(r.Context(), userID, *profile); err != nil {
		http.Error(w, "Failed to update driver profile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// Verify marks a driver's profile as verified. Admin only (route-gated).
func (h *DriverHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserFromContext(r.Context()); !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	userID, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	profile, err := h.profiles.FindDriverProfileByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "Driver profile not found", notFoundStatus(err))
		return
	}

	profile.MarkVerified(time.Now())
	if err := h.profiles.UpdateDriverProfile(r.Context(), userID, *profile); err != nil {
		http.Error(w, "Failed to verify driver profile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}
