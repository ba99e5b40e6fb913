package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/dispatchly/lastmile/internal/db"
	"github.com/dispatchly/lastmile/internal/models"
)

// UserHandler handles admin-side user management: listing, role changes and
// account deletion with its cascades.
type UserHandler struct {
	users          db.UserCollection
	companies      db.CompanyCollection
	memberships    db.MembershipCollection
	driverProfiles db.DriverProfileCollection
	adminProfiles  db.AdminProfileCollection
	vehicles       db.VehicleCollection
	trips          db.TripCollection
	reconciler     Reconciler
	logger         log.FieldLogger
}

// NewUserHandler creates a new user management handler
func NewUserHandler(
	users db.UserCollection,
	companies db.CompanyCollection,
	memberships db.MembershipCollection,
	driverProfiles db.DriverProfileCollection,
	adminProfiles db.AdminProfileCollection,
	vehicles db.VehicleCollection,
	trips db.TripCollection,
	reconciler Reconciler,
	logger log.FieldLogger,
) *UserHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &UserHandler{
		users:          users,
		companies:      companies,
		memberships:    memberships,
		driverProfiles: driverProfiles,
		adminProfiles:  adminProfiles,
		vehicles:       vehicles,
		trips:          trips,
		reconciler:     reconciler,
		logger:         logger,
	}
}

// List returns all users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.FindUsers(r.Context(), bson.M{})
	if err != nil {
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []models.User{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

// UpdateRole changes a user's role and reconciles its auxiliary records.
// Records required by the previous role are kept.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Role models.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if !models.IsValidRole(req.Role) {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	user, err := h.users.FindUserByID(r.Context(), id)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if err := h.users.UpdateUserRole(r.Context(), id, req.Role); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to update role", http.StatusInternalServerError)
		return
	}

	user.Role = req.Role
	h.reconciler.Reconcile(r.Context(), user, false)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// Delete removes a user and cascades to its owned records: profiles, owned
// company (with its memberships), driver memberships, vehicles and dispatched
// trips. Trips where the user is the assigned driver are retained with the
// driver reference nullified.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	user, err := h.users.FindUserByID(r.Context(), id)
	if err != nil {
		http.Error(w, "User not found", notFoundStatus(err))
		return
	}

	ctx := r.Context()
	entry := h.logger.WithFields(log.Fields{"user_id": id, "email": user.Email})

	if err := h.driverProfiles.DeleteDriverProfileByUser(ctx, user.ID); err != nil {
		entry.WithError(err).Error("Failed to delete driver profile")
	}
	if err := h.adminProfiles.DeleteAdminProfileByUser(ctx, user.ID); err != nil {
		entry.WithError(err).Error("Failed to delete admin profile")
	}
	if err := h.memberships.DeleteMembershipsByDriver(ctx, user.ID); err != nil {
		entry.WithError(err).Error("Failed to delete memberships")
	}
	if err := h.vehicles.DeleteVehiclesByDriver(ctx, user.ID); err != nil {
		entry.WithError(err).Error("Failed to delete vehicles")
	}

	if company, err := h.companies.FindCompanyByOwner(ctx, user.ID); err == nil {
		if err := h.memberships.DeleteMembershipsByCompany(ctx, company.ID); err != nil {
			entry.WithError(err).Error("Failed to delete company memberships")
		}
		if err := h.companies.DeleteCompanyByOwner(ctx, user.ID); err != nil {
			entry.WithError(err).Error("Failed to delete company")
		}
	}

	if err := h.trips.DeleteTripsByCompany(ctx, user.ID); err != nil {
		entry.WithError(err).Error("Failed to delete dispatched trips")
	}
	if err := h.trips.UnassignDriver(ctx, user.ID); err != nil {
		entry.WithError(err).Error("Failed to unassign driver from trips")
	}

	if err := h.users.DeleteUser(ctx, id); err != nil {
		http.Error(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}

	entry.Info("User deleted")
	w.WriteHeader(http.StatusNoContent)
}
