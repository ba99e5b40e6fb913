package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dispatchly/lastmile/internal/db"
	"github.com/dispatchly/lastmile/internal/middleware"
	"github.com/dispatchly/lastmile/internal/models"
)

// CompanyHandler handles company requests
type CompanyHandler struct {
	companies   db.CompanyCollection
	memberships db.MembershipCollection
	users       db.UserCollection
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(companies db.CompanyCollection, memberships db.MembershipCollection, users db.UserCollection) *CompanyHandler {
	return &CompanyHandler{
		companies:   companies,
		memberships: memberships,
		users:       users,
	}
}

// GetMine returns the company owned by the current user.
func (h *CompanyHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	claims, ownerID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}
	_ = claims

	company, err := h.companies.FindCompanyByOwner(r.Context(), ownerID)
	if err != nil {
		http.Error(w, "Company not found", notFoundStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(company)
}

// UpdateMine updates the company owned by the current user. The invite code
// and owner are not editable.
func (h *CompanyHandler) UpdateMine(w http.ResponseWriter, r *http.Request) {
	_, ownerID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	company, err := h.companies.FindCompanyByOwner(r.Context(), ownerID)
	if err != nil {
		http.Error(w, "Company not found", notFoundStatus(err))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var updateReq struct {
		Name        string `json:"name"`
		Address     string `json:"address"`
		PhoneNumber string `json:"phone_number"`
		Email       string `json:"email"`
		Website     string `json:"website"`
	}
	if err := json.Unmarshal(body, &updateReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if updateReq.Name != "" {
		company.Name = updateReq.Name
	}
	if updateReq.Address != "" {
		company.Address = updateReq.Address
	}
	if updateReq.PhoneNumber != "" {
		company.PhoneNumber = updateReq.PhoneNumber
	}
	if updateReq.Email != "" {
		company.Email = updateReq.Email
	}
	if updateReq.Website != "" {
		company.Website = updateReq.Website
	}

	if err := h.companies.UpdateCompany(r.Context(), company.ID.Hex(), *company); err != nil {
		http.Error(w, "Failed to update company", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(company)
}

// ListDrivers lists driver memberships of the current user's company.
func (h *CompanyHandler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	_, ownerID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	company, err := h.companies.FindCompanyByOwner(r.Context(), ownerID)
	if err != nil {
		http.Error(w, "Company not found", notFoundStatus(err))
		return
	}

	drivers, err := h.memberships.FindCompanyDrivers(r.Context(), company.ID)
	if err != nil {
		http.Error(w, "Failed to list drivers", http.StatusInternalServerError)
		return
	}
	if drivers == nil {
		drivers = []models.CompanyDriver{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(drivers)
}

// Join adds the current user to a company via its invite code.
func (h *CompanyHandler) Join(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	if !models.CanJoinCompany(claims.Role) {
		http.Error(w, "User must have COMPANY_DRIVER or COMPANY_OWNER role to join a company", http.StatusForbidden)
		return
	}

	var req struct {
		InviteCode string `json:"invite_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InviteCode == "" {
		http.Error(w, "invite_code is required", http.StatusBadRequest)
		return
	}

	company, err := h.companies.FindCompanyByInviteCode(r.Context(), req.InviteCode)
	if err != nil {
		http.Error(w, "Invalid invite code", notFoundStatus(err))
		return
	}

	driverID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	membership, err := h.memberships.AddDriver(r.Context(), company.ID, driverID)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyMember) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "Failed to join company", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(membership)
}

func ownerFromContext(w http.ResponseWriter, r *http.Request) (*models.Claims, primitive.ObjectID, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return nil, primitive.NilObjectID, false
	}
	ownerID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return nil, primitive.NilObjectID, false
	}
	return claims, ownerID, true
}
