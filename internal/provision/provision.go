// Package provision keeps a user's auxiliary records (admin profile, driver
// profile, owned company) in line with the user's current role.
//
// Reconciliation is additive: changing roles creates whatever the new role
// requires and never deletes records tied to previous roles. It is also
// best-effort and non-blocking: failures are logged and never surfaced to the
// user write that triggered reconciliation.
package provision

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/dispatchly/lastmile/internal/db"
	"github.com/dispatchly/lastmile/internal/models"
)

// Provisioner reconciles auxiliary records after user creation or role changes.
type Provisioner struct {
	companies      db.CompanyCollection
	driverProfiles db.DriverProfileCollection
	adminProfiles  db.AdminProfileCollection
	logger         log.FieldLogger
}

// NewProvisioner creates a new provisioner.
func NewProvisioner(
	companies db.CompanyCollection,
	driverProfiles db.DriverProfileCollection,
	adminProfiles db.AdminProfileCollection,
	logger log.FieldLogger,
) *Provisioner {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Provisioner{
		companies:      companies,
		driverProfiles: driverProfiles,
		adminProfiles:  adminProfiles,
		logger:         logger,
	}
}

// Reconcile ensures the user has every auxiliary record its current role
// requires. Records are created with get-or-create semantics, so calling
// Reconcile repeatedly with an unchanged role produces no additional records.
// The created flag distinguishes the initial-creation path from role-change
// updates; both are additive.
func (p *Provisioner) Reconcile(ctx context.Context, user *models.User, created bool) {
	entry := p.logger.WithFields(log.Fields{
		"user_id": user.ID.Hex(),
		"email":   user.Email,
		"role":    user.Role,
		"created": created,
	})

	switch models.RequiredProfileKind(user.Role) {
	case models.DriverProfileKind:
		_, madeProfile, err := p.driverProfiles.GetOrCreateDriverProfile(ctx, user.ID)
		if err != nil {
			entry.WithError(err).Error("Failed to create driver profile")
		} else if madeProfile {
			entry.Info("Driver profile created")
		}
	case models.AdminProfileKind:
		_, madeProfile, err := p.adminProfiles.GetOrCreateAdminProfile(ctx, user.ID)
		if err != nil {
			entry.WithError(err).Error("Failed to create admin profile")
		} else if madeProfile {
			entry.Info("Admin profile created")
		}
	}

	if models.RequiresCompany(user.Role) {
		_, madeCompany, err := p.companies.GetOrCreateCompany(ctx, models.Company{
			OwnerID:     user.ID,
			Name:        user.FullName() + "'s Company",
			Email:       user.Email,
			PhoneNumber: user.PhoneNumber,
		})
		if err != nil {
			entry.WithError(err).Error("Failed to create company")
		} else if madeCompany {
			entry.Info("Company created")
		}
	}
}
