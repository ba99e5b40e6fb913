package models

// Role represents user roles in the system
type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RoleCompanyOwner     Role = "COMPANY_OWNER"
	RoleIndividualDriver Role = "INDIVIDUAL_DRIVER"
	RoleCompanyDriver    Role = "COMPANY_DRIVER"
)

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleCompanyOwner, RoleIndividualDriver, RoleCompanyDriver:
		return true
	default:
		return false
	}
}

// ProfileKind identifies which auxiliary profile record a role requires.
type ProfileKind int

const (
	NoProfileKind ProfileKind = iota
	AdminProfileKind
	DriverProfileKind
)

// RequiredProfileKind returns the profile kind a role must have.
// All driver-type roles (including company owners) carry a DriverProfile;
// admins carry an AdminProfile.
func RequiredProfileKind(role Role) ProfileKind {
	switch role {
	case RoleAdmin:
		return AdminProfileKind
	case RoleCompanyOwner, RoleIndividualDriver, RoleCompanyDriver:
		return DriverProfileKind
	default:
		return NoProfileKind
	}
}

// RequiresCompany reports whether a role must own a Company.
func RequiresCompany(role Role) bool {
	return role == RoleCompanyOwner
}

// IsDriverRole reports whether a role counts as a driver for profile and
// permission purposes. Company owners drive their own fleets.
func IsDriverRole(role Role) bool {
	switch role {
	case RoleIndividualDriver, RoleCompanyDriver, RoleCompanyOwner:
		return true
	default:
		return false
	}
}

// AssignableAsDriver reports whether a user with this role may be assigned
// to a company trip. Only company drivers are eligible.
func AssignableAsDriver(role Role) bool {
	return role == RoleCompanyDriver
}
