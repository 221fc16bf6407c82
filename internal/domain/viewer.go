package domain

type (
	// Role is the caller's privilege level inside their entity.
	Role string
	// EntityType is the kind of organisation the caller acts for.
	EntityType string
)

// List of roles
const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// List of entity types
const (
	EntityFacility EntityType = "facility"
	EntityCarrier  EntityType = "carrier"
	EntityPlatform EntityType = "platform"
)

// AuthContext identifies the caller of every core operation.
type AuthContext struct {
	UserID     int64
	Role       Role
	EntityType EntityType
	EntityID   int64
}

// IsAdmin reports a platform administrator.
func (a AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin && a.EntityType == EntityPlatform
}

// IsFacility reports a user acting for the given facility.
func (a AuthContext) IsFacility(facilityID int64) bool {
	return a.EntityType == EntityFacility && a.EntityID == facilityID && facilityID > 0
}

// IsCarrier reports a user acting for some carrier.
func (a AuthContext) IsCarrier() bool {
	return a.EntityType == EntityCarrier && a.EntityID > 0
}

// Valid checks that the context names a real user and entity.
func (a AuthContext) Valid() bool {
	if a.UserID <= 0 {
		return false
	}
	if a.Role != RoleAdmin && a.Role != RoleMember {
		return false
	}
	switch a.EntityType {
	case EntityFacility, EntityCarrier:
		return a.EntityID > 0
	case EntityPlatform:
		return true
	}
	return false
}
