package orgs

import "time"

// Organization is a namespace for short links. ShortName is the URL-facing
// token used by the /s/{org}/{code} addressing scheme.
type Organization struct {
	ID          string
	Name        string
	ShortName   string
	Description string
	OwnerID     string
	CreatedAt   time.Time
	Active      bool
}

type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Membership ties a principal to an organization. Inactive memberships are
// kept for audit but grant no access.
type Membership struct {
	OrgID    string
	UserID   string
	Role     Role
	JoinedAt time.Time
	Active   bool
}

type CreateOrganizationInput struct {
	Name        string
	ShortName   string
	Description string
	Principal   string
}

type UpdateOrganizationInput struct {
	Name        string
	Description string
	Principal   string
}
