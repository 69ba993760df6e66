package orgs

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("organization not found")
	ErrNameTaken      = errors.New("organization name taken")
	ErrShortNameTaken = errors.New("organization short name taken")
	ErrInvalidName    = errors.New("invalid organization name")
	ErrAccessDenied   = errors.New("access denied")
	ErrNotOwner       = errors.New("only the organization owner may do this")
)

// OrganizationRepository persists organizations. Unique violations on name
// and short name surface as ErrNameTaken / ErrShortNameTaken.
type OrganizationRepository interface {
	Insert(ctx context.Context, org *Organization) error
	FindByID(ctx context.Context, id string) (*Organization, error)
	FindByShortName(ctx context.Context, shortName string) (*Organization, error)
	Update(ctx context.Context, org *Organization) error
	Deactivate(ctx context.Context, id string) error
	ListForUser(ctx context.Context, userID string) ([]*Organization, error)
}

// MembershipRepository persists organization memberships.
type MembershipRepository interface {
	Add(ctx context.Context, m *Membership) error
	IsActiveMember(ctx context.Context, orgID, userID string) (bool, error)
}
