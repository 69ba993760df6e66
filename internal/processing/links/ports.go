package links

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("link not found")
	ErrExpired       = errors.New("link expired")
	ErrInvalidURL    = errors.New("invalid url")
	ErrInvalidCode   = errors.New("invalid short code")
	ErrCodeTaken     = errors.New("short code taken")
	ErrInvalidExpiry = errors.New("expiration must be in the future")
	ErrAccessDenied  = errors.New("access denied")
)

// LinkRepository persists link records. Implementations must report unique
// short code violations as ErrCodeTaken.
type LinkRepository interface {
	Insert(ctx context.Context, link *Link) error
	FindByID(ctx context.Context, id string) (*Link, error)
	FindByRef(ctx context.Context, ref Ref) (*Link, error)
	ExistsByShortCode(ctx context.Context, code string) (bool, error)

	// NextOrgLinkID atomically advances the per-organization sequence and
	// returns the next id, starting at 1. Ids handed out are never reused,
	// even when the creation that consumed one is later abandoned.
	NextOrgLinkID(ctx context.Context, orgID string) (int64, error)

	// ResolveAndRecordClick finds the resolvable link matching ref and
	// increments its click count in a single atomic step, returning the
	// updated record. It returns ErrExpired for a link that exists and is
	// active but past its expiration, ErrNotFound otherwise.
	ResolveAndRecordClick(ctx context.Context, ref Ref, at time.Time) (*Link, error)

	// Update writes the caller-mutable fields. The click count and the
	// active flag are owned by the store and are never overwritten, so a
	// click or deactivation landing after the caller's read survives.
	Update(ctx context.Context, link *Link) error

	Deactivate(ctx context.Context, id string) error

	// ListByOrg returns the organization's active links ordered by their
	// organization-scoped id, at most limit of them. limit must be positive.
	ListByOrg(ctx context.Context, orgID string, limit int) ([]*Link, error)
}

// AccessGuard answers whether a principal may act on an organization.
type AccessGuard interface {
	HasAccess(ctx context.Context, orgID, principal string) (bool, error)
}

// OrgLookup resolves an organization short name to its id. Implementations
// return ErrNotFound for unknown or inactive organizations.
type OrgLookup interface {
	OrgIDByShortName(ctx context.Context, shortName string) (string, error)
}

// CodeGenerator produces short code candidates.
type CodeGenerator interface {
	Generate() (string, error)
}
