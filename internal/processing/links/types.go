package links

import "time"

// Link maps a short code to a target URL within an organization.
type Link struct {
	ID          string
	OriginalURL string
	ShortCode   string
	OrgID       string
	OrgLinkID   int64
	Title       string
	Description string
	CreatedBy   string
	ClickCount  int64
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	Active      bool
}

// Resolvable reports whether the link can still serve redirects at the given
// instant: it must be active and not past its expiration.
func (l *Link) Resolvable(at time.Time) bool {
	if !l.Active {
		return false
	}
	if l.ExpiresAt != nil && !l.ExpiresAt.After(at) {
		return false
	}
	return true
}

// Ref addresses a link under one of the supported schemes: by global short
// code, by organization + organization-scoped id, or by organization-scoped
// short code. Exactly the set fields are matched.
type Ref struct {
	ShortCode string
	OrgID     string
	OrgLinkID int64
}

func (r Ref) empty() bool {
	return r.ShortCode == "" && r.OrgID == "" && r.OrgLinkID == 0
}

type CreateLinkInput struct {
	OrgID       string
	Principal   string
	OriginalURL string
	CustomCode  string
	Title       string
	Description string
	ExpiresAt   *time.Time
}

// UpdateLinkInput carries a partial update. Every field left at its zero
// value keeps the stored value, so an expiration can be moved but not
// cleared through an update.
type UpdateLinkInput struct {
	Principal   string
	OriginalURL string     // empty means unchanged
	CustomCode  string     // empty means unchanged
	Title       *string    // nil means unchanged
	Description *string    // nil means unchanged
	ExpiresAt   *time.Time // nil means unchanged
}
