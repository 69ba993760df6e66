package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/orglinks/orglinks/internal/processing/links"
)

// LinkStore is an in-memory links.LinkRepository. A single mutex serializes
// every mutation, which makes the per-organization sequence and the click
// counter trivially atomic. Used by tests and the "memory" storage driver.
type LinkStore struct {
	mu        sync.RWMutex
	byID      map[string]*links.Link
	byCode    map[string]string // short code -> link id, never removed on soft delete
	sequences map[string]int64  // org id -> last issued org link id
}

func NewLinkStore() *LinkStore {
	return &LinkStore{
		byID:      make(map[string]*links.Link),
		byCode:    make(map[string]string),
		sequences: make(map[string]int64),
	}
}

func (s *LinkStore) Insert(_ context.Context, link *links.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byCode[link.ShortCode]; taken {
		return links.ErrCodeTaken
	}

	stored := cloneLink(link)
	s.byID[stored.ID] = stored
	s.byCode[stored.ShortCode] = stored.ID
	return nil
}

func (s *LinkStore) FindByID(_ context.Context, id string) (*links.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.byID[id]
	if !ok {
		return nil, links.ErrNotFound
	}
	return cloneLink(link), nil
}

func (s *LinkStore) FindByRef(_ context.Context, ref links.Ref) (*links.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link := s.findRefLocked(ref)
	if link == nil {
		return nil, links.ErrNotFound
	}
	return cloneLink(link), nil
}

func (s *LinkStore) ExistsByShortCode(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, taken := s.byCode[code]
	return taken, nil
}

func (s *LinkStore) NextOrgLinkID(_ context.Context, orgID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequences[orgID]++
	return s.sequences[orgID], nil
}

func (s *LinkStore) ResolveAndRecordClick(_ context.Context, ref links.Ref, at time.Time) (*links.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link := s.findRefLocked(ref)
	if link == nil {
		return nil, links.ErrNotFound
	}
	if !link.Resolvable(at) {
		if link.Active {
			return nil, links.ErrExpired
		}
		return nil, links.ErrNotFound
	}

	link.ClickCount++
	return cloneLink(link), nil
}

func (s *LinkStore) Update(_ context.Context, link *links.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[link.ID]
	if !ok {
		return links.ErrNotFound
	}

	if link.ShortCode != current.ShortCode {
		if _, taken := s.byCode[link.ShortCode]; taken {
			return links.ErrCodeTaken
		}
		delete(s.byCode, current.ShortCode)
		s.byCode[link.ShortCode] = link.ID
	}

	// The click count and the active flag are owned by the store. The
	// caller's copy may predate clicks or a deactivation that landed after
	// its read, so the stored values win.
	stored := cloneLink(link)
	stored.ClickCount = current.ClickCount
	stored.Active = current.Active
	s.byID[link.ID] = stored
	return nil
}

func (s *LinkStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.byID[id]
	if !ok {
		return links.ErrNotFound
	}
	// Soft delete: the record, its short code and its org link id all stay
	// reserved.
	link.Active = false
	return nil
}

func (s *LinkStore) ListByOrg(_ context.Context, orgID string, limit int) ([]*links.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*links.Link
	for _, link := range s.byID {
		if link.OrgID == orgID && link.Active {
			out = append(out, cloneLink(link))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrgLinkID < out[j].OrgLinkID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// findRefLocked returns the link matching every set field of ref, active or
// not. Callers hold at least the read lock.
func (s *LinkStore) findRefLocked(ref links.Ref) *links.Link {
	if ref.ShortCode != "" {
		id, ok := s.byCode[ref.ShortCode]
		if !ok {
			return nil
		}
		link := s.byID[id]
		if ref.OrgID != "" && link.OrgID != ref.OrgID {
			return nil
		}
		if ref.OrgLinkID != 0 && link.OrgLinkID != ref.OrgLinkID {
			return nil
		}
		return link
	}

	for _, link := range s.byID {
		if link.OrgID == ref.OrgID && link.OrgLinkID == ref.OrgLinkID {
			return link
		}
	}
	return nil
}

func cloneLink(link *links.Link) *links.Link {
	cloned := *link
	if link.ExpiresAt != nil {
		expires := *link.ExpiresAt
		cloned.ExpiresAt = &expires
	}
	return &cloned
}
