package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/orglinks/orglinks/internal/processing/orgs"
)

// OrgStore is an in-memory implementation of both organization repositories.
type OrgStore struct {
	mu          sync.RWMutex
	byID        map[string]*orgs.Organization
	byShortName map[string]string // short name -> org id
	byName      map[string]string // name -> org id
	members     map[string]map[string]*orgs.Membership
}

func NewOrgStore() *OrgStore {
	return &OrgStore{
		byID:        make(map[string]*orgs.Organization),
		byShortName: make(map[string]string),
		byName:      make(map[string]string),
		members:     make(map[string]map[string]*orgs.Membership),
	}
}

func (s *OrgStore) Insert(_ context.Context, org *orgs.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[org.Name]; taken {
		return orgs.ErrNameTaken
	}
	if _, taken := s.byShortName[org.ShortName]; taken {
		return orgs.ErrShortNameTaken
	}

	stored := *org
	s.byID[org.ID] = &stored
	s.byName[org.Name] = org.ID
	s.byShortName[org.ShortName] = org.ID
	return nil
}

func (s *OrgStore) FindByID(_ context.Context, id string) (*orgs.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.byID[id]
	if !ok {
		return nil, orgs.ErrNotFound
	}
	cloned := *org
	return &cloned, nil
}

func (s *OrgStore) FindByShortName(_ context.Context, shortName string) (*orgs.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byShortName[shortName]
	if !ok {
		return nil, orgs.ErrNotFound
	}
	cloned := *s.byID[id]
	return &cloned, nil
}

func (s *OrgStore) Update(_ context.Context, org *orgs.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[org.ID]
	if !ok {
		return orgs.ErrNotFound
	}

	if org.Name != current.Name {
		if _, taken := s.byName[org.Name]; taken {
			return orgs.ErrNameTaken
		}
		delete(s.byName, current.Name)
		s.byName[org.Name] = org.ID
	}

	stored := *org
	s.byID[org.ID] = &stored
	return nil
}

func (s *OrgStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.byID[id]
	if !ok {
		return orgs.ErrNotFound
	}
	org.Active = false
	return nil
}

func (s *OrgStore) ListForUser(_ context.Context, userID string) ([]*orgs.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*orgs.Organization
	for _, org := range s.byID {
		if !org.Active {
			continue
		}
		if org.OwnerID == userID || s.isActiveMemberLocked(org.ID, userID) {
			cloned := *org
			out = append(out, &cloned)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *OrgStore) Add(_ context.Context, member *orgs.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.members[member.OrgID] == nil {
		s.members[member.OrgID] = make(map[string]*orgs.Membership)
	}
	stored := *member
	s.members[member.OrgID][member.UserID] = &stored
	return nil
}

func (s *OrgStore) IsActiveMember(_ context.Context, orgID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.isActiveMemberLocked(orgID, userID), nil
}

func (s *OrgStore) isActiveMemberLocked(orgID, userID string) bool {
	member, ok := s.members[orgID][userID]
	return ok && member.Active
}
