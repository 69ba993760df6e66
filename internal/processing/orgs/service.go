package orgs

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var shortNamePattern = regexp.MustCompile(`^[a-z0-9-]{3,30}$`)

// Service manages organizations and answers access checks for the link
// allocation path.
type Service struct {
	repo    OrganizationRepository
	members MembershipRepository
	now     func() time.Time
}

func NewService(repo OrganizationRepository, members MembershipRepository) *Service {
	return &Service{
		repo:    repo,
		members: members,
		now:     time.Now,
	}
}

func (s *Service) Create(ctx context.Context, in CreateOrganizationInput) (*Organization, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	shortName := strings.ToLower(strings.TrimSpace(in.ShortName))
	if !shortNamePattern.MatchString(shortName) {
		return nil, ErrInvalidName
	}

	org := &Organization{
		ID:          uuid.NewString(),
		Name:        name,
		ShortName:   shortName,
		Description: strings.TrimSpace(in.Description),
		OwnerID:     in.Principal,
		CreatedAt:   s.now().UTC(),
		Active:      true,
	}

	if err := s.repo.Insert(ctx, org); err != nil {
		if errors.Is(err, ErrNameTaken) || errors.Is(err, ErrShortNameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("insert organization: %w", err)
	}

	// The owner is also recorded as a member so membership queries see them.
	member := &Membership{
		OrgID:    org.ID,
		UserID:   in.Principal,
		Role:     RoleOwner,
		JoinedAt: org.CreatedAt,
		Active:   true,
	}
	if err := s.members.Add(ctx, member); err != nil {
		return nil, fmt.Errorf("add owner membership: %w", err)
	}

	return org, nil
}

func (s *Service) Get(ctx context.Context, orgID, principal string) (*Organization, error) {
	ok, err := s.HasAccess(ctx, orgID, principal)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}
	return s.repo.FindByID(ctx, orgID)
}

func (s *Service) Update(ctx context.Context, orgID string, in UpdateOrganizationInput) (*Organization, error) {
	org, err := s.repo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.OwnerID != in.Principal {
		return nil, ErrNotOwner
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		org.Name = name
	}
	org.Description = strings.TrimSpace(in.Description)

	if err := s.repo.Update(ctx, org); err != nil {
		if errors.Is(err, ErrNameTaken) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("update organization: %w", err)
	}
	return org, nil
}

// Deactivate soft-deletes an organization. Its links keep their ids.
func (s *Service) Deactivate(ctx context.Context, orgID, principal string) error {
	org, err := s.repo.FindByID(ctx, orgID)
	if err != nil {
		return err
	}
	if org.OwnerID != principal {
		return ErrNotOwner
	}
	return s.repo.Deactivate(ctx, orgID)
}

func (s *Service) ListForUser(ctx context.Context, principal string) ([]*Organization, error) {
	return s.repo.ListForUser(ctx, principal)
}

// AddMember grants a user access to the organization. Owner only.
func (s *Service) AddMember(ctx context.Context, orgID, userID, principal string, role Role) (*Membership, error) {
	org, err := s.repo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.OwnerID != principal {
		return nil, ErrNotOwner
	}
	if role == "" {
		role = RoleMember
	}

	member := &Membership{
		OrgID:    orgID,
		UserID:   userID,
		Role:     role,
		JoinedAt: s.now().UTC(),
		Active:   true,
	}
	if err := s.members.Add(ctx, member); err != nil {
		return nil, fmt.Errorf("add membership: %w", err)
	}
	return member, nil
}

// HasAccess reports whether the principal owns the organization or holds an
// active membership. Unknown or deactivated organizations grant no access.
func (s *Service) HasAccess(ctx context.Context, orgID, principal string) (bool, error) {
	if principal == "" {
		return false, nil
	}

	org, err := s.repo.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find organization: %w", err)
	}
	if !org.Active {
		return false, nil
	}
	if org.OwnerID == principal {
		return true, nil
	}

	return s.members.IsActiveMember(ctx, orgID, principal)
}

// FindByShortName returns the active organization with the given short name.
func (s *Service) FindByShortName(ctx context.Context, shortName string) (*Organization, error) {
	org, err := s.repo.FindByShortName(ctx, strings.ToLower(strings.TrimSpace(shortName)))
	if err != nil {
		return nil, err
	}
	if !org.Active {
		return nil, ErrNotFound
	}
	return org, nil
}
