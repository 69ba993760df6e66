package links

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service implements link allocation and resolution. Creation walks a fixed
// sequence of gates (access, URL format, short code, per-organization id,
// expiration) and any failure short-circuits with a typed error before the
// record is written.
type Service struct {
	repo  LinkRepository
	guard AccessGuard
	orgs  OrgLookup
	gen   CodeGenerator
	now   func() time.Time
}

func NewService(repo LinkRepository, guard AccessGuard, orgs OrgLookup, gen CodeGenerator) *Service {
	return &Service{
		repo:  repo,
		guard: guard,
		orgs:  orgs,
		gen:   gen,
		now:   time.Now,
	}
}

func (s *Service) CreateLink(ctx context.Context, in CreateLinkInput) (*Link, error) {
	if err := s.checkAccess(ctx, in.OrgID, in.Principal); err != nil {
		return nil, err
	}

	originalURL, err := validateOriginalURL(in.OriginalURL)
	if err != nil {
		return nil, err
	}

	customCode := strings.TrimSpace(in.CustomCode)
	code := customCode
	if customCode != "" {
		if err := ValidateCustomCode(customCode); err != nil {
			return nil, err
		}
		exists, err := s.repo.ExistsByShortCode(ctx, customCode)
		if err != nil {
			return nil, fmt.Errorf("check short code uniqueness: %w", err)
		}
		if exists {
			return nil, ErrCodeTaken
		}
	} else {
		code, err = GenerateUnique(ctx, s.gen, s.repo.ExistsByShortCode)
		if err != nil {
			return nil, err
		}
	}

	orgLinkID, err := s.repo.NextOrgLinkID(ctx, in.OrgID)
	if err != nil {
		return nil, fmt.Errorf("allocate organization link id: %w", err)
	}

	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return nil, ErrInvalidExpiry
	}

	link := &Link{
		ID:          uuid.NewString(),
		OriginalURL: originalURL,
		ShortCode:   code,
		OrgID:       in.OrgID,
		OrgLinkID:   orgLinkID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   in.Principal,
		CreatedAt:   s.now().UTC(),
		ExpiresAt:   in.ExpiresAt,
		Active:      true,
	}

	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.repo.Insert(ctx, link)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, ErrCodeTaken) {
			return nil, fmt.Errorf("insert link: %w", err)
		}
		// A concurrent creation claimed a custom code between the
		// uniqueness check and the insert.
		if customCode != "" {
			return nil, ErrCodeTaken
		}
		link.ShortCode, err = GenerateUnique(ctx, s.gen, s.repo.ExistsByShortCode)
		if err != nil {
			return nil, err
		}
	}

	return nil, ErrCodeTaken
}

// Resolve finds a live link by its global short code and records the click.
func (s *Service) Resolve(ctx context.Context, code string) (*Link, error) {
	return s.resolve(ctx, Ref{ShortCode: strings.TrimSpace(code)})
}

// ResolveByOrgAndID finds a live link by organization id and
// organization-scoped link id and records the click.
func (s *Service) ResolveByOrgAndID(ctx context.Context, orgID string, orgLinkID int64) (*Link, error) {
	if orgID == "" || orgLinkID <= 0 {
		return nil, ErrNotFound
	}
	return s.resolve(ctx, Ref{OrgID: orgID, OrgLinkID: orgLinkID})
}

// ResolveByOrgShortNameAndCode resolves the organization by its short name
// first, then finds the live link with the given code inside it.
func (s *Service) ResolveByOrgShortNameAndCode(ctx context.Context, shortName, code string) (*Link, error) {
	orgID, err := s.orgs.OrgIDByShortName(ctx, strings.TrimSpace(shortName))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("resolve organization short name: %w", err)
	}
	return s.resolve(ctx, Ref{OrgID: orgID, ShortCode: strings.TrimSpace(code)})
}

// resolve is the shared post-lookup protocol for every addressing scheme:
// the repository matches the ref against active, non-expired links and
// increments the click count atomically with the read.
func (s *Service) resolve(ctx context.Context, ref Ref) (*Link, error) {
	if ref.empty() || (ref.ShortCode == "" && ref.OrgLinkID == 0) {
		return nil, ErrNotFound
	}
	return s.repo.ResolveAndRecordClick(ctx, ref, s.now().UTC())
}

// GetLink returns link details to a principal with access to its organization.
func (s *Service) GetLink(ctx context.Context, id, principal string) (*Link, error) {
	link, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx, link.OrgID, principal); err != nil {
		return nil, err
	}
	return link, nil
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// ListByOrganization returns up to limit of the organization's active links.
// A non-positive limit falls back to the default page size.
func (s *Service) ListByOrganization(ctx context.Context, orgID, principal string, limit int) ([]*Link, error) {
	if err := s.checkAccess(ctx, orgID, principal); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListByOrg(ctx, orgID, limit)
}

// UpdateLink modifies mutable link fields. The organization and the
// organization-scoped id are immutable after creation and are never touched.
func (s *Service) UpdateLink(ctx context.Context, id string, in UpdateLinkInput) (*Link, error) {
	link, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx, link.OrgID, in.Principal); err != nil {
		return nil, err
	}

	if in.OriginalURL != "" && in.OriginalURL != link.OriginalURL {
		originalURL, err := validateOriginalURL(in.OriginalURL)
		if err != nil {
			return nil, err
		}
		link.OriginalURL = originalURL
	}

	if code := strings.TrimSpace(in.CustomCode); code != "" && code != link.ShortCode {
		if err := ValidateCustomCode(code); err != nil {
			return nil, err
		}
		exists, err := s.repo.ExistsByShortCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("check short code uniqueness: %w", err)
		}
		if exists {
			return nil, ErrCodeTaken
		}
		link.ShortCode = code
	}

	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(s.now()) {
			return nil, ErrInvalidExpiry
		}
		link.ExpiresAt = in.ExpiresAt
	}
	if in.Title != nil {
		link.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		link.Description = strings.TrimSpace(*in.Description)
	}

	if err := s.repo.Update(ctx, link); err != nil {
		if errors.Is(err, ErrCodeTaken) {
			return nil, ErrCodeTaken
		}
		return nil, fmt.Errorf("update link: %w", err)
	}

	return link, nil
}

// DeactivateLink soft-deletes a link. The record and its organization-scoped
// id survive so the id is never handed out again.
func (s *Service) DeactivateLink(ctx context.Context, id, principal string) error {
	link, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkAccess(ctx, link.OrgID, principal); err != nil {
		return err
	}
	return s.repo.Deactivate(ctx, link.ID)
}

func (s *Service) checkAccess(ctx context.Context, orgID, principal string) error {
	ok, err := s.guard.HasAccess(ctx, orgID, principal)
	if err != nil {
		return fmt.Errorf("check organization access: %w", err)
	}
	if !ok {
		return ErrAccessDenied
	}
	return nil
}

func validateOriginalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "", ErrInvalidURL
	}
	return raw, nil
}
