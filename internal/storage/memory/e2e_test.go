package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/orglinks/orglinks/internal/processing/links"
	"github.com/orglinks/orglinks/internal/processing/orgs"
)

// orgDirectory adapts the organization service to the lookup the link
// service expects, translating the not-found sentinel between packages.
type orgDirectory struct {
	svc *orgs.Service
}

func (d orgDirectory) OrgIDByShortName(ctx context.Context, shortName string) (string, error) {
	org, err := d.svc.FindByShortName(ctx, shortName)
	if err != nil {
		if errors.Is(err, orgs.ErrNotFound) {
			return "", links.ErrNotFound
		}
		return "", err
	}
	return org.ID, nil
}

type stack struct {
	links *links.Service
	orgs  *orgs.Service
}

func newStack() *stack {
	orgStore := NewOrgStore()
	orgSvc := orgs.NewService(orgStore, orgStore)
	linkSvc := links.NewService(NewLinkStore(), orgSvc, orgDirectory{svc: orgSvc}, links.NewCryptoCodeGenerator(6))
	return &stack{links: linkSvc, orgs: orgSvc}
}

func (s *stack) createOrg(t *testing.T, name, shortName, owner string) *orgs.Organization {
	t.Helper()
	org, err := s.orgs.Create(context.Background(), orgs.CreateOrganizationInput{
		Name:      name,
		ShortName: shortName,
		Principal: owner,
	})
	if err != nil {
		t.Fatalf("create organization %q: %v", name, err)
	}
	return org
}

func TestFullStack_CreateAndResolveAllSchemes(t *testing.T) {
	s := newStack()
	ctx := context.Background()
	org := s.createOrg(t, "Acme Corp", "acme", "user-1")

	link, err := s.links.CreateLink(ctx, links.CreateLinkInput{
		OrgID:       org.ID,
		Principal:   "user-1",
		OriginalURL: "https://example.com/landing",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(link.ShortCode) != 6 {
		t.Errorf("generated code %q should be 6 characters", link.ShortCode)
	}
	if link.OrgLinkID != 1 {
		t.Errorf("first link of an organization should get id 1, got %d", link.OrgLinkID)
	}
	if link.ClickCount != 0 {
		t.Errorf("fresh link has %d clicks", link.ClickCount)
	}

	resolutions := []func() (*links.Link, error){
		func() (*links.Link, error) { return s.links.Resolve(ctx, link.ShortCode) },
		func() (*links.Link, error) { return s.links.ResolveByOrgAndID(ctx, org.ID, link.OrgLinkID) },
		func() (*links.Link, error) { return s.links.ResolveByOrgShortNameAndCode(ctx, "acme", link.ShortCode) },
	}
	for i, resolve := range resolutions {
		got, err := resolve()
		if err != nil {
			t.Fatalf("resolution %d: %v", i, err)
		}
		if got.OriginalURL != "https://example.com/landing" {
			t.Fatalf("resolution %d returned %q", i, got.OriginalURL)
		}
		if got.ClickCount != int64(i+1) {
			t.Fatalf("resolution %d: click count %d, want %d", i, got.ClickCount, i+1)
		}
	}
}

func TestFullStack_ConcurrentCreationsGetDenseIDs(t *testing.T) {
	s := newStack()
	org := s.createOrg(t, "Acme Corp", "acme", "user-1")

	const workers = 32
	created := make(chan *links.Link, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			link, err := s.links.CreateLink(context.Background(), links.CreateLinkInput{
				OrgID:       org.ID,
				Principal:   "user-1",
				OriginalURL: "https://example.com",
			})
			if err != nil {
				t.Error(err)
				return
			}
			created <- link
		}()
	}
	wg.Wait()
	close(created)

	ids := make(map[int64]bool, workers)
	codes := make(map[string]bool, workers)
	for link := range created {
		if ids[link.OrgLinkID] {
			t.Fatalf("org link id %d handed out twice", link.OrgLinkID)
		}
		ids[link.OrgLinkID] = true
		if codes[link.ShortCode] {
			t.Fatalf("short code %q handed out twice", link.ShortCode)
		}
		codes[link.ShortCode] = true
	}
	for want := int64(1); want <= workers; want++ {
		if !ids[want] {
			t.Fatalf("org link id %d missing from 1..%d", want, workers)
		}
	}
}

func TestFullStack_SoftDeleteStopsResolutionKeepsRecord(t *testing.T) {
	s := newStack()
	ctx := context.Background()
	org := s.createOrg(t, "Acme Corp", "acme", "user-1")

	link, err := s.links.CreateLink(ctx, links.CreateLinkInput{
		OrgID:       org.ID,
		Principal:   "user-1",
		OriginalURL: "https://example.com",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.links.DeactivateLink(ctx, link.ID, "user-1"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.links.Resolve(ctx, link.ShortCode); !errors.Is(err, links.ErrNotFound) {
		t.Fatalf("deactivated link should resolve as ErrNotFound, got: %v", err)
	}

	// The record survives for members and its id is never recycled.
	kept, err := s.links.GetLink(ctx, link.ID, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if kept.Active {
		t.Error("link should be inactive")
	}

	next, err := s.links.CreateLink(ctx, links.CreateLinkInput{
		OrgID:       org.ID,
		Principal:   "user-1",
		OriginalURL: "https://example.com/next",
	})
	if err != nil {
		t.Fatal(err)
	}
	if next.OrgLinkID != 2 {
		t.Errorf("id of the deleted link was recycled: next link got %d", next.OrgLinkID)
	}
}

func TestFullStack_ExpiredLinkReportsExpired(t *testing.T) {
	s := newStack()
	ctx := context.Background()
	org := s.createOrg(t, "Acme Corp", "acme", "user-1")

	expiry := time.Now().Add(100 * time.Millisecond)
	link, err := s.links.CreateLink(ctx, links.CreateLinkInput{
		OrgID:       org.ID,
		Principal:   "user-1",
		OriginalURL: "https://example.com",
		ExpiresAt:   &expiry,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.links.Resolve(ctx, link.ShortCode); err != nil {
		t.Fatalf("link should resolve before expiry: %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	if _, err := s.links.Resolve(ctx, link.ShortCode); !errors.Is(err, links.ErrExpired) {
		t.Fatalf("expected ErrExpired after expiry, got: %v", err)
	}
}

// clickOnUpdateStore lets a resolution land between the update's read and
// its write-back, the worst-case interleaving for the click counter.
type clickOnUpdateStore struct {
	*LinkStore
	ref links.Ref
}

func (s *clickOnUpdateStore) Update(ctx context.Context, link *links.Link) error {
	if _, err := s.LinkStore.ResolveAndRecordClick(ctx, s.ref, time.Now()); err != nil {
		return err
	}
	return s.LinkStore.Update(ctx, link)
}

func TestFullStack_ClickDuringUpdateIsCounted(t *testing.T) {
	ctx := context.Background()
	store := &clickOnUpdateStore{LinkStore: NewLinkStore()}
	orgStore := NewOrgStore()
	orgSvc := orgs.NewService(orgStore, orgStore)
	linkSvc := links.NewService(store, orgSvc, orgDirectory{svc: orgSvc}, links.NewCryptoCodeGenerator(6))

	org, err := orgSvc.Create(ctx, orgs.CreateOrganizationInput{
		Name:      "Acme Corp",
		ShortName: "acme",
		Principal: "user-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	link, err := linkSvc.CreateLink(ctx, links.CreateLinkInput{
		OrgID:       org.ID,
		Principal:   "user-1",
		OriginalURL: "https://example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	store.ref = links.Ref{ShortCode: link.ShortCode}

	title := "edited"
	if _, err := linkSvc.UpdateLink(ctx, link.ID, links.UpdateLinkInput{
		Principal: "user-1",
		Title:     &title,
	}); err != nil {
		t.Fatal(err)
	}

	got, err := linkSvc.GetLink(ctx, link.ID, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ClickCount != 1 {
		t.Fatalf("click recorded during the update was lost: got %d, want 1", got.ClickCount)
	}
	if got.Title != "edited" {
		t.Errorf("update not applied: title %q", got.Title)
	}
}

func TestFullStack_AccessIsolationBetweenOrgs(t *testing.T) {
	s := newStack()
	ctx := context.Background()
	acme := s.createOrg(t, "Acme Corp", "acme", "user-1")
	s.createOrg(t, "Globex", "globex", "user-2")

	link, err := s.links.CreateLink(ctx, links.CreateLinkInput{
		OrgID:       acme.ID,
		Principal:   "user-1",
		OriginalURL: "https://example.com",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.links.GetLink(ctx, link.ID, "user-2"); !errors.Is(err, links.ErrAccessDenied) {
		t.Fatalf("outsider read should be denied, got: %v", err)
	}
	if _, err := s.links.CreateLink(ctx, links.CreateLinkInput{
		OrgID:       acme.ID,
		Principal:   "user-2",
		OriginalURL: "https://example.com",
	}); !errors.Is(err, links.ErrAccessDenied) {
		t.Fatalf("outsider create should be denied, got: %v", err)
	}

	// Membership opens the gate.
	if _, err := s.orgs.AddMember(ctx, acme.ID, "user-2", "user-1", orgs.RoleMember); err != nil {
		t.Fatal(err)
	}
	if _, err := s.links.GetLink(ctx, link.ID, "user-2"); err != nil {
		t.Fatalf("member read should succeed: %v", err)
	}

	// Resolution stays public regardless of membership.
	if _, err := s.links.Resolve(ctx, link.ShortCode); err != nil {
		t.Fatalf("public resolution failed: %v", err)
	}
}
