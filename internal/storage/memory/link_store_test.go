package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/orglinks/orglinks/internal/processing/links"
)

func seedLink(t *testing.T, store *LinkStore, link *links.Link) {
	t.Helper()
	if err := store.Insert(context.Background(), link); err != nil {
		t.Fatalf("seed link %q: %v", link.ID, err)
	}
}

func TestInsert_DuplicateCode(t *testing.T) {
	store := NewLinkStore()
	seedLink(t, store, &links.Link{ID: "l1", ShortCode: "abc123", OrgID: "org-1", Active: true})

	err := store.Insert(context.Background(), &links.Link{ID: "l2", ShortCode: "abc123", OrgID: "org-2", Active: true})
	if !errors.Is(err, links.ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got: %v", err)
	}
}

func TestNextOrgLinkID_ConcurrentAllocationsAreDense(t *testing.T) {
	store := NewLinkStore()
	const workers = 64

	ids := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := store.NextOrgLinkID(context.Background(), "org-1")
			if err != nil {
				t.Error(err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, workers)
	for id := range ids {
		if seen[id] {
			t.Fatalf("id %d allocated twice", id)
		}
		seen[id] = true
	}
	for want := int64(1); want <= workers; want++ {
		if !seen[want] {
			t.Fatalf("id %d never allocated, sequence has a gap", want)
		}
	}
}

func TestNextOrgLinkID_IndependentPerOrg(t *testing.T) {
	store := NewLinkStore()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.NextOrgLinkID(ctx, "org-a")
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("org-a: got id %d, want %d", got, want)
		}
	}

	got, err := store.NextOrgLinkID(ctx, "org-b")
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Fatalf("org-b should start its own sequence at 1, got %d", got)
	}
}

func TestResolveAndRecordClick_ConcurrentClicksAllCounted(t *testing.T) {
	store := NewLinkStore()
	seedLink(t, store, &links.Link{ID: "l1", ShortCode: "abc123", OrgID: "org-1", OrgLinkID: 1, Active: true})

	const clicks = 100
	var wg sync.WaitGroup
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ResolveAndRecordClick(context.Background(), links.Ref{ShortCode: "abc123"}, time.Now())
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	link, err := store.FindByID(context.Background(), "l1")
	if err != nil {
		t.Fatal(err)
	}
	if link.ClickCount != clicks {
		t.Fatalf("got %d clicks, want %d: increments were lost", link.ClickCount, clicks)
	}
}

func TestResolveAndRecordClick_MissDiagnosis(t *testing.T) {
	store := NewLinkStore()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	seedLink(t, store, &links.Link{ID: "l1", ShortCode: "gone99", OrgID: "org-1", OrgLinkID: 1, Active: true, ExpiresAt: &past})
	seedLink(t, store, &links.Link{ID: "l2", ShortCode: "dead99", OrgID: "org-1", OrgLinkID: 2, Active: false})

	if _, err := store.ResolveAndRecordClick(context.Background(), links.Ref{ShortCode: "gone99"}, now); !errors.Is(err, links.ErrExpired) {
		t.Errorf("expired link: expected ErrExpired, got %v", err)
	}
	if _, err := store.ResolveAndRecordClick(context.Background(), links.Ref{ShortCode: "dead99"}, now); !errors.Is(err, links.ErrNotFound) {
		t.Errorf("deactivated link: expected ErrNotFound, got %v", err)
	}
	if _, err := store.ResolveAndRecordClick(context.Background(), links.Ref{ShortCode: "nope"}, now); !errors.Is(err, links.ErrNotFound) {
		t.Errorf("unknown code: expected ErrNotFound, got %v", err)
	}

	// Misses never bump any counter.
	link, err := store.FindByID(context.Background(), "l1")
	if err != nil {
		t.Fatal(err)
	}
	if link.ClickCount != 0 {
		t.Errorf("expired link accumulated %d clicks", link.ClickCount)
	}
}

func TestResolveAndRecordClick_RefSchemes(t *testing.T) {
	store := NewLinkStore()
	seedLink(t, store, &links.Link{ID: "l1", ShortCode: "abc123", OrgID: "org-1", OrgLinkID: 7, Active: true})

	cases := []struct {
		name string
		ref  links.Ref
	}{
		{"by global code", links.Ref{ShortCode: "abc123"}},
		{"by org and id", links.Ref{OrgID: "org-1", OrgLinkID: 7}},
		{"by org and code", links.Ref{OrgID: "org-1", ShortCode: "abc123"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			link, err := store.ResolveAndRecordClick(context.Background(), tc.ref, time.Now())
			if err != nil {
				t.Fatal(err)
			}
			if link.ID != "l1" {
				t.Errorf("resolved %q", link.ID)
			}
		})
	}

	t.Run("code scoped to the wrong org misses", func(t *testing.T) {
		_, err := store.ResolveAndRecordClick(context.Background(), links.Ref{OrgID: "org-2", ShortCode: "abc123"}, time.Now())
		if !errors.Is(err, links.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestDeactivate_KeepsCodeAndIDReserved(t *testing.T) {
	store := NewLinkStore()
	ctx := context.Background()
	seedLink(t, store, &links.Link{ID: "l1", ShortCode: "abc123", OrgID: "org-1", OrgLinkID: 1, Active: true})

	if err := store.Deactivate(ctx, "l1"); err != nil {
		t.Fatal(err)
	}

	taken, err := store.ExistsByShortCode(ctx, "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if !taken {
		t.Error("short code of a soft-deleted link must stay reserved")
	}

	if _, err := store.ResolveAndRecordClick(ctx, links.Ref{ShortCode: "abc123"}, time.Now()); !errors.Is(err, links.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	active, err := store.ListByOrg(ctx, "org-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("listing should skip deactivated links, got %d", len(active))
	}
}

func TestUpdate_ReindexesChangedCode(t *testing.T) {
	store := NewLinkStore()
	ctx := context.Background()
	seedLink(t, store, &links.Link{ID: "l1", ShortCode: "old-code", OrgID: "org-1", OrgLinkID: 1, Active: true})

	updated := &links.Link{ID: "l1", ShortCode: "new-code", OrgID: "org-1", OrgLinkID: 1, Active: true}
	if err := store.Update(ctx, updated); err != nil {
		t.Fatal(err)
	}

	if _, err := store.ResolveAndRecordClick(ctx, links.Ref{ShortCode: "new-code"}, time.Now()); err != nil {
		t.Fatalf("new code should resolve: %v", err)
	}
	if _, err := store.ResolveAndRecordClick(ctx, links.Ref{ShortCode: "old-code"}, time.Now()); !errors.Is(err, links.ErrNotFound) {
		t.Fatalf("old code should be released, got: %v", err)
	}
}

func TestUpdate_KeepsClicksRecordedAfterRead(t *testing.T) {
	store := NewLinkStore()
	ctx := context.Background()
	seedLink(t, store, &links.Link{ID: "l1", ShortCode: "abc123", OrgID: "org-1", OrgLinkID: 1, Active: true})

	stale, err := store.FindByID(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.ResolveAndRecordClick(ctx, links.Ref{ShortCode: "abc123"}, time.Now()); err != nil {
		t.Fatal(err)
	}

	stale.Title = "edited"
	if err := store.Update(ctx, stale); err != nil {
		t.Fatal(err)
	}

	got, err := store.FindByID(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ClickCount != 1 {
		t.Fatalf("click recorded before the write-back was lost: got %d, want 1", got.ClickCount)
	}
	if got.Title != "edited" {
		t.Errorf("update not applied: title %q", got.Title)
	}
}

func TestUpdate_DoesNotResurrectDeactivatedLink(t *testing.T) {
	store := NewLinkStore()
	ctx := context.Background()
	seedLink(t, store, &links.Link{ID: "l1", ShortCode: "abc123", OrgID: "org-1", OrgLinkID: 1, Active: true})

	stale, err := store.FindByID(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Deactivate(ctx, "l1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Update(ctx, stale); err != nil {
		t.Fatal(err)
	}

	got, err := store.FindByID(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Active {
		t.Fatal("write-back of a stale copy reactivated the link")
	}
}

func TestListByOrg_OrderedByOrgLinkID(t *testing.T) {
	store := NewLinkStore()
	for i := 5; i >= 1; i-- {
		seedLink(t, store, &links.Link{
			ID:        fmt.Sprintf("l%d", i),
			ShortCode: fmt.Sprintf("code-%d", i),
			OrgID:     "org-1",
			OrgLinkID: int64(i),
			Active:    true,
		})
	}

	out, err := store.ListByOrg(context.Background(), "org-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 5 {
		t.Fatalf("got %d links, want 5", len(out))
	}
	for i, link := range out {
		if link.OrgLinkID != int64(i+1) {
			t.Fatalf("position %d holds org link id %d", i, link.OrgLinkID)
		}
	}

	capped, err := store.ListByOrg(context.Background(), "org-1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(capped) != 2 {
		t.Fatalf("got %d links, want 2", len(capped))
	}
	if capped[0].OrgLinkID != 1 || capped[1].OrgLinkID != 2 {
		t.Fatalf("limit should keep the lowest ids, got %d and %d", capped[0].OrgLinkID, capped[1].OrgLinkID)
	}
}
