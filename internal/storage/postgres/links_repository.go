package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/orglinks/orglinks/internal/infrastructure/db"
	"github.com/orglinks/orglinks/internal/processing/links"
)

const linkColumns = `id, original_url, short_code, org_id, org_link_id, title,
	description, created_by, click_count, created_at, expires_at, active`

type LinksRepository struct {
	db *db.Postgres
}

func NewLinksRepository(p *db.Postgres) (*LinksRepository, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	return &LinksRepository{db: p}, nil
}

func (r *LinksRepository) Insert(ctx context.Context, link *links.Link) error {
	if link == nil {
		return errors.New("link is nil")
	}

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO links (id, original_url, short_code, org_id, org_link_id, title,
			description, created_by, click_count, created_at, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		link.ID, link.OriginalURL, link.ShortCode, link.OrgID, link.OrgLinkID,
		link.Title, link.Description, link.CreatedBy, link.ClickCount,
		toTimestamptz(link.CreatedAt), toNullableTimestamptz(link.ExpiresAt), link.Active,
	)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return links.ErrCodeTaken
	}
	return err
}

func (r *LinksRepository) FindByID(ctx context.Context, id string) (*links.Link, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+linkColumns+` FROM links WHERE id = $1`, id)
	return scanLink(row)
}

func (r *LinksRepository) FindByRef(ctx context.Context, ref links.Ref) (*links.Link, error) {
	where, args := refPredicate(ref, nil)
	row := r.db.Pool.QueryRow(ctx, `SELECT `+linkColumns+` FROM links WHERE `+where, args...)
	return scanLink(row)
}

func (r *LinksRepository) ExistsByShortCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// NextOrgLinkID advances the per-organization counter row in one statement,
// so concurrent creations can never observe the same value.
func (r *LinksRepository) NextOrgLinkID(ctx context.Context, orgID string) (int64, error) {
	var next int64
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO org_link_sequences (org_id, value)
		VALUES ($1, 1)
		ON CONFLICT (org_id) DO UPDATE SET value = org_link_sequences.value + 1
		RETURNING value`,
		orgID,
	).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// ResolveAndRecordClick increments the click count of the matching live link
// and returns the updated row. The update's WHERE clause carries the
// resolvability predicate, so the read, the liveness check and the increment
// are one atomic statement. A miss is re-inspected without the predicate to
// tell an expired link from a missing or deactivated one.
func (r *LinksRepository) ResolveAndRecordClick(ctx context.Context, ref links.Ref, at time.Time) (*links.Link, error) {
	args := []any{toTimestamptz(at)}
	where, args := refPredicate(ref, args)

	row := r.db.Pool.QueryRow(ctx, `
		UPDATE links SET click_count = click_count + 1
		WHERE active AND (expires_at IS NULL OR expires_at > $1) AND `+where+`
		RETURNING `+linkColumns,
		args...,
	)
	link, err := scanLink(row)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, links.ErrNotFound) {
		return nil, err
	}

	existing, findErr := r.FindByRef(ctx, ref)
	if findErr != nil {
		return nil, findErr
	}
	if existing.Active {
		return nil, links.ErrExpired
	}
	return nil, links.ErrNotFound
}

// Update writes the caller-mutable columns only. click_count and active stay
// out of the SET list so concurrent clicks and deactivations survive the
// write-back.
func (r *LinksRepository) Update(ctx context.Context, link *links.Link) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE links SET original_url = $2, short_code = $3, title = $4,
			description = $5, expires_at = $6
		WHERE id = $1`,
		link.ID, link.OriginalURL, link.ShortCode, link.Title, link.Description,
		toNullableTimestamptz(link.ExpiresAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return links.ErrCodeTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return links.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE links SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return links.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) ListByOrg(ctx context.Context, orgID string, limit int) ([]*links.Link, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+linkColumns+` FROM links WHERE org_id = $1 AND active ORDER BY org_link_id LIMIT $2`,
		orgID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*links.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

// refPredicate renders the set fields of ref as an AND-ed SQL condition,
// appending bind arguments after any the caller already holds.
func refPredicate(ref links.Ref, args []any) (string, []any) {
	var conds []string
	if ref.ShortCode != "" {
		args = append(args, ref.ShortCode)
		conds = append(conds, fmt.Sprintf("short_code = $%d", len(args)))
	}
	if ref.OrgID != "" {
		args = append(args, ref.OrgID)
		conds = append(conds, fmt.Sprintf("org_id = $%d", len(args)))
	}
	if ref.OrgLinkID != 0 {
		args = append(args, ref.OrgLinkID)
		conds = append(conds, fmt.Sprintf("org_link_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		conds = append(conds, "FALSE")
	}
	return strings.Join(conds, " AND "), args
}

func scanLink(row pgx.Row) (*links.Link, error) {
	var (
		link      links.Link
		createdAt pgtype.Timestamptz
		expiresAt pgtype.Timestamptz
	)
	err := row.Scan(
		&link.ID, &link.OriginalURL, &link.ShortCode, &link.OrgID, &link.OrgLinkID,
		&link.Title, &link.Description, &link.CreatedBy, &link.ClickCount,
		&createdAt, &expiresAt, &link.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, links.ErrNotFound
		}
		return nil, err
	}

	link.CreatedAt = createdAt.Time.UTC()
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		link.ExpiresAt = &t
	}
	return &link, nil
}

func toTimestamptz(v time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: v.UTC(), Valid: true}
}

func toNullableTimestamptz(v *time.Time) pgtype.Timestamptz {
	if v == nil {
		return pgtype.Timestamptz{}
	}
	return toTimestamptz(*v)
}
