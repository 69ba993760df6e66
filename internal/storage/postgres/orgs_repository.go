package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/orglinks/orglinks/internal/infrastructure/db"
	"github.com/orglinks/orglinks/internal/processing/orgs"
)

const orgColumns = `id, name, short_name, description, owner_id, created_at, active`

type OrgsRepository struct {
	db *db.Postgres
}

func NewOrgsRepository(p *db.Postgres) (*OrgsRepository, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	return &OrgsRepository{db: p}, nil
}

func (r *OrgsRepository) Insert(ctx context.Context, org *orgs.Organization) error {
	if org == nil {
		return errors.New("organization is nil")
	}

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO organizations (id, name, short_name, description, owner_id, created_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		org.ID, org.Name, org.ShortName, org.Description, org.OwnerID,
		toTimestamptz(org.CreatedAt), org.Active,
	)
	return mapOrgUniqueViolation(err)
}

func (r *OrgsRepository) FindByID(ctx context.Context, id string) (*orgs.Organization, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id)
	return scanOrg(row)
}

func (r *OrgsRepository) FindByShortName(ctx context.Context, shortName string) (*orgs.Organization, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE short_name = $1`, shortName)
	return scanOrg(row)
}

func (r *OrgsRepository) Update(ctx context.Context, org *orgs.Organization) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE organizations SET name = $2, description = $3, active = $4
		WHERE id = $1`,
		org.ID, org.Name, org.Description, org.Active,
	)
	if err != nil {
		return mapOrgUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return orgs.ErrNotFound
	}
	return nil
}

func (r *OrgsRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE organizations SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return orgs.ErrNotFound
	}
	return nil
}

func (r *OrgsRepository) ListForUser(ctx context.Context, userID string) ([]*orgs.Organization, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+orgColumns+` FROM organizations o
		WHERE o.active AND (o.owner_id = $1 OR EXISTS (
			SELECT 1 FROM organization_members m
			WHERE m.org_id = o.id AND m.user_id = $1 AND m.active
		))
		ORDER BY o.created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*orgs.Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

func (r *OrgsRepository) Add(ctx context.Context, m *orgs.Membership) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO organization_members (org_id, user_id, role, joined_at, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (org_id, user_id) DO UPDATE SET role = $3, active = $5`,
		m.OrgID, m.UserID, string(m.Role), toTimestamptz(m.JoinedAt), m.Active,
	)
	return err
}

func (r *OrgsRepository) IsActiveMember(ctx context.Context, orgID, userID string) (bool, error) {
	var active bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM organization_members
			WHERE org_id = $1 AND user_id = $2 AND active
		)`,
		orgID, userID,
	).Scan(&active)
	if err != nil {
		return false, err
	}
	return active, nil
}

// mapOrgUniqueViolation translates duplicate-key errors into the typed
// conflict the service layer matches on, using the constraint name to tell
// which column collided.
func mapOrgUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "short_name") {
			return orgs.ErrShortNameTaken
		}
		return orgs.ErrNameTaken
	}
	return err
}

func scanOrg(row pgx.Row) (*orgs.Organization, error) {
	var (
		org       orgs.Organization
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(&org.ID, &org.Name, &org.ShortName, &org.Description,
		&org.OwnerID, &createdAt, &org.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, orgs.ErrNotFound
		}
		return nil, err
	}
	org.CreatedAt = createdAt.Time.UTC()
	return &org, nil
}
