package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"velvetden/internal/domain"
)

type spaceTemplateRepository struct {
	DB *sql.DB
}

func NewSpaceTemplateRepository(db *sql.DB) domain.SpaceTemplateRepository {
	return &spaceTemplateRepository{DB: db}
}

func scanTemplate(row rowScanner) (*domain.SpaceTemplate, error) {
	t := &domain.SpaceTemplate{}
	var color string
	var desc sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &color, &desc); err != nil {
		return nil, err
	}
	t.Color = domain.SpaceColor(color)
	if desc.Valid {
		t.Description = &desc.String
	}
	return t, nil
}

func (r *spaceTemplateRepository) ListByName(ctx context.Context) ([]*domain.SpaceTemplate, error) {
	return r.list(ctx, `SELECT id, name, color, description FROM space_templates ORDER BY name ASC`)
}

func (r *spaceTemplateRepository) GetByID(ctx context.Context, id string) (*domain.SpaceTemplate, error) {
	query := `SELECT id, name, color, description FROM space_templates WHERE id = $1`
	t, err := scanTemplate(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *spaceTemplateRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.SpaceTemplate, error) {
	if len(ids) == 0 {
		return []*domain.SpaceTemplate{}, nil
	}
	query := `SELECT id, name, color, description FROM space_templates WHERE id = ANY($1::uuid[]) ORDER BY name ASC`
	return r.list(ctx, query, pq.Array(ids))
}

func (r *spaceTemplateRepository) list(ctx context.Context, query string, args ...any) ([]*domain.SpaceTemplate, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	templates := make([]*domain.SpaceTemplate, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}
