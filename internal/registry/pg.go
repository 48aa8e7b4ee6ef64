package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smokinadvd/crypto-portfolios/internal/domain"
)

// PgRegistry implements Registry with PostgreSQL. The portfolio aggregate
// is stored as jsonb keyed by its creation date; the retired flag is
// mirrored into a column so live listing does not parse every row.
type PgRegistry struct {
	pool *pgxpool.Pool
}

// NewPgRegistry creates a new PostgreSQL portfolio registry.
func NewPgRegistry(pool *pgxpool.Pool) *PgRegistry {
	return &PgRegistry{pool: pool}
}

func (r *PgRegistry) Save(ctx context.Context, p *domain.Portfolio) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling portfolio %s: %w", p.ID(), err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO portfolios (portfolio_date, data, retired)
		 VALUES ($1::date, $2::jsonb, $3)
		 ON CONFLICT (portfolio_date)
		 DO UPDATE SET data = $2::jsonb, retired = $3, updated_at = NOW()`,
		p.ID(), data, p.Retired)
	if err != nil {
		return fmt.Errorf("saving portfolio %s: %w", p.ID(), err)
	}
	return nil
}

func (r *PgRegistry) Get(ctx context.Context, id string) (*domain.Portfolio, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM portfolios WHERE portfolio_date = $1::date`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting portfolio %s: %w", id, err)
	}
	return unmarshalPortfolio(data)
}

func (r *PgRegistry) ListLive(ctx context.Context) ([]*domain.Portfolio, error) {
	return r.listWhere(ctx, `WHERE retired = FALSE`)
}

func (r *PgRegistry) List(ctx context.Context) ([]*domain.Portfolio, error) {
	return r.listWhere(ctx, ``)
}

func (r *PgRegistry) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM portfolios`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting portfolios: %w", err)
	}
	return n, nil
}

func (r *PgRegistry) listWhere(ctx context.Context, where string) ([]*domain.Portfolio, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT data FROM portfolios %s ORDER BY portfolio_date`, where))
	if err != nil {
		return nil, fmt.Errorf("listing portfolios: %w", err)
	}
	defer rows.Close()

	var out []*domain.Portfolio
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning portfolio: %w", err)
		}
		p, err := unmarshalPortfolio(data)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func unmarshalPortfolio(data []byte) (*domain.Portfolio, error) {
	var p domain.Portfolio
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshaling portfolio: %w", err)
	}
	return &p, nil
}
