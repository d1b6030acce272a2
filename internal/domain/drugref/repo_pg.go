package drugref

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gheop3s/gheop3s/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type productRepoPG struct{ pool *pgxpool.Pool }

func NewProductRepoPG(pool *pgxpool.Pool) Repository { return &productRepoPG{pool: pool} }

func (r *productRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const productCols = `code, name, updated_at`

func (r *productRepoPG) scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.Code, &p.Name, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

const upsertProduct = `
	INSERT INTO drug_product (code, name, search_name, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (code) DO UPDATE
	SET name = EXCLUDED.name, search_name = EXCLUDED.search_name, updated_at = NOW()`

func (r *productRepoPG) Upsert(ctx context.Context, products ...Product) error {
	if len(products) == 0 {
		return nil
	}
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, p := range products {
			batch.Queue(upsertProduct, p.Code, p.Name, Fold(p.Name))
		}
		return db.TxFromContext(ctx).SendBatch(ctx, batch).Close()
	})
}

func (r *productRepoPG) GetByCode(ctx context.Context, code string) (*Product, error) {
	p, err := r.scanProduct(r.conn(ctx).QueryRow(ctx,
		`SELECT `+productCols+` FROM drug_product WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *productRepoPG) Search(ctx context.Context, query string, limit int) ([]*Product, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+productCols+` FROM drug_product
		WHERE search_name LIKE '%' || $1 || '%' ESCAPE '\'
			OR ($2 <> '' AND code LIKE $2 || '%' ESCAPE '\')
		ORDER BY search_name, code
		LIMIT $3`,
		escapeLike(Fold(query)), escapeLike(strings.ToUpper(strings.TrimSpace(query))), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Product
	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *productRepoPG) List(ctx context.Context, limit, offset int) ([]*Product, int, error) {
	limit, offset = pageBounds(limit, offset)
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+productCols+` FROM drug_product ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Product
	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *productRepoPG) Count(ctx context.Context) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM drug_product`).Scan(&total)
	return total, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
