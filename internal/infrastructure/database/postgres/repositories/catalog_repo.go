package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/vigiamx/satavisos/internal/domain/catalog"
	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

const catalogColumns = `id, catalog_key, label, active, metadata, created_at, updated_at`

// CatalogRepository implements catalog.Resolver on PostgreSQL.  Catalogs are
// authority-wide reference data, shared across organizations.  The reference
// code lives in the metadata jsonb under "code".
type CatalogRepository struct {
	db *sql.DB
}

var _ catalog.Resolver = (*CatalogRepository)(nil)

// NewCatalogRepository builds the repository over an open handle.
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ResolveByIDs(ctx context.Context, ids []common.ID, opts ...catalog.ResolveOption) (map[common.ID]*catalog.Record, error) {
	out := make(map[common.ID]*catalog.Record, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	options := catalog.ApplyResolveOptions(opts...)

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}

	where := []string{"id = ANY($1)"}
	args := []interface{}{pq.Array(raw)}
	if len(options.CatalogKeys) > 0 {
		args = append(args, pq.Array(keysToStrings(options.CatalogKeys)))
		where = append(where, fmt.Sprintf("catalog_key = ANY($%d)", len(args)))
	}
	if !options.IncludeInactive {
		where = append(where, "active = TRUE")
	}

	query := fmt.Sprintf(`SELECT %s FROM catalogs WHERE %s`, catalogColumns, strings.Join(where, " AND "))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr(err, "resolve catalog records by id")
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanCatalogRecord(rows)
		if err != nil {
			return nil, dbErr(err, "scan catalog row")
		}
		out[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err, "iterate catalog rows")
	}
	return out, nil
}

func (r *CatalogRepository) ResolveByCode(ctx context.Context, key catalog.Key, codes []string, opts ...catalog.ResolveOption) (map[string]*catalog.Record, error) {
	return r.resolveByCode(ctx, []catalog.Key{key}, codes, opts...)
}

func (r *CatalogRepository) ResolveByCodeAcrossCatalogs(ctx context.Context, keys []catalog.Key, codes []string, opts ...catalog.ResolveOption) (map[string]*catalog.Record, error) {
	return r.resolveByCode(ctx, keys, codes, opts...)
}

func (r *CatalogRepository) resolveByCode(ctx context.Context, keys []catalog.Key, codes []string, opts ...catalog.ResolveOption) (map[string]*catalog.Record, error) {
	out := make(map[string]*catalog.Record, len(codes))
	if len(codes) == 0 || len(keys) == 0 {
		return out, nil
	}
	options := catalog.ApplyResolveOptions(opts...)

	where := []string{
		"catalog_key = ANY($1)",
		"metadata->>'code' = ANY($2)",
	}
	args := []interface{}{pq.Array(keysToStrings(keys)), pq.Array(codes)}
	if !options.IncludeInactive {
		where = append(where, "active = TRUE")
	}

	query := fmt.Sprintf(`SELECT %s FROM catalogs WHERE %s`, catalogColumns, strings.Join(where, " AND "))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr(err, "resolve catalog records by code")
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanCatalogRecord(rows)
		if err != nil {
			return nil, dbErr(err, "scan catalog row")
		}
		if code := rec.Code(); code != "" {
			out[code] = rec
		}
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err, "iterate catalog rows")
	}
	return out, nil
}

// Insert adds one catalog record.  Used by the seeding CLI; resolution is
// the hot path.
func (r *CatalogRepository) Insert(ctx context.Context, rec *catalog.Record) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshal catalog metadata")
	}

	const query = `
		INSERT INTO catalogs (id, catalog_key, label, active, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err = r.db.ExecContext(ctx, query,
		string(rec.ID), string(rec.CatalogKey), rec.Label, rec.Active, metadata,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.New(errors.ErrCodeConflict, "catalog record already exists").
				WithDetail("id=" + string(rec.ID))
		}
		return dbErr(err, "insert catalog record")
	}
	return nil
}

func keysToStrings(keys []catalog.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func scanCatalogRecord(row rowScanner) (*catalog.Record, error) {
	var (
		rec      catalog.Record
		id, key  string
		metadata []byte
	)

	err := row.Scan(&id, &key, &rec.Label, &rec.Active, &metadata, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "unmarshal catalog metadata")
		}
	}
	rec.ID = common.ID(id)
	rec.CatalogKey = catalog.Key(key)
	return &rec, nil
}
