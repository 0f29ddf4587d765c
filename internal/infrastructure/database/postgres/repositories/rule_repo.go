package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vigiamx/satavisos/internal/domain/rule"
	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

const ruleColumns = `id, org_id, key, name, description, active, manual_only,
	deadline_days, created_at, updated_at`

// RuleRepository implements rule.Repository on PostgreSQL.
type RuleRepository struct {
	db *sql.DB
}

var _ rule.Repository = (*RuleRepository)(nil)

// NewRuleRepository builds the repository over an open handle.
func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Create(ctx context.Context, ru *rule.Rule) error {
	const query = `
		INSERT INTO rules (id, org_id, key, name, description, active,
			manual_only, deadline_days, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	var deadlineDays sql.NullInt64
	if ru.DeadlineDays != nil {
		deadlineDays = sql.NullInt64{Int64: int64(*ru.DeadlineDays), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		string(ru.ID), string(ru.OrgID), ru.Key, ru.Name, nullString(ru.Description),
		ru.Active, ru.ManualOnly, deadlineDays, ru.CreatedAt, ru.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.New(errors.ErrCodeConflict, "rule key already exists").
				WithDetail("key=" + ru.Key)
		}
		return dbErr(err, "insert rule")
	}
	return nil
}

func (r *RuleRepository) FindByID(ctx context.Context, orgID common.OrgID, id common.ID) (*rule.Rule, error) {
	query := fmt.Sprintf(`SELECT %s FROM rules WHERE org_id = $1 AND id = $2`, ruleColumns)
	ru, err := scanRule(r.db.QueryRowContext(ctx, query, string(orgID), string(id)))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeRuleNotFound, "rule not found").
			WithDetail("id=" + string(id))
	}
	if err != nil {
		return nil, dbErr(err, "find rule by id")
	}
	return ru, nil
}

func (r *RuleRepository) FindByKey(ctx context.Context, orgID common.OrgID, key string) (*rule.Rule, error) {
	query := fmt.Sprintf(`SELECT %s FROM rules WHERE org_id = $1 AND key = $2`, ruleColumns)
	ru, err := scanRule(r.db.QueryRowContext(ctx, query, string(orgID), key))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeRuleNotFound, "rule not found").
			WithDetail("key=" + key)
	}
	if err != nil {
		return nil, dbErr(err, "find rule by key")
	}
	return ru, nil
}

func (r *RuleRepository) List(ctx context.Context, orgID common.OrgID) ([]*rule.Rule, error) {
	query := fmt.Sprintf(`SELECT %s FROM rules WHERE org_id = $1 ORDER BY active DESC, key ASC`, ruleColumns)
	rows, err := r.db.QueryContext(ctx, query, string(orgID))
	if err != nil {
		return nil, dbErr(err, "list rules")
	}
	defer rows.Close()

	var rules []*rule.Rule
	for rows.Next() {
		ru, err := scanRule(rows)
		if err != nil {
			return nil, dbErr(err, "scan rule row")
		}
		rules = append(rules, ru)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err, "iterate rule rows")
	}
	return rules, nil
}

func (r *RuleRepository) SetActive(ctx context.Context, orgID common.OrgID, id common.ID, active bool) error {
	const query = `UPDATE rules SET active = $3, updated_at = NOW() WHERE org_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, string(orgID), string(id), active)
	if err != nil {
		return dbErr(err, "set rule active")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeRuleNotFound, "rule not found").
			WithDetail("id=" + string(id))
	}
	return nil
}

func scanRule(row rowScanner) (*rule.Rule, error) {
	var (
		ru           rule.Rule
		id, orgID    string
		description  sql.NullString
		deadlineDays sql.NullInt64
	)

	err := row.Scan(&id, &orgID, &ru.Key, &ru.Name, &description, &ru.Active,
		&ru.ManualOnly, &deadlineDays, &ru.CreatedAt, &ru.UpdatedAt)
	if err != nil {
		return nil, err
	}

	ru.ID = common.ID(id)
	ru.OrgID = common.OrgID(orgID)
	ru.Description = description.String
	if deadlineDays.Valid {
		d := int(deadlineDays.Int64)
		ru.DeadlineDays = &d
	}
	return &ru, nil
}
