package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/vigiamx/satavisos/internal/domain/alert"
	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

const alertColumns = `id, org_id, idempotency_key, context_hash, rule_id, client_id,
	transaction_id, severity, is_manual, payload, status, submission_deadline,
	is_overdue, notice_id, file_generated_at, submitted_at, ack_folio,
	acknowledged_at, cancelled_at, cancelled_by, cancel_reason, reviewed_by,
	reviewed_at, created_at, updated_at`

// AlertRepository implements alert.Repository on PostgreSQL.
type AlertRepository struct {
	db *sql.DB
}

var _ alert.Repository = (*AlertRepository)(nil)

// NewAlertRepository builds the repository over an open handle.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshal alert payload")
	}

	const query = `
		INSERT INTO alerts (
			id, org_id, idempotency_key, context_hash, rule_id, client_id,
			transaction_id, severity, is_manual, payload, status,
			submission_deadline, is_overdue, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	_, err = r.db.ExecContext(ctx, query,
		string(a.ID), string(a.OrgID), a.IdempotencyKey, nullString(a.ContextHash),
		string(a.RuleID), string(a.ClientID), nullID(a.TransactionID),
		string(a.Severity), a.IsManual, payload, string(a.Status),
		nullTime(a.SubmissionDeadline), a.IsOverdue, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.New(errors.ErrCodeConflict, "alert already exists for idempotency key").
				WithDetail("key=" + a.IdempotencyKey)
		}
		return dbErr(err, "insert alert")
	}
	return nil
}

func (r *AlertRepository) FindByID(ctx context.Context, orgID common.OrgID, id common.ID) (*alert.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE org_id = $1 AND id = $2`, alertColumns)
	a, err := scanAlert(r.db.QueryRowContext(ctx, query, string(orgID), string(id)))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeAlertNotFound, "alert not found").
			WithDetail("id=" + string(id))
	}
	if err != nil {
		return nil, dbErr(err, "find alert by id")
	}
	return a, nil
}

func (r *AlertRepository) FindByIdempotencyKey(ctx context.Context, orgID common.OrgID, key string) (*alert.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE org_id = $1 AND idempotency_key = $2`, alertColumns)
	a, err := scanAlert(r.db.QueryRowContext(ctx, query, string(orgID), key))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeAlertNotFound, "alert not found").
			WithDetail("key=" + key)
	}
	if err != nil {
		return nil, dbErr(err, "find alert by idempotency key")
	}
	return a, nil
}

func (r *AlertRepository) List(ctx context.Context, orgID common.OrgID, opts ...alert.QueryOption) ([]*alert.Alert, int64, error) {
	options := alert.ApplyQueryOptions(opts...)

	where := []string{"org_id = $1"}
	args := []interface{}{string(orgID)}

	if len(options.Statuses) > 0 {
		statuses := make([]string, len(options.Statuses))
		for i, s := range options.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if options.RuleID != "" {
		args = append(args, string(options.RuleID))
		where = append(where, fmt.Sprintf("rule_id = $%d", len(args)))
	}
	if options.NoticeID != nil {
		args = append(args, string(*options.NoticeID))
		where = append(where, fmt.Sprintf("notice_id = $%d", len(args)))
	}
	if options.Overdue != nil {
		args = append(args, *options.Overdue)
		where = append(where, fmt.Sprintf("is_overdue = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM alerts WHERE " + clause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, dbErr(err, "count alerts")
	}

	args = append(args, options.Limit, options.Offset)
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		alertColumns, clause, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, dbErr(err, "list alerts")
	}
	defer rows.Close()

	alerts, err := collectAlerts(rows)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

func (r *AlertRepository) ListByNotice(ctx context.Context, orgID common.OrgID, noticeID common.ID) ([]*alert.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE org_id = $1 AND notice_id = $2 ORDER BY created_at ASC`, alertColumns)
	rows, err := r.db.QueryContext(ctx, query, string(orgID), string(noticeID))
	if err != nil {
		return nil, dbErr(err, "list alerts by notice")
	}
	defer rows.Close()
	return collectAlerts(rows)
}

func (r *AlertRepository) ApplyTransition(ctx context.Context, orgID common.OrgID, id common.ID, t alert.Transition) (*alert.Alert, error) {
	set := []string{"status = $3", "updated_at = NOW()"}
	args := []interface{}{string(orgID), string(id), string(t.To)}

	add := func(expr string, val interface{}) {
		args = append(args, val)
		set = append(set, fmt.Sprintf(expr, len(args)))
	}
	if t.FileGeneratedAt != nil {
		add("file_generated_at = $%d", *t.FileGeneratedAt)
	}
	if t.SubmittedAt != nil {
		add("submitted_at = $%d", *t.SubmittedAt)
	}
	if t.CancelledAt != nil {
		add("cancelled_at = $%d", *t.CancelledAt)
		add("cancelled_by = $%d", t.CancelledBy)
		add("cancel_reason = $%d", nullString(t.CancelReason))
	}
	if t.AckFolio != "" {
		add("ack_folio = $%d", t.AckFolio)
	}
	if t.ForceOverdueFalse {
		set = append(set, "is_overdue = FALSE")
	}
	if t.SetOverdue {
		set = append(set, "is_overdue = TRUE")
	}

	from := make([]string, len(t.FromStatuses))
	for i, s := range t.FromStatuses {
		from[i] = string(s)
	}
	args = append(args, pq.Array(from))

	query := fmt.Sprintf(`UPDATE alerts SET %s WHERE org_id = $1 AND id = $2 AND status = ANY($%d) RETURNING %s`,
		strings.Join(set, ", "), len(args), alertColumns)

	a, err := scanAlert(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, r.classifyMiss(ctx, orgID, id, t.To)
	}
	if err != nil {
		return nil, dbErr(err, "apply alert transition")
	}
	return a, nil
}

// classifyMiss distinguishes a missing row from a disallowed prior state
// after a conditional update matched nothing.  The follow-up read is for
// error reporting only; correctness never depends on it.
func (r *AlertRepository) classifyMiss(ctx context.Context, orgID common.OrgID, id common.ID, target alert.Status) error {
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT status FROM alerts WHERE org_id = $1 AND id = $2`,
		string(orgID), string(id)).Scan(&status)
	if err == sql.ErrNoRows {
		return errors.New(errors.ErrCodeAlertNotFound, "alert not found").
			WithDetail("id=" + string(id))
	}
	if err != nil {
		return dbErr(err, "classify transition miss")
	}
	if alert.Status(status).IsTerminal() {
		return errors.New(errors.ErrCodeAlertTerminal, "alert is in a terminal state").
			WithDetail(fmt.Sprintf("id=%s status=%s", id, status))
	}
	return errors.InvalidState(fmt.Sprintf("cannot move alert from %s to %s", status, target)).
		WithDetail("id=" + string(id))
}

func (r *AlertRepository) SetReview(ctx context.Context, orgID common.OrgID, id common.ID, actor string, at time.Time) (*alert.Alert, error) {
	query := fmt.Sprintf(`UPDATE alerts SET reviewed_by = $3, reviewed_at = $4, updated_at = NOW()
		WHERE org_id = $1 AND id = $2 RETURNING %s`, alertColumns)
	a, err := scanAlert(r.db.QueryRowContext(ctx, query, string(orgID), string(id), actor, at))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeAlertNotFound, "alert not found").
			WithDetail("id=" + string(id))
	}
	if err != nil {
		return nil, dbErr(err, "set alert review")
	}
	return a, nil
}

func (r *AlertRepository) SweepOverdue(ctx context.Context, orgID common.OrgID, now time.Time) (int64, error) {
	const query = `
		UPDATE alerts SET status = 'OVERDUE', is_overdue = TRUE, updated_at = NOW()
		WHERE org_id = $1
		  AND submission_deadline IS NOT NULL
		  AND submission_deadline < $2
		  AND status NOT IN ('SUBMITTED', 'CANCELLED', 'OVERDUE')`
	res, err := r.db.ExecContext(ctx, query, string(orgID), now)
	if err != nil {
		return 0, dbErr(err, "sweep overdue alerts")
	}
	return res.RowsAffected()
}

func (r *AlertRepository) ClaimForNotice(ctx context.Context, orgID common.OrgID, noticeID common.ID, window common.DateRange, deadline time.Time) (int64, error) {
	// notice_id IS NULL in the predicate makes concurrent claims disjoint:
	// a row claimed by one notice no longer matches any other claim.
	const query = `
		UPDATE alerts SET
			notice_id = $2,
			submission_deadline = COALESCE(submission_deadline, $5),
			updated_at = NOW()
		WHERE org_id = $1
		  AND notice_id IS NULL
		  AND status NOT IN ('SUBMITTED', 'CANCELLED')
		  AND created_at >= $3
		  AND created_at <= $4`
	res, err := r.db.ExecContext(ctx, query,
		string(orgID), string(noticeID), window.From, window.To, deadline)
	if err != nil {
		return 0, dbErr(err, "claim alerts for notice")
	}
	return res.RowsAffected()
}

func (r *AlertRepository) ReleaseFromNotice(ctx context.Context, orgID common.OrgID, noticeID common.ID) (int64, error) {
	const query = `UPDATE alerts SET notice_id = NULL, updated_at = NOW()
		WHERE org_id = $1 AND notice_id = $2`
	res, err := r.db.ExecContext(ctx, query, string(orgID), string(noticeID))
	if err != nil {
		return 0, dbErr(err, "release alerts from notice")
	}
	return res.RowsAffected()
}

func (r *AlertRepository) BulkMarkFileGenerated(ctx context.Context, orgID common.OrgID, noticeID common.ID, at time.Time) (int64, error) {
	const query = `
		UPDATE alerts SET status = 'FILE_GENERATED', file_generated_at = $3, updated_at = NOW()
		WHERE org_id = $1 AND notice_id = $2
		  AND status NOT IN ('SUBMITTED', 'CANCELLED')`
	res, err := r.db.ExecContext(ctx, query, string(orgID), string(noticeID), at)
	if err != nil {
		return 0, dbErr(err, "bulk mark alerts file generated")
	}
	return res.RowsAffected()
}

func (r *AlertRepository) BulkMarkSubmitted(ctx context.Context, orgID common.OrgID, noticeID common.ID, at time.Time, folio string) (int64, error) {
	const query = `
		UPDATE alerts SET
			status = 'SUBMITTED',
			submitted_at = $3,
			is_overdue = FALSE,
			ack_folio = COALESCE(NULLIF($4, ''), ack_folio),
			updated_at = NOW()
		WHERE org_id = $1 AND notice_id = $2
		  AND status <> 'CANCELLED'`
	res, err := r.db.ExecContext(ctx, query, string(orgID), string(noticeID), at, folio)
	if err != nil {
		return 0, dbErr(err, "bulk mark alerts submitted")
	}
	return res.RowsAffected()
}

func (r *AlertRepository) BulkSetAckFolio(ctx context.Context, orgID common.OrgID, noticeID common.ID, folio string, at time.Time) (int64, error) {
	const query = `
		UPDATE alerts SET ack_folio = $3, acknowledged_at = $4, updated_at = NOW()
		WHERE org_id = $1 AND notice_id = $2`
	res, err := r.db.ExecContext(ctx, query, string(orgID), string(noticeID), folio, at)
	if err != nil {
		return 0, dbErr(err, "bulk set acknowledgment folio")
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*alert.Alert, error) {
	var (
		a              alert.Alert
		id, orgID      string
		ruleID         string
		clientID       string
		contextHash    sql.NullString
		transactionID  sql.NullString
		severity       string
		payload        []byte
		status         string
		deadline       sql.NullTime
		noticeID       sql.NullString
		fileGenAt      sql.NullTime
		submittedAt    sql.NullTime
		ackFolio       sql.NullString
		acknowledgedAt sql.NullTime
		cancelledAt    sql.NullTime
		cancelledBy    sql.NullString
		cancelReason   sql.NullString
		reviewedBy     sql.NullString
		reviewedAt     sql.NullTime
	)

	err := row.Scan(
		&id, &orgID, &a.IdempotencyKey, &contextHash, &ruleID, &clientID,
		&transactionID, &severity, &a.IsManual, &payload, &status, &deadline,
		&a.IsOverdue, &noticeID, &fileGenAt, &submittedAt, &ackFolio,
		&acknowledgedAt, &cancelledAt, &cancelledBy, &cancelReason, &reviewedBy,
		&reviewedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &a.Payload); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "unmarshal alert payload")
		}
	}

	a.ID = common.ID(id)
	a.OrgID = common.OrgID(orgID)
	a.RuleID = common.ID(ruleID)
	a.ClientID = common.ID(clientID)
	a.ContextHash = contextHash.String
	a.TransactionID = idPtr(transactionID)
	a.Severity = alert.Severity(severity)
	a.Status = alert.Status(status)
	a.SubmissionDeadline = timePtr(deadline)
	a.NoticeID = idPtr(noticeID)
	a.FileGeneratedAt = timePtr(fileGenAt)
	a.SubmittedAt = timePtr(submittedAt)
	a.AckFolio = ackFolio.String
	a.AcknowledgedAt = timePtr(acknowledgedAt)
	a.CancelledAt = timePtr(cancelledAt)
	a.CancelledBy = cancelledBy.String
	a.CancelReason = cancelReason.String
	a.ReviewedBy = reviewedBy.String
	a.ReviewedAt = timePtr(reviewedAt)
	return &a, nil
}

func collectAlerts(rows *sql.Rows) ([]*alert.Alert, error) {
	var alerts []*alert.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, dbErr(err, "scan alert row")
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err, "iterate alert rows")
	}
	return alerts, nil
}
