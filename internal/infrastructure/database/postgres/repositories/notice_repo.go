package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/vigiamx/satavisos/internal/domain/notice"
	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

const noticeColumns = `id, org_id, name, reported_month, status, period_start,
	period_end, record_count, document_key, document_size, generated_at,
	submitted_at, acknowledged_at, folio, created_at, updated_at`

// NoticeRepository implements notice.Repository on PostgreSQL.  The
// one-pending-notice-per-period rule is enforced by a partial unique index
// on (org_id, reported_month) over DRAFT and GENERATED rows.
type NoticeRepository struct {
	db *sql.DB
}

var _ notice.Repository = (*NoticeRepository)(nil)

// NewNoticeRepository builds the repository over an open handle.
func NewNoticeRepository(db *sql.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

func (r *NoticeRepository) Create(ctx context.Context, n *notice.Notice) error {
	const query = `
		INSERT INTO notices (
			id, org_id, name, reported_month, status, period_start, period_end,
			record_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := r.db.ExecContext(ctx, query,
		string(n.ID), string(n.OrgID), n.Name, n.ReportedMonth, string(n.Status),
		n.PeriodStart, n.PeriodEnd, n.RecordCount, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.New(errors.ErrCodeNoticePeriodPending, "a pending notice already covers this period").
				WithDetail("reported_month=" + n.ReportedMonth)
		}
		return dbErr(err, "insert notice")
	}
	return nil
}

func (r *NoticeRepository) FindByID(ctx context.Context, orgID common.OrgID, id common.ID) (*notice.Notice, error) {
	query := fmt.Sprintf(`SELECT %s FROM notices WHERE org_id = $1 AND id = $2`, noticeColumns)
	n, err := scanNotice(r.db.QueryRowContext(ctx, query, string(orgID), string(id)))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeNoticeNotFound, "notice not found").
			WithDetail("id=" + string(id))
	}
	if err != nil {
		return nil, dbErr(err, "find notice by id")
	}
	return n, nil
}

func (r *NoticeRepository) FindPendingByMonth(ctx context.Context, orgID common.OrgID, reportedMonth string) (*notice.Notice, error) {
	query := fmt.Sprintf(`SELECT %s FROM notices
		WHERE org_id = $1 AND reported_month = $2 AND status IN ('DRAFT', 'GENERATED')`, noticeColumns)
	n, err := scanNotice(r.db.QueryRowContext(ctx, query, string(orgID), reportedMonth))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeNoticeNotFound, "no pending notice for period").
			WithDetail("reported_month=" + reportedMonth)
	}
	if err != nil {
		return nil, dbErr(err, "find pending notice by month")
	}
	return n, nil
}

func (r *NoticeRepository) List(ctx context.Context, orgID common.OrgID, opts ...notice.QueryOption) ([]*notice.Notice, int64, error) {
	options := notice.ApplyQueryOptions(opts...)

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
	if options.ReportedMonth != "" {
		args = append(args, options.ReportedMonth)
		where = append(where, fmt.Sprintf("reported_month = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notices WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, dbErr(err, "count notices")
	}

	args = append(args, options.Limit, options.Offset)
	query := fmt.Sprintf(`SELECT %s FROM notices WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		noticeColumns, clause, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, dbErr(err, "list notices")
	}
	defer rows.Close()

	var notices []*notice.Notice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, 0, dbErr(err, "scan notice row")
		}
		notices = append(notices, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dbErr(err, "iterate notice rows")
	}
	return notices, total, nil
}

func (r *NoticeRepository) SetRecordCount(ctx context.Context, orgID common.OrgID, id common.ID, count int64) error {
	const query = `UPDATE notices SET record_count = $3, updated_at = NOW()
		WHERE org_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, string(orgID), string(id), count)
	if err != nil {
		return dbErr(err, "set notice record count")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeNoticeNotFound, "notice not found").
			WithDetail("id=" + string(id))
	}
	return nil
}

func (r *NoticeRepository) MarkGenerated(ctx context.Context, orgID common.OrgID, id common.ID, key string, size int64, at time.Time) (*notice.Notice, error) {
	query := fmt.Sprintf(`UPDATE notices SET
			status = 'GENERATED', document_key = $3, document_size = $4,
			generated_at = $5, updated_at = NOW()
		WHERE org_id = $1 AND id = $2 AND status = 'DRAFT'
		RETURNING %s`, noticeColumns)

	n, err := scanNotice(r.db.QueryRowContext(ctx, query, string(orgID), string(id), key, size, at))
	if err == sql.ErrNoRows {
		return nil, r.classifyMiss(ctx, orgID, id, errors.ErrCodeNoticeNotDraft, "notice can only be generated from DRAFT")
	}
	if err != nil {
		return nil, dbErr(err, "mark notice generated")
	}
	return n, nil
}

func (r *NoticeRepository) MarkSubmitted(ctx context.Context, orgID common.OrgID, id common.ID, at time.Time, folio string) (*notice.Notice, error) {
	query := fmt.Sprintf(`UPDATE notices SET
			status = 'SUBMITTED', submitted_at = $3,
			folio = COALESCE(NULLIF($4, ''), folio), updated_at = NOW()
		WHERE org_id = $1 AND id = $2 AND status = 'GENERATED'
		RETURNING %s`, noticeColumns)

	n, err := scanNotice(r.db.QueryRowContext(ctx, query, string(orgID), string(id), at, folio))
	if err == sql.ErrNoRows {
		return nil, r.classifySubmitMiss(ctx, orgID, id)
	}
	if err != nil {
		return nil, dbErr(err, "mark notice submitted")
	}
	return n, nil
}

func (r *NoticeRepository) MarkAcknowledged(ctx context.Context, orgID common.OrgID, id common.ID, folio string, at time.Time) (*notice.Notice, error) {
	query := fmt.Sprintf(`UPDATE notices SET
			status = 'ACKNOWLEDGED', folio = $3, acknowledged_at = $4, updated_at = NOW()
		WHERE org_id = $1 AND id = $2 AND status = 'SUBMITTED'
		RETURNING %s`, noticeColumns)

	n, err := scanNotice(r.db.QueryRowContext(ctx, query, string(orgID), string(id), folio, at))
	if err == sql.ErrNoRows {
		return nil, r.classifyMiss(ctx, orgID, id, errors.ErrCodeNoticeNotSubmitted, "notice must be submitted before acknowledgment")
	}
	if err != nil {
		return nil, dbErr(err, "mark notice acknowledged")
	}
	return n, nil
}

func (r *NoticeRepository) Delete(ctx context.Context, orgID common.OrgID, id common.ID) error {
	const query = `DELETE FROM notices WHERE org_id = $1 AND id = $2 AND status = 'DRAFT'`
	res, err := r.db.ExecContext(ctx, query, string(orgID), string(id))
	if err != nil {
		return dbErr(err, "delete notice")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.classifyMiss(ctx, orgID, id, errors.ErrCodeInvalidState, "only draft notices can be deleted")
	}
	return nil
}

// classifyMiss reports why a conditional update matched nothing.  Read-only,
// for error reporting.
func (r *NoticeRepository) classifyMiss(ctx context.Context, orgID common.OrgID, id common.ID, code errors.ErrorCode, msg string) error {
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT status FROM notices WHERE org_id = $1 AND id = $2`,
		string(orgID), string(id)).Scan(&status)
	if err == sql.ErrNoRows {
		return errors.New(errors.ErrCodeNoticeNotFound, "notice not found").
			WithDetail("id=" + string(id))
	}
	if err != nil {
		return dbErr(err, "classify notice miss")
	}
	return errors.New(code, msg).WithDetail("status=" + status)
}

func (r *NoticeRepository) classifySubmitMiss(ctx context.Context, orgID common.OrgID, id common.ID) error {
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT status FROM notices WHERE org_id = $1 AND id = $2`,
		string(orgID), string(id)).Scan(&status)
	if err == sql.ErrNoRows {
		return errors.New(errors.ErrCodeNoticeNotFound, "notice not found").
			WithDetail("id=" + string(id))
	}
	if err != nil {
		return dbErr(err, "classify notice miss")
	}
	if status == string(notice.StatusDraft) {
		return errors.New(errors.ErrCodeNoticeNotGenerated, "notice file must be generated before submission")
	}
	return errors.InvalidState("notice already submitted").WithDetail("status=" + status)
}

func scanNotice(row rowScanner) (*notice.Notice, error) {
	var (
		n              notice.Notice
		id, orgID      string
		status         string
		documentKey    sql.NullString
		documentSize   sql.NullInt64
		generatedAt    sql.NullTime
		submittedAt    sql.NullTime
		acknowledgedAt sql.NullTime
		folio          sql.NullString
	)

	err := row.Scan(
		&id, &orgID, &n.Name, &n.ReportedMonth, &status, &n.PeriodStart,
		&n.PeriodEnd, &n.RecordCount, &documentKey, &documentSize, &generatedAt,
		&submittedAt, &acknowledgedAt, &folio, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.ID = common.ID(id)
	n.OrgID = common.OrgID(orgID)
	n.Status = notice.Status(status)
	n.DocumentKey = documentKey.String
	n.DocumentSize = documentSize.Int64
	n.GeneratedAt = timePtr(generatedAt)
	n.SubmittedAt = timePtr(submittedAt)
	n.AcknowledgedAt = timePtr(acknowledgedAt)
	n.Folio = folio.String
	return &n, nil
}
