package notice

import (
	"context"
	"time"

	"github.com/vigiamx/satavisos/pkg/types/common"
)

// QueryOptions defines filtering and pagination for notice queries.
type QueryOptions struct {
	Limit         int
	Offset        int
	Statuses      []Status
	ReportedMonth string
}

// QueryOption is a functional option for notice queries.
type QueryOption func(*QueryOptions)

// WithLimit sets the page size for the query.
func WithLimit(limit int) QueryOption {
	return func(o *QueryOptions) { o.Limit = limit }
}

// WithOffset sets the row offset for the query.
func WithOffset(offset int) QueryOption {
	return func(o *QueryOptions) { o.Offset = offset }
}

// WithStatuses restricts results to the given statuses.
func WithStatuses(statuses ...Status) QueryOption {
	return func(o *QueryOptions) { o.Statuses = statuses }
}

// WithReportedMonth restricts results to one period label.
func WithReportedMonth(month string) QueryOption {
	return func(o *QueryOptions) { o.ReportedMonth = month }
}

// ApplyQueryOptions applies options over the defaults and clamps the limits.
func ApplyQueryOptions(opts ...QueryOption) QueryOptions {
	options := QueryOptions{Limit: 50}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Limit <= 0 {
		options.Limit = 50
	}
	if options.Limit > 200 {
		options.Limit = 200
	}
	if options.Offset < 0 {
		options.Offset = 0
	}
	return options
}

// Repository is the persistence contract for notices.
type Repository interface {
	// Create inserts the notice.  A pending notice (DRAFT or GENERATED)
	// already covering the organization+period is reported with
	// ErrCodeNoticePeriodPending; the database enforces this with a partial
	// unique index so concurrent creations cannot both succeed.
	Create(ctx context.Context, n *Notice) error

	// FindByID returns the notice or ErrCodeNoticeNotFound.
	FindByID(ctx context.Context, orgID common.OrgID, id common.ID) (*Notice, error)

	// FindPendingByMonth returns the DRAFT/GENERATED notice for the period,
	// or ErrCodeNoticeNotFound when none is pending.
	FindPendingByMonth(ctx context.Context, orgID common.OrgID, reportedMonth string) (*Notice, error)

	// List returns a page of notices plus the total count, newest first.
	List(ctx context.Context, orgID common.OrgID, opts ...QueryOption) ([]*Notice, int64, error)

	// SetRecordCount stores the claimed-member count after the claim step.
	SetRecordCount(ctx context.Context, orgID common.OrgID, id common.ID, count int64) error

	// MarkGenerated advances DRAFT → GENERATED and stores the rendered
	// document reference in one conditional update.  Zero rows affected
	// yields ErrCodeNoticeNotDraft (or ErrCodeNoticeNotFound when the row
	// does not exist).
	MarkGenerated(ctx context.Context, orgID common.OrgID, id common.ID, key string, size int64, at time.Time) (*Notice, error)

	// MarkSubmitted advances GENERATED → SUBMITTED in one conditional
	// update.
	MarkSubmitted(ctx context.Context, orgID common.OrgID, id common.ID, at time.Time, folio string) (*Notice, error)

	// MarkAcknowledged advances SUBMITTED → ACKNOWLEDGED in one conditional
	// update, storing the folio.
	MarkAcknowledged(ctx context.Context, orgID common.OrgID, id common.ID, folio string, at time.Time) (*Notice, error)

	// Delete removes the notice only while it is still DRAFT.  Callers must
	// release the member alerts first.
	Delete(ctx context.Context, orgID common.OrgID, id common.ID) error
}
