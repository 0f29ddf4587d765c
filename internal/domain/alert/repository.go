package alert

import (
	"context"
	"time"

	"github.com/vigiamx/satavisos/pkg/types/common"
)

// QueryOptions defines filtering and pagination for alert queries.
type QueryOptions struct {
	Limit    int
	Offset   int
	Statuses []Status
	RuleID   common.ID
	NoticeID *common.ID
	Overdue  *bool
}

// QueryOption is a functional option for alert queries.
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

// WithRule restricts results to alerts raised by one rule.
func WithRule(id common.ID) QueryOption {
	return func(o *QueryOptions) { o.RuleID = id }
}

// WithNotice restricts results to members of one notice.
func WithNotice(id common.ID) QueryOption {
	return func(o *QueryOptions) { o.NoticeID = &id }
}

// WithOverdue restricts results by the persisted overdue flag.
func WithOverdue(overdue bool) QueryOption {
	return func(o *QueryOptions) { o.Overdue = &overdue }
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
	if options.Limit > 500 {
		options.Limit = 500
	}
	if options.Offset < 0 {
		options.Offset = 0
	}
	return options
}

// Transition describes one conditional single-row status change.  The
// repository applies it as one UPDATE whose predicate encodes both existence
// and the expected prior states; a zero-rows-affected result surfaces as the
// INVALID_STATE / NOT_FOUND error, never as a silent overwrite.
type Transition struct {
	// FromStatuses is the set of prior statuses the update predicate accepts.
	FromStatuses []Status
	// To is the target status.
	To Status

	FileGeneratedAt *time.Time
	SubmittedAt     *time.Time
	CancelledAt     *time.Time
	CancelledBy     string
	CancelReason    string
	AckFolio        string

	// ForceOverdueFalse permanently clears the persisted overdue flag
	// (submission cures overdue).
	ForceOverdueFalse bool
	// SetOverdue marks the row overdue (sweep path).
	SetOverdue bool
}

// Repository is the persistence contract for alerts.  Every method takes the
// organization explicitly; rows outside the organization are invisible.
type Repository interface {
	// Create inserts the alert.  A unique-violation on
	// (org_id, idempotency_key) is reported with ErrCodeConflict so the
	// caller can fall back to the idempotent read.
	Create(ctx context.Context, a *Alert) error

	// FindByID returns the alert or ErrCodeAlertNotFound.
	FindByID(ctx context.Context, orgID common.OrgID, id common.ID) (*Alert, error)

	// FindByIdempotencyKey returns the alert for the organization's
	// idempotency key, or ErrCodeAlertNotFound.
	FindByIdempotencyKey(ctx context.Context, orgID common.OrgID, key string) (*Alert, error)

	// List returns a page of alerts plus the total count.
	List(ctx context.Context, orgID common.OrgID, opts ...QueryOption) ([]*Alert, int64, error)

	// ListByNotice returns every member alert of a notice, unpaginated, in
	// creation order.  Used by notice generation and status propagation.
	ListByNotice(ctx context.Context, orgID common.OrgID, noticeID common.ID) ([]*Alert, error)

	// ApplyTransition performs the conditional single-row status change and
	// returns the updated alert.  Zero rows affected yields
	// ErrCodeAlertNotFound when the row does not exist in the organization
	// and ErrCodeInvalidState otherwise.
	ApplyTransition(ctx context.Context, orgID common.OrgID, id common.ID, t Transition) (*Alert, error)

	// SetReview stamps reviewed_by/reviewed_at independent of status.
	SetReview(ctx context.Context, orgID common.OrgID, id common.ID, actor string, at time.Time) (*Alert, error)

	// SweepOverdue flips every row whose deadline has passed and whose status
	// is outside {SUBMITTED, CANCELLED, OVERDUE} to OVERDUE in one
	// conditional bulk update.  It is idempotent and safe to run
	// concurrently with itself; it returns the number of rows flipped.
	SweepOverdue(ctx context.Context, orgID common.OrgID, now time.Time) (int64, error)

	// ClaimForNotice atomically assigns every unassigned, non-terminal alert
	// created inside the window to the notice, stamping the deadline on rows
	// that have none.  One conditional bulk update (notice_id IS NULL in the
	// predicate) so two concurrently created notices can never claim the
	// same row.  Returns the number claimed.
	ClaimForNotice(ctx context.Context, orgID common.OrgID, noticeID common.ID, window common.DateRange, deadline time.Time) (int64, error)

	// ReleaseFromNotice clears notice_id on every member row.  Used when a
	// draft notice is deleted.
	ReleaseFromNotice(ctx context.Context, orgID common.OrgID, noticeID common.ID) (int64, error)

	// BulkMarkFileGenerated transitions every member alert outside
	// {SUBMITTED, CANCELLED} to FILE_GENERATED in one conditional update.
	BulkMarkFileGenerated(ctx context.Context, orgID common.OrgID, noticeID common.ID, at time.Time) (int64, error)

	// BulkMarkSubmitted transitions every non-cancelled member alert to
	// SUBMITTED, stamping submitted_at, clearing the overdue flag, and
	// recording the folio when given.
	BulkMarkSubmitted(ctx context.Context, orgID common.OrgID, noticeID common.ID, at time.Time, folio string) (int64, error)

	// BulkSetAckFolio copies the acknowledgment folio onto every member
	// alert without touching status.
	BulkSetAckFolio(ctx context.Context, orgID common.OrgID, noticeID common.ID, folio string, at time.Time) (int64, error)
}
