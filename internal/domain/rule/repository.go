package rule

import (
	"context"

	"github.com/vigiamx/satavisos/pkg/types/common"
)

// Repository is the persistence contract for alert rules.
type Repository interface {
	// Create inserts the rule.  A duplicate (org_id, key) is reported with
	// ErrCodeConflict.
	Create(ctx context.Context, r *Rule) error

	// FindByID returns the rule or ErrCodeRuleNotFound.
	FindByID(ctx context.Context, orgID common.OrgID, id common.ID) (*Rule, error)

	// FindByKey returns the rule for the organization's key, or
	// ErrCodeRuleNotFound.
	FindByKey(ctx context.Context, orgID common.OrgID, key string) (*Rule, error)

	// List returns every rule of the organization, active ones first.
	List(ctx context.Context, orgID common.OrgID) ([]*Rule, error)

	// SetActive flips the active flag.
	SetActive(ctx context.Context, orgID common.OrgID, id common.ID, active bool) error
}
