// Package rule holds the alert-rule registry.  Rules classify detections;
// the engine consults them at alert creation for activity and manual-only
// enforcement, and for the optional default-deadline policy.
package rule

import (
	"time"

	"github.com/google/uuid"

	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

// Rule is one detection rule reference.  Detection itself happens upstream;
// the engine only checks the flags recorded here.
type Rule struct {
	ID    common.ID    `json:"id"`
	OrgID common.OrgID `json:"org_id"`

	// Key is the stable machine name detections reference, unique per
	// organization.
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Active bool `json:"active"`

	// ManualOnly rules reject automatic detections: creating an alert
	// against one requires the manual flag.
	ManualOnly bool `json:"manual_only"`

	// DeadlineDays, when set, stamps a default submission deadline of
	// created-at plus this many days on alerts whose caller supplies none.
	// This is the single creation-time deadline policy point; assignment to
	// a notice stamps the authoritative period deadline on rows still
	// without one.
	DeadlineDays *int `json:"deadline_days,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRule constructs an active rule.
func NewRule(orgID common.OrgID, key, name string) (*Rule, error) {
	if orgID == "" {
		return nil, errors.Validation("organization id cannot be empty")
	}
	if key == "" {
		return nil, errors.Validation("rule key cannot be empty")
	}
	if name == "" {
		name = key
	}
	now := time.Now().UTC()
	return &Rule{
		ID:        common.ID(uuid.New().String()),
		OrgID:     orgID,
		Key:       key,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// DefaultDeadline returns the rule's default submission deadline for an
// alert created at the given time, or nil when the rule carries no policy.
func (r *Rule) DefaultDeadline(createdAt time.Time) *time.Time {
	if r.DeadlineDays == nil {
		return nil
	}
	d := createdAt.AddDate(0, 0, *r.DeadlineDays)
	return &d
}
