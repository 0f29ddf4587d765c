// Package reporting renders the authority's regulatory filing document.  The
// wire format is contract, not style: element names, nesting, branch
// selection, date formats, and escaping are fixed by the receiving authority,
// and any deviation makes the filing invalid.  Rendering is a pure function
// of its input; identical input always produces byte-identical output.
package reporting

import (
	"time"

	"github.com/vigiamx/satavisos/internal/domain/alert"
)

// Header identifies the filing organization and period.  It appears once per
// document.
type Header struct {
	// ReportedMonth is the six-digit period label (YYYYMM).
	ReportedMonth string
	// ObligorID is the organization's taxpayer registry code.
	ObligorID string
	// ActivityCode is the authority's code for the vehicle-trade vulnerable
	// activity.
	ActivityCode string
}

// Record is one per-alert filing entry.
type Record struct {
	// Reference is the alert's stable reference carried to the authority
	// (used to match acknowledgments back to alerts).
	Reference string
	// Priority is the numeric severity rank, 1 (low) through 4 (critical).
	Priority int
	// AlertTypeCode is the detection rule's registry key.
	AlertTypeCode string
	// AlertDescription is free text describing the detection.
	AlertDescription string

	Person          *alert.Person
	BeneficialOwner *alert.Person
	Operation       *alert.Operation
}

// PriorityForSeverity maps the alert severity scale onto the document's
// numeric priority rank.
func PriorityForSeverity(s alert.Severity) int {
	switch s {
	case alert.SeverityLow:
		return 1
	case alert.SeverityMedium:
		return 2
	case alert.SeverityHigh:
		return 3
	case alert.SeverityCritical:
		return 4
	}
	return 1
}

// dayDate renders a day-level date as the schema's compact 8-digit form.
// Dates are first moved into the authority's zone carried by the caller;
// rendering never emits separators.
func dayDate(t time.Time) string {
	return t.Format("20060102")
}
