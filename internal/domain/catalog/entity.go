// Package catalog defines the reference-data records (currencies, vehicle
// brands, countries, payment methods) the engine resolves while generating a
// regulatory document, and the resolver contract it consumes.
package catalog

import (
	"time"

	"github.com/vigiamx/satavisos/pkg/types/common"
)

// Key names one catalog.  The set is fixed by the authority's document
// schema; new catalogs only appear when the schema does.
type Key string

const (
	KeyCurrency          Key = "currency"
	KeyVehicleBrand      Key = "vehicle_brand"
	KeyCountry           Key = "country"
	KeyPaymentForm       Key = "payment_form"
	KeyPaymentInstrument Key = "payment_instrument"
	KeyOperationType     Key = "operation_type"
)

// Record is one catalog entry.  The authority's reference code lives inside
// Metadata under "code" rather than a dedicated column, matching the upstream
// catalog service's storage model.
type Record struct {
	ID         common.ID       `json:"id"`
	CatalogKey Key             `json:"catalog_key"`
	Label      string          `json:"label"`
	Active     bool            `json:"active"`
	Metadata   common.Metadata `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Code extracts the authority reference code from the record's metadata bag.
// Records without one return the empty string.
func (r *Record) Code() string {
	if r.Metadata == nil {
		return ""
	}
	if code, ok := r.Metadata["code"].(string); ok {
		return code
	}
	return ""
}
