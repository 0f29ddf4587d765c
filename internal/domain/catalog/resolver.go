package catalog

import (
	"context"

	"github.com/vigiamx/satavisos/pkg/types/common"
)

// ResolveOptions tunes a resolver call.
type ResolveOptions struct {
	// CatalogKeys restricts ResolveByIDs to the given catalogs; empty means
	// no restriction.
	CatalogKeys []Key
	// IncludeInactive also returns records whose active flag is off.
	IncludeInactive bool
}

// ResolveOption is a functional option for resolver calls.
type ResolveOption func(*ResolveOptions)

// WithCatalogKeys restricts the lookup to the given catalogs.
func WithCatalogKeys(keys ...Key) ResolveOption {
	return func(o *ResolveOptions) { o.CatalogKeys = keys }
}

// WithInactive includes inactive records in the result.
func WithInactive() ResolveOption {
	return func(o *ResolveOptions) { o.IncludeInactive = true }
}

// ApplyResolveOptions folds the options into their final configuration.
func ApplyResolveOptions(opts ...ResolveOption) ResolveOptions {
	var options ResolveOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Resolver is the batch reference-data lookup the engine consumes.  A miss is
// simply absent from the returned map; callers must not treat a miss as an
// error — the engine turns misses into VALIDATION failures only where the
// document schema requires the code.
type Resolver interface {
	// ResolveByIDs returns the records for the given identifiers, keyed by
	// identifier.
	ResolveByIDs(ctx context.Context, ids []common.ID, opts ...ResolveOption) (map[common.ID]*Record, error)

	// ResolveByCode returns the records of one catalog keyed by their
	// authority reference code.
	ResolveByCode(ctx context.Context, key Key, codes []string, opts ...ResolveOption) (map[string]*Record, error)

	// ResolveByCodeAcrossCatalogs returns records keyed by code, searching
	// several catalogs at once.  When two catalogs share a code the first
	// catalog in keys wins.
	ResolveByCodeAcrossCatalogs(ctx context.Context, keys []Key, codes []string, opts ...ResolveOption) (map[string]*Record, error)
}
