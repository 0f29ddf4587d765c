// Package common defines small shared types used across layers of the
// satavisos platform: identifiers, pagination, date ranges, and the generic
// API response envelope.
package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ID is a string alias for UUID v4.
type ID string

// OrgID is a string alias for the organization (tenant) identifier.  Every
// engine operation takes the organization explicitly; there is no ambient
// request-scoped tenant state.
type OrgID string

// Metadata is an open-ended key-value bag for pass-through payloads.
type Metadata map[string]interface{}

// NewID generates a fresh UUID-backed ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// Validate reports whether the ID is a well-formed UUID.
func (id ID) Validate() error {
	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("invalid id %q: %w", string(id), err)
	}
	return nil
}

// Pagination defines parameters for paginated requests.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total,omitempty"`
}

// Offset converts page/page-size into a row offset.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// DateRange defines a half-open time interval [From, To).
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// ErrorDetail provides structured error information for API responses.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// APIResponse is the generic wrapper for all API responses.
type APIResponse[T any] struct {
	Success    bool         `json:"success"`
	Data       T            `json:"data,omitempty"`
	Error      *ErrorDetail `json:"error,omitempty"`
	Pagination *Pagination  `json:"pagination,omitempty"`
	RequestID  string       `json:"request_id"`
	Timestamp  time.Time    `json:"timestamp"`
}
