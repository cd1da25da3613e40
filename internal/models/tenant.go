package models

import (
	"errors"
	"time"
)

// ErrTenantNotFound is returned when a tenant lookup misses
var ErrTenantNotFound = errors.New("tenant not found")

// Tenant represents one customer account owning a single automation target ("brand").
// The scheduler mutates only LastContextRefresh and VisibilityScore; pause state
// is owned by the tenant and is a hard override checked before any automation work.
type Tenant struct {
	ID                 string     `json:"id" badgerhold:"key"`
	Name               string     `json:"name"`
	Domain             string     `json:"domain"`
	Paused             bool       `json:"paused"`
	LastContextRefresh *time.Time `json:"last_context_refresh,omitempty"`
	VisibilityScore    int        `json:"visibility_score"` // Denormalized cache of the latest snapshot score
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Validate checks required tenant fields
func (t *Tenant) Validate() error {
	if t.ID == "" {
		return errors.New("tenant ID is required")
	}
	if t.Name == "" {
		return errors.New("tenant name is required")
	}
	return nil
}
