package provider

import (
	"context"
	"fmt"
	"time"
)

// Jurisdiction identifies a licensing authority by its state code. The set
// is closed: adding one means a new value here, an Adapter implementation,
// and a registry entry.
type Jurisdiction string

var (
	Utah Jurisdiction = "UT"
)

func (j Jurisdiction) String() string {
	switch j {
	case Utah:
		return string(j)
	default:
		return ""
	}
}

// Record is one license entry in the shape adapters hand to the rest of the
// system, before it becomes a storage row.
type Record struct {
	FullName       string
	State          Jurisdiction
	LicenseNumber  string
	Status         string
	IssueDate      *time.Time
	ExpiryDate     *time.Time
	SourceURI      string
	Detail         map[string]any
	LastVerifiedAt time.Time
}

// Adapter translates one jurisdiction's data source into Records.
type Adapter interface {
	Jurisdiction() Jurisdiction
	Fetch(ctx context.Context, subject string) ([]Record, error)
}

// UnknownProviderError reports a requested provider name with no registered
// adapter.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q", e.Name)
}

// AdapterError reports a failed lookup against a jurisdiction's data source.
type AdapterError struct {
	Jurisdiction Jurisdiction
	Err          error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("provider %s lookup failed: %v", e.Jurisdiction, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
