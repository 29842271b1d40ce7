package verification

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"licensure-verifier/services/provider"
)

// License is one persisted verification result. Rows are append-only: the
// orchestrator creates them and nothing updates or deletes them.
type License struct {
	ID             string          `gorm:"column:id;primaryKey"`
	FullName       string          `gorm:"column:full_name;not null"`
	State          string          `gorm:"column:state;not null;index"`
	LicenseNumber  string          `gorm:"column:license_number;not null"`
	Status         string          `gorm:"column:status"`
	IssueDate      *datatypes.Date `gorm:"column:issue_date"`
	ExpiryDate     *datatypes.Date `gorm:"column:expiry_date"`
	Provider       string          `gorm:"column:provider;index"`
	SourceURI      string          `gorm:"column:source_uri"`
	Detail         datatypes.JSON  `gorm:"column:detail"`
	LastVerifiedAt time.Time       `gorm:"column:last_verified_at"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// NewLicense converts an adapter record into a row. providerName is the
// name as requested, not the normalized registry key.
func NewLicense(id, providerName string, rec provider.Record) *License {
	detail, _ := json.Marshal(rec.Detail)

	return &License{
		ID:             id,
		FullName:       rec.FullName,
		State:          string(rec.State),
		LicenseNumber:  rec.LicenseNumber,
		Status:         rec.Status,
		IssueDate:      toDate(rec.IssueDate),
		ExpiryDate:     toDate(rec.ExpiryDate),
		Provider:       providerName,
		SourceURI:      rec.SourceURI,
		Detail:         datatypes.JSON(detail),
		LastVerifiedAt: rec.LastVerifiedAt,
	}
}

func toDate(t *time.Time) *datatypes.Date {
	if t == nil {
		return nil
	}
	d := datatypes.Date(*t)
	return &d
}

type LicenseResponse struct {
	ID             string         `json:"id"`
	FullName       string         `json:"full_name"`
	State          string         `json:"state"`
	LicenseNumber  string         `json:"license_number"`
	Status         string         `json:"status,omitempty"`
	IssueDate      *string        `json:"issue_date"`
	ExpiryDate     *string        `json:"expiry_date"`
	Provider       string         `json:"provider"`
	SourceURI      string         `json:"source_uri,omitempty"`
	Detail         datatypes.JSON `json:"detail,omitempty"`
	LastVerifiedAt time.Time      `json:"last_verified_at"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (m *License) ToResponse() LicenseResponse {
	return LicenseResponse{
		ID:             m.ID,
		FullName:       m.FullName,
		State:          m.State,
		LicenseNumber:  m.LicenseNumber,
		Status:         m.Status,
		IssueDate:      formatDate(m.IssueDate),
		ExpiryDate:     formatDate(m.ExpiryDate),
		Provider:       m.Provider,
		SourceURI:      m.SourceURI,
		Detail:         m.Detail,
		LastVerifiedAt: m.LastVerifiedAt,
		CreatedAt:      m.CreatedAt,
	}
}

func formatDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}
	s := time.Time(*d).Format("2006-01-02")
	return &s
}
