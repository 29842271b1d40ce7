package provider

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// utahSearchURL is the DOPL "Licensee Lookup & Verification" entry point the
// real integration would scrape.
const utahSearchURL = "https://secure.utah.gov/llv/search/index.html#"

const utahProfession = "Physician & Surgeon"

// utahAdapter is the synthetic Utah data source. It answers every lookup
// with one fixed licensee; the record still flows through the same
// normalization helpers a real scrape result would.
type utahAdapter struct{}

func NewUtahAdapter() Adapter {
	return &utahAdapter{}
}

func (a *utahAdapter) Jurisdiction() Jurisdiction {
	return Utah
}

func (a *utahAdapter) Fetch(ctx context.Context, subject string) ([]Record, error) {
	fullName := cleanText("Jane  A.  Smith")
	first, last := splitName(fullName)

	record := Record{
		FullName:      fullName,
		State:         Utah,
		LicenseNumber: numberOrPlaceholder("8231441-1205"),
		Status:        "Active",
		IssueDate:     parseDate("06/17/2019"),
		ExpiryDate:    parseDate("2026-01-31"),
		SourceURI:     utahSearchURL,
		Detail: map[string]any{
			"first_name": first,
			"last_name":  last,
			"profession": utahProfession,
		},
		LastVerifiedAt: time.Now().UTC(),
	}

	return []Record{record}, nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// splitName splits a full name into first and last: the trailing token is
// the last name, everything before it the first. A single token is a last
// name only.
func splitName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return "", parts[0]
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

var dateLayouts = []string{
	"01/02/2006",
	"2006-01-02",
	"01-02-2006",
	"2006/01/02",
}

// parseDate accepts the handful of date renderings upstream sources use and
// returns nil when none match.
func parseDate(s string) *time.Time {
	s = cleanText(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func numberOrPlaceholder(number string) string {
	if number == "" {
		return "UNKNOWN"
	}
	return number
}
