package entity

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// JustNow is the relative-time label for anything under a minute old.
const JustNow = "Just now"

const avatarBaseURL = "https://i.pravatar.cc/150?u="

// AvatarURL returns the stored avatar or a deterministic one seeded by email, then id.
func AvatarURL(stored *string, email, id string) string {
	if stored != nil && *stored != "" {
		return *stored
	}
	seed := email
	if seed == "" {
		seed = id
	}
	return avatarBaseURL + componentEscape(seed)
}

// componentUnescape undoes the QueryEscape choices that URI component encoding
// leaves literal, so a seed maps to the same URL browsers build.
var componentUnescape = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func componentEscape(s string) string {
	return componentUnescape.Replace(url.QueryEscape(s))
}

// RelativeTime renders t relative to now. A zero t yields "".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return JustNow
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int64(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int64(diff/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int64(diff/(24*time.Hour)))
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp shapes the store emits.
func ParseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatRelativeTime is RelativeTime for raw strings; unparseable input yields "".
func FormatRelativeTime(raw string, now time.Time) string {
	t, ok := ParseTimestamp(raw)
	if !ok {
		return ""
	}
	return RelativeTime(t, now)
}

// latest picks the most recent of the present timestamps.
func latest(ts ...*time.Time) time.Time {
	var out time.Time
	for _, t := range ts {
		if t != nil && t.After(out) {
			out = *t
		}
	}
	return out
}

// ToViewModel maps a persisted row onto the view shape. It never fails.
func ToViewModel(row LeadRow, now time.Time) Lead {
	activity := latest(row.LastActivityAt, row.UpdatedAt, row.CreatedAt)

	lead := Lead{
		ID:             row.ID,
		Name:           row.Name,
		Company:        row.Company,
		Email:          row.Email,
		Value:          row.Value,
		Stage:          row.Stage,
		Tags:           append([]string{}, row.Tags...),
		LastActivity:   RelativeTime(activity, now),
		LastActivityAt: activity,
		Avatar:         AvatarURL(row.AvatarURL, row.Email, row.ID),
	}
	if row.Phone != nil {
		lead.Phone = *row.Phone
	}
	return lead
}

// FromViewModel is the inverse of ToViewModel on the fields the client owns.
func FromViewModel(l Lead) LeadRow {
	row := LeadRow{
		ID:      l.ID,
		Name:    l.Name,
		Company: l.Company,
		Email:   l.Email,
		Phone:   nullString(l.Phone),
		Value:   l.Value,
		Stage:   l.Stage,
		Tags:    append([]string{}, l.Tags...),
	}
	if l.Avatar != "" {
		avatar := l.Avatar
		row.AvatarURL = &avatar
	}
	if !l.LastActivityAt.IsZero() {
		at := l.LastActivityAt
		row.LastActivityAt = &at
	}
	return row
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
