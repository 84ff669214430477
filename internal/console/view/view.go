// Package view derives the displayed submission list from a snapshot, a
// free-text search, and an optional named filter. Derivation is a pure
// function of its inputs: it never mutates the snapshot and always returns
// a subset preserving the snapshot's relative order.
package view

import (
	"strings"

	"veridesk/internal/console/models"
)

// Derive returns the submissions matching both the search text and the
// filter. An empty search and FilterNone return the snapshot unchanged
// (copied). An empty result is a valid state, not an error.
func Derive(snapshot []models.Submission, search string, filter models.Filter) []models.Submission {
	result := make([]models.Submission, 0, len(snapshot))
	query := strings.ToLower(strings.TrimSpace(search))
	for _, record := range snapshot {
		if query != "" && !MatchesSearch(record, query) {
			continue
		}
		if !MatchesFilter(record, filter) {
			continue
		}
		result = append(result, record)
	}
	return result
}

// MatchesSearch reports whether the record matches the lowercased query.
// The identifier field, phone, and committed verification code are searched;
// a substring hit on any of them includes the record.
func MatchesSearch(record models.Submission, lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	return strings.Contains(strings.ToLower(record.IDNumber), lowerQuery) ||
		strings.Contains(strings.ToLower(record.Phone), lowerQuery) ||
		strings.Contains(strings.ToLower(record.Code), lowerQuery)
}

// MatchesFilter reports whether the record satisfies the named filter.
// FilterNone matches everything.
func MatchesFilter(record models.Submission, filter models.Filter) bool {
	switch filter {
	case models.FilterNone:
		return true
	case models.FilterPending:
		return record.Disposition == models.DispositionPending
	case models.FilterApproved:
		return record.Disposition == models.DispositionApproved
	case models.FilterRejected:
		return record.Disposition == models.DispositionRejected
	case models.FilterHasCard:
		return record.HasCard()
	case models.FilterHasPersonal:
		return record.HasPersonal()
	}
	return false
}
