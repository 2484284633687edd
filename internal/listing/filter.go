// Package listing narrows and pages ordered record lists for dashboard views.
package listing

import (
	"strings"

	"golang.org/x/text/cases"
)

// Accessors extract the values filtering needs from a record.
// Any accessor may be nil when the record type has no such value.
type Accessors[T any] struct {
	ScopeKey func(T) string
	Text     func(T) []string
	Status   func(T) string
}

// Criteria selects records. When Restricted is set only records whose scope
// key is listed in AllowedKeys survive, and Limit truncates that result.
type Criteria struct {
	Restricted  bool
	AllowedKeys []string
	Limit       int
	Search      string
	Status      string
}

// Filter applies scope, search and status in that order and keeps input order.
func Filter[T any](items []T, accessors Accessors[T], criteria Criteria) []T {
	scoped := applyScope(items, accessors, criteria)
	searched := applySearch(scoped, accessors, criteria.Search)
	return applyStatus(searched, accessors, criteria.Status)
}

func applyScope[T any](items []T, accessors Accessors[T], criteria Criteria) []T {
	if !criteria.Restricted {
		return append([]T(nil), items...)
	}
	allowed := make(map[string]struct{}, len(criteria.AllowedKeys))
	for _, key := range criteria.AllowedKeys {
		allowed[key] = struct{}{}
	}
	result := make([]T, 0, len(items))
	for _, item := range items {
		if accessors.ScopeKey == nil {
			break
		}
		if _, ok := allowed[accessors.ScopeKey(item)]; !ok {
			continue
		}
		result = append(result, item)
		if criteria.Limit > 0 && len(result) == criteria.Limit {
			break
		}
	}
	return result
}

func applySearch[T any](items []T, accessors Accessors[T], search string) []T {
	caser := cases.Fold()
	needle := caser.String(strings.TrimSpace(search))
	if needle == "" || accessors.Text == nil {
		return items
	}
	result := make([]T, 0, len(items))
	for _, item := range items {
		for _, value := range accessors.Text(item) {
			if value != "" && strings.Contains(caser.String(value), needle) {
				result = append(result, item)
				break
			}
		}
	}
	return result
}

func applyStatus[T any](items []T, accessors Accessors[T], status string) []T {
	wanted := strings.ToLower(strings.TrimSpace(status))
	if wanted == "" || wanted == "all" || accessors.Status == nil {
		return items
	}
	result := make([]T, 0, len(items))
	for _, item := range items {
		if accessors.Status(item) == wanted {
			result = append(result, item)
		}
	}
	return result
}
