package records

import (
	"formtable/models"
	"sort"
	"strings"
)

// ==================== QUERY PIPELINE ====================
//
// The visible slice of the table is always
// Paginate(Sort(Filter(records, criteria), sortConfig), pagination).
// Every function here returns a fresh slice and never touches its input.

// Apply runs the full filter → sort → paginate pipeline.
// A nil pagination returns the whole filtered and sorted list.
func Apply(records []models.Record, criteria *models.FilterCriteria, sortConfig *models.SortConfig, pagination *models.Pagination) []models.Record {
	result := Sort(Filter(records, criteria), sortConfig)
	if pagination == nil {
		return result
	}
	return Paginate(result, *pagination)
}

// Filter keeps the records matching every clause of criteria
func Filter(records []models.Record, criteria *models.FilterCriteria) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if Matches(r, criteria) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether a single record satisfies criteria
func Matches(r models.Record, criteria *models.FilterCriteria) bool {
	if criteria == nil {
		return true
	}
	if criteria.AgeMin != nil && r.Age < *criteria.AgeMin {
		return false
	}
	if criteria.AgeMax != nil && r.Age > *criteria.AgeMax {
		return false
	}
	if strings.TrimSpace(criteria.Substring) == "" {
		return true
	}

	needle := strings.ToLower(criteria.Substring)
	return strings.Contains(strings.ToLower(r.FirstName), needle) ||
		strings.Contains(strings.ToLower(r.LastName), needle) ||
		strings.Contains(strings.ToLower(r.Description), needle)
}

// Sort stable-sorts a copy of records by the configured field.
// Records equal under the key keep their relative order.
func Sort(records []models.Record, sortConfig *models.SortConfig) []models.Record {
	out := make([]models.Record, len(records))
	copy(out, records)
	if sortConfig == nil {
		return out
	}

	less := lessFunc(sortConfig.Key)
	if less == nil {
		return out
	}

	desc := sortConfig.Direction == models.SortDesc
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

// Paginate returns at most limit records starting at (page-1)*limit.
// A page past the end yields an empty slice.
func Paginate(records []models.Record, p models.Pagination) []models.Record {
	page, limit := p.Page, p.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return []models.Record{}
	}

	start := (page - 1) * limit
	if start >= len(records) {
		return []models.Record{}
	}
	end := start + limit
	if end > len(records) {
		end = len(records)
	}

	out := make([]models.Record, end-start)
	copy(out, records[start:end])
	return out
}

// TotalPages returns the number of pages needed to show total records
func TotalPages(total, limit int) int {
	if limit < 1 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// IsSortKey reports whether key names a sortable record field
func IsSortKey(key string) bool {
	return lessFunc(key) != nil
}

func lessFunc(key string) func(a, b models.Record) bool {
	switch key {
	case models.FieldID:
		return func(a, b models.Record) bool { return a.ID < b.ID }
	case models.FieldFirstName:
		return func(a, b models.Record) bool { return a.FirstName < b.FirstName }
	case models.FieldLastName:
		return func(a, b models.Record) bool { return a.LastName < b.LastName }
	case models.FieldAge:
		return func(a, b models.Record) bool { return a.Age < b.Age }
	case models.FieldDescription:
		return func(a, b models.Record) bool { return a.Description < b.Description }
	default:
		return nil
	}
}
