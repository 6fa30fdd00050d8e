// Package domain provides types shared by catalog and document services.
package domain

// --- Filter & Pagination ---

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search matches codes, references and designations (ILIKE)
	Search string

	// OrderBy specifies sorting (e.g., "code", "-created_at")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// MaxListLimit caps page size for every list endpoint.
const MaxListLimit = 200

// Normalize applies defaults and bounds to pagination.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
