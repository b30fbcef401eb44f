package api

// PageResponse is the data member of every list response
type PageResponse[T any] struct {
	Items      []T   `json:"items"`
	Page       int64 `json:"page"`
	PageSize   int64 `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPageResponse wraps one page of items. An empty result is still one page
// and renders items as [] rather than null.
func NewPageResponse[T any](items []T, page, pageSize, totalItems int64) PageResponse[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := int64(1)
	if pageSize > 0 && totalItems > pageSize {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}
	return PageResponse[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
