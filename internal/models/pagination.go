package models

const DefaultPerPage = 20

// PageRequest selects a 1-based page of a listing.
type PageRequest struct {
	Page    uint64
	PerPage uint64
}

func (r PageRequest) Normalize() PageRequest {
	if r.Page == 0 {
		r.Page = 1
	}
	if r.PerPage == 0 {
		r.PerPage = DefaultPerPage
	}
	return r
}

func (r PageRequest) Offset() uint64 {
	r = r.Normalize()
	return (r.Page - 1) * r.PerPage
}

type Page[T any] struct {
	Items   []T    `json:"items"`
	Total   uint64 `json:"total"`
	Page    uint64 `json:"page"`
	Pages   uint64 `json:"pages"`
	PerPage uint64 `json:"per_page"`
}

func NewPage[T any](items []T, total uint64, req PageRequest) *Page[T] {
	req = req.Normalize()
	if items == nil {
		items = make([]T, 0)
	}
	return &Page[T]{
		Items:   items,
		Total:   total,
		Page:    req.Page,
		Pages:   (total + req.PerPage - 1) / req.PerPage,
		PerPage: req.PerPage,
	}
}
