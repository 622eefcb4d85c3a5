package pagination

// Pagination is the page/limit pair accepted by list endpoints.
type Pagination struct {
	Page  int `form:"page,default=1" validate:"gte=1"`
	Limit int `form:"limit,default=20" validate:"gte=1,lte=250"` // Min 1, Max 250
}

func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 250 {
		p.Limit = 250
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageInfo describes the slice of a list response.
type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"total_count"`
	HasMore    bool  `json:"has_more"`
}

func BuildPageInfo(page Pagination, total int64) PageInfo {
	return PageInfo{
		Page:       page.Page,
		Limit:      page.Limit,
		TotalCount: total,
		HasMore:    int64(page.Offset()+page.Limit) < total,
	}
}
