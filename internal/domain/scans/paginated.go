package scans

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []*ScanResult `json:"data"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	Total      int64         `json:"totalItems"`
	TotalPages int           `json:"totalPages"`
}

// Paginate slices an already ordered list. page is 1-based; a page past
// the end yields empty Data.
func Paginate(all []*ScanResult, page, pageSize int) PaginatedResult {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	out := PaginatedResult{
		Data:       []*ScanResult{},
		Page:       page,
		PageSize:   pageSize,
		Total:      int64(len(all)),
		TotalPages: (len(all) + pageSize - 1) / pageSize,
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return out
	}
	end := min(start+pageSize, len(all))
	out.Data = all[start:end]
	return out
}
