package util

// DefaultPageSize is the list page size used by the client-facing surfaces.
const DefaultPageSize = 5

// Paginate computes the offset, limit and page count for a 1-based page over
// total items. Out-of-range pages clamp to the valid range, so a list never
// 404s after items are removed.
func Paginate(total, page, perPage int) (offset, limit, totalPages int) {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	totalPages = (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return (page - 1) * perPage, perPage, totalPages
}
