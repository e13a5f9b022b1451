package models

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination calcule le nombre de pages : ceil(total/limit)
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Window retourne les bornes [start, end) d'une page dans une liste de n éléments
func Window(n, page, limit int) (int, int) {
	if page < 1 || limit < 1 || page-1 > n/limit {
		return n, n
	}
	start := (page - 1) * limit
	if start > n {
		start = n
	}
	end := n
	if limit < n-start {
		end = start + limit
	}
	return start, end
}
