package util

// ListFilter carries the query, order and window of a listing request.
// A zero Limit means the repository default.
type ListFilter struct {
	Filters []QueryFilter
	Order   []OrderClause
	Limit   int
	Offset  int
}
