package util

import (
	"sort"
	"strings"

	"github.com/martijn/harvestd/internal/errors"
)

// QueryOperator is a comparison in a listing filter
type QueryOperator string

const (
	OpEq        QueryOperator = "eq"
	OpNe        QueryOperator = "ne"
	OpGt        QueryOperator = "gt"
	OpGte       QueryOperator = "gte"
	OpLt        QueryOperator = "lt"
	OpLte       QueryOperator = "lte"
	OpIn        QueryOperator = "in"
	OpNin       QueryOperator = "nin"
	OpIsNull    QueryOperator = "isnull"
	OpIsNotNull QueryOperator = "isnotnull"
)

// takesValue is false for the null checks
var operators = map[QueryOperator]bool{
	OpEq: true, OpNe: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpIn: true, OpNin: true,
	OpIsNull: false, OpIsNotNull: false,
}

// QueryFilter is one condition. Value is a string, a []string for in/nin,
// or nil for the null checks.
type QueryFilter struct {
	Field    string
	Operator QueryOperator
	Value    interface{}
}

type OrderDirection string

const (
	OrderAsc  OrderDirection = "asc"
	OrderDesc OrderDirection = "desc"
)

type OrderClause struct {
	Field     string
	Direction OrderDirection
}

// ParseQueryString parses comma-separated conditions of the form
// field|value, field|isnull, field|isnotnull or field|operator|value.
// Values for in and nin are separated by semicolons: exit_code|in|1;2.
func ParseQueryString(queryStr string) ([]QueryFilter, error) {
	var filters []QueryFilter
	for _, cond := range splitList(queryStr) {
		parts := strings.Split(cond, "|")
		field := strings.TrimSpace(parts[0])
		if field == "" {
			return nil, errors.Newf("invalid query condition %q: missing field", cond)
		}

		switch len(parts) {
		case 2:
			op := QueryOperator(strings.ToLower(parts[1]))
			if takesValue, known := operators[op]; known && !takesValue {
				filters = append(filters, QueryFilter{Field: field, Operator: op})
				continue
			}
			filters = append(filters, QueryFilter{Field: field, Operator: OpEq, Value: parts[1]})

		case 3:
			op := QueryOperator(strings.ToLower(parts[1]))
			takesValue, known := operators[op]
			if !known {
				return nil, errors.Newf("invalid operator: %s", parts[1])
			}
			if !takesValue {
				return nil, errors.Newf("operator %s takes no value", op)
			}
			filter := QueryFilter{Field: field, Operator: op, Value: parts[2]}
			if op == OpIn || op == OpNin {
				filter.Value = strings.Split(parts[2], ";")
			}
			filters = append(filters, filter)

		default:
			return nil, errors.Newf("invalid query format: %s (expected field|value or field|operator|value)", cond)
		}
	}
	return filters, nil
}

// ParseOrderString parses comma-separated field|asc or field|desc clauses
func ParseOrderString(orderStr string) ([]OrderClause, error) {
	var orders []OrderClause
	for _, clause := range splitList(orderStr) {
		field, direction, ok := strings.Cut(clause, "|")
		if !ok || field == "" {
			return nil, errors.Newf("invalid order format: %s (expected field|direction)", clause)
		}
		dir := OrderDirection(strings.ToLower(direction))
		if dir != OrderAsc && dir != OrderDesc {
			return nil, errors.Newf("invalid order direction: %s (expected asc or desc)", direction)
		}
		orders = append(orders, OrderClause{Field: field, Direction: dir})
	}
	return orders, nil
}

// ValidateFilterFields rejects filters on fields outside allowedFields
func ValidateFilterFields(filters []QueryFilter, allowedFields []string) error {
	for _, f := range filters {
		if !contains(allowedFields, f.Field) {
			return errors.Newf("invalid query field: %s (valid fields: %s)", f.Field, joinSorted(allowedFields))
		}
	}
	return nil
}

// ValidateOrderFields rejects ordering on fields outside allowedFields
func ValidateOrderFields(orders []OrderClause, allowedFields []string) error {
	for _, o := range orders {
		if !contains(allowedFields, o.Field) {
			return errors.Newf("invalid order field: %s (valid fields: %s)", o.Field, joinSorted(allowedFields))
		}
	}
	return nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func joinSorted(list []string) string {
	sorted := append([]string(nil), list...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}
