package sqlite

import (
	"strconv"
	"strings"
	"time"

	"github.com/martijn/harvestd/internal/api/util"
	"github.com/martijn/harvestd/internal/errors"
)

type columnKind int

const (
	textColumn columnKind = iota
	intColumn
	timeColumn
)

// runColumnKinds lists the run columns a listing may filter or order on.
// Anything else is rejected before it reaches the SQL text.
var runColumnKinds = map[string]columnKind{
	"id":        textColumn,
	"started":   timeColumn,
	"finished":  timeColumn,
	"exit_code": intColumn,
}

var comparisons = map[util.QueryOperator]string{
	util.OpEq:  "=",
	util.OpNe:  "!=",
	util.OpGt:  ">",
	util.OpGte: ">=",
	util.OpLt:  "<",
	util.OpLte: "<=",
}

// inputTimeLayouts are the forms accepted for time filters, most precise first
var inputTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// queryBuilder accumulates a WHERE/ORDER/LIMIT tail and its arguments
type queryBuilder struct {
	columns map[string]columnKind
	sql     strings.Builder
	args    []interface{}
}

func newQueryBuilder(base string, columns map[string]columnKind) *queryBuilder {
	b := &queryBuilder{columns: columns}
	b.sql.WriteString(base)
	b.sql.WriteString(" WHERE 1=1")
	return b
}

func (b *queryBuilder) String() string      { return b.sql.String() }
func (b *queryBuilder) Args() []interface{} { return b.args }

func (b *queryBuilder) kind(field string) (columnKind, error) {
	kind, ok := b.columns[field]
	if !ok {
		return 0, errors.Newf("unknown column %q", field)
	}
	return kind, nil
}

// Where appends one AND condition per filter
func (b *queryBuilder) Where(filters []util.QueryFilter) error {
	for _, f := range filters {
		kind, err := b.kind(f.Field)
		if err != nil {
			return err
		}

		switch f.Operator {
		case util.OpIsNull:
			b.sql.WriteString(" AND " + f.Field + " IS NULL")
		case util.OpIsNotNull:
			b.sql.WriteString(" AND " + f.Field + " IS NOT NULL")
		case util.OpIn, util.OpNin:
			values, _ := f.Value.([]string)
			if len(values) == 0 {
				return errors.Newf("%s on %s needs at least one value", f.Operator, f.Field)
			}
			keyword := " IN ("
			if f.Operator == util.OpNin {
				keyword = " NOT IN ("
			}
			b.sql.WriteString(" AND " + f.Field + keyword)
			for i, v := range values {
				arg, err := coerce(kind, v)
				if err != nil {
					return errors.Wrapf(err, "filter on %s", f.Field)
				}
				if i > 0 {
					b.sql.WriteString(", ")
				}
				b.sql.WriteString("?")
				b.args = append(b.args, arg)
			}
			b.sql.WriteString(")")
		default:
			op, ok := comparisons[f.Operator]
			if !ok {
				return errors.Newf("unsupported operator %q", f.Operator)
			}
			value, _ := f.Value.(string)
			arg, err := coerce(kind, value)
			if err != nil {
				return errors.Wrapf(err, "filter on %s", f.Field)
			}
			b.sql.WriteString(" AND " + f.Field + " " + op + " ?")
			b.args = append(b.args, arg)
		}
	}
	return nil
}

// OrderBy appends the requested ordering, or fallback when none is given
func (b *queryBuilder) OrderBy(orders []util.OrderClause, fallback string) error {
	if len(orders) == 0 {
		b.sql.WriteString(" ORDER BY " + fallback)
		return nil
	}
	clauses := make([]string, 0, len(orders))
	for _, o := range orders {
		if _, err := b.kind(o.Field); err != nil {
			return err
		}
		direction := "ASC"
		if o.Direction == util.OrderDesc {
			direction = "DESC"
		}
		clauses = append(clauses, o.Field+" "+direction)
	}
	b.sql.WriteString(" ORDER BY " + strings.Join(clauses, ", "))
	return nil
}

// Page appends LIMIT and OFFSET; a non-positive limit leaves the query unbounded
func (b *queryBuilder) Page(limit, offset int) {
	if limit <= 0 {
		return
	}
	b.sql.WriteString(" LIMIT ?")
	b.args = append(b.args, limit)
	if offset > 0 {
		b.sql.WriteString(" OFFSET ?")
		b.args = append(b.args, offset)
	}
}

// coerce turns a filter value into the argument type stored in the column.
// Time values are normalized to the fixed-width layout so string comparison
// in SQLite orders correctly.
func coerce(kind columnKind, value string) (interface{}, error) {
	switch kind {
	case intColumn:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, errors.Newf("%q is not an integer", value)
		}
		return n, nil
	case timeColumn:
		for _, layout := range inputTimeLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				return FormatTime(t), nil
			}
		}
		return nil, errors.Newf("%q is not a recognized time", value)
	default:
		return value, nil
	}
}
