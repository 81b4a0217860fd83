package store

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fieldPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// columns are stored outside the JSON document and queried directly.
var columns = map[string]bool{
	"id":           true,
	"created_date": true,
	"updated_date": true,
}

// Query selects records of one kind. Where is a conjunction of equality tests
// on top-level fields. Sort names a field, descending when prefixed with "-".
// Limit 0 means no limit.
type Query struct {
	Where map[string]any
	Sort  string
	Limit int
}

const defaultSort = "-created_date"

func fieldExpr(field string) (string, error) {
	if !fieldPattern.MatchString(field) {
		return "", fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	if columns[field] {
		return field, nil
	}
	return fmt.Sprintf("json_extract(data, '$.%s')", field), nil
}

func orderBy(sort string) (string, error) {
	if sort == "" {
		sort = defaultSort
	}
	dir := "ASC"
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		sort = sort[1:]
	}
	expr, err := fieldExpr(sort)
	if err != nil {
		return "", err
	}
	if sort == "created_date" {
		return fmt.Sprintf("ORDER BY created_date %s, id", dir), nil
	}
	return fmt.Sprintf("ORDER BY %s %s, created_date %s, id", expr, dir, dir), nil
}

// buildSelect renders q for kind. Keys are visited in sorted order so the same
// query always yields the same SQL.
func buildSelect(kind string, q Query) (string, []any, error) {
	where, args, err := whereClause(kind, q.Where)
	if err != nil {
		return "", nil, err
	}
	order, err := orderBy(q.Sort)
	if err != nil {
		return "", nil, err
	}

	query := "SELECT data FROM records " + where + " " + order
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}
	return query, args, nil
}

func whereClause(kind string, where map[string]any) (string, []any, error) {
	var b strings.Builder
	b.WriteString("WHERE kind = ?")
	args := []any{kind}

	for _, field := range sortedKeys(where) {
		expr, err := fieldExpr(field)
		if err != nil {
			return "", nil, err
		}
		val := where[field]
		switch v := val.(type) {
		case nil:
			fmt.Fprintf(&b, " AND %s IS NULL", expr)
			continue
		case string, float64, float32, int, int64, int32:
		case bool:
			if v {
				val = 1
			} else {
				val = 0
			}
		default:
			return "", nil, fmt.Errorf("%w: %s must be a string, number, bool or null", ErrInvalidValue, field)
		}
		fmt.Fprintf(&b, " AND %s = ?", expr)
		args = append(args, val)
	}
	return b.String(), args, nil
}

// cacheKey identifies q within its kind.
func (q Query) cacheKey() string {
	where, _ := json.Marshal(q.Where)
	return fmt.Sprintf("where=%s|sort=%s|limit=%d", where, q.Sort, q.Limit)
}
