// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/core/query"
)

// columnKind drives how a filter value is converted before it is passed
// to the database.
type columnKind int

const (
	kindText columnKind = iota
	kindNumber
	kindBool
	kindUUID
	kindTextArray
)

// column maps one request field to its table column.
type column struct {
	name string
	kind columnKind
}

// listClauses is the translated tail of a list statement: WHERE, ORDER BY,
// LIMIT and OFFSET, with the collected statement arguments.
type listClauses struct {
	sql  string
	args []interface{}
}

func sqlOperator(op query.Op) string {
	switch op {
	case query.OpGt:
		return ">"
	case query.OpGte:
		return ">="
	case query.OpLt:
		return "<"
	case query.OpLte:
		return "<="
	}
	return "="
}

// convertValue converts one filter value according to the column kind.
// A value the column cannot hold is a client error.
func convertValue(c column, field, value string) (interface{}, error) {
	switch c.kind {
	case kindNumber:
		number, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, apierr.New(apierr.BadRequest, "illegal value '%s' for parameter %s", value, field)
		}
		return number, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, apierr.New(apierr.BadRequest, "illegal value '%s' for parameter %s", value, field)
		}
		return b, nil
	}
	return value, nil
}

// buildListClauses translates a list query into the statement tail
// following the WHERE keyword. Filter and sort fields must be part of the
// column whitelist, everything else is a client error.
func buildListClauses(columns map[string]column, q query.ListQuery) (listClauses, error) {
	var clauses listClauses
	var conditions []string

	for _, filter := range q.Filters {
		c, ok := columns[filter.Field]
		if !ok {
			return clauses, apierr.New(apierr.BadRequest, "unknown query parameter %s", filter.Field)
		}
		switch {
		case c.kind == kindTextArray && filter.Op == query.OpIn:
			// array overlap, any of the requested values
			clauses.args = append(clauses.args, pq.Array(filter.Values))
			conditions = append(conditions, fmt.Sprintf("%s && $%d", c.name, len(clauses.args)))
		case c.kind == kindTextArray:
			if filter.Op != query.OpEq {
				return clauses, apierr.New(apierr.BadRequest, "illegal operator for parameter %s", filter.Field)
			}
			clauses.args = append(clauses.args, filter.Value)
			conditions = append(conditions, fmt.Sprintf("$%d = ANY (%s)", len(clauses.args), c.name))
		case filter.Op == query.OpIn:
			values := make([]interface{}, 0, len(filter.Values))
			for _, value := range filter.Values {
				converted, err := convertValue(c, filter.Field, value)
				if err != nil {
					return clauses, err
				}
				values = append(values, converted)
			}
			clauses.args = append(clauses.args, pq.Array(values))
			conditions = append(conditions, fmt.Sprintf("%s = ANY ($%d)", c.name, len(clauses.args)))
		default:
			converted, err := convertValue(c, filter.Field, filter.Value)
			if err != nil {
				return clauses, err
			}
			clauses.args = append(clauses.args, converted)
			conditions = append(conditions, fmt.Sprintf("%s %s $%d", c.name, sqlOperator(filter.Op), len(clauses.args)))
		}
	}

	var sql strings.Builder
	if len(conditions) > 0 {
		sql.WriteString("WHERE ")
		sql.WriteString(strings.Join(conditions, " AND "))
		sql.WriteString(" ")
	}

	sql.WriteString("ORDER BY ")
	for _, key := range q.Sort {
		c, ok := columns[key.Field]
		if !ok {
			return clauses, apierr.New(apierr.BadRequest, "unknown sort parameter %s", key.Field)
		}
		direction := "ASC"
		if key.Descending {
			direction = "DESC"
		}
		fmt.Fprintf(&sql, "%s %s, ", c.name, direction)
	}
	// stable default and tie breaker
	sql.WriteString(columns["createdAt"].name + " DESC ")

	start, end := q.Window()
	fmt.Fprintf(&sql, "LIMIT %d OFFSET %d;", end-start, start)

	clauses.sql = sql.String()
	return clauses, nil
}
