// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package query translates the request query of collection GET routes into a
structured list query.

The reserved control keys are select, sort, page and limit. Every other key
is a field filter, either a plain equality filter

	name=Devworks

or a comparison with the operator as bracket suffix

	tuition[gte]=1000
	careers[in]=Business,UI/UX

The recognized operators are gt, gte, lt, lte and in. Only a whole bracket
token counts, tuition[gten] is not a comparison but a malformed query.
*/
package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/relabs-tech/campdir/core/apierr"
)

// Op is a filter comparison operator.
type Op string

// the supported comparison operators
const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// reserved control keys, everything else is a filter
const (
	keySelect = "select"
	keySort   = "sort"
	keyPage   = "page"
	keyLimit  = "limit"
)

// default page window
const (
	DefaultPage  = 1
	DefaultLimit = 25
)

// Condition is a single field filter.
type Condition struct {
	Field string
	Op    Op
	// Value carries the comparison value for all operators but OpIn
	Value string
	// Values carries the comma-separated list for OpIn
	Values []string
}

// SortKey is one key of the requested ordering.
type SortKey struct {
	Field      string
	Descending bool
}

// ListQuery is the structured form of a collection request query.
type ListQuery struct {
	Select  []string
	Sort    []SortKey
	Page    int
	Limit   int
	Filters []Condition
}

// Parse translates raw query values into a ListQuery. It fails with a
// BadRequest error when a filter key is malformed or a control key is
// repeated.
func Parse(values url.Values) (ListQuery, error) {
	q := ListQuery{Page: DefaultPage, Limit: DefaultLimit}

	for key, array := range values {
		if isControlKey(key) {
			if len(array) > 1 {
				return q, apierr.New(apierr.BadRequest, "illegal parameter array '%s'", key)
			}
			continue
		}
		condition, err := parseFilter(key, array)
		if err != nil {
			return q, err
		}
		q.Filters = append(q.Filters, condition)
	}
	// query values are a map, make the filter order reproducible
	sort.Slice(q.Filters, func(i, j int) bool {
		if q.Filters[i].Field != q.Filters[j].Field {
			return q.Filters[i].Field < q.Filters[j].Field
		}
		return q.Filters[i].Op < q.Filters[j].Op
	})

	if value := values.Get(keySelect); value != "" {
		for _, field := range strings.Split(value, ",") {
			if field = strings.TrimSpace(field); field != "" {
				q.Select = append(q.Select, field)
			}
		}
	}

	if value := values.Get(keySort); value != "" {
		for _, field := range strings.Split(value, ",") {
			if field = strings.TrimSpace(field); field == "" {
				continue
			} else if strings.HasPrefix(field, "-") {
				q.Sort = append(q.Sort, SortKey{Field: field[1:], Descending: true})
			} else {
				q.Sort = append(q.Sort, SortKey{Field: field})
			}
		}
	}

	// absent, non-numeric or non-positive page and limit fall back to the
	// defaults, they can never produce a negative window
	if page, err := strconv.Atoi(values.Get(keyPage)); err == nil && page >= 1 {
		q.Page = page
	}
	if limit, err := strconv.Atoi(values.Get(keyLimit)); err == nil && limit >= 1 {
		q.Limit = limit
	}

	return q, nil
}

func isControlKey(key string) bool {
	return key == keySelect || key == keySort || key == keyPage || key == keyLimit
}

func parseFilter(key string, array []string) (Condition, error) {
	var condition Condition

	field := key
	op := OpEq
	if i := strings.IndexRune(key, '['); i >= 0 {
		if !strings.HasSuffix(key, "]") {
			return condition, apierr.New(apierr.BadRequest, "cannot parse filter '%s'", key)
		}
		field = key[:i]
		token := key[i+1 : len(key)-1]
		switch Op(token) {
		case OpGt, OpGte, OpLt, OpLte, OpIn:
			op = Op(token)
		default:
			return condition, apierr.New(apierr.BadRequest, "unknown filter operator '%s' in '%s'", token, key)
		}
	}
	if field == "" || strings.ContainsAny(field, "[]") {
		return condition, apierr.New(apierr.BadRequest, "cannot parse filter '%s'", key)
	}
	if len(array) != 1 {
		return condition, apierr.New(apierr.BadRequest, "illegal parameter array '%s'", key)
	}

	condition.Field = field
	condition.Op = op
	if op == OpIn {
		condition.Values = strings.Split(array[0], ",")
	} else {
		condition.Value = array[0]
	}
	return condition, nil
}
