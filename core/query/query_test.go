package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/campdir/core/apierr"
)

func TestParseDefaults(t *testing.T) {
	q, err := Parse(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPage, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Empty(t, q.Filters)
	assert.Empty(t, q.Select)
	assert.Empty(t, q.Sort)
}

func TestParseControlKeys(t *testing.T) {
	values, err := url.ParseQuery("select=name,description&sort=-averageCost,name&page=3&limit=10")
	require.NoError(t, err)

	q, err := Parse(values)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "description"}, q.Select)
	assert.Equal(t, []SortKey{
		{Field: "averageCost", Descending: true},
		{Field: "name"},
	}, q.Sort)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 10, q.Limit)
	assert.Empty(t, q.Filters)
}

func TestParseNonNumericPageAndLimit(t *testing.T) {
	values := url.Values{"page": {"abc"}, "limit": {""}}
	q, err := Parse(values)
	require.NoError(t, err)
	assert.Equal(t, DefaultPage, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)
}

func TestParseNonPositivePageAndLimit(t *testing.T) {
	for _, raw := range []string{"page=0", "page=-1", "limit=0", "limit=-25", "page=0&limit=0"} {
		values, err := url.ParseQuery(raw)
		require.NoError(t, err)

		q, err := Parse(values)
		require.NoError(t, err, raw)
		assert.Equal(t, DefaultPage, q.Page, raw)
		assert.Equal(t, DefaultLimit, q.Limit, raw)

		start, end := q.Window()
		assert.GreaterOrEqual(t, start, 0, raw)
		assert.Greater(t, end, start, raw)
	}
}

func TestParseEqualityFilter(t *testing.T) {
	values, err := url.ParseQuery("housing=true&name=Devworks")
	require.NoError(t, err)

	q, err := Parse(values)
	require.NoError(t, err)
	assert.Equal(t, []Condition{
		{Field: "housing", Op: OpEq, Value: "true"},
		{Field: "name", Op: OpEq, Value: "Devworks"},
	}, q.Filters)
}

func TestParseComparisonFilters(t *testing.T) {
	values, err := url.ParseQuery("tuition[gte]=1000&tuition[lt]=20000&rating[gt]=4&weeks[lte]=12")
	require.NoError(t, err)

	q, err := Parse(values)
	require.NoError(t, err)
	assert.Equal(t, []Condition{
		{Field: "rating", Op: OpGt, Value: "4"},
		{Field: "tuition", Op: OpGte, Value: "1000"},
		{Field: "tuition", Op: OpLt, Value: "20000"},
		{Field: "weeks", Op: OpLte, Value: "12"},
	}, q.Filters)
}

func TestParseInFilter(t *testing.T) {
	values, err := url.ParseQuery("careers[in]=Business,UI/UX")
	require.NoError(t, err)

	q, err := Parse(values)
	require.NoError(t, err)
	require.Len(t, q.Filters, 1)
	assert.Equal(t, OpIn, q.Filters[0].Op)
	assert.Equal(t, []string{"Business", "UI/UX"}, q.Filters[0].Values)
}

// A field which merely contains an operator as substring is an ordinary
// equality filter, only whole bracket tokens are operators.
func TestParseOperatorWholeTokenOnly(t *testing.T) {
	values, err := url.ParseQuery("gte=100&ingredients=flour")
	require.NoError(t, err)

	q, err := Parse(values)
	require.NoError(t, err)
	assert.Equal(t, []Condition{
		{Field: "gte", Op: OpEq, Value: "100"},
		{Field: "ingredients", Op: OpEq, Value: "flour"},
	}, q.Filters)

	_, err = Parse(url.Values{"tuition[gten]": {"100"}})
	require.Error(t, err)
	assert.Equal(t, apierr.BadRequest, apierr.KindOf(err))
}

func TestParseMalformedFilters(t *testing.T) {
	cases := []string{
		"tuition[gte=100",
		"[gte]=100",
		"tuition[]=100",
		"tuition[gte][lt]=100",
	}
	for _, c := range cases {
		values, err := url.ParseQuery(c)
		require.NoError(t, err, c)
		_, err = Parse(values)
		require.Error(t, err, c)
		assert.Equal(t, apierr.BadRequest, apierr.KindOf(err), c)
	}
}

func TestParseRepeatedKey(t *testing.T) {
	_, err := Parse(url.Values{"name": {"a", "b"}})
	require.Error(t, err)
	assert.Equal(t, apierr.BadRequest, apierr.KindOf(err))

	_, err = Parse(url.Values{"limit": {"1", "2"}})
	require.Error(t, err)
}

func TestWindow(t *testing.T) {
	q := ListQuery{Page: 3, Limit: 10}
	start, end := q.Window()
	assert.Equal(t, 20, start)
	assert.Equal(t, 30, end)
}

func TestPagination(t *testing.T) {
	const total = 30

	q := ListQuery{Page: 1, Limit: 10}
	p := q.Pagination(total)
	require.NotNil(t, p.Next)
	assert.Equal(t, PageRef{Page: 2, Limit: 10}, *p.Next)
	assert.Nil(t, p.Prev)

	q.Page = 2
	p = q.Pagination(total)
	require.NotNil(t, p.Next)
	assert.Equal(t, PageRef{Page: 3, Limit: 10}, *p.Next)
	require.NotNil(t, p.Prev)
	assert.Equal(t, PageRef{Page: 1, Limit: 10}, *p.Prev)

	q.Page = 3
	p = q.Pagination(total)
	assert.Nil(t, p.Next)
	require.NotNil(t, p.Prev)
	assert.Equal(t, PageRef{Page: 2, Limit: 10}, *p.Prev)
}

// A page beyond the last yields neither items nor a next link.
func TestPaginationBeyondLast(t *testing.T) {
	q := ListQuery{Page: 5, Limit: 10}
	p := q.Pagination(30)
	assert.Nil(t, p.Next)
	require.NotNil(t, p.Prev)
	assert.Equal(t, PageRef{Page: 4, Limit: 10}, *p.Prev)
}
