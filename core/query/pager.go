// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package query

// PageRef points a client to a neighbouring page of the same query.
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination is the pagination descriptor of a list envelope. Next is only
// present when there are records beyond the current window, Prev only when
// the window does not start at the beginning.
type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// Window returns the zero-based index window [start,end) of the requested
// page. There is no bounds clamping, a page beyond the last simply yields an
// empty item set.
func (q ListQuery) Window() (startIndex, endIndex int) {
	return (q.Page - 1) * q.Limit, q.Page * q.Limit
}

// Pagination computes the pagination descriptor against the total number of
// matching records.
func (q ListQuery) Pagination(total int) Pagination {
	startIndex, endIndex := q.Window()
	var p Pagination
	if endIndex < total {
		p.Next = &PageRef{Page: q.Page + 1, Limit: q.Limit}
	}
	if startIndex > 0 {
		p.Prev = &PageRef{Page: q.Page - 1, Limit: q.Limit}
	}
	return p
}
