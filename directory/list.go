// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package directory

import (
	"github.com/goccy/go-json"

	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/core/query"
)

// ListResult is the uniform envelope of collection reads. Count reflects
// the page actually returned, not the total. Pagination is nil on the
// unpaginated paths (nested child listing and radius search).
type ListResult struct {
	Success    bool              `json:"success"`
	Count      int               `json:"count"`
	Pagination *query.Pagination `json:"pagination,omitempty"`
	Data       []interface{}     `json:"data"`
}

// newListResult assembles the envelope from a page of items. When sel is
// non-empty the items are projected down to the selected fields, the id is
// always kept.
func newListResult(items interface{}, sel []string, pagination *query.Pagination) (*ListResult, error) {
	jsonData, err := json.Marshal(items)
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot marshal items")
	}
	var objects []map[string]interface{}
	if err := json.Unmarshal(jsonData, &objects); err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot remarshal items")
	}

	data := make([]interface{}, len(objects))
	for i, object := range objects {
		if len(sel) > 0 {
			projected := map[string]interface{}{"id": object["id"]}
			for _, field := range sel {
				if value, ok := object[field]; ok {
					projected[field] = value
				}
			}
			object = projected
		}
		data[i] = object
	}

	return &ListResult{
		Success:    true,
		Count:      len(data),
		Pagination: pagination,
		Data:       data,
	}, nil
}
