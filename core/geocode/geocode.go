// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Package geocode resolves postal addresses to coordinates.
package geocode

import (
	"context"
	"fmt"

	"github.com/codingsince1985/geo-golang/mapquest/open"
)

// Location is a geocoded coordinate pair.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Geocoder is the interface for address lookups.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Location, error)
}

type mapQuest struct {
	apiKey string
}

// NewMapQuest creates a geocoder backed by the MapQuest open data API.
func NewMapQuest(apiKey string) Geocoder {
	return &mapQuest{apiKey: apiKey}
}

func (m *mapQuest) Geocode(ctx context.Context, address string) (Location, error) {
	location, err := open.Geocoder(m.apiKey).Geocode(address)
	if err != nil {
		return Location{}, err
	}
	if location == nil {
		return Location{}, fmt.Errorf("no location found for '%s'", address)
	}
	return Location{Latitude: location.Lat, Longitude: location.Lng}, nil
}
