package providers

import (
	"fmt"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/taxi-surge-engine/internal/weather"
)

// Geocode fills in loc's coordinates from its city and country using the
// Google geocoding API. Locations that already carry coordinates are returned as is.
func Geocode(apiKey string, loc weather.Location) (weather.Location, error) {
	if loc.HasCoordinates() {
		return loc, nil
	}
	if apiKey == "" {
		return loc, fmt.Errorf("geocode %s: %w", loc.Key(), errMissingAPIKey)
	}

	geocoder.ApiKey = apiKey
	found, err := geocoder.Geocoding(geocoder.Address{
		City:    loc.City,
		Country: loc.Country,
	})
	if err != nil {
		return loc, fmt.Errorf("geocode %s: %w", loc.Key(), err)
	}

	lat, lon := found.Latitude, found.Longitude
	loc.Lat = &lat
	loc.Lon = &lon
	return loc, nil
}
