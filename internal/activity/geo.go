package activity

import (
	"fmt"
	"math/rand/v2"

	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/catalog"
)

// BoundingBox is a latitude/longitude rectangle.
type BoundingBox struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// Contains reports whether point lies inside the box, edges included.
func (b BoundingBox) Contains(point catalog.GeoPoint) bool {
	return point.Latitude() >= b.MinLatitude && point.Latitude() <= b.MaxLatitude &&
		point.Longitude() >= b.MinLongitude && point.Longitude() <= b.MaxLongitude
}

func (b BoundingBox) sample(random *rand.Rand) catalog.GeoPoint {
	latitude := b.MinLatitude + random.Float64()*(b.MaxLatitude-b.MinLatitude)
	longitude := b.MinLongitude + random.Float64()*(b.MaxLongitude-b.MinLongitude)
	return catalog.NewGeoPoint(longitude, latitude)
}

// CityBounds are the cities users may live in.
var CityBounds = map[string]BoundingBox{
	"Pisa":    {MinLatitude: 43.693033, MaxLatitude: 43.731535, MinLongitude: 10.366360, MaxLongitude: 10.444071},
	"Firenze": {MinLatitude: 43.731467, MaxLatitude: 43.818066, MinLongitude: 11.174652, MaxLongitude: 11.298083},
	"Livorno": {MinLatitude: 43.472290, MaxLatitude: 43.592005, MinLongitude: 10.296033, MaxLongitude: 10.341677},
	"Lucca":   {MinLatitude: 43.814299, MaxLatitude: 43.911694, MinLongitude: 10.435017, MaxLongitude: 10.554528},
}

func cityBounds(city string) (BoundingBox, error) {
	bounds, ok := CityBounds[city]
	if !ok {
		return BoundingBox{}, fmt.Errorf("%w: %q", catalog.ErrUnknownCity, city)
	}
	return bounds, nil
}
