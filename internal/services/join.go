package services

import (
	"github.com/paulmach/orb"

	"ecommerce-dashboard/internal/models"
)

// JoinCustomerGeo left-joins every order row to the geolocation row sharing its zip
// prefix. Rows without a match are kept with nil Geo and Point; rows matching a prefix
// without coordinates keep Geo and a nil Point. geo is expected to be
// deduplicated; when it is not, the first row per prefix wins.
func JoinCustomerGeo(orders []models.OrderRecord, geo []models.GeoRecord) []models.CustomerGeo {
	index := make(map[string]*models.GeoRecord, len(geo))
	for i := range geo {
		if _, ok := index[geo[i].ZipPrefix]; !ok {
			index[geo[i].ZipPrefix] = &geo[i]
		}
	}

	joined := make([]models.CustomerGeo, len(orders))
	for i, o := range orders {
		joined[i].Order = o
		g, ok := index[o.ZipPrefix]
		if !ok || o.ZipPrefix == "" {
			continue
		}
		joined[i].Geo = g
		if !g.Located() {
			continue
		}
		p := orb.Point{g.Longitude, g.Latitude}
		joined[i].Point = &p
	}
	return joined
}

// CustomerPoints returns the points of the joined rows that carry coordinates.
func CustomerPoints(joined []models.CustomerGeo) orb.MultiPoint {
	points := make(orb.MultiPoint, 0, len(joined))
	for _, j := range joined {
		if j.Point != nil {
			points = append(points, *j.Point)
		}
	}
	return points
}
