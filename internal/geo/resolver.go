// Package geo maps breach source names to approximate coordinates for
// map display. It is a pure lookup layer with no I/O and is deliberately
// excluded from score calculation.
package geo

import (
	"math/rand"
	"strings"

	"github.com/idtrace/idtrace/internal/domain"
)

type entry struct {
	key string
	loc domain.Location
}

// sourceLocations maps known breach/leak sources to the rough location
// of the operating company or dataset origin. Order matters: substring
// fallback scans entries top to bottom and the first match wins.
var sourceLocations = []entry{
	// Major US tech
	{"linkedin", domain.Location{Country: "United States", Lat: 37.77, Lng: -122.41}},
	{"adobe", domain.Location{Country: "United States", Lat: 37.33, Lng: -121.89}},
	{"canva", domain.Location{Country: "Australia", Lat: -33.86, Lng: 151.20}},
	{"dropbox", domain.Location{Country: "United States", Lat: 37.77, Lng: -122.41}},
	{"facebook", domain.Location{Country: "United States", Lat: 37.42, Lng: -122.16}},
	{"twitter", domain.Location{Country: "United States", Lat: 37.77, Lng: -122.41}},
	{"yahoo", domain.Location{Country: "United States", Lat: 37.36, Lng: -122.03}},
	{"uber", domain.Location{Country: "United States", Lat: 37.77, Lng: -122.41}},
	{"equifax", domain.Location{Country: "United States", Lat: 33.74, Lng: -84.38}},

	// Russia / Eastern Europe
	{"vk", domain.Location{Country: "Russia", Lat: 59.93, Lng: 30.33}},
	{"vk.com", domain.Location{Country: "Russia", Lat: 59.93, Lng: 30.33}},
	{"yandex", domain.Location{Country: "Russia", Lat: 55.75, Lng: 37.61}},
	{"mail.ru", domain.Location{Country: "Russia", Lat: 55.75, Lng: 37.61}},
	{"rambler", domain.Location{Country: "Russia", Lat: 55.75, Lng: 37.61}},

	// Asia
	{"weibo", domain.Location{Country: "China", Lat: 39.90, Lng: 116.40}},
	{"taobao", domain.Location{Country: "China", Lat: 30.27, Lng: 120.15}},
	{"alibaba", domain.Location{Country: "China", Lat: 30.27, Lng: 120.15}},
	{"netease", domain.Location{Country: "China", Lat: 39.90, Lng: 116.40}},

	// Europe
	{"dailymotion", domain.Location{Country: "France", Lat: 48.85, Lng: 2.35}},
	{"deezer", domain.Location{Country: "France", Lat: 48.85, Lng: 2.35}},
	{"last.fm", domain.Location{Country: "United Kingdom", Lat: 51.50, Lng: -0.12}},
	{"badoo", domain.Location{Country: "United Kingdom", Lat: 51.50, Lng: -0.12}},

	// Social / common US
	{"instagram", domain.Location{Country: "United States", Lat: 37.48, Lng: -122.14}},
	{"github", domain.Location{Country: "United States", Lat: 37.77, Lng: -122.41}},
	{"reddit", domain.Location{Country: "United States", Lat: 37.77, Lng: -122.41}},
	{"pinterest", domain.Location{Country: "United States", Lat: 37.77, Lng: -122.41}},
	{"spotify", domain.Location{Country: "Sweden", Lat: 59.32, Lng: 18.06}},
	{"soundcloud", domain.Location{Country: "Germany", Lat: 52.52, Lng: 13.40}},
	{"gitlab", domain.Location{Country: "United States", Lat: 37.77, Lng: -122.41}},
	{"twitch", domain.Location{Country: "United States", Lat: 37.77, Lng: -122.41}},
	{"discord", domain.Location{Country: "United States", Lat: 37.77, Lng: -122.41}},
	{"trello", domain.Location{Country: "United States", Lat: 40.71, Lng: -74.00}},
	{"vimeo", domain.Location{Country: "United States", Lat: 40.71, Lng: -74.00}},
	{"flickr", domain.Location{Country: "United States", Lat: 37.77, Lng: -122.41}},

	// Generic collections
	{"collection", domain.Location{Country: "Unknown (Dark Web)", Lat: 0, Lng: 0}},
	{"compilation", domain.Location{Country: "Unknown (Dark Web)", Lat: 0, Lng: 0}},
	{"public leak", domain.Location{Country: "Global Distribution", Lat: 20, Lng: 0}},
}

var exactIndex = buildIndex()

func buildIndex() map[string]domain.Location {
	idx := make(map[string]domain.Location, len(sourceLocations))
	for _, e := range sourceLocations {
		idx[e.key] = e.loc
	}
	return idx
}

// UnknownCountry labels sources that resolve to no known origin.
const UnknownCountry = "Global / Unknown"

// Resolve maps a source name to an approximate location. Exact match
// first, then substring fallback so qualified names ("linkedin scraper")
// still resolve. Unknown sources land in a jittered default bucket so
// they disperse on the map instead of stacking on one pixel.
func Resolve(sourceName string) domain.Location {
	normalized := strings.ToLower(strings.TrimSpace(sourceName))

	if loc, ok := exactIndex[normalized]; ok {
		return loc
	}

	for _, e := range sourceLocations {
		if strings.Contains(normalized, e.key) {
			return e.loc
		}
	}

	return domain.Location{
		Country: UnknownCountry,
		Lat:     25.0 + (rand.Float64()*10 - 5),
		Lng:     0.0 + (rand.Float64()*20 - 10),
	}
}
