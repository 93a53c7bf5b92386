package geoindex

import (
	"math"
	"sync"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/domain"
)

// cellSizeDeg is ~11 km of latitude per cell, sized to the common few-km
// query radius so a query touches a handful of cells instead of the whole
// point set.
const cellSizeDeg = 0.1

const (
	lonCells    = int(360 / cellSizeDeg)
	kmPerDegLat = 111.195 // 6371 km * pi / 180
	polarCutoff = 89.9    // above this latitude the lon span degenerates
)

type cellKey struct {
	lat int
	lon int
}

type point struct {
	lat float64
	lon float64
}

// Grid maps coordinate buckets to event ids. It tolerates the heavily skewed
// distributions real traffic reports have (points cluster on road networks)
// because only occupied cells exist.
type Grid struct {
	mu    sync.RWMutex
	cells map[cellKey]map[string]point
	byID  map[string]cellKey
}

func NewGrid() *Grid {
	return &Grid{
		cells: make(map[cellKey]map[string]point),
		byID:  make(map[string]cellKey),
	}
}

func keyFor(lat, lon float64) cellKey {
	latIdx := int(math.Floor(lat / cellSizeDeg))
	lonIdx := wrapLon(int(math.Floor(lon / cellSizeDeg)))
	return cellKey{lat: latIdx, lon: lonIdx}
}

func wrapLon(idx int) int {
	idx %= lonCells
	if idx < 0 {
		idx += lonCells
	}
	return idx
}

func (g *Grid) Add(id string, lat, lon float64) {
	key := keyFor(lat, lon)

	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.byID[id]; ok {
		g.removeLocked(id, prev)
	}
	cell, ok := g.cells[key]
	if !ok {
		cell = make(map[string]point)
		g.cells[key] = cell
	}
	cell[id] = point{lat: lat, lon: lon}
	g.byID[id] = key
}

func (g *Grid) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key, ok := g.byID[id]
	if !ok {
		return
	}
	g.removeLocked(id, key)
}

func (g *Grid) removeLocked(id string, key cellKey) {
	if cell, ok := g.cells[key]; ok {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, key)
		}
	}
	delete(g.byID, id)
}

func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byID)
}

// QueryRadius returns the ids of all indexed points whose great-circle
// distance to the center is <= radiusKm.
func (g *Grid) QueryRadius(lat, lon, radiusKm float64) []string {
	latSpan := radiusKm / kmPerDegLat

	minLat := math.Max(lat-latSpan, -90)
	maxLat := math.Min(lat+latSpan, 90)

	minLatCell := int(math.Floor(minLat / cellSizeDeg))
	maxLatCell := int(math.Floor(maxLat / cellSizeDeg))

	fullRing, lonSpanCells := lonSpanFor(minLat, maxLat, radiusKm)
	centerLonCell := wrapLon(int(math.Floor(lon / cellSizeDeg)))

	g.mu.RLock()
	defer g.mu.RUnlock()

	var ids []string
	visit := func(key cellKey) {
		for id, p := range g.cells[key] {
			if domain.Haversine(lat, lon, p.lat, p.lon) <= radiusKm {
				ids = append(ids, id)
			}
		}
	}

	for latCell := minLatCell; latCell <= maxLatCell; latCell++ {
		if fullRing {
			for lonCell := 0; lonCell < lonCells; lonCell++ {
				visit(cellKey{lat: latCell, lon: lonCell})
			}
			continue
		}
		// wrap across the antimeridian
		for d := -lonSpanCells; d <= lonSpanCells; d++ {
			visit(cellKey{lat: latCell, lon: wrapLon(centerLonCell + d)})
		}
	}
	return ids
}

// lonSpanFor picks the longitude cell span wide enough for the whole latitude
// band. Near the poles a fixed km radius covers every longitude, so the query
// falls back to scanning the full ring in those bands.
func lonSpanFor(minLat, maxLat float64, radiusKm float64) (fullRing bool, cells int) {
	extreme := math.Max(math.Abs(minLat), math.Abs(maxLat))
	if extreme >= polarCutoff {
		return true, 0
	}
	lonSpanDeg := radiusKm / (kmPerDegLat * math.Cos(extreme*math.Pi/180))
	if lonSpanDeg >= 180 {
		return true, 0
	}
	return false, int(math.Ceil(lonSpanDeg/cellSizeDeg)) + 1
}
