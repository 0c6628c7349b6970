package mapdef

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
	"github.com/vk/grainstore/internal/errs"
)

// MaxTileZoom is the deepest zoom level a tile scope may name.
const MaxTileZoom = 30

// TileScope limits a map to one tile of the web mercator pyramid. Bounds are
// in degrees.
type TileScope struct {
	Z      uint32     `json:"z"`
	X      uint32     `json:"x"`
	Y      uint32     `json:"y"`
	West   float64    `json:"west"`
	South  float64    `json:"south"`
	East   float64    `json:"east"`
	North  float64    `json:"north"`
	Center [2]float64 `json:"center"`
}

// ParseTile parses a "z/x/y" tile address. An empty string means no tile.
func ParseTile(s string) (*TileScope, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return nil, errs.Validation(errs.InvalidTile, errs.NoIndex, "Invalid tile %q: expected z/x/y", s)
	}
	var zxy [3]uint64
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, errs.Validation(errs.InvalidTile, errs.NoIndex, "Invalid tile %q: expected z/x/y", s)
		}
		zxy[i] = v
	}
	z, x, y := zxy[0], zxy[1], zxy[2]
	if z > MaxTileZoom {
		return nil, errs.Validation(errs.InvalidTile, errs.NoIndex, "Invalid tile %q: zoom must be at most %d", s, MaxTileZoom)
	}
	if limit := uint64(1) << z; x >= limit || y >= limit {
		return nil, errs.Validation(errs.InvalidTile, errs.NoIndex, "Invalid tile %q: x and y must be below %d at zoom %d", s, limit, z)
	}

	t := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))
	b := t.Bound()
	c := b.Center()
	return &TileScope{
		Z:      uint32(z),
		X:      uint32(x),
		Y:      uint32(y),
		West:   b.Min.Lon(),
		South:  b.Min.Lat(),
		East:   b.Max.Lon(),
		North:  b.Max.Lat(),
		Center: [2]float64{c.Lon(), c.Lat()},
	}, nil
}

// String returns the tile address.
func (t *TileScope) String() string {
	return strconv.FormatUint(uint64(t.Z), 10) + "/" + strconv.FormatUint(uint64(t.X), 10) + "/" + strconv.FormatUint(uint64(t.Y), 10)
}
