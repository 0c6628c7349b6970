package mapdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/grainstore/internal/errs"
)

func TestParseTile(t *testing.T) {
	t.Parallel()

	tile, err := ParseTile("1/0/0")
	require.NoError(t, err)
	assert.Equal(t, "1/0/0", tile.String())
	assert.InDelta(t, -180, tile.West, 1e-9)
	assert.InDelta(t, 0, tile.East, 1e-9)
	assert.InDelta(t, 85.0511287, tile.North, 1e-6)
	assert.InDelta(t, 0, tile.South, 1e-9)
	assert.InDelta(t, -90, tile.Center[0], 1e-9)

	none, err := ParseTile("  ")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestParseTile_Invalid(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"1/2":    `Invalid tile "1/2": expected z/x/y`,
		"z/0/0":  `Invalid tile "z/0/0": expected z/x/y`,
		"1/-1/0": `Invalid tile "1/-1/0": expected z/x/y`,
		"31/0/0": `Invalid tile "31/0/0": zoom must be at most 30`,
		"2/4/0":  `Invalid tile "2/4/0": x and y must be below 4 at zoom 2`,
	}
	for in, msg := range cases {
		t.Run(in, func(t *testing.T) {
			_, err := ParseTile(in)
			require.True(t, errs.IsCode(err, errs.InvalidTile), "got %v", err)
			assert.Equal(t, msg, err.Error())
		})
	}
}

func TestNormalize_TileReachesDefinition(t *testing.T) {
	t.Parallel()

	plan, err := Normalize(&Request{
		DatabaseName: "gis",
		Queries:      []Query{{Layer: "roads"}},
		Style:        String("#layer {}"),
		Tile:         "3/4/2",
	})
	require.NoError(t, err)
	require.NotNil(t, plan.Tile)

	def, err := BuildBase(plan, Settings{})
	require.NoError(t, err)
	require.NotNil(t, def.Tile)
	assert.Equal(t, "3/4/2", def.Tile.String())
	assert.NotSame(t, plan.Tile, def.Tile)

	_, err = Normalize(&Request{
		DatabaseName: "gis",
		Queries:      []Query{{Layer: "roads"}},
		Style:        String("#layer {}"),
		Tile:         "3/9/2",
	})
	require.True(t, errs.IsCode(err, errs.InvalidTile))
}
