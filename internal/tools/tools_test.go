package tools

import (
	"encoding/json"
	"testing"

	"recycle-right/internal/bins"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex() *bins.Index {
	return bins.NewIndex([]bins.GeoPoint{
		{Lon: 103.8198, Lat: 1.3521},
		{Lon: 103.7771, Lat: 1.2949},
		{Lon: 103.8559, Lat: 1.3438},
	}, 3)
}

func TestParse(t *testing.T) {
	tool, ok := Parse("getNearestBin")
	require.True(t, ok)
	assert.Equal(t, GetNearestBin, tool)

	_, ok = Parse("getWeather")
	assert.False(t, ok)
	_, ok = Parse("")
	assert.False(t, ok)
}

func TestDeclarations(t *testing.T) {
	decls := Declarations()
	require.Len(t, decls, 1)
	d := decls[0]
	assert.Equal(t, "getNearestBin", d.Name)
	assert.Contains(t, d.Description, "recycling bins")
	require.NotNil(t, d.Parameters)
	assert.Equal(t, "OBJECT", d.Parameters.Type)
	assert.ElementsMatch(t, []string{"currentLongitude", "currentLatitude"}, d.Parameters.Required)
	for _, name := range d.Parameters.Required {
		p, ok := d.Parameters.Properties[name]
		require.True(t, ok, name)
		assert.Equal(t, "NUMBER", p.Type)
	}

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"required":["currentLongitude","currentLatitude"]`)
}

func TestDispatcher(t *testing.T) {
	d := NewDispatcher(testIndex())

	t.Run("nearest bin", func(t *testing.T) {
		v, err := d.Call(GetNearestBin, json.RawMessage(`{"currentLongitude":103.8198,"currentLatitude":1.3521}`))
		require.NoError(t, err)
		recs, ok := v.([]bins.NearestRecord)
		require.True(t, ok)
		require.Len(t, recs, 3)
		assert.Equal(t, bins.NearestRecord{Longitude: 103.8198, Latitude: 1.3521, Distance: 0}, recs[0])
	})

	t.Run("missing arguments", func(t *testing.T) {
		_, err := d.Call(GetNearestBin, json.RawMessage(`{"currentLongitude":103.8}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrBadArguments))

		_, err = d.Call(GetNearestBin, nil)
		assert.True(t, errors.Is(err, ErrBadArguments))
	})

	t.Run("non numeric arguments", func(t *testing.T) {
		_, err := d.Call(GetNearestBin, json.RawMessage(`{"currentLongitude":"east","currentLatitude":1.3}`))
		assert.True(t, errors.Is(err, ErrBadArguments))
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := d.Call(Unknown, nil)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrBadArguments))
	})

	t.Run("json result", func(t *testing.T) {
		s, err := d.CallJSON(GetNearestBin, json.RawMessage(`{"currentLongitude":103.8559,"currentLatitude":1.3438}`))
		require.NoError(t, err)
		var recs []map[string]any
		require.NoError(t, json.Unmarshal([]byte(s), &recs))
		require.Len(t, recs, 3)
		assert.Equal(t, 103.8559, recs[0]["longitude"])
		assert.Equal(t, 0.0, recs[0]["distance"])
	})

	t.Run("empty dataset encodes null distances", func(t *testing.T) {
		empty := NewDispatcher(bins.NewIndex(nil, 2))
		s, err := empty.CallJSON(GetNearestBin, json.RawMessage(`{"currentLongitude":103.8,"currentLatitude":1.3}`))
		require.NoError(t, err)
		assert.JSONEq(t, `[{"longitude":0,"latitude":0,"distance":null},{"longitude":0,"latitude":0,"distance":null}]`, s)
	})
}
