package bins

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	t.Run("between Munich and Stuttgart", func(t *testing.T) {
		munich := GeoPoint{Lon: 11.576124, Lat: 48.137154}
		stuttgart := GeoPoint{Lon: 9.183333, Lat: 48.783333}
		assert.InDelta(t, 190700, Distance(munich, stuttgart), 1000)
	})

	t.Run("is symmetric", func(t *testing.T) {
		pairs := [][2]GeoPoint{
			{{Lon: 103.8198, Lat: 1.3521}, {Lon: 103.7771, Lat: 1.2949}},
			{{Lon: 103.789605, Lat: 1.299327}, {Lon: 103.8559, Lat: 1.3438}},
			{{Lon: 0, Lat: 0}, {Lon: 103.8198, Lat: 1.3521}},
			{{Lon: -200, Lat: 95}, {Lon: 181, Lat: -91}},
		}
		for _, p := range pairs {
			assert.Equal(t, Distance(p[0], p[1]), Distance(p[1], p[0]))
		}
	})

	t.Run("is zero for identical points", func(t *testing.T) {
		p := GeoPoint{Lon: 103.8198, Lat: 1.3521}
		assert.Equal(t, 0.0, Distance(p, p))
	})

	t.Run("grows with separation", func(t *testing.T) {
		origin := GeoPoint{Lon: 103.8, Lat: 1.3}
		prev := 0.0
		for i := 1; i <= 10; i++ {
			d := Distance(origin, GeoPoint{Lon: 103.8 + float64(i)*0.001, Lat: 1.3})
			assert.Greater(t, d, prev)
			prev = d
		}
	})
}

func TestSingaporeBounds(t *testing.T) {
	assert.True(t, SingaporeBounds.Contains(GeoPoint{Lon: 103.8198, Lat: 1.3521}))
	assert.False(t, SingaporeBounds.Contains(GeoPoint{Lon: 0, Lat: 0}))
	assert.False(t, SingaporeBounds.Contains(GeoPoint{Lon: 101.6869, Lat: 3.139}))
}

func TestNearestRecordJSON(t *testing.T) {
	t.Run("infinite distance is null", func(t *testing.T) {
		b, err := json.Marshal(Format([]CandidateEntry{sentinel()}))
		require.NoError(t, err)
		assert.JSONEq(t, `[{"longitude":0,"latitude":0,"distance":null}]`, string(b))

		var back []NearestRecord
		require.NoError(t, json.Unmarshal(b, &back))
		require.Len(t, back, 1)
		assert.True(t, math.IsInf(back[0].Distance, 1))
	})

	t.Run("finite distance is kept", func(t *testing.T) {
		b, err := json.Marshal(NearestRecord{Longitude: 103.8, Latitude: 1.3, Distance: 12.5})
		require.NoError(t, err)
		assert.JSONEq(t, `{"longitude":103.8,"latitude":1.3,"distance":12.5}`, string(b))
	})
}
