package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"recycle-right/internal/bins"
	"recycle-right/internal/gemini"
	"recycle-right/internal/store"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssistant struct {
	reply      string
	chatErr    error
	recognised json.RawMessage
	recErr     error

	gotMsgs  []gemini.ChatMsg
	gotImage string
	gotMime  string
}

func (f *fakeAssistant) Chat(_ context.Context, msgs []gemini.ChatMsg) (string, error) {
	f.gotMsgs = msgs
	return f.reply, f.chatErr
}

func (f *fakeAssistant) Recognise(_ context.Context, image, mime string) (json.RawMessage, error) {
	f.gotImage, f.gotMime = image, mime
	return f.recognised, f.recErr
}

type fakeLocator struct {
	p  bins.GeoPoint
	ok bool
}

func (f fakeLocator) Locate(string) (bins.GeoPoint, bool) { return f.p, f.ok }

type fakeStats struct {
	mu       sync.Mutex
	routes   []string
	visitors []bool
	totals   *store.Totals
}

func (f *fakeStats) IncrStats(_ context.Context, route string, visitor bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, route)
	f.visitors = append(f.visitors, visitor)
	return nil
}

func (f *fakeStats) GetTotals(context.Context) (*store.Totals, error) { return f.totals, nil }

var testBins = []bins.GeoPoint{
	{Lon: 103.8198, Lat: 1.3521},
	{Lon: 103.7771, Lat: 1.2949},
	{Lon: 103.8559, Lat: 1.3438},
}

func newTestDeps() (Deps, *fakeAssistant) {
	a := &fakeAssistant{}
	return Deps{Index: bins.NewIndex(testBins, 3), Assistant: a}, a
}

func serve(t *testing.T, d Deps, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	BuildRoutes(d).ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	d, _ := newTestDeps()
	rec := serve(t, d, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())
}

func TestChatRoute(t *testing.T) {
	t.Run("returns next message", func(t *testing.T) {
		d, a := newTestDeps()
		a.reply = "Yes, rinse it first."
		rec := serve(t, d, http.MethodPost, "/gemini", `{"messages":[{"type":"text","role":"user","content":"Can I recycle a bottle?"}]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"nextMsg":"Yes, rinse it first."}`, rec.Body.String())
		require.Len(t, a.gotMsgs, 1)
		assert.Equal(t, "Can I recycle a bottle?", a.gotMsgs[0].Content)
	})

	t.Run("invalid message is a bad request", func(t *testing.T) {
		d, a := newTestDeps()
		a.chatErr = errors.Wrap(gemini.ErrInvalidMessage, "message 0: no mime type found for image")
		rec := serve(t, d, http.MethodPost, "/gemini", `{"messages":[{"type":"image","role":"user","content":"x"}]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "no mime type")
	})

	t.Run("malformed json", func(t *testing.T) {
		d, _ := newTestDeps()
		rec := serve(t, d, http.MethodPost, "/gemini", `{"messages":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid JSON body"}`, rec.Body.String())
	})

	t.Run("wrong method", func(t *testing.T) {
		d, _ := newTestDeps()
		rec := serve(t, d, http.MethodGet, "/gemini", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestRecogniseRoute(t *testing.T) {
	t.Run("passes the model json through", func(t *testing.T) {
		d, a := newTestDeps()
		a.recognised = json.RawMessage(`{"name":"Empty bottle","canBeRecycled":true}`)
		rec := serve(t, d, http.MethodPost, "/image/recognise", `{"image":"aGVsbG8=","mimeType":"image/png"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"name":"Empty bottle","canBeRecycled":true}`, rec.Body.String())
		assert.Equal(t, "aGVsbG8=", a.gotImage)
		assert.Equal(t, "image/png", a.gotMime)
	})

	t.Run("missing image", func(t *testing.T) {
		d, _ := newTestDeps()
		rec := serve(t, d, http.MethodPost, "/image/recognise", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"No image provided"}`, rec.Body.String())
	})

	t.Run("provider failure", func(t *testing.T) {
		d, a := newTestDeps()
		a.recErr = errors.New("gemini: http 500")
		rec := serve(t, d, http.MethodPost, "/image/recognise", `{"image":"aGVsbG8="}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Failed to process image recognition request","message":"gemini: http 500"}`, rec.Body.String())
	})
}

func decodeRecords(t *testing.T, rec *httptest.ResponseRecorder) []bins.NearestRecord {
	t.Helper()
	var out []bins.NearestRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNearestRoute(t *testing.T) {
	t.Run("post body", func(t *testing.T) {
		d, _ := newTestDeps()
		rec := serve(t, d, http.MethodPost, "/bin/nearest", `{"longitude":103.8198,"latitude":1.3521}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "query", rec.Header().Get(OriginSourceHeader))
		out := decodeRecords(t, rec)
		require.Len(t, out, 3)
		assert.Equal(t, bins.NearestRecord{Longitude: 103.8198, Latitude: 1.3521, Distance: 0}, out[0])
		assert.LessOrEqual(t, out[1].Distance, out[2].Distance)
	})

	t.Run("query parameters", func(t *testing.T) {
		d, _ := newTestDeps()
		rec := serve(t, d, http.MethodGet, "/bin/nearest?lon=103.8559&lat=1.3438", "")
		require.Equal(t, http.StatusOK, rec.Code)
		out := decodeRecords(t, rec)
		assert.Equal(t, 103.8559, out[0].Longitude)
	})

	t.Run("far away origin is not rejected", func(t *testing.T) {
		d, _ := newTestDeps()
		rec := serve(t, d, http.MethodGet, "/bin/nearest?longitude=0&latitude=0", "")
		require.Equal(t, http.StatusOK, rec.Code)
		for _, r := range decodeRecords(t, rec) {
			assert.Greater(t, r.Distance, 1e7)
		}
	})

	t.Run("small dataset encodes null distance", func(t *testing.T) {
		d, _ := newTestDeps()
		d.Index = bins.NewIndex(testBins[:2], 3)
		rec := serve(t, d, http.MethodPost, "/bin/nearest", `{"longitude":103.8,"latitude":1.3}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"distance":null`)
		out := decodeRecords(t, rec)
		assert.True(t, math.IsInf(out[2].Distance, 1))
	})

	t.Run("missing coordinates without locator", func(t *testing.T) {
		d, _ := newTestDeps()
		rec := serve(t, d, http.MethodGet, "/bin/nearest", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("only one coordinate", func(t *testing.T) {
		d, _ := newTestDeps()
		d.Locator = fakeLocator{p: testBins[1], ok: true}
		rec := serve(t, d, http.MethodPost, "/bin/nearest", `{"longitude":103.8}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non numeric query", func(t *testing.T) {
		d, _ := newTestDeps()
		rec := serve(t, d, http.MethodGet, "/bin/nearest?lon=east&lat=1.3", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non finite query", func(t *testing.T) {
		d, _ := newTestDeps()
		for _, target := range []string{
			"/bin/nearest?lon=NaN&lat=1.3",
			"/bin/nearest?lon=103.8&lat=Inf",
			"/bin/nearest?longitude=-Infinity&latitude=1.3",
		} {
			rec := serve(t, d, http.MethodGet, target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		}
	})

	t.Run("falls back to client ip", func(t *testing.T) {
		d, _ := newTestDeps()
		d.Locator = fakeLocator{p: testBins[1], ok: true}
		rec := serve(t, d, http.MethodGet, "/bin/nearest", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ip", rec.Header().Get(OriginSourceHeader))
		out := decodeRecords(t, rec)
		assert.Equal(t, testBins[1].Lon, out[0].Longitude)
		assert.Equal(t, 0.0, out[0].Distance)
	})

	t.Run("unlocatable client ip", func(t *testing.T) {
		d, _ := newTestDeps()
		d.Locator = fakeLocator{}
		rec := serve(t, d, http.MethodGet, "/bin/nearest", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStatsRoute(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		d, _ := newTestDeps()
		rec := serve(t, d, http.MethodGet, "/stats", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("records successful requests", func(t *testing.T) {
		d, a := newTestDeps()
		a.reply = "ok"
		st := &fakeStats{totals: &store.Totals{Total: 5, Today: 2, ByRoute: map[string]int64{"gemini": 2}}}
		d.Stats = st

		serve(t, d, http.MethodPost, "/gemini", `{"messages":[]}`)
		serve(t, d, http.MethodPost, "/bin/nearest", `{"longitude":103.8}`)
		serve(t, d, http.MethodGet, "/health", "")
		assert.Equal(t, []string{"gemini"}, st.routes)

		rec := serve(t, d, http.MethodGet, "/stats", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"total":5,"today":2,"visitors":0,"visitorsToday":0,"byRoute":{"gemini":2}}`, rec.Body.String())
	})
}

func TestBloomPositions(t *testing.T) {
	a := bloomPositions([]byte("203.0.113.9"), visitorBloomBits, visitorBloomHashes)
	b := bloomPositions([]byte("203.0.113.9"), visitorBloomBits, visitorBloomHashes)
	require.Len(t, a, visitorBloomHashes)
	assert.Equal(t, a, b)
	for _, p := range a {
		assert.GreaterOrEqual(t, p, int64(0))
		assert.Less(t, p, int64(visitorBloomBits))
	}
	ok, err := bloomCheckAndSet(context.Background(), nil, "k", a, visitorBloomTTL)
	require.NoError(t, err)
	assert.False(t, ok)
}
