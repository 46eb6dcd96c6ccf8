package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"recycle-right/internal/bins"
	"recycle-right/internal/iplocate"
	"recycle-right/internal/logger"
	"recycle-right/internal/metrics"
)

// OriginSourceHeader 标明查询原点来自请求参数还是客户端 IP
const OriginSourceHeader = "X-Origin-Source"

type nearestRequest struct {
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
}

// 文档注释：最近回收箱接口
// 约束：
// - POST 读 {longitude, latitude}，GET 读 lon/lat（或 longitude/latitude）查询参数；
// - 两者皆缺时尝试按客户端 IP 估算，仍不可得返回 400；只给其一返回 400；
// - 数值本身不做范围校验，越出新加坡范围只记日志与指标。
func (d Deps) handleNearest(w http.ResponseWriter, r *http.Request) {
	var req nearestRequest
	if r.Method == http.MethodPost {
		if status, msg := decodeBody(r, &req); status != 0 {
			writeError(w, status, msg)
			return
		}
	} else {
		var ok bool
		if req, ok = nearestFromQuery(r); !ok {
			writeError(w, http.StatusBadRequest, "longitude and latitude must be numbers")
			return
		}
	}

	log := logger.FromContext(r.Context())
	source := "query"
	var origin bins.GeoPoint
	switch {
	case req.Longitude != nil && req.Latitude != nil:
		origin = bins.GeoPoint{Lon: *req.Longitude, Lat: *req.Latitude}
	case req.Longitude == nil && req.Latitude == nil && d.Locator != nil:
		p, ok := d.Locator.Locate(iplocate.ClientIP(r))
		if !ok {
			writeError(w, http.StatusBadRequest, "longitude and latitude are required")
			return
		}
		origin, source = p, "ip"
	default:
		writeError(w, http.StatusBadRequest, "longitude and latitude are required")
		return
	}

	metrics.NearestQueriesTotal.Inc()
	inside := bins.SingaporeBounds.Contains(origin)
	if !inside {
		metrics.NearestOutOfBoundsTotal.Inc()
	}
	t0 := time.Now()
	res := d.Index.NearestBins(origin.Lon, origin.Lat)
	metrics.NearestDurationMs.Observe(float64(time.Since(t0).Microseconds()) / 1000)
	log.Debug("nearest_query", "lon", origin.Lon, "lat", origin.Lat, "source", source, "in_singapore", inside)

	w.Header().Set(OriginSourceHeader, source)
	writeJSON(w, http.StatusOK, res)
}

// nearestFromQuery 读取查询参数；存在但无法解析或非有限数（NaN、Inf）时 ok=false
func nearestFromQuery(r *http.Request) (nearestRequest, bool) {
	q := r.URL.Query()
	var out nearestRequest
	parse := func(keys ...string) (*float64, bool) {
		for _, k := range keys {
			if s := q.Get(k); s != "" {
				v, err := strconv.ParseFloat(s, 64)
				if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, false
				}
				return &v, true
			}
		}
		return nil, true
	}
	var ok bool
	if out.Longitude, ok = parse("lon", "longitude"); !ok {
		return out, false
	}
	if out.Latitude, ok = parse("lat", "latitude"); !ok {
		return out, false
	}
	return out, true
}
