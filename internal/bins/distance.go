package bins

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusM WGS84 参考椭球长半轴（米）
const EarthRadiusM = 6378137.0

// 文档注释：两点球面距离（米），Haversine
// 约束：对输入不做范围校验；参数先按固定顺序排列后再计算，保证 Distance(a,b) 与 Distance(b,a) 逐位相等；a==b 时为 0。
func Distance(a, b GeoPoint) float64 {
	if pointLess(b, a) {
		a, b = b, a
	}
	la := s2.LatLngFromDegrees(a.Lat, a.Lon)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return la.Distance(lb).Radians() * EarthRadiusM
}

func pointLess(x, y GeoPoint) bool {
	if x.Lon != y.Lon {
		return x.Lon < y.Lon
	}
	return x.Lat < y.Lat
}
