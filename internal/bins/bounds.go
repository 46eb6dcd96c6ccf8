package bins

// BBox minLon, minLat, maxLon, maxLat
type BBox [4]float64

// SingaporeBounds 新加坡本岛及离岛的粗略包围盒
var SingaporeBounds = BBox{103.6, 1.15, 104.1, 1.48}

// Contains 仅作提示用途，查询不会因越界被拒绝
func (b BBox) Contains(p GeoPoint) bool {
	return p.Lon >= b[0] && p.Lon <= b[2] && p.Lat >= b[1] && p.Lat <= b[3]
}
