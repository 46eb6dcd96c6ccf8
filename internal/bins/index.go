package bins

// 文档注释：只读回收箱索引
// 约束：启动期构建一次，之后不可变；查询不持锁，可任意并发。
type Index struct {
	points []GeoPoint
	k      int
}

// NewIndex 复制点集并固定结果数量 k（k<1 时取 DefaultK）
func NewIndex(points []GeoPoint, k int) *Index {
	if k < 1 {
		k = DefaultK
	}
	cp := make([]GeoPoint, len(points))
	copy(cp, points)
	return &Index{points: cp, k: k}
}

// Len 数据集大小
func (x *Index) Len() int { return len(x.points) }

// K 每次查询返回的记录数
func (x *Index) K() int { return x.k }

// NearestBins 按当前经纬度返回最近的 K 个回收箱（升序）；对任意输入不报错
func (x *Index) NearestBins(currentLongitude, currentLatitude float64) []NearestRecord {
	origin := GeoPoint{Lon: currentLongitude, Lat: currentLatitude}
	return Format(Nearest(origin, x.points, x.k))
}
