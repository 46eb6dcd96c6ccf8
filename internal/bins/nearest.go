package bins

import "sort"

// 文档注释：有界 Top-K 最近候选（有序插入 + 截断）
// 约束：缓冲区始终为 K 项并按距离升序；初始为 K 个占位项（+Inf，坐标 (0,0)）。
// 约束：新候选仅在严格小于当前最差项时进入；等距时先出现者在前，边界处丢弃后出现者。
type tracker struct {
	buf []CandidateEntry
}

func newTracker(k int) *tracker {
	if k < 1 {
		k = 1
	}
	buf := make([]CandidateEntry, k)
	for i := range buf {
		buf[i] = sentinel()
	}
	return &tracker{buf: buf}
}

func (t *tracker) observe(p GeoPoint, d float64) {
	last := len(t.buf) - 1
	if !(d < t.buf[last].Distance) {
		return
	}
	// 第一个严格大于 d 的位置，等距项保持在前
	i := sort.Search(len(t.buf), func(i int) bool { return d < t.buf[i].Distance })
	copy(t.buf[i+1:], t.buf[i:last])
	t.buf[i] = CandidateEntry{Coordinates: p, Distance: d}
}

func (t *tracker) entries() []CandidateEntry {
	out := make([]CandidateEntry, len(t.buf))
	copy(out, t.buf)
	return out
}

// Nearest 单次扫描数据集，返回距离 origin 最近的 k 个候选（升序，长度恒为 k；k<1 按 1 处理）
func Nearest(origin GeoPoint, points []GeoPoint, k int) []CandidateEntry {
	t := newTracker(k)
	for _, p := range points {
		t.observe(p, Distance(origin, p))
	}
	return t.entries()
}

// Format 将候选转换为对外记录，顺序不变
func Format(entries []CandidateEntry) []NearestRecord {
	out := make([]NearestRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, NearestRecord{
			Longitude: e.Coordinates.Lon,
			Latitude:  e.Coordinates.Lat,
			Distance:  e.Distance,
		})
	}
	return out
}
