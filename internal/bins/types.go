// 包 bins：回收箱数据集与最近邻计算
package bins

import (
	"encoding/json"
	"math"
)

// DefaultK 默认返回的最近回收箱数量
const DefaultK = 3

// GeoPoint 经纬度坐标（WGS84，十进制度），不做范围校验
type GeoPoint struct {
	Lon float64
	Lat float64
}

// CandidateEntry 候选项：坐标与到查询原点的距离（米）
type CandidateEntry struct {
	Coordinates GeoPoint
	Distance    float64
}

// 文档注释：占位候选
// 约束：数据集不足 K 个点时用于补齐结果；调用方需将无穷距离视为“未找到”。
func sentinel() CandidateEntry {
	return CandidateEntry{Coordinates: GeoPoint{}, Distance: math.Inf(1)}
}

// Found 报告该槽位是否对应真实回收箱
func (c CandidateEntry) Found() bool { return !math.IsInf(c.Distance, 1) }

// NearestRecord 对外结果记录
type NearestRecord struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Distance  float64 `json:"distance"`
}

// MarshalJSON 无穷或 NaN 距离编码为 null（JSON 无法表示 Infinity）
func (r NearestRecord) MarshalJSON() ([]byte, error) {
	type wire struct {
		Longitude float64  `json:"longitude"`
		Latitude  float64  `json:"latitude"`
		Distance  *float64 `json:"distance"`
	}
	w := wire{Longitude: r.Longitude, Latitude: r.Latitude}
	if !math.IsInf(r.Distance, 0) && !math.IsNaN(r.Distance) {
		d := r.Distance
		w.Distance = &d
	}
	return json.Marshal(w)
}

// UnmarshalJSON 与 MarshalJSON 对称：null 距离还原为 +Inf
func (r *NearestRecord) UnmarshalJSON(b []byte) error {
	var w struct {
		Longitude float64  `json:"longitude"`
		Latitude  float64  `json:"latitude"`
		Distance  *float64 `json:"distance"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	r.Longitude = w.Longitude
	r.Latitude = w.Latitude
	r.Distance = math.Inf(1)
	if w.Distance != nil {
		r.Distance = *w.Distance
	}
	return nil
}
