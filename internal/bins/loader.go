package bins

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Geometry *geometry `json:"geometry"`
}

type geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// 文档注释：解析回收箱 FeatureCollection
// 约束：每个 feature 仅提取 geometry.coordinates 的 [经度, 纬度]，其余属性忽略；保持文件内顺序。
// 异常：JSON 非法、缺少 features、geometry 为空或坐标不足两项均视为数据集损坏，由调用方在启动期终止进程。
func Parse(r io.Reader) ([]GeoPoint, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, errors.Wrap(err, "decode feature collection")
	}
	if fc.Features == nil {
		return nil, errors.New("feature collection has no features array")
	}
	out := make([]GeoPoint, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, errors.Errorf("feature %d: missing geometry", i)
		}
		if len(f.Geometry.Coordinates) < 2 {
			return nil, errors.Errorf("feature %d: expected [lon, lat], got %d values", i, len(f.Geometry.Coordinates))
		}
		out = append(out, GeoPoint{Lon: f.Geometry.Coordinates[0], Lat: f.Geometry.Coordinates[1]})
	}
	return out, nil
}

// LoadFile 读取并解析数据集文件
func LoadFile(path string) ([]GeoPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open bin dataset %s", path)
	}
	defer f.Close()
	pts, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse bin dataset %s", path)
	}
	return pts, nil
}
