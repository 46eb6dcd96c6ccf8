// 包 tools：供生成式模型函数调用的工具声明与分发
package tools

import (
	"encoding/json"
	"math"

	"recycle-right/internal/bins"
	"recycle-right/internal/logger"
	"recycle-right/internal/metrics"

	"github.com/pkg/errors"
)

// Tool 受支持的工具（封闭枚举）
type Tool int

const (
	Unknown Tool = iota
	GetNearestBin
)

// String 返回模型侧使用的函数名
func (t Tool) String() string {
	switch t {
	case GetNearestBin:
		return "getNearestBin"
	default:
		return "unknown"
	}
}

// Parse 由模型给出的函数名解析工具；未知名称返回 false
func Parse(name string) (Tool, bool) {
	switch name {
	case GetNearestBin.String():
		return GetNearestBin, true
	default:
		return Unknown, false
	}
}

// Schema 函数参数描述（OpenAPI 子集，类型名沿用提供方的大写写法）
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Declaration 单个函数声明
type Declaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// 文档注释：最近回收箱函数声明
// 约束：两个必填数值参数 currentLongitude/currentLatitude；描述仅供模型判断是否调用。
func nearestBinDeclaration() Declaration {
	return Declaration{
		Name: GetNearestBin.String(),
		Description: "Gets the coordinates and distances (in metres) of the nearest few recycling bins " +
			"(also known as BlooBin or blue bin) to the current location.",
		Parameters: &Schema{
			Type: "OBJECT",
			Properties: map[string]*Schema{
				"currentLongitude": {Type: "NUMBER", Description: "The longitude of the current position"},
				"currentLatitude":  {Type: "NUMBER", Description: "The latitude of the current position"},
			},
			Required: []string{"currentLongitude", "currentLatitude"},
		},
	}
}

// Declarations 全部工具声明，按枚举顺序
func Declarations() []Declaration {
	return []Declaration{nearestBinDeclaration()}
}

// NearestBinArgs getNearestBin 的调用参数
type NearestBinArgs struct {
	CurrentLongitude *float64 `json:"currentLongitude"`
	CurrentLatitude  *float64 `json:"currentLatitude"`
}

// ErrBadArguments 参数缺失或类型不符
var ErrBadArguments = errors.New("bad tool arguments")

// Dispatcher 持有只读索引并执行工具
type Dispatcher struct {
	index *bins.Index
}

func NewDispatcher(index *bins.Index) *Dispatcher {
	return &Dispatcher{index: index}
}

// 文档注释：执行工具并返回结果值
// 约束：args 为模型给出的 JSON 对象；参数错误返回 ErrBadArguments，查询本身不会失败。
func (d *Dispatcher) Call(t Tool, args json.RawMessage) (any, error) {
	metrics.ToolCallsTotal.WithLabelValues(t.String()).Inc()
	switch t {
	case GetNearestBin:
		var a NearestBinArgs
		if len(args) > 0 {
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, errors.Wrapf(ErrBadArguments, "%s: %v", t, err)
			}
		}
		if a.CurrentLongitude == nil || a.CurrentLatitude == nil {
			return nil, errors.Wrapf(ErrBadArguments, "%s: currentLongitude and currentLatitude are required", t)
		}
		res := d.index.NearestBins(*a.CurrentLongitude, *a.CurrentLatitude)
		logger.L().Debug("tool_nearest_bin", "lon", *a.CurrentLongitude, "lat", *a.CurrentLatitude, "found", countFound(res))
		return res, nil
	default:
		return nil, errors.Errorf("unsupported tool %q", t)
	}
}

// CallJSON 执行工具并序列化结果为 JSON 文本
func (d *Dispatcher) CallJSON(t Tool, args json.RawMessage) (string, error) {
	v, err := d.Call(t, args)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrapf(err, "marshal %s result", t)
	}
	return string(b), nil
}

func countFound(rs []bins.NearestRecord) int {
	n := 0
	for _, r := range rs {
		if !math.IsInf(r.Distance, 1) {
			n++
		}
	}
	return n
}
