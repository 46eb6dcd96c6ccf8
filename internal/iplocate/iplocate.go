// 包 iplocate：按客户端 IP 估算大致坐标（MaxMind City 数据库）
package iplocate

import (
	"net"
	"os"
	"strings"

	"recycle-right/internal/bins"
	"recycle-right/internal/logger"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"
	"github.com/pkg/errors"
)

// Locator 只读 mmdb 查询器，可并发使用
type Locator struct {
	db         *geoip2.Reader
	dbType     string
	buildEpoch uint
}

// 文档注释：加载 City 库
// 约束：先以 maxminddb 校验文件结构与类型，再交给 geoip2 解析；非 City 库直接拒绝。
func Open(path string) (*Locator, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read geoip db %s", path)
	}
	return FromBytes(b)
}

// FromBytes 由内存中的 mmdb 构造
func FromBytes(b []byte) (*Locator, error) {
	mm, err := maxminddb.FromBytes(b)
	if err != nil {
		return nil, errors.Wrap(err, "open mmdb")
	}
	if err := mm.Verify(); err != nil {
		return nil, errors.Wrap(err, "verify mmdb")
	}
	dbType := mm.Metadata.DatabaseType
	epoch := mm.Metadata.BuildEpoch
	_ = mm.Close()
	if !strings.Contains(dbType, "City") {
		return nil, errors.Errorf("unsupported geoip database type %q", dbType)
	}
	db, err := geoip2.FromBytes(b)
	if err != nil {
		return nil, errors.Wrap(err, "open geoip2 reader")
	}
	return &Locator{db: db, dbType: dbType, buildEpoch: epoch}, nil
}

// BuildEpoch 库构建时间（Unix 秒）
func (l *Locator) BuildEpoch() uint { return l.buildEpoch }

// DatabaseType mmdb 元数据中的库类型
func (l *Locator) DatabaseType() string { return l.dbType }

// Locate 返回 IP 的大致坐标；nil Locator、非法或私有地址及未收录时 ok=false
func (l *Locator) Locate(ip string) (bins.GeoPoint, bool) {
	if l == nil || l.db == nil {
		return bins.GeoPoint{}, false
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return bins.GeoPoint{}, false
	}
	rec, err := l.db.City(parsed)
	if err != nil {
		logger.L().Debug("iplocate_error", "ip", ip, "err", err)
		return bins.GeoPoint{}, false
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return bins.GeoPoint{}, false
	}
	logger.L().Debug("iplocate_hit", "ip", ip, "country", rec.Country.IsoCode, "accuracy_km", rec.Location.AccuracyRadius)
	return bins.GeoPoint{Lon: rec.Location.Longitude, Lat: rec.Location.Latitude}, true
}

func (l *Locator) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
