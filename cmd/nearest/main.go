// 命令 nearest：加载回收箱数据集并以 JSON 输出距给定坐标最近的 K 个回收箱
package main

import (
	"encoding/json"
	"os"
	"strconv"

	"recycle-right/internal/bins"
	"recycle-right/internal/logger"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load(".env")
	if err := newApp().Run(os.Args); err != nil {
		logger.Setup().Error("nearest_error", "err", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "nearest",
		Usage:     "print the K nearest recycling bins to a coordinate",
		ArgsUsage: "LON LAT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "bins",
				Value:   "data/RecyclingBins.json",
				Usage:   "bin feature collection (GeoJSON)",
				EnvVars: []string{"BINS_PATH"},
			},
			&cli.IntFlag{
				Name:    "k",
				Value:   bins.DefaultK,
				Usage:   "number of bins to return",
				EnvVars: []string{"BINS_K"},
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "print single-line JSON",
			},
		},
		Action: run,
	}
}

// 约束：坐标顺序为 经度 纬度；范围外仅告警，不拒绝查询。
func run(c *cli.Context) error {
	l := logger.Setup()
	if c.NArg() != 2 {
		return cli.Exit("usage: nearest [options] LON LAT", 2)
	}
	lon, err := strconv.ParseFloat(c.Args().Get(0), 64)
	if err != nil {
		return errors.Wrapf(err, "parse longitude %q", c.Args().Get(0))
	}
	lat, err := strconv.ParseFloat(c.Args().Get(1), 64)
	if err != nil {
		return errors.Wrapf(err, "parse latitude %q", c.Args().Get(1))
	}
	k := c.Int("k")
	if k < 1 {
		return errors.Errorf("k must be >= 1, got %d", k)
	}

	points, err := bins.LoadFile(c.String("bins"))
	if err != nil {
		return err
	}
	l.Debug("bins_loaded", "count", len(points), "k", k)
	origin := bins.GeoPoint{Lon: lon, Lat: lat}
	if !bins.SingaporeBounds.Contains(origin) {
		l.Warn("origin_outside_singapore", "lon", lon, "lat", lat)
	}

	recs := bins.NewIndex(points, k).NearestBins(lon, lat)
	enc := json.NewEncoder(c.App.Writer)
	if !c.Bool("compact") {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(recs)
}
