package migrate

import (
	"context"
	"database/sql"

	"recycle-right/internal/logger"

	"github.com/pkg/errors"
)

// Statements 统计表结构；按顺序执行
var Statements = []string{
	`CREATE TABLE IF NOT EXISTS _rr_stats_total (
        id INT PRIMARY KEY,
        total_requests BIGINT NOT NULL DEFAULT 0,
        total_visitors BIGINT NOT NULL DEFAULT 0
    )`,
	`INSERT INTO _rr_stats_total(id, total_requests, total_visitors)
     VALUES(1, 0, 0)
     ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS _rr_stats_daily (
        day DATE NOT NULL,
        route TEXT NOT NULL,
        requests BIGINT NOT NULL DEFAULT 0,
        PRIMARY KEY (day, route)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_rr_stats_daily_day ON _rr_stats_daily(day)`,
	`CREATE TABLE IF NOT EXISTS _rr_visitors_daily (
        day DATE PRIMARY KEY,
        visitors BIGINT NOT NULL DEFAULT 0
    )`,
}

// 背景：首次运行自动创建统计表
// 约束：使用 IF NOT EXISTS，可重复执行。
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range Statements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return errors.Wrapf(err, "schema statement %d", i)
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
