// 包 store：PostgreSQL 请求统计读写
package store

import (
	"context"
	"database/sql"

	"recycle-right/internal/logger"

	"github.com/pkg/errors"
)

// Store 持有连接池并提供统计接口
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// 文档注释：按路由递增累计与当日请求数；visitor 为真时同时递增访客数
// 约束：只记录计数，不落任何请求内容、IP 或坐标。
func (s *Store) IncrStats(ctx context.Context, route string, visitor bool) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE _rr_stats_total SET total_requests=total_requests+1 WHERE id=1"); err != nil {
		return errors.Wrap(err, "incr total")
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO _rr_stats_daily(day, route, requests) VALUES(current_date, $1, 1)
        ON CONFLICT (day, route) DO UPDATE SET requests=_rr_stats_daily.requests+1`, route); err != nil {
		return errors.Wrap(err, "incr daily")
	}
	if visitor {
		if _, err := s.db.ExecContext(ctx, "UPDATE _rr_stats_total SET total_visitors=total_visitors+1 WHERE id=1"); err != nil {
			return errors.Wrap(err, "incr visitors")
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO _rr_visitors_daily(day, visitors) VALUES(current_date, 1)
        ON CONFLICT (day) DO UPDATE SET visitors=_rr_visitors_daily.visitors+1`); err != nil {
			return errors.Wrap(err, "incr daily visitors")
		}
	}
	logger.L().Debug("stats_incr", "route", route, "visitor", visitor)
	return nil
}

// Totals 累计与当日请求数，ByRoute 为当日按路由拆分
type Totals struct {
	Total         int64            `json:"total"`
	Today         int64            `json:"today"`
	Visitors      int64            `json:"visitors"`
	VisitorsToday int64            `json:"visitorsToday"`
	ByRoute       map[string]int64 `json:"byRoute"`
}

// GetTotals 读取累计与当日请求数
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	t := Totals{ByRoute: map[string]int64{}}
	row := s.db.QueryRowContext(ctx, "SELECT total_requests, total_visitors FROM _rr_stats_total WHERE id=1")
	if err := row.Scan(&t.Total, &t.Visitors); err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "read total")
	}
	row = s.db.QueryRowContext(ctx, "SELECT visitors FROM _rr_visitors_daily WHERE day=current_date")
	if err := row.Scan(&t.VisitorsToday); err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "read daily visitors")
	}
	rows, err := s.db.QueryContext(ctx, "SELECT route, requests FROM _rr_stats_daily WHERE day=current_date")
	if err != nil {
		return nil, errors.Wrap(err, "read daily")
	}
	defer rows.Close()
	for rows.Next() {
		var route string
		var n int64
		if err := rows.Scan(&route, &n); err != nil {
			return nil, errors.Wrap(err, "scan daily")
		}
		t.ByRoute[route] = n
		t.Today += n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate daily")
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}
