package utils

import (
	"database/sql"
	"net/url"
	"os"
	"strconv"

	"github.com/pkg/errors"

	_ "github.com/lib/pq"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// BuildPostgresDSNFromEnv 由 PG_* 环境变量拼接 DSN
func BuildPostgresDSNFromEnv() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     envOr("PG_HOST", "localhost") + ":" + envOr("PG_PORT", "5432"),
		Path:     "/" + envOr("PG_DB", "recycle_right"),
		RawQuery: "sslmode=" + url.QueryEscape(envOr("PG_SSLMODE", "disable")),
	}
	user := envOr("PG_USER", "postgres")
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

// OpenPostgresFromEnv 打开连接池；PG_MAX_OPEN_CONNS/PG_MAX_IDLE_CONNS 可调
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	maxOpen, maxIdle := 20, 10
	if n, e := strconv.Atoi(os.Getenv("PG_MAX_OPEN_CONNS")); e == nil && n > 0 {
		maxOpen = n
	}
	if n, e := strconv.Atoi(os.Getenv("PG_MAX_IDLE_CONNS")); e == nil && n >= 0 {
		maxIdle = n
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return db, nil
}
