// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"vidassist-api/internal/config"
	"vidassist-api/internal/domain/entity"
	"vidassist-api/pkg/logger"
)

var tracer = otel.Tracer("postgres")

const (
	pingTimeout          = 5 * time.Second
	defaultSlowThreshold = time.Second
	applicationName      = "vidassist-api"
)

// Client PostgreSQL 客户端（GORM + lib/pq 驱动）
type Client struct {
	db *gorm.DB
}

// NewClient 建立连接池并确认数据库可达
func NewClient(ctx context.Context, cfg *config.PostgresConfig) (*Client, error) {
	db, err := open(postgres.Config{DriverName: "postgres", DSN: dsn(cfg)}, newGormLogger(cfg.SlowThreshold))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, translate(fmt.Errorf("ping postgres: %w", err))
	}
	return &Client{db: db}, nil
}

// NewClientFromConn 基于已有连接创建客户端（测试用 sqlmock 连接）
func NewClientFromConn(conn *sql.DB) (*Client, error) {
	db, err := open(postgres.Config{Conn: conn}, gormlogger.Discard)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

func open(dialect postgres.Config, log gormlogger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(dialect), &gorm.Config{
		Logger:                 log,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// dsn URL 优先；分项配置拼成 libpq 键值串，值按规则加引号
func dsn(cfg *config.PostgresConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	pairs := []struct{ k, v string }{
		{"host", cfg.Host},
		{"port", fmt.Sprint(cfg.Port)},
		{"user", cfg.User},
		{"password", cfg.Password},
		{"dbname", cfg.Database},
		{"sslmode", cfg.SSLMode},
		{"connect_timeout", fmt.Sprint(int(pingTimeout.Seconds()))},
		{"application_name", applicationName},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.v == "" || p.v == "0" {
			continue
		}
		parts = append(parts, p.k+"="+quoteValue(p.v))
	}
	return strings.Join(parts, " ")
}

func quoteValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// slogWriter 把 GORM 的慢查询与错误日志转到统一日志器
type slogWriter struct{}

func (slogWriter) Printf(format string, args ...any) {
	logger.Default().Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "gorm")
}

func newGormLogger(slow time.Duration) gormlogger.Interface {
	if slow <= 0 {
		slow = defaultSlowThreshold
	}
	return gormlogger.New(slogWriter{}, gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
}

// DB 获取 GORM DB 实例
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Close 关闭数据库连接
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate 同步表结构
func (c *Client) AutoMigrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.AutoMigrate")
	defer span.End()

	err := c.db.WithContext(ctx).AutoMigrate(
		&entity.Owner{},
		&entity.Video{},
		&entity.Transcript{},
		&entity.Title{},
		&entity.Image{},
		&entity.UsageEvent{},
	)
	if err != nil {
		span.RecordError(err)
		return translate(fmt.Errorf("auto migrate: %w", err))
	}
	return nil
}

// HealthCheck 供 /ready 探针使用
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.HealthCheck")
	defer span.End()

	sqlDB, err := c.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		span.RecordError(err)
		return translate(fmt.Errorf("postgres health check: %w", err))
	}
	return nil
}

func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx)
}
