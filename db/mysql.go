package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"crossborder_rag/config"

	_ "github.com/go-sql-driver/mysql"
)

var (
	DB *sql.DB // 数据库连接
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// InitMySQLWithConfig 使用配置初始化数据库连接池
func InitMySQLWithConfig(cfg *config.Config) error {
	var err error
	DB, err = sql.Open("mysql", cfg.DB.DSN)
	if err != nil {
		return err
	}

	// 从配置读取连接池参数，提供默认值保护
	maxOpenConns := cfg.DB.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 20
	}

	maxIdleConns := cfg.DB.MaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = 5
	}

	connMaxLifetime := cfg.DB.ConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = 60 // 分钟
	}

	DB.SetMaxOpenConns(maxOpenConns)
	DB.SetMaxIdleConns(maxIdleConns)
	DB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return DB.PingContext(ctx)
}

// ValidateTableName 表名会拼进SQL，只允许标识符字符
func ValidateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// EnsureSchema 新闻表不存在时创建
func EnsureSchema(ctx context.Context, conn *sql.DB, table string) error {
	if err := ValidateTableName(table); err != nil {
		return err
	}
	_, err := conn.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			title VARCHAR(512) NOT NULL DEFAULT '',
			url VARCHAR(1024) NOT NULL DEFAULT '',
			source VARCHAR(128) NOT NULL DEFAULT '',
			content MEDIUMTEXT,
			description TEXT,
			summary JSON NULL,
			content_hash CHAR(32) NOT NULL,
			publish_time DATETIME NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uk_content_hash (content_hash),
			KEY idx_publish_time (publish_time),
			KEY idx_created_at (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`, table))
	return err
}
