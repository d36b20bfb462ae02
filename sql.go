package tapfreq

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SqliteDB 封装了一个 SQLite 数据库连接
type SqliteDB struct {
	DB   *sql.DB
	Path string
}

// NewSqliteDB 打开（必要时创建）path 处的数据库
func NewSqliteDB(path string) (*SqliteDB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// 单连接即可，写入全部在一个事务中完成
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "configure database")
	}

	return &SqliteDB{DB: db, Path: path}, nil
}

// CreateTable 创建数据表（如果不存在）
func (s *SqliteDB) CreateTable(name string, columns []string) error {
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(columns, ", "))
	if _, err := s.DB.Exec(query); err != nil {
		return errors.Wrapf(err, "create table %s", name)
	}
	return nil
}

// Update 在一个事务中执行 fn，fn 返回错误时回滚
func (s *SqliteDB) Update(fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close 关闭数据库
func (s *SqliteDB) Close() error {
	return s.DB.Close()
}
