package tapfreq

import (
	"database/sql"

	"github.com/pkg/errors"
)

const frequencyTable = "opcode_frequency"

// createFrequencyTable 创建操作码频次表
func (s *SqliteDB) createFrequencyTable() error {
	table := []string{
		"height INTEGER NOT NULL", // 区块高度
		"opcode TEXT NOT NULL",    // 操作码标签
		"count INTEGER NOT NULL",  // 出现次数
		"PRIMARY KEY (height, opcode)",
	}
	return s.CreateTable(frequencyTable, table)
}

// SqliteResultWriter 将结果写入 SQLite 表，替换表中原有的内容。
type SqliteResultWriter struct {
	path string
}

// NewSqliteResultWriter 创建写入 path 的写出器。
func NewSqliteResultWriter(path string) *SqliteResultWriter {
	return &SqliteResultWriter{path: path}
}

// Write 满足 ResultWriter 接口。
func (w *SqliteResultWriter) Write(results ResultSet) error {
	db, err := NewSqliteDB(w.path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.createFrequencyTable(); err != nil {
		return err
	}

	return db.Update(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM " + frequencyTable); err != nil {
			return errors.Wrap(err, "clear previous results")
		}
		stmt, err := tx.Prepare("INSERT INTO " + frequencyTable + " (height, opcode, count) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, h := range results.Heights() {
			counts := results[h]
			for _, label := range sortedLabels(counts) {
				if _, err := stmt.Exec(h, label, counts[label]); err != nil {
					return errors.Wrapf(err, "insert %s at height %d", label, h)
				}
			}
		}
		return nil
	})
}

// ReadSqliteResults 读取 SqliteResultWriter 写出的结果。
func ReadSqliteResults(path string) (ResultSet, error) {
	db, err := NewSqliteDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.DB.Query("SELECT height, opcode, count FROM " + frequencyTable + " ORDER BY height, opcode")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make(ResultSet)
	for rows.Next() {
		var (
			height int32
			opcode string
			count  int
		)
		if err := rows.Scan(&height, &opcode, &count); err != nil {
			return nil, err
		}
		counts, ok := results[height]
		if !ok {
			counts = make(OpcodeFrequencies)
			results[height] = counts
		}
		counts[opcode] = count
	}
	return results, rows.Err()
}
