package migrate

import (
	"context"
	"database/sql"

	"au-electorates/internal/logger"
)

// 背景：首次运行自动创建镜像表，供下游以 SQL 方式查询参考数据
// 约束：使用 IF NOT EXISTS，与既有结构共存；重复执行无副作用
var stmts = []string{
	`CREATE TABLE IF NOT EXISTS _el_parties (
		id INT PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT NOT NULL,
		abbreviation TEXT NOT NULL DEFAULT '',
		register_date DATE,
		amendment_date DATE,
		address TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS _el_branches (
		id INT PRIMARY KEY,
		party_id INT NOT NULL REFERENCES _el_parties(id) DEFERRABLE INITIALLY DEFERRED,
		name TEXT NOT NULL,
		code TEXT NOT NULL,
		abbreviation TEXT NOT NULL DEFAULT '',
		register_date DATE,
		address TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_el_branches_party ON _el_branches(party_id)`,
	`CREATE TABLE IF NOT EXISTS _el_divisions (
		short_name TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		state TEXT NOT NULL,
		area DOUBLE PRECISION NOT NULL DEFAULT 0,
		enrollment INT NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		date_gazetted DATE,
		exist_2016 BOOLEAN NOT NULL DEFAULT FALSE,
		exist_2019 BOOLEAN NOT NULL DEFAULT FALSE,
		exist_future BOOLEAN NOT NULL DEFAULT FALSE,
		current_affiliation_id INT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_el_divisions_name ON _el_divisions(lower(name))`,
	`CREATE TABLE IF NOT EXISTS _el_members (
		short_name TEXT NOT NULL REFERENCES _el_divisions(short_name) DEFERRABLE INITIALLY DEFERRED,
		ordinal INT NOT NULL,
		family_name TEXT NOT NULL,
		given_names TEXT NOT NULL DEFAULT '',
		begin_year INT NOT NULL,
		end_year INT,
		affiliation_ids INT[] NOT NULL DEFAULT '{}',
		PRIMARY KEY (short_name, ordinal)
	)`,
	`CREATE TABLE IF NOT EXISTS _el_elections (
		parliament INT PRIMARY KEY,
		year INT NOT NULL,
		held_on DATE NOT NULL,
		epoch TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS _el_election_divisions (
		parliament INT NOT NULL REFERENCES _el_elections(parliament) DEFERRABLE INITIALLY DEFERRED,
		short_name TEXT NOT NULL REFERENCES _el_divisions(short_name) DEFERRABLE INITIALLY DEFERRED,
		PRIMARY KEY (parliament, short_name)
	)`,
}

// EnsureSchema 依次执行建表语句，任一失败即返回
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done", "statements", len(stmts))
	return nil
}
