// 包 store: 将参考图镜像到 PostgreSQL，供下游以 SQL 查询选区、议员、政党与选举
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"au-electorates/internal/graph"
	"au-electorates/internal/logger"
	"au-electorates/internal/model"
)

// Store: 数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// SyncReport: 一次同步写入的行数
type SyncReport struct {
	Parties   int `json:"parties"`
	Branches  int `json:"branches"`
	Divisions int `json:"divisions"`
	Members   int `json:"members"`
	Elections int `json:"elections"`
}

const (
	upsertParty = `INSERT INTO _el_parties(id, name, code, abbreviation, register_date, amendment_date, address)
		VALUES($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, code=EXCLUDED.code, abbreviation=EXCLUDED.abbreviation,
		register_date=EXCLUDED.register_date, amendment_date=EXCLUDED.amendment_date, address=EXCLUDED.address`
	upsertBranch = `INSERT INTO _el_branches(id, party_id, name, code, abbreviation, register_date, address)
		VALUES($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET party_id=EXCLUDED.party_id, name=EXCLUDED.name, code=EXCLUDED.code,
		abbreviation=EXCLUDED.abbreviation, register_date=EXCLUDED.register_date, address=EXCLUDED.address`
	upsertDivision = `INSERT INTO _el_divisions(short_name, name, state, area, enrollment, description, date_gazetted,
		exist_2016, exist_2019, exist_future, current_affiliation_id)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (short_name) DO UPDATE SET name=EXCLUDED.name, state=EXCLUDED.state, area=EXCLUDED.area,
		enrollment=EXCLUDED.enrollment, description=EXCLUDED.description, date_gazetted=EXCLUDED.date_gazetted,
		exist_2016=EXCLUDED.exist_2016, exist_2019=EXCLUDED.exist_2019, exist_future=EXCLUDED.exist_future,
		current_affiliation_id=EXCLUDED.current_affiliation_id`
	deleteMembers = `DELETE FROM _el_members WHERE short_name=$1`
	insertMember  = `INSERT INTO _el_members(short_name, ordinal, family_name, given_names, begin_year, end_year, affiliation_ids)
		VALUES($1,$2,$3,$4,$5,$6,$7)`
	upsertElection = `INSERT INTO _el_elections(parliament, year, held_on, epoch)
		VALUES($1,$2,$3,$4)
		ON CONFLICT (parliament) DO UPDATE SET year=EXCLUDED.year, held_on=EXCLUDED.held_on, epoch=EXCLUDED.epoch`
	deleteElectionDivisions = `DELETE FROM _el_election_divisions WHERE parliament=$1`
	insertElectionDivision  = `INSERT INTO _el_election_divisions(parliament, short_name) VALUES($1,$2)`
)

// 文档注释：整图同步
// 背景：参考数据随版本发布整体替换；一个事务内写完全部表，读者不会看到半新半旧的数据。
// 约束：政党/分支/选区/选举按主键 ON CONFLICT 更新；议员与选举-选区关系先删后插，
// 使数据集中移除的行同样消失；重复同步结果一致。任何失败回滚整个事务。
func (s *Store) Sync(ctx context.Context, g *graph.Graph) (SyncReport, error) {
	var rep SyncReport
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rep, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range g.Parties() {
		if _, err := tx.ExecContext(ctx, upsertParty, p.ID, p.Name, p.Code, p.Abbreviation,
			nullDate(p.RegisterDate), nullDate(p.AmendmentDate), p.Address); err != nil {
			return rep, fmt.Errorf("upsert party %d: %w", p.ID, err)
		}
		rep.Parties++
		for _, b := range p.Branches {
			if _, err := tx.ExecContext(ctx, upsertBranch, b.ID, p.ID, b.Name, b.Code, b.Abbreviation,
				nullDate(b.RegisterDate), b.Address); err != nil {
				return rep, fmt.Errorf("upsert branch %d: %w", b.ID, err)
			}
			rep.Branches++
		}
	}
	for _, d := range g.Divisions() {
		var gazetted any
		if d.DateGazetted != nil {
			gazetted = *d.DateGazetted
		}
		if _, err := tx.ExecContext(ctx, upsertDivision, d.ShortName, d.Name, string(d.State), d.Area, d.Enrollment,
			d.Description, gazetted, d.ExistsIn(model.Epoch2016), d.ExistsIn(model.Epoch2019), d.ExistsIn(model.EpochFuture),
			affiliationID(d.CurrentParty)); err != nil {
			return rep, fmt.Errorf("upsert division %s: %w", d.ShortName, err)
		}
		rep.Divisions++
		if _, err := tx.ExecContext(ctx, deleteMembers, d.ShortName); err != nil {
			return rep, fmt.Errorf("clear members %s: %w", d.ShortName, err)
		}
		for i, m := range d.Members {
			ids := make([]int64, 0, len(m.Affiliations))
			for _, a := range m.Affiliations {
				ids = append(ids, int64(a.AffiliationID()))
			}
			var end any
			if m.End != nil {
				end = *m.End
			}
			if _, err := tx.ExecContext(ctx, insertMember, d.ShortName, i, m.FamilyName, m.GivenNames, m.Begin, end, pq.Array(ids)); err != nil {
				return rep, fmt.Errorf("insert member %s/%d: %w", d.ShortName, i, err)
			}
			rep.Members++
		}
	}
	for _, e := range g.Elections() {
		if _, err := tx.ExecContext(ctx, upsertElection, e.Parliament, e.Year, e.Date, string(e.Epoch)); err != nil {
			return rep, fmt.Errorf("upsert election %d: %w", e.Parliament, err)
		}
		if _, err := tx.ExecContext(ctx, deleteElectionDivisions, e.Parliament); err != nil {
			return rep, fmt.Errorf("clear election %d divisions: %w", e.Parliament, err)
		}
		for _, d := range e.Divisions {
			if _, err := tx.ExecContext(ctx, insertElectionDivision, e.Parliament, d.ShortName); err != nil {
				return rep, fmt.Errorf("insert election %d division %s: %w", e.Parliament, d.ShortName, err)
			}
		}
		rep.Elections++
	}
	if err := tx.Commit(); err != nil {
		return rep, err
	}
	logger.L().Info("pg_sync_done",
		"parties", rep.Parties,
		"branches", rep.Branches,
		"divisions", rep.Divisions,
		"members", rep.Members,
		"elections", rep.Elections,
		"ms", time.Since(start).Milliseconds())
	return rep, nil
}

// DivisionCount: 读取镜像中的选区行数，用于同步后的核对
func (s *Store) DivisionCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM _el_divisions").Scan(&n)
	return n, err
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func affiliationID(a model.Affiliation) any {
	if a == nil {
		return nil
	}
	return a.AffiliationID()
}
