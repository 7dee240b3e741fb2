// Package electorates 是对外的访问门面：澳大利亚联邦选区、议员、政党与选举的只读参考数据，
// 以及按边界周期懒加载的选区地图。
package electorates

import (
	"context"
	"errors"
	"fmt"
	"os"

	"au-electorates/internal/archive"
	"au-electorates/internal/dataset"
	"au-electorates/internal/graph"
	"au-electorates/internal/logger"
	"au-electorates/internal/mapcache"
	"au-electorates/internal/model"
)

// 常用类型与周期别名，调用方无需引入 internal 包
type (
	Division    = model.Division
	Member      = model.Member
	Party       = model.Party
	Branch      = model.Branch
	Affiliation = model.Affiliation
	Election    = model.Election
	Locality    = model.Locality
	Epoch       = model.Epoch
	State       = model.State
	Document    = mapcache.Document
)

const (
	Epoch2016   = model.Epoch2016
	Epoch2019   = model.Epoch2019
	EpochFuture = model.EpochFuture
)

// Service：图与各周期地图缓存的组合；并发安全
type Service struct {
	dir    string
	graph  *graph.Graph
	caches map[model.Epoch]*mapcache.Cache
}

// 文档注释：从数据目录打开服务
// 背景：读取 divisions/parties/localities 构建图，并为每个周期创建缓存；地图在首次访问时才解码。
// 周期边界优先取 maps/<epoch>.zip，不存在时取导出产生的 maps/<epoch>/ 目录，因此导出目录可直接作为数据目录使用。
// 约束：某周期两者都缺失时记录告警，该周期的地图查询返回 ErrMapNotFound；图构建失败直接返回错误。
func Open(dir string) (*Service, error) {
	g, err := graph.FromDir(dir).Initialize()
	if err != nil {
		return nil, err
	}
	archives := make(map[model.Epoch]archive.Archive, len(model.Epochs))
	for _, e := range model.Epochs {
		a, err := openEpoch(dir, e)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.For("electorates").Warn("map_archive_absent", "epoch", string(e), "dir", dir)
				continue
			}
			for _, a := range archives {
				_ = a.Close()
			}
			return nil, err
		}
		archives[e] = a
	}
	s := New(g, archives)
	s.dir = dir
	return s, nil
}

func openEpoch(dir string, e model.Epoch) (archive.Archive, error) {
	z, err := archive.OpenZip(dataset.MapArchivePath(dir, e))
	if err == nil {
		return z, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return archive.OpenDir(dataset.MapDirPath(dir, e))
}

// New 以已构建的图与各周期压缩包组装服务；每个周期拥有独立缓存
func New(g *graph.Graph, archives map[model.Epoch]archive.Archive) *Service {
	s := &Service{graph: g, caches: make(map[model.Epoch]*mapcache.Cache, len(archives))}
	normalize := g.Resolver().ShortName
	for e, a := range archives {
		s.caches[e] = mapcache.New(e, a, normalize)
	}
	return s
}

// Close 释放全部压缩包
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.caches {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Graph 返回底层只读图
func (s *Service) Graph() *graph.Graph { return s.graph }

// Cache 返回某周期的地图缓存；压缩包缺失时为 nil
func (s *Service) Cache(e model.Epoch) *mapcache.Cache { return s.caches[e] }

func (s *Service) cache(e model.Epoch) (*mapcache.Cache, error) {
	c, ok := s.caches[e]
	if !ok {
		return nil, fmt.Errorf("%w: no archive for epoch %s", model.ErrMapNotFound, e)
	}
	return c, nil
}

// 文档注释：选区在指定周期的边界
// 背景：选区只在其存在的周期拥有边界，先做存在性检查再交给缓存。
// 约束：d 不存在于周期 e 时返回 *model.EpochMismatchError（errors.Is ErrEpochMismatch），区别于条目缺失的 ErrMapNotFound。
func (s *Service) MapFor(d *model.Division, e model.Epoch) (*mapcache.Document, error) {
	if d == nil {
		return nil, &model.DivisionNotFoundError{}
	}
	if !d.ExistsIn(e) {
		return nil, &model.EpochMismatchError{Division: d.Name, Epoch: e}
	}
	c, err := s.cache(e)
	if err != nil {
		return nil, err
	}
	return c.Division(d.ShortName)
}

func (s *Service) Map2016(d *model.Division) (*mapcache.Document, error) {
	return s.MapFor(d, model.Epoch2016)
}

func (s *Service) Map2019(d *model.Division) (*mapcache.Document, error) {
	return s.MapFor(d, model.Epoch2019)
}

// MapFuture 使用 future 周期自己的缓存，与 2019 互不共享
func (s *Service) MapFuture(d *model.Division) (*mapcache.Document, error) {
	return s.MapFor(d, model.EpochFuture)
}

// StateMap 返回州或领地在指定周期的边界
func (s *Service) StateMap(e model.Epoch, st model.State) (*mapcache.Document, error) {
	c, err := s.cache(e)
	if err != nil {
		return nil, err
	}
	return c.State(st)
}

// CountryMap 返回指定周期的全国边界
func (s *Service) CountryMap(e model.Epoch) (*mapcache.Document, error) {
	c, err := s.cache(e)
	if err != nil {
		return nil, err
	}
	return c.Country()
}

// 文档注释：预热全部周期
// 背景：启动或健康检查时使用；每个周期以图中存在于该周期的选区作为期望列表，缺失即报错。
// 约束：各周期依次执行，周期内部并行；返回第一个失败周期的错误。有选区存在却缺少压缩包的周期同样视为缺失条目。
func (s *Service) LoadAll(ctx context.Context) error {
	for _, e := range model.Epochs {
		var expected []string
		for _, d := range s.graph.Divisions() {
			if d.ExistsIn(e) {
				expected = append(expected, d.ShortName)
			}
		}
		c, ok := s.caches[e]
		if !ok {
			if len(expected) > 0 {
				return fmt.Errorf("%w: epoch %s has %d divisions but no map archive", model.ErrMissingEntry, e, len(expected))
			}
			continue
		}
		if err := c.LoadAll(ctx, expected); err != nil {
			return err
		}
	}
	return nil
}

// Stats 返回各周期缓存统计
func (s *Service) Stats() map[model.Epoch]mapcache.Stats {
	out := make(map[model.Epoch]mapcache.Stats, len(s.caches))
	for e, c := range s.caches {
		out[e] = c.Stats()
	}
	return out
}

// Export 将数据目录导出到 dst；仅对通过 Open 打开的服务可用
func (s *Service) Export(dst string, overwrite bool) (dataset.ExportReport, error) {
	if s.dir == "" {
		return dataset.ExportReport{}, errors.New("electorates: export requires a service opened from a data directory")
	}
	return dataset.Export(s.dir, dst, overwrite)
}

func (s *Service) Divisions() []*model.Division { return s.graph.Divisions() }

// Find 按全名或简称（大小写不敏感）查找选区
func (s *Service) Find(name string) (*model.Division, error) { return s.graph.Resolver().Find(name) }

func (s *Service) TryFind(name string) (*model.Division, bool) {
	return s.graph.Resolver().TryFind(name)
}

// Validate 一次性报告全部无法识别的名称
func (s *Service) Validate(names ...string) error { return s.graph.Resolver().Validate(names...) }

func (s *Service) Invalid(names []string) []string { return s.graph.Resolver().Invalid(names) }

func (s *Service) Members() []*model.Member { return s.graph.Members() }

func (s *Service) CurrentMembers() []*model.Member { return s.graph.CurrentMembers() }

func (s *Service) Parties() []*model.Party { return s.graph.Parties() }

func (s *Service) FindParty(nameOrCode string) (*model.Party, error) {
	return s.graph.FindParty(nameOrCode)
}

func (s *Service) Elections() []*model.Election { return s.graph.Elections() }

func (s *Service) FindElection(parliament int) (*model.Election, error) {
	return s.graph.FindElection(parliament)
}

func (s *Service) FindPostcode(code string) (*model.Locality, error) {
	return s.graph.FindPostcode(code)
}
