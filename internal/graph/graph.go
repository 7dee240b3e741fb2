// 包 graph：由记录仓库一次性构建只读的交叉引用图（选区、议员、政党/分支、选举、邮编）
package graph

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"au-electorates/internal/dataset"
	"au-electorates/internal/logger"
	"au-electorates/internal/metrics"
	"au-electorates/internal/model"
	"au-electorates/internal/resolver"
)

// Graph 构建后不可变，可跨协程共享
type Graph struct {
	divisions    []*model.Division
	members      []*model.Member
	current      []*model.Member
	parties      []*model.Party
	affiliations map[int]model.Affiliation
	elections    []*model.Election
	localities   []*model.Locality
	postcodes    map[string]*model.Locality
	names        *resolver.Resolver
}

// 文档注释：构建交叉引用图
// 背景：选区、议员、政党之间只以标识相互引用，构建时一次解析完成，查询阶段不再触碰原始记录。
// 约束：
// - 结构性错误（缺字段、州代码未知、面积为负、任期颠倒、标识或名称冲突、邮编引用未知选区）直接返回错误，不产出部分图；
// - 议员与候选人引用的政党标识若不存在则丢弃该项（不报错），与数据集中偶发的失效引用兼容；
// - 选区成员为空时 CurrentMember 为 nil，否则为最近一届（首位）议员，即使已标注结束年份；CurrentMembers 与之一致；
// - CurrentParty 取两候选人结果中当选者的归属，可能为 nil。
func Build(rec dataset.Records) (*Graph, error) {
	start := time.Now()
	g := &Graph{
		affiliations: make(map[int]model.Affiliation),
		postcodes:    make(map[string]*model.Locality),
	}
	if err := g.indexParties(rec.Parties); err != nil {
		return nil, err
	}
	for i, raw := range rec.Divisions {
		d, err := g.buildDivision(i, raw)
		if err != nil {
			return nil, err
		}
		g.divisions = append(g.divisions, d)
	}
	names, err := resolver.New(g.divisions)
	if err != nil {
		return nil, err
	}
	g.names = names
	for _, d := range g.divisions {
		for j := range d.Members {
			g.members = append(g.members, &d.Members[j])
		}
		if d.CurrentMember != nil {
			g.current = append(g.current, d.CurrentMember)
		}
	}
	g.elections = buildElections(g.divisions)
	if err := g.indexLocalities(rec.Localities); err != nil {
		return nil, err
	}

	metrics.GraphDivisions.Set(float64(len(g.divisions)))
	logger.For("graph").Info("graph_build_done",
		"divisions", len(g.divisions),
		"members", len(g.members),
		"parties", len(g.parties),
		"affiliations", len(g.affiliations),
		"localities", len(g.localities),
		"ms", time.Since(start).Milliseconds())
	return g, nil
}

func (g *Graph) indexParties(raw []model.Party) error {
	for i := range raw {
		p := raw[i]
		if p.ID <= 0 || strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: party %d: missing id or name", model.ErrMalformedRecord, i)
		}
		p.Branches = append([]model.Branch(nil), raw[i].Branches...)
		pp := &p
		if err := g.addAffiliation(pp); err != nil {
			return err
		}
		for j := range pp.Branches {
			b := &pp.Branches[j]
			if b.ID <= 0 || strings.TrimSpace(b.Name) == "" {
				return fmt.Errorf("%w: party %d branch %d: missing id or name", model.ErrMalformedRecord, p.ID, j)
			}
			b.Party = pp.ID
			if err := g.addAffiliation(b); err != nil {
				return err
			}
		}
		g.parties = append(g.parties, pp)
	}
	return nil
}

func (g *Graph) addAffiliation(a model.Affiliation) error {
	if prev, ok := g.affiliations[a.AffiliationID()]; ok {
		return fmt.Errorf("%w: affiliation id %d used by %q and %q", model.ErrDuplicateKey, a.AffiliationID(), prev.AffiliationName(), a.AffiliationName())
	}
	g.affiliations[a.AffiliationID()] = a
	return nil
}

// resolve 将可能缺失或失效的标识解析为归属；未解析时返回无类型 nil
func (g *Graph) resolve(id *int) model.Affiliation {
	if id == nil {
		return nil
	}
	if a, ok := g.affiliations[*id]; ok {
		return a
	}
	return nil
}

func (g *Graph) buildDivision(i int, raw dataset.RawDivision) (*model.Division, error) {
	if strings.TrimSpace(raw.Name) == "" || strings.TrimSpace(raw.ShortName) == "" {
		return nil, fmt.Errorf("%w: division %d: missing name or short name", model.ErrMalformedRecord, i)
	}
	st, err := model.ParseState(raw.State)
	if err != nil {
		return nil, fmt.Errorf("%w: division %q: %v", model.ErrMalformedRecord, raw.Name, err)
	}
	if raw.Area < 0 {
		return nil, fmt.Errorf("%w: division %q: negative area", model.ErrMalformedRecord, raw.Name)
	}
	d := &model.Division{
		Name:                raw.Name,
		ShortName:           raw.ShortName,
		State:               st,
		Description:         raw.Description,
		Area:                raw.Area,
		ProductsAndIndustry: raw.ProductsAndIndustry,
		NameDerivation:      raw.NameDerivation,
		DemographicRating:   raw.DemographicRating,
		DateGazetted:        raw.DateGazetted,
		Enrollment:          raw.Enrollment,
		Epochs:              model.NewEpochSet(raw.ExistIn2016, raw.ExistIn2019, raw.ExistInFuture),
		Members:             make([]model.Member, 0, len(raw.Members)),
	}
	for j, rm := range raw.Members {
		if strings.TrimSpace(rm.FamilyName) == "" || rm.Begin <= 0 {
			return nil, fmt.Errorf("%w: division %q member %d: missing family name or begin year", model.ErrMalformedRecord, raw.Name, j)
		}
		if rm.End != nil && *rm.End < rm.Begin {
			return nil, fmt.Errorf("%w: division %q member %q: term ends before it begins", model.ErrMalformedRecord, raw.Name, rm.FamilyName)
		}
		m := model.Member{
			FamilyName:   rm.FamilyName,
			GivenNames:   rm.GivenNames,
			Affiliations: []model.Affiliation{},
			Begin:        rm.Begin,
			End:          rm.End,
			Division:     i,
		}
		for _, id := range rm.Party {
			if a := g.resolve(&id); a != nil {
				m.Affiliations = append(m.Affiliations, a)
			}
		}
		d.Members = append(d.Members, m)
	}
	if len(d.Members) > 0 {
		d.CurrentMember = &d.Members[0]
	}
	if tcp := raw.TwoCandidatePreferred; tcp != nil {
		d.TwoCandidatePreferred = &model.TwoCandidatePreferred{
			Elected: g.candidate(tcp.Elected),
			Other:   g.candidate(tcp.Other),
		}
		d.CurrentParty = d.TwoCandidatePreferred.Elected.Affiliation
	}
	return d, nil
}

func (g *Graph) candidate(c dataset.RawCandidate) model.Candidate {
	return model.Candidate{
		FamilyName:  c.FamilyName,
		GivenNames:  c.GivenNames,
		Affiliation: g.resolve(c.Party),
		Votes:       c.Votes,
		Swing:       c.Swing,
	}
}

func (g *Graph) indexLocalities(raw []dataset.RawLocality) error {
	for _, rl := range raw {
		pc := strings.TrimSpace(rl.Postcode)
		if pc == "" {
			return fmt.Errorf("%w: locality with blank postcode", model.ErrMalformedRecord)
		}
		if _, ok := g.postcodes[pc]; ok {
			return fmt.Errorf("%w: postcode %s", model.ErrDuplicateKey, pc)
		}
		loc := &model.Locality{Postcode: pc, Places: append([]string(nil), rl.Places...)}
		for _, short := range rl.Divisions {
			d, ok := g.names.TryFind(short)
			if !ok {
				return fmt.Errorf("%w: postcode %s references unknown division %q", model.ErrMalformedRecord, pc, short)
			}
			loc.Divisions = append(loc.Divisions, d)
		}
		g.postcodes[pc] = loc
		g.localities = append(g.localities, loc)
	}
	return nil
}

// Divisions 按数据集顺序返回全部选区
func (g *Graph) Divisions() []*model.Division { return append([]*model.Division(nil), g.divisions...) }

// Members 返回全部议员（含历任），顺序为选区顺序内的最近优先
func (g *Graph) Members() []*model.Member { return append([]*model.Member(nil), g.members...) }

// CurrentMembers 返回各非空选区的首位议员，顺序同选区
func (g *Graph) CurrentMembers() []*model.Member { return append([]*model.Member(nil), g.current...) }

func (g *Graph) Parties() []*model.Party { return append([]*model.Party(nil), g.parties...) }

func (g *Graph) Elections() []*model.Election { return append([]*model.Election(nil), g.elections...) }

func (g *Graph) Localities() []*model.Locality { return append([]*model.Locality(nil), g.localities...) }

// Resolver 返回选区名称解析器
func (g *Graph) Resolver() *resolver.Resolver { return g.names }

// DivisionOf：议员所属选区
func (g *Graph) DivisionOf(m *model.Member) *model.Division {
	if m == nil || m.Division < 0 || m.Division >= len(g.divisions) {
		return nil
	}
	return g.divisions[m.Division]
}

// PartyOf：分支所属政党；传入政党时返回其自身
func (g *Graph) PartyOf(a model.Affiliation) *model.Party {
	switch v := a.(type) {
	case *model.Party:
		return v
	case *model.Branch:
		if p, ok := g.affiliations[v.Party].(*model.Party); ok {
			return p
		}
	}
	return nil
}

// TryFindAffiliation 按标识查找政党或分支
func (g *Graph) TryFindAffiliation(id int) (model.Affiliation, bool) {
	a, ok := g.affiliations[id]
	return a, ok
}

func (g *Graph) FindAffiliation(id int) (model.Affiliation, error) {
	if a, ok := g.affiliations[id]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: id %d", model.ErrPartyNotFound, id)
}

// FindParty：按代码、名称、简称依次大小写不敏感匹配顶层政党
func (g *Graph) FindParty(nameOrCode string) (*model.Party, error) {
	q := strings.TrimSpace(nameOrCode)
	if q != "" {
		for _, pick := range []func(*model.Party) string{
			func(p *model.Party) string { return p.Code },
			func(p *model.Party) string { return p.Name },
			func(p *model.Party) string { return p.Abbreviation },
		} {
			for _, p := range g.parties {
				if v := pick(p); v != "" && strings.EqualFold(v, q) {
					return p, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", model.ErrPartyNotFound, nameOrCode)
}

// FindPostcode：按邮编查找地名与选区
func (g *Graph) FindPostcode(code string) (*model.Locality, error) {
	if loc, ok := g.postcodes[strings.TrimSpace(code)]; ok {
		return loc, nil
	}
	return nil, fmt.Errorf("%w: %q", model.ErrPostcodeNotFound, code)
}

// Initializer 保证图只构建一次；并发首次调用共享同一结果
type Initializer struct {
	once  sync.Once
	load  func() (dataset.Records, error)
	graph *Graph
	err   error
}

// NewInitializer 以 load 作为唯一一次构建的记录来源
func NewInitializer(load func() (dataset.Records, error)) *Initializer {
	return &Initializer{load: load}
}

// FromDir 返回从数据目录加载记录的初始化器
func FromDir(dir string) *Initializer {
	return NewInitializer(func() (dataset.Records, error) { return dataset.LoadDir(dir) })
}

// Initialize 触发或等待构建并返回结果；失败结果同样被缓存
func (i *Initializer) Initialize() (*Graph, error) {
	i.once.Do(func() {
		rec, err := i.load()
		if err != nil {
			i.err = err
			return
		}
		i.graph, i.err = Build(rec)
	})
	return i.graph, i.err
}
