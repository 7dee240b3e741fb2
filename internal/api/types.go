package api

import (
	"time"

	"au-electorates/internal/model"
)

// 文档注释：对外返回结构
// 背景：领域模型含非拥有引用（议员→选区、分支→政党），直接序列化会丢失或循环；这里展开为扁平视图。
// 约束：字段稳定；新增字段需评估兼容性与缓存中的旧值。
type affiliationView struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
	// Party 仅分支有值：所属政党标识
	Party int `json:"party,omitempty"`
}

type memberView struct {
	Name         string            `json:"name"`
	FamilyName   string            `json:"familyName"`
	GivenNames   string            `json:"givenNames"`
	Begin        int               `json:"begin"`
	End          *int              `json:"end,omitempty"`
	Division     string            `json:"division,omitempty"`
	Affiliations []affiliationView `json:"affiliations"`
}

type candidateView struct {
	FamilyName  string           `json:"familyName"`
	GivenNames  string           `json:"givenNames"`
	Affiliation *affiliationView `json:"affiliation,omitempty"`
	Votes       int              `json:"votes"`
	Swing       float64          `json:"swing"`
}

type divisionSummary struct {
	Name          string           `json:"name"`
	ShortName     string           `json:"shortName"`
	State         model.State      `json:"state"`
	Epochs        []model.Epoch    `json:"epochs"`
	CurrentMember string           `json:"currentMember,omitempty"`
	CurrentParty  *affiliationView `json:"currentParty,omitempty"`
}

type divisionView struct {
	*model.Division
	Epochs                []model.Epoch    `json:"epochs"`
	CurrentMember         *memberView      `json:"currentMember,omitempty"`
	CurrentParty          *affiliationView `json:"currentParty,omitempty"`
	Members               []memberView     `json:"members"`
	TwoCandidatePreferred *struct {
		Elected candidateView `json:"elected"`
		Other   candidateView `json:"other"`
	} `json:"twoCandidatePreferred,omitempty"`
}

type electionView struct {
	Parliament int         `json:"parliament"`
	Year       int         `json:"year"`
	Date       string      `json:"date"`
	Epoch      model.Epoch `json:"epoch"`
	Divisions  []string    `json:"divisions"`
}

type localityView struct {
	Postcode  string            `json:"postcode"`
	Places    []string          `json:"places"`
	Divisions []divisionSummary `json:"divisions"`
}

type errorView struct {
	Error string   `json:"error"`
	Names []string `json:"names,omitempty"`
}

func toAffiliation(a model.Affiliation) *affiliationView {
	if a == nil {
		return nil
	}
	v := &affiliationView{ID: a.AffiliationID(), Name: a.AffiliationName(), Code: a.AffiliationCode()}
	if b, ok := a.(*model.Branch); ok {
		v.Party = b.Party
	}
	return v
}

func toMember(m *model.Member, division string) memberView {
	v := memberView{
		Name:         m.FullName(),
		FamilyName:   m.FamilyName,
		GivenNames:   m.GivenNames,
		Begin:        m.Begin,
		End:          m.End,
		Division:     division,
		Affiliations: make([]affiliationView, 0, len(m.Affiliations)),
	}
	for _, a := range m.Affiliations {
		v.Affiliations = append(v.Affiliations, *toAffiliation(a))
	}
	return v
}

func toCandidate(c model.Candidate) candidateView {
	return candidateView{
		FamilyName:  c.FamilyName,
		GivenNames:  c.GivenNames,
		Affiliation: toAffiliation(c.Affiliation),
		Votes:       c.Votes,
		Swing:       c.Swing,
	}
}

func epochsOf(d *model.Division) []model.Epoch {
	out := make([]model.Epoch, 0, len(model.Epochs))
	for _, e := range model.Epochs {
		if d.ExistsIn(e) {
			out = append(out, e)
		}
	}
	return out
}

func toSummary(d *model.Division) divisionSummary {
	s := divisionSummary{
		Name:         d.Name,
		ShortName:    d.ShortName,
		State:        d.State,
		Epochs:       epochsOf(d),
		CurrentParty: toAffiliation(d.CurrentParty),
	}
	if d.CurrentMember != nil {
		s.CurrentMember = d.CurrentMember.FullName()
	}
	return s
}

func toDivision(d *model.Division) divisionView {
	v := divisionView{
		Division:     d,
		Epochs:       epochsOf(d),
		CurrentParty: toAffiliation(d.CurrentParty),
		Members:      make([]memberView, 0, len(d.Members)),
	}
	if d.CurrentMember != nil {
		m := toMember(d.CurrentMember, "")
		v.CurrentMember = &m
	}
	for i := range d.Members {
		v.Members = append(v.Members, toMember(&d.Members[i], ""))
	}
	if tcp := d.TwoCandidatePreferred; tcp != nil {
		v.TwoCandidatePreferred = &struct {
			Elected candidateView `json:"elected"`
			Other   candidateView `json:"other"`
		}{toCandidate(tcp.Elected), toCandidate(tcp.Other)}
	}
	return v
}

func toElection(e *model.Election) electionView {
	v := electionView{
		Parliament: e.Parliament,
		Year:       e.Year,
		Date:       e.Date.Format(time.DateOnly),
		Epoch:      e.Epoch,
		Divisions:  make([]string, 0, len(e.Divisions)),
	}
	for _, d := range e.Divisions {
		v.Divisions = append(v.Divisions, d.ShortName)
	}
	return v
}

func toLocality(l *model.Locality) localityView {
	v := localityView{Postcode: l.Postcode, Places: l.Places, Divisions: make([]divisionSummary, 0, len(l.Divisions))}
	for _, d := range l.Divisions {
		v.Divisions = append(v.Divisions, toSummary(d))
	}
	return v
}
