package model

import "time"

// 文档注释：政党与分支共有的归属能力
// 背景：议员与候选人可引用政党或其州分支，统一通过该接口读取标识、名称与代码。
// 约束：仅 *Party 与 *Branch 实现；nil 表示无归属（独立人士或未解析的标识）。
type Affiliation interface {
	AffiliationID() int
	AffiliationName() string
	AffiliationCode() string
}

type Address struct {
	Line1    string `json:"line1,omitempty"`
	Line2    string `json:"line2,omitempty"`
	Line3    string `json:"line3,omitempty"`
	Suburb   string `json:"suburb,omitempty"`
	State    State  `json:"state,omitempty"`
	Postcode int    `json:"postcode,omitempty"`
}

type Officer struct {
	Capacity   string  `json:"capacity,omitempty"`
	Title      string  `json:"title,omitempty"`
	FamilyName string  `json:"familyName"`
	GivenNames string  `json:"givenNames"`
	Address    Address `json:"address"`
}

// Party：注册政党（顶层），拥有其分支
type Party struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Code           string    `json:"code"`
	Abbreviation   string    `json:"abbreviation"`
	RegisterDate   time.Time `json:"registerDate"`
	AmendmentDate  time.Time `json:"amendmentDate"`
	Address        string    `json:"address"`
	Officer        *Officer  `json:"officer,omitempty"`
	DeputyOfficers []Officer `json:"deputyOfficers"`
	Branches       []Branch  `json:"branches"`
}

func (p *Party) AffiliationID() int      { return p.ID }
func (p *Party) AffiliationName() string { return p.Name }
func (p *Party) AffiliationCode() string { return p.Code }

// Branch：政党的州分支；Party 为所属政党标识（非拥有引用）
type Branch struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Code           string    `json:"code"`
	Abbreviation   string    `json:"abbreviation"`
	RegisterDate   time.Time `json:"registerDate"`
	AmendmentDate  time.Time `json:"amendmentDate"`
	Address        string    `json:"address"`
	Officer        *Officer  `json:"officer,omitempty"`
	DeputyOfficers []Officer `json:"deputyOfficers"`
	Party          int       `json:"party"`
}

func (b *Branch) AffiliationID() int      { return b.ID }
func (b *Branch) AffiliationName() string { return b.Name }
func (b *Branch) AffiliationCode() string { return b.Code }

// Member：选区的一届议员任期；End 为空表示在任
type Member struct {
	FamilyName   string        `json:"familyName"`
	GivenNames   string        `json:"givenNames"`
	Affiliations []Affiliation `json:"-"`
	Begin        int           `json:"begin"`
	End          *int          `json:"end,omitempty"`
	// Division 为所属选区在图中的下标（非拥有引用）
	Division int `json:"-"`
}

// Serving：是否为在任议员
func (m *Member) Serving() bool { return m.End == nil }

// FullName 以 "Given Family" 形式返回姓名
func (m *Member) FullName() string {
	if m.GivenNames == "" {
		return m.FamilyName
	}
	return m.GivenNames + " " + m.FamilyName
}

type Candidate struct {
	FamilyName  string      `json:"familyName"`
	GivenNames  string      `json:"givenNames"`
	Affiliation Affiliation `json:"-"`
	Votes       int         `json:"votes"`
	Swing       float64     `json:"swing"`
}

// TwoCandidatePreferred：两候选人优先计票结果
type TwoCandidatePreferred struct {
	Elected Candidate `json:"elected"`
	Other   Candidate `json:"other"`
}

// Division：联邦选区
type Division struct {
	Name                  string                 `json:"name"`
	ShortName             string                 `json:"shortName"`
	State                 State                  `json:"state"`
	Description           string                 `json:"description,omitempty"`
	Area                  float64                `json:"area"`
	ProductsAndIndustry   string                 `json:"productsAndIndustry,omitempty"`
	NameDerivation        string                 `json:"nameDerivation,omitempty"`
	DemographicRating     string                 `json:"demographicRating,omitempty"`
	DateGazetted          *time.Time             `json:"dateGazetted,omitempty"`
	Enrollment            int                    `json:"enrollment,omitempty"`
	Epochs                EpochSet               `json:"-"`
	Members               []Member               `json:"-"`
	TwoCandidatePreferred *TwoCandidatePreferred `json:"-"`
	CurrentMember         *Member                `json:"-"`
	CurrentParty          Affiliation            `json:"-"`
}

// ExistsIn：选区在指定周期是否存在
func (d *Division) ExistsIn(e Epoch) bool { return d.Epochs.Has(e) }

// Election：一届议会选举及当时存在的选区
type Election struct {
	Parliament int
	Year       int
	Date       time.Time
	Epoch      Epoch
	Divisions  []*Division
}

// Locality：邮编与其覆盖的地名及选区
type Locality struct {
	Postcode  string
	Places    []string
	Divisions []*Division
}
