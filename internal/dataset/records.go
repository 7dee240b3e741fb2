// 包 dataset：记录仓库，按原样反序列化捆绑数据集（选区、政党、邮编），不建立交叉引用
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"au-electorates/internal/logger"
	"au-electorates/internal/model"
)

const (
	DivisionsFile  = "divisions.json"
	PartiesFile    = "parties.json"
	LocalitiesFile = "localities.json"
	MapsDir        = "maps"
)

// RawCandidate：两候选人结果中的一方；Party 为政党或分支标识，可能缺失
type RawCandidate struct {
	FamilyName string  `json:"familyName"`
	GivenNames string  `json:"givenNames"`
	Party      *int    `json:"party"`
	Votes      int     `json:"votes"`
	Swing      float64 `json:"swing"`
}

type RawTwoCandidatePreferred struct {
	Elected RawCandidate `json:"elected"`
	Other   RawCandidate `json:"other"`
}

// RawMember：议员任期；Party 为政党/分支标识列表，独立人士为空
type RawMember struct {
	FamilyName string `json:"familyName"`
	GivenNames string `json:"givenNames"`
	Party      []int  `json:"party"`
	Begin      int    `json:"begin"`
	End        *int   `json:"end"`
}

// RawDivision：选区原始记录，成员按最近优先排序
type RawDivision struct {
	Name                  string                    `json:"name"`
	ShortName             string                    `json:"shortName"`
	State                 string                    `json:"state"`
	Description           string                    `json:"description"`
	Area                  float64                   `json:"area"`
	ProductsAndIndustry   string                    `json:"productsAndIndustry"`
	NameDerivation        string                    `json:"nameDerivation"`
	DemographicRating     string                    `json:"demographicRating"`
	DateGazetted          *time.Time                `json:"dateGazetted"`
	Enrollment            int                       `json:"enrollment"`
	ExistIn2016           bool                      `json:"existIn2016"`
	ExistIn2019           bool                      `json:"existIn2019"`
	ExistInFuture         bool                      `json:"existInFuture"`
	Members               []RawMember               `json:"members"`
	TwoCandidatePreferred *RawTwoCandidatePreferred `json:"twoCandidatePreferred"`
}

// RawLocality：邮编对应的地名与选区简称
type RawLocality struct {
	Postcode  string   `json:"postcode"`
	Places    []string `json:"places"`
	Divisions []string `json:"divisions"`
}

// Records：记录仓库快照；政党直接采用领域结构（分支内嵌）
type Records struct {
	Divisions  []RawDivision
	Parties    []model.Party
	Localities []RawLocality
}

// 文档注释：严格解码数据集
// 背景：数据集随构建发布，字段不匹配意味着数据与代码版本不一致，应在启动时失败而非静默丢字段。
// 约束：localities 可为 nil（可选文件）；任何解码错误都包装为 ErrMalformedRecord。
func Decode(divisions, parties, localities io.Reader) (Records, error) {
	var rec Records
	if err := decodeStrict(divisions, &rec.Divisions); err != nil {
		return Records{}, fmt.Errorf("%w: %s: %v", model.ErrMalformedRecord, DivisionsFile, err)
	}
	if err := decodeStrict(parties, &rec.Parties); err != nil {
		return Records{}, fmt.Errorf("%w: %s: %v", model.ErrMalformedRecord, PartiesFile, err)
	}
	if localities != nil {
		if err := decodeStrict(localities, &rec.Localities); err != nil {
			return Records{}, fmt.Errorf("%w: %s: %v", model.ErrMalformedRecord, LocalitiesFile, err)
		}
	}
	return rec, nil
}

func decodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after document")
	}
	return nil
}

// LoadDir：从数据目录读取记录；localities.json 缺失时跳过
func LoadDir(dir string) (Records, error) {
	l := logger.For("dataset")
	divs, err := os.ReadFile(filepath.Join(dir, DivisionsFile))
	if err != nil {
		return Records{}, err
	}
	parties, err := os.ReadFile(filepath.Join(dir, PartiesFile))
	if err != nil {
		return Records{}, err
	}
	var locs io.Reader
	if b, err := os.ReadFile(filepath.Join(dir, LocalitiesFile)); err == nil {
		locs = bytes.NewReader(b)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Records{}, err
	} else {
		l.Debug("dataset_localities_absent", "dir", dir)
	}
	rec, err := Decode(bytes.NewReader(divs), bytes.NewReader(parties), locs)
	if err != nil {
		return Records{}, err
	}
	l.Info("dataset_loaded", "dir", dir, "divisions", len(rec.Divisions), "parties", len(rec.Parties), "localities", len(rec.Localities))
	return rec, nil
}

// MapArchivePath：周期边界压缩包路径 <dir>/maps/<epoch>.zip
func MapArchivePath(dir string, e model.Epoch) string {
	return filepath.Join(dir, MapsDir, string(e)+".zip")
}

// MapDirPath：导出后展开的周期边界目录 <dir>/maps/<epoch>/
func MapDirPath(dir string, e model.Epoch) string {
	return filepath.Join(dir, MapsDir, string(e))
}

// DirFromEnv：数据目录，ELECTORATES_DATA_DIR 未设置时为 ./data
func DirFromEnv() string {
	if d := os.Getenv("ELECTORATES_DATA_DIR"); d != "" {
		return d
	}
	return "data"
}
