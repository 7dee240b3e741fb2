// Package testutil 提供跨包测试共用的小型数据集与边界压缩包
package testutil

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"au-electorates/internal/dataset"
	"au-electorates/internal/model"
)

func intp(v int) *int { return &v }

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// UnknownParty 为数据集中被引用但不存在的政党标识
const UnknownParty = 999

// Records 返回小型数据集：
//   - bass / fenner / indi / o'connor 三个周期都存在
//   - port-adelaide 只在 2016 与 2019 存在
//   - wakefield 只在 2016 存在
//   - bean 只在 2019 与 future 存在
//   - spence 只在 future 存在且无议员
func Records() dataset.Records {
	return dataset.Records{
		Parties: []model.Party{
			{
				ID: 1, Name: "Australian Labor Party", Code: "ALP", Abbreviation: "A.L.P.",
				RegisterDate: date("1984-06-25"),
				Branches: []model.Branch{
					{ID: 11, Name: "Australian Labor Party (ACT Branch)", Code: "ALP-ACT", RegisterDate: date("1984-06-25")},
					{ID: 12, Name: "Australian Labor Party (South Australian Branch)", Code: "ALP-SA", RegisterDate: date("1984-06-25")},
				},
			},
			{
				ID: 2, Name: "Liberal Party of Australia", Code: "LP", Abbreviation: "Liberal",
				RegisterDate: date("1984-06-25"),
				Branches: []model.Branch{
					{ID: 21, Name: "Liberal Party of Australia - Tasmanian Division", Code: "LP-TAS"},
					{ID: 22, Name: "Liberal Party (W.A. Division) Inc.", Code: "LP-WA"},
				},
			},
		},
		Divisions: []dataset.RawDivision{
			{
				Name: "Bass", ShortName: "bass", State: "TAS", Area: 7976, Enrollment: 75000,
				ExistIn2016: true, ExistIn2019: true, ExistInFuture: true,
				Members: []dataset.RawMember{
					{FamilyName: "Archer", GivenNames: "Bridget", Party: []int{21}, Begin: 2019},
					{FamilyName: "Hart", GivenNames: "Ross", Party: []int{1}, Begin: 2016, End: intp(2019)},
				},
				TwoCandidatePreferred: &dataset.RawTwoCandidatePreferred{
					Elected: dataset.RawCandidate{FamilyName: "Archer", GivenNames: "Bridget", Party: intp(21), Votes: 36000, Swing: 1.9},
					Other:   dataset.RawCandidate{FamilyName: "Hart", GivenNames: "Ross", Party: intp(1), Votes: 34500, Swing: -1.9},
				},
			},
			{
				Name: "Port Adelaide", ShortName: "port-adelaide", State: "SA",
				ExistIn2016: true, ExistIn2019: true,
				Members: []dataset.RawMember{
					{FamilyName: "Butler", GivenNames: "Mark", Party: []int{12}, Begin: 2007},
				},
				TwoCandidatePreferred: &dataset.RawTwoCandidatePreferred{
					Elected: dataset.RawCandidate{FamilyName: "Butler", GivenNames: "Mark", Party: intp(12)},
					Other:   dataset.RawCandidate{FamilyName: "Wu", GivenNames: "Sam", Party: intp(2)},
				},
			},
			{
				Name: "Fenner", ShortName: "fenner", State: "ACT",
				ExistIn2016: true, ExistIn2019: true, ExistInFuture: true,
				Members: []dataset.RawMember{
					{FamilyName: "Leigh", GivenNames: "Andrew", Party: []int{11}, Begin: 2010},
				},
				TwoCandidatePreferred: &dataset.RawTwoCandidatePreferred{
					Elected: dataset.RawCandidate{FamilyName: "Leigh", GivenNames: "Andrew", Party: intp(11)},
					Other:   dataset.RawCandidate{FamilyName: "Jones", GivenNames: "Pat", Party: intp(2)},
				},
			},
			{
				Name: "Bean", ShortName: "bean", State: "ACT",
				ExistIn2019: true, ExistInFuture: true,
				Members: []dataset.RawMember{
					{FamilyName: "Smith", GivenNames: "David", Party: []int{11}, Begin: 2019},
				},
			},
			{
				Name: "Wakefield", ShortName: "wakefield", State: "SA",
				ExistIn2016: true,
				Members: []dataset.RawMember{
					{FamilyName: "Champion", GivenNames: "Nick", Party: []int{12}, Begin: 2004, End: intp(2019)},
				},
			},
			{
				Name: "Spence", ShortName: "spence", State: "SA",
				ExistInFuture: true,
			},
			{
				Name: "Indi", ShortName: "indi", State: "VIC",
				ExistIn2016: true, ExistIn2019: true, ExistInFuture: true,
				Members: []dataset.RawMember{
					{FamilyName: "Haines", GivenNames: "Helen", Begin: 2019},
					{FamilyName: "McGowan", GivenNames: "Cathy", Begin: 2013, End: intp(2019)},
				},
				TwoCandidatePreferred: &dataset.RawTwoCandidatePreferred{
					Elected: dataset.RawCandidate{FamilyName: "Haines", GivenNames: "Helen"},
					Other:   dataset.RawCandidate{FamilyName: "Martin", GivenNames: "Steve", Party: intp(2)},
				},
			},
			{
				Name: "O'Connor", ShortName: "o'connor", State: "WA",
				ExistIn2016: true, ExistIn2019: true, ExistInFuture: true,
				Members: []dataset.RawMember{
					{FamilyName: "Wilson", GivenNames: "Rick", Party: []int{22, UnknownParty}, Begin: 2013},
				},
				TwoCandidatePreferred: &dataset.RawTwoCandidatePreferred{
					Elected: dataset.RawCandidate{FamilyName: "Wilson", GivenNames: "Rick", Party: intp(UnknownParty)},
					Other:   dataset.RawCandidate{FamilyName: "Kirby", GivenNames: "Shane", Party: intp(1)},
				},
			},
		},
		Localities: []dataset.RawLocality{
			{Postcode: "2612", Places: []string{"Braddon", "Reid", "Turner"}, Divisions: []string{"fenner"}},
			{Postcode: "7250", Places: []string{"Launceston"}, Divisions: []string{"bass"}},
			{Postcode: "5015", Places: []string{"Port Adelaide"}, Divisions: []string{"port-adelaide", "spence"}},
		},
	}
}

// JSONFiles 返回与 Records 等价的三个数据文件内容
func JSONFiles(t testing.TB) (divisions, parties, localities []byte) {
	t.Helper()
	rec := Records()
	return mustJSON(t, rec.Divisions), mustJSON(t, rec.Parties), mustJSON(t, rec.Localities)
}

func mustJSON(t testing.TB, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return b
}

// Feature 返回名为 name 的最小 GeoJSON Feature
func Feature(name string) []byte {
	return []byte(fmt.Sprintf(`{"type":"Feature","properties":{"name":%q},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}`, name))
}

// FeatureCollection 返回含 n 个要素的 GeoJSON FeatureCollection
func FeatureCollection(names ...string) []byte {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, string(Feature(n)))
	}
	return []byte(`{"type":"FeatureCollection","features":[` + strings.Join(parts, ",") + `]}`)
}

// GzipEntryDivision 在 future 压缩包中以 .gz 形式存放的选区
const GzipEntryDivision = "spence"

// ArchiveEntries 返回某周期压缩包的条目：周期内每个选区一份边界、涉及的每个州一份、全国一份
func ArchiveEntries(e model.Epoch) map[string][]byte {
	rec := Records()
	files := map[string][]byte{}
	byState := map[string][]string{}
	var all []string
	for _, d := range rec.Divisions {
		exists := map[model.Epoch]bool{
			model.Epoch2016:   d.ExistIn2016,
			model.Epoch2019:   d.ExistIn2019,
			model.EpochFuture: d.ExistInFuture,
		}[e]
		if !exists {
			continue
		}
		if e == model.EpochFuture && d.ShortName == GzipEntryDivision {
			files["divisions/"+d.ShortName+".geojson.gz"] = gz(Feature(d.Name))
		} else {
			files["divisions/"+d.ShortName+".geojson"] = Feature(d.Name)
		}
		st := strings.ToLower(d.State)
		byState[st] = append(byState[st], d.Name)
		all = append(all, d.Name)
	}
	for st, names := range byState {
		files["states/"+st+".geojson"] = FeatureCollection(names...)
	}
	files["australia.geojson"] = FeatureCollection(all...)
	return files
}

func gz(b []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, _ = w.Write(b)
	_ = w.Close()
	return buf.Bytes()
}

// Zip 将条目打包为 zip 字节
func Zip(t testing.TB, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write(body); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// WriteDataDir 在临时目录写出完整数据目录（三个 JSON 与三个周期压缩包）并返回路径
func WriteDataDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	divs, parties, locs := JSONFiles(t)
	mustWrite(t, filepath.Join(dir, dataset.DivisionsFile), divs)
	mustWrite(t, filepath.Join(dir, dataset.PartiesFile), parties)
	mustWrite(t, filepath.Join(dir, dataset.LocalitiesFile), locs)
	for _, e := range model.Epochs {
		mustWrite(t, dataset.MapArchivePath(dir, e), Zip(t, ArchiveEntries(e)))
	}
	return dir
}

func mustWrite(t testing.TB, p string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", p, err)
	}
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}
