package electorates_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"au-electorates/internal/archive"
	"au-electorates/internal/dataset"
	"au-electorates/internal/graph"
	"au-electorates/internal/model"
	"au-electorates/internal/testutil"
	"au-electorates/pkg/electorates"
)

func open(t *testing.T) *electorates.Service {
	t.Helper()
	s, err := electorates.Open(testutil.WriteDataDir(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFindAndValidate(t *testing.T) {
	s := open(t)

	d, err := s.Find("O'Connor")
	require.NoError(t, err)
	assert.Equal(t, "o'connor", d.ShortName)

	_, ok := s.TryFind("not Found")
	assert.False(t, ok)
	_, err = s.Find("not Found")
	assert.ErrorIs(t, err, model.ErrDivisionNotFound)

	assert.Equal(t, []string{"Not A Real Division"}, s.Invalid([]string{"Bass", "Not A Real Division"}))
	err = s.Validate("Bass", "Not A Real Division")
	require.ErrorIs(t, err, model.ErrNamesNotFound)
	assert.Contains(t, err.Error(), "Not A Real Division")
	assert.NoError(t, s.Validate("bass", "PORT ADELAIDE"))
}

func TestMapsPerEpoch(t *testing.T) {
	s := open(t)
	bass, err := s.Find("bass")
	require.NoError(t, err)

	for _, fn := range []func(*electorates.Division) (*electorates.Document, error){s.Map2016, s.Map2019, s.MapFuture} {
		doc, err := fn(bass)
		require.NoError(t, err)
		assert.Equal(t, "Feature", doc.Type)
	}

	// each epoch caches independently
	assert.Equal(t, []string{"bass"}, s.Cache(electorates.EpochFuture).LoadedDivisions())
	assert.Equal(t, []string{"bass"}, s.Cache(electorates.Epoch2019).LoadedDivisions())
	assert.Equal(t, int64(1), s.Stats()[electorates.EpochFuture].Decodes)
}

func TestEpochMismatchIsNotNotFound(t *testing.T) {
	s := open(t)

	pa, err := s.Find("Port Adelaide")
	require.NoError(t, err)
	_, err = s.MapFuture(pa)
	require.ErrorIs(t, err, model.ErrEpochMismatch)
	assert.NotErrorIs(t, err, model.ErrMapNotFound)
	assert.NotErrorIs(t, err, model.ErrDivisionNotFound)
	var mm *model.EpochMismatchError
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, electorates.EpochFuture, mm.Epoch)
	assert.Equal(t, "Port Adelaide", mm.Division)

	spence, err := s.Find("spence")
	require.NoError(t, err)
	_, err = s.Map2019(spence)
	assert.ErrorIs(t, err, model.ErrEpochMismatch)
	doc, err := s.MapFuture(spence)
	require.NoError(t, err)
	assert.Equal(t, "divisions/spence.geojson", doc.Entry)
}

func TestStateAndCountryMaps(t *testing.T) {
	s := open(t)

	doc, err := s.StateMap(electorates.Epoch2019, model.ACT)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Features)

	doc, err = s.CountryMap(electorates.EpochFuture)
	require.NoError(t, err)
	assert.Equal(t, 6, doc.Features)
}

func TestLoadAll(t *testing.T) {
	s := open(t)
	require.NoError(t, s.LoadAll(context.Background()))
	assert.Equal(t, []string{"bass", "fenner", "indi", "o'connor", "port-adelaide", "wakefield"},
		s.Cache(electorates.Epoch2016).LoadedDivisions())
	require.NoError(t, s.LoadAll(context.Background()))
}

func TestLoadAllDetectsMissingBoundary(t *testing.T) {
	dir := testutil.WriteDataDir(t)
	files := testutil.ArchiveEntries(model.Epoch2019)
	delete(files, "divisions/bean.geojson")
	require.NoError(t, os.WriteFile(dataset.MapArchivePath(dir, model.Epoch2019), testutil.Zip(t, files), 0o644))

	s, err := electorates.Open(dir)
	require.NoError(t, err)
	defer s.Close()

	err = s.LoadAll(context.Background())
	require.ErrorIs(t, err, model.ErrMissingEntry)
	assert.Contains(t, err.Error(), "bean")
}

func TestOpenWithoutFutureArchive(t *testing.T) {
	dir := testutil.WriteDataDir(t)
	require.NoError(t, os.Remove(dataset.MapArchivePath(dir, model.EpochFuture)))

	s, err := electorates.Open(dir)
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Cache(electorates.EpochFuture))
	bass, err := s.Find("bass")
	require.NoError(t, err)
	_, err = s.MapFuture(bass)
	assert.ErrorIs(t, err, model.ErrMapNotFound)

	err = s.LoadAll(context.Background())
	require.ErrorIs(t, err, model.ErrMissingEntry)
	assert.Contains(t, err.Error(), "future")
}

func TestLoadAllIgnoresEpochWithoutDivisions(t *testing.T) {
	dir := testutil.WriteDataDir(t)
	rec := testutil.Records()
	for i := range rec.Divisions {
		rec.Divisions[i].ExistInFuture = false
	}
	g, err := graph.Build(rec)
	require.NoError(t, err)

	archives := map[electorates.Epoch]archive.Archive{}
	for _, e := range []electorates.Epoch{electorates.Epoch2016, electorates.Epoch2019} {
		z, err := archive.OpenZip(dataset.MapArchivePath(dir, e))
		require.NoError(t, err)
		archives[e] = z
	}
	s := electorates.New(g, archives)
	defer s.Close()
	assert.NoError(t, s.LoadAll(context.Background()))
}

func TestElectionsPartiesPostcodes(t *testing.T) {
	s := open(t)

	e, err := s.FindElection(46)
	require.NoError(t, err)
	assert.Equal(t, electorates.Epoch2019, e.Epoch)
	assert.Len(t, s.Elections(), 3)
	_, err = s.FindElection(12)
	assert.ErrorIs(t, err, model.ErrElectionNotFound)

	p, err := s.FindParty("lp")
	require.NoError(t, err)
	assert.Len(t, p.Branches, 2)
	assert.Len(t, s.Parties(), 2)

	loc, err := s.FindPostcode("7250")
	require.NoError(t, err)
	assert.Equal(t, "Bass", loc.Divisions[0].Name)

	assert.Len(t, s.Divisions(), 8)
	assert.Len(t, s.CurrentMembers(), 7)
	assert.Len(t, s.Members(), 9)
}

func TestExport(t *testing.T) {
	s := open(t)
	dst := filepath.Join(t.TempDir(), "out")
	rep, err := s.Export(dst, false)
	require.NoError(t, err)
	assert.Contains(t, rep.Written, "maps/future/states/sa.geojson")

	_, err = electorates.New(s.Graph(), nil).Export(dst, false)
	assert.Error(t, err)
}

func TestOpenExportedDirectory(t *testing.T) {
	s := open(t)
	dst := filepath.Join(t.TempDir(), "out")
	_, err := s.Export(dst, false)
	require.NoError(t, err)

	again, err := electorates.Open(dst)
	require.NoError(t, err)
	defer again.Close()

	spence, err := again.Find("spence")
	require.NoError(t, err)
	doc, err := again.MapFuture(spence)
	require.NoError(t, err)
	assert.Equal(t, "divisions/spence.geojson", doc.Entry)
	require.NoError(t, again.LoadAll(context.Background()))
}
