package graph_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"au-electorates/internal/dataset"
	"au-electorates/internal/graph"
	"au-electorates/internal/model"
	"au-electorates/internal/testutil"
)

func build(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.Build(testutil.Records())
	require.NoError(t, err)
	return g
}

func intp(v int) *int { return &v }

func find(t *testing.T, g *graph.Graph, name string) *model.Division {
	t.Helper()
	d, err := g.Resolver().Find(name)
	require.NoError(t, err)
	return d
}

func TestBuildResolvesMembersAndParties(t *testing.T) {
	g := build(t)

	bass := find(t, g, "Bass")
	assert.Equal(t, model.TAS, bass.State)
	require.Len(t, bass.Members, 2)
	require.NotNil(t, bass.CurrentMember)
	assert.Equal(t, "Archer", bass.CurrentMember.FamilyName)
	assert.Same(t, &bass.Members[0], bass.CurrentMember)

	require.Len(t, bass.CurrentMember.Affiliations, 1)
	branch, ok := bass.CurrentMember.Affiliations[0].(*model.Branch)
	require.True(t, ok)
	assert.Equal(t, "LP-TAS", branch.Code)
	assert.Equal(t, 2, branch.Party)

	require.NotNil(t, bass.CurrentParty)
	assert.Equal(t, 21, bass.CurrentParty.AffiliationID())
	require.NotNil(t, bass.TwoCandidatePreferred)
	assert.Equal(t, 1, bass.TwoCandidatePreferred.Other.Affiliation.AffiliationID())

	p := g.PartyOf(bass.CurrentParty)
	require.NotNil(t, p)
	assert.Equal(t, "Liberal Party of Australia", p.Name)
}

func TestUnresolvedPartyIdsAreDropped(t *testing.T) {
	g := build(t)

	oc := find(t, g, "O'Connor")
	require.NotNil(t, oc.CurrentMember)
	require.Len(t, oc.CurrentMember.Affiliations, 1)
	assert.Equal(t, 22, oc.CurrentMember.Affiliations[0].AffiliationID())

	// elected candidate references an unknown id
	assert.Nil(t, oc.TwoCandidatePreferred.Elected.Affiliation)
	assert.Nil(t, oc.CurrentParty)
	assert.NotNil(t, oc.TwoCandidatePreferred.Other.Affiliation)
}

func TestIndependentsAndEmptyDivisions(t *testing.T) {
	g := build(t)

	indi := find(t, g, "indi")
	require.NotNil(t, indi.CurrentMember)
	assert.Equal(t, "Helen Haines", indi.CurrentMember.FullName())
	assert.NotNil(t, indi.CurrentMember.Affiliations)
	assert.Empty(t, indi.CurrentMember.Affiliations)
	assert.Nil(t, indi.CurrentParty)

	spence := find(t, g, "spence")
	assert.Nil(t, spence.CurrentMember)
	assert.Empty(t, spence.Members)
	assert.Nil(t, spence.CurrentParty)
}

func TestMemberIndexes(t *testing.T) {
	g := build(t)

	all := g.Members()
	current := g.CurrentMembers()
	assert.Len(t, all, 9)
	// every division except spence has members
	assert.Len(t, current, 7)
	for _, m := range current {
		d := g.DivisionOf(m)
		require.NotNil(t, d)
		assert.Same(t, d.CurrentMember, m, m.FullName())
	}
	// wakefield's only member has an end year but is still its current member
	assert.Same(t, find(t, g, "wakefield").CurrentMember, current[4])
	for _, m := range all {
		require.NotNil(t, g.DivisionOf(m), m.FullName())
	}
	assert.Nil(t, g.DivisionOf(nil))
}

func TestCurrentMembersFollowDivisionOrderNotEndYear(t *testing.T) {
	rec := testutil.Records()
	rec.Divisions[0].Members = []dataset.RawMember{
		{FamilyName: "Retired", Begin: 2016, End: intp(2019)},
		{FamilyName: "Old", Begin: 2010},
	}
	g, err := graph.Build(rec)
	require.NoError(t, err)

	bass := find(t, g, "bass")
	require.Equal(t, "Retired", bass.CurrentMember.FamilyName)
	current := g.CurrentMembers()
	assert.Same(t, bass.CurrentMember, current[0])
	for _, m := range current {
		assert.NotEqual(t, "Old", m.FamilyName)
	}
}

func TestElections(t *testing.T) {
	g := build(t)

	els := g.Elections()
	require.Len(t, els, 3)
	assert.Equal(t, []int{45, 46, 47}, []int{els[0].Parliament, els[1].Parliament, els[2].Parliament})

	e45, err := g.FindElection(45)
	require.NoError(t, err)
	assert.Equal(t, model.Epoch2016, e45.Epoch)
	assert.Equal(t, 2016, e45.Year)
	assert.Equal(t, "2016-07-02", e45.Date.Format("2006-01-02"))

	bean := find(t, g, "bean")
	wakefield := find(t, g, "wakefield")
	assert.NotContains(t, e45.Divisions, bean)
	assert.Contains(t, e45.Divisions, wakefield)
	for _, d := range e45.Divisions {
		assert.True(t, d.ExistsIn(model.Epoch2016), d.Name)
	}

	e47, ok := g.TryFindElection(47)
	require.True(t, ok)
	assert.Contains(t, e47.Divisions, find(t, g, "spence"))
	assert.NotContains(t, e47.Divisions, find(t, g, "port-adelaide"))

	_, err = g.FindElection(44)
	require.ErrorIs(t, err, model.ErrElectionNotFound)
	_, ok = g.TryFindElection(44)
	assert.False(t, ok)

	e, ok := g.ElectionFor(model.Epoch2019)
	require.True(t, ok)
	assert.Equal(t, 46, e.Parliament)
}

func TestAffiliationAndPartyLookups(t *testing.T) {
	g := build(t)

	a, err := g.FindAffiliation(12)
	require.NoError(t, err)
	assert.Equal(t, "ALP-SA", a.AffiliationCode())
	assert.Equal(t, "Australian Labor Party", g.PartyOf(a).Name)

	_, ok := g.TryFindAffiliation(testutil.UnknownParty)
	assert.False(t, ok)
	_, err = g.FindAffiliation(testutil.UnknownParty)
	assert.ErrorIs(t, err, model.ErrPartyNotFound)

	for _, q := range []string{"alp", "Australian Labor Party", "A.L.P."} {
		p, err := g.FindParty(q)
		require.NoError(t, err, q)
		assert.Equal(t, 1, p.ID, q)
	}
	_, err = g.FindParty("Greens")
	assert.ErrorIs(t, err, model.ErrPartyNotFound)
	_, err = g.FindParty("")
	assert.ErrorIs(t, err, model.ErrPartyNotFound)

	assert.Len(t, g.Parties(), 2)
}

func TestPostcodes(t *testing.T) {
	g := build(t)

	loc, err := g.FindPostcode("5015")
	require.NoError(t, err)
	require.Len(t, loc.Divisions, 2)
	assert.Equal(t, "Port Adelaide", loc.Divisions[0].Name)
	assert.Equal(t, "Spence", loc.Divisions[1].Name)

	_, err = g.FindPostcode("0000")
	assert.ErrorIs(t, err, model.ErrPostcodeNotFound)
	assert.Len(t, g.Localities(), 3)
}

func TestAccessorsReturnCopies(t *testing.T) {
	g := build(t)
	divs := g.Divisions()
	divs[0] = nil
	assert.NotNil(t, g.Divisions()[0])
}

func TestBuildRejectsMalformedRecords(t *testing.T) {
	end := 1990
	cases := []struct {
		name   string
		mutate func(*dataset.Records)
		want   error
	}{
		{"unknown state", func(r *dataset.Records) { r.Divisions[0].State = "XX" }, model.ErrMalformedRecord},
		{"blank short name", func(r *dataset.Records) { r.Divisions[0].ShortName = "" }, model.ErrMalformedRecord},
		{"negative area", func(r *dataset.Records) { r.Divisions[0].Area = -1 }, model.ErrMalformedRecord},
		{"member without begin", func(r *dataset.Records) { r.Divisions[0].Members[0].Begin = 0 }, model.ErrMalformedRecord},
		{"term ends before begin", func(r *dataset.Records) { r.Divisions[0].Members[0].End = &end }, model.ErrMalformedRecord},
		{"duplicate division name", func(r *dataset.Records) { r.Divisions[1].Name = "BASS" }, model.ErrDuplicateKey},
		{"name collides with short name", func(r *dataset.Records) { r.Divisions[1].ShortName = "Fenner" }, model.ErrDuplicateKey},
		{"duplicate affiliation id", func(r *dataset.Records) { r.Parties[1].Branches[0].ID = 11 }, model.ErrDuplicateKey},
		{"party without name", func(r *dataset.Records) { r.Parties[0].Name = "" }, model.ErrMalformedRecord},
		{"postcode with unknown division", func(r *dataset.Records) { r.Localities[0].Divisions = []string{"atlantis"} }, model.ErrMalformedRecord},
		{"duplicate postcode", func(r *dataset.Records) { r.Localities[1].Postcode = "2612" }, model.ErrDuplicateKey},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := testutil.Records()
			tc.mutate(&rec)
			g, err := graph.Build(rec)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestInitializerRunsOnce(t *testing.T) {
	var calls atomic.Int32
	ini := graph.NewInitializer(func() (dataset.Records, error) {
		calls.Add(1)
		return testutil.Records(), nil
	})

	var wg sync.WaitGroup
	got := make([]*graph.Graph, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, err := ini.Initialize()
			assert.NoError(t, err)
			got[i] = g
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
	for _, g := range got {
		assert.Same(t, got[0], g)
	}
}

func TestInitializerCachesFailure(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	ini := graph.NewInitializer(func() (dataset.Records, error) {
		calls++
		return dataset.Records{}, boom
	})
	_, err := ini.Initialize()
	assert.ErrorIs(t, err, boom)
	_, err = ini.Initialize()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestFromDir(t *testing.T) {
	g, err := graph.FromDir(testutil.WriteDataDir(t)).Initialize()
	require.NoError(t, err)
	assert.Len(t, g.Divisions(), len(testutil.Records().Divisions))
}
