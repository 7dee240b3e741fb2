package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"au-electorates/internal/model"
)

func divisions() []*model.Division {
	return []*model.Division{
		{Name: "Bass", ShortName: "bass", State: model.TAS},
		{Name: "Port Adelaide", ShortName: "port-adelaide", State: model.SA},
		{Name: "O'Connor", ShortName: "o'connor", State: model.WA},
	}
}

func TestFindByNameAndShortNameAnyCase(t *testing.T) {
	divs := divisions()
	r, err := New(divs)
	require.NoError(t, err)

	for _, d := range divs {
		for _, n := range []string{d.Name, d.ShortName, upper(d.Name), upper(d.ShortName)} {
			got, err := r.Find(n)
			require.NoError(t, err, n)
			assert.Same(t, d, got, n)
		}
	}

	a, err := r.Find("PORT ADELAIDE")
	require.NoError(t, err)
	b, err := r.Find("Port-Adelaide")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestFindNotFound(t *testing.T) {
	r, err := New(divisions())
	require.NoError(t, err)

	_, ok := r.TryFind("not Found")
	assert.False(t, ok)

	_, err = r.Find("not Found")
	require.ErrorIs(t, err, model.ErrDivisionNotFound)
	var nf *model.DivisionNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "not Found", nf.Name)

	_, ok = r.TryFind("   ")
	assert.False(t, ok)
}

func TestInvalidPreservesOrderAndDuplicates(t *testing.T) {
	r, err := New(divisions())
	require.NoError(t, err)

	assert.Equal(t, []string{"Not A Real Division"}, r.Invalid([]string{"Bass", "Not A Real Division"}))
	assert.Equal(t, []string{"x", "y", "x"}, r.Invalid([]string{"x", "bass", "y", "x", "PORT-ADELAIDE"}))
	assert.Empty(t, r.Invalid([]string{"bass", "o'connor"}))
	assert.Equal(t, []string{"not Found"}, r.Invalid([]string{"not Found", "port-adelaide"}))
}

func TestValidateAggregatesAllNames(t *testing.T) {
	r, err := New(divisions())
	require.NoError(t, err)

	require.NoError(t, r.Validate("Bass", "port-adelaide"))

	err = r.Validate("not Found", "Bass", "also missing")
	require.ErrorIs(t, err, model.ErrNamesNotFound)
	var nf *model.NamesNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"not Found", "also missing"}, nf.Names)
	assert.Contains(t, err.Error(), "not Found, also missing")
}

func TestShortName(t *testing.T) {
	r, err := New(divisions())
	require.NoError(t, err)

	s, ok := r.ShortName("PORT ADELAIDE")
	require.True(t, ok)
	assert.Equal(t, "port-adelaide", s)

	_, ok = r.ShortName("nowhere")
	assert.False(t, ok)
}

func TestNewRejectsDuplicateKeys(t *testing.T) {
	t.Run("duplicate full name ignoring case", func(t *testing.T) {
		_, err := New([]*model.Division{
			{Name: "Bass", ShortName: "bass"},
			{Name: "BASS", ShortName: "bass-2"},
		})
		assert.ErrorIs(t, err, model.ErrDuplicateKey)
	})
	t.Run("name collides with another short name", func(t *testing.T) {
		_, err := New([]*model.Division{
			{Name: "Bass", ShortName: "b"},
			{Name: "Other", ShortName: "BASS"},
		})
		assert.ErrorIs(t, err, model.ErrDuplicateKey)
	})
	t.Run("same division name equals short name", func(t *testing.T) {
		r, err := New([]*model.Division{{Name: "Bass", ShortName: "bass"}})
		require.NoError(t, err)
		assert.Equal(t, 1, r.Len())
	})
	t.Run("blank short name", func(t *testing.T) {
		_, err := New([]*model.Division{{Name: "Bass", ShortName: " "}})
		assert.ErrorIs(t, err, model.ErrMalformedRecord)
	})
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}
