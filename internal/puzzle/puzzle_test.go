package puzzle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validGroups() []Group {
	return []Group{
		{Theme: "letters", Words: []string{"a", "b", "c", "d"}},
		{Theme: "more", Words: []string{"e", "f", "g", "h"}},
		{Theme: "third", Words: []string{"i", "j", "k", "l"}},
		{Theme: "last", Words: []string{"m", "n", "o", "p"}},
	}
}

func TestNewValidPuzzle(t *testing.T) {
	p, err := New(42, validGroups())
	require.NoError(t, err)
	require.Equal(t, 42, p.ID)
	require.Len(t, p.Words(), WordCount)
	require.True(t, p.Contains("a"))
	require.False(t, p.Contains("z"))
	require.Equal(t, 2, p.GroupFor("i"))
	require.Equal(t, -1, p.GroupFor("zebra"))
	require.Len(t, p.Solution(), GroupCount)
}

func TestNewNormalizesWords(t *testing.T) {
	groups := validGroups()
	groups[0].Words = []string{" A ", "b", "C", "d"}
	p, err := New(1, groups)
	require.NoError(t, err)
	require.True(t, p.Contains("a"))
	require.True(t, p.Contains("c"))
}

func TestNewRejectsBadContent(t *testing.T) {
	cases := map[string]func() (int, []Group){
		"id below range": func() (int, []Group) { return -1, validGroups() },
		"id above range": func() (int, []Group) { return MaxID + 1, validGroups() },
		"three groups":   func() (int, []Group) { return 1, validGroups()[:3] },
		"short group": func() (int, []Group) {
			g := validGroups()
			g[1].Words = g[1].Words[:3]
			return 1, g
		},
		"duplicate word": func() (int, []Group) {
			g := validGroups()
			g[3].Words = []string{"m", "n", "o", "a"}
			return 1, g
		},
		"empty word": func() (int, []Group) {
			g := validGroups()
			g[2].Words = []string{"i", "j", "k", "  "}
			return 1, g
		},
	}
	for name, build := range cases {
		id, groups := build()
		_, err := New(id, groups)
		require.Error(t, err, name)
	}
}

func TestMatchGroup(t *testing.T) {
	p, err := New(1, validGroups())
	require.NoError(t, err)

	require.Equal(t, 0, p.MatchGroup([]string{"d", "c", "b", "a"}), "order never matters")
	require.Equal(t, 3, p.MatchGroup([]string{"m", "n", "o", "p"}))
	require.Equal(t, -1, p.MatchGroup([]string{"a", "b", "c", "e"}))
	require.Equal(t, -1, p.MatchGroup([]string{"a", "b", "c"}))
	require.Equal(t, -1, p.MatchGroup([]string{"a", "a", "b", "c"}))
	require.Equal(t, -1, p.MatchGroup([]string{"a", "b", "c", "zebra"}))
}

func TestParseSet(t *testing.T) {
	data := []byte(`[
		{"id": 3, "groups": [
			{"theme": "t1", "words": ["a","b","c","d"]},
			{"theme": "t2", "words": ["e","f","g","h"]},
			{"theme": "t3", "words": ["i","j","k","l"]},
			{"theme": "t4", "words": ["m","n","o","p"]}
		]}
	]`)
	set, index, err := parseSet(data)
	require.NoError(t, err)
	require.Len(t, set, 1)
	require.Equal(t, set[0], index[3])

	_, _, err = parseSet([]byte(`[]`))
	require.Error(t, err)

	_, _, err = parseSet([]byte(`not json`))
	require.Error(t, err)
}

func TestParseSetRejectsDuplicateIDs(t *testing.T) {
	one := `{"id": 3, "groups": [
		{"theme": "t1", "words": ["a","b","c","d"]},
		{"theme": "t2", "words": ["e","f","g","h"]},
		{"theme": "t3", "words": ["i","j","k","l"]},
		{"theme": "t4", "words": ["m","n","o","p"]}
	]}`
	_, _, err := parseSet([]byte(`[` + one + `,` + one + `]`))
	require.ErrorContains(t, err, "duplicate puzzle id")
}

func TestDailyIndexDeterministic(t *testing.T) {
	day := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	i1 := DailyIndex(day, "salt", 10)
	i2 := DailyIndex(day.Add(3*time.Hour), "salt", 10)
	require.Equal(t, i1, i2, "same UTC date picks the same index")
	require.GreaterOrEqual(t, i1, 0)
	require.Less(t, i1, 10)

	next := DailyIndex(day.Add(24*time.Hour), "salt", 10)
	other := DailyIndex(day, "other-salt", 10)
	// Not guaranteed distinct, but both must stay in range.
	require.Less(t, next, 10)
	require.Less(t, other, 10)
}

func TestDateKey(t *testing.T) {
	ts := time.Date(2024, 3, 1, 23, 59, 0, 0, time.FixedZone("X", 2*3600))
	require.Equal(t, "2024-03-01", DateKey(ts.Add(-2*time.Hour)))
	require.Equal(t, "2024-03-01", DateKey(ts))
}
