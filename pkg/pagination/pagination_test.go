package pagination

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, DefaultLimit, NormalizeLimit(-3))
	require.Equal(t, 7, NormalizeLimit(7))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit*3))
	require.Equal(t, MaxLimit+1, FetchSize(500))
}

func TestCursorRoundTripIsURLSafe(t *testing.T) {
	at := time.Date(2026, 3, 9, 14, 1, 2, 345, time.FixedZone("EST", -5*3600))
	token := EncodeCursor(Cursor{CreatedAt: at, Key: "evt_1NqX?+/"})
	require.NotContains(t, token, "+")
	require.NotContains(t, token, "/")
	require.NotContains(t, token, "=")

	got, err := ParseCursor(" " + token + " ")
	require.NoError(t, err)
	require.True(t, got.CreatedAt.Equal(at))
	require.Equal(t, "evt_1NqX?+/", got.Key)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	got, err := ParseCursor("")
	require.NoError(t, err)
	require.Nil(t, got)

	for _, token := range []string{"%%%", "bm90IGpzb24", EncodeCursor(Cursor{CreatedAt: time.Now()})} {
		_, err := ParseCursor(token)
		require.Error(t, err, token)
	}
}

func TestSplit(t *testing.T) {
	keyed := func(s string) Cursor {
		return Cursor{CreatedAt: time.Unix(1700000000, 0), Key: s}
	}

	page, next := Split([]string{"c", "b"}, 2, keyed)
	require.Equal(t, []string{"c", "b"}, page)
	require.Empty(t, next)

	page, next = Split([]string{"c", "b", "a"}, 2, keyed)
	require.Equal(t, []string{"c", "b"}, page)
	cursor, err := ParseCursor(next)
	require.NoError(t, err)
	require.Equal(t, "b", cursor.Key)
	require.False(t, strings.Contains(next, "="))
}
