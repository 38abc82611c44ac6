package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conversations.tsv")
	l, err := Open(path)
	require.NoError(t, err)
	return l, path
}

func TestOpenCreatesHeader(t *testing.T) {
	_, path := openTestLog(t)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Timestamp\tQuestion\tAutoreply\tManual reply\tis_approved\n", string(data))
}

func TestAppendAndLookup(t *testing.T) {
	l, _ := openTestLog(t)

	require.NoError(t, l.Append("200", Turn{Question: "where is my order?"}))

	turn, ok := l.Lookup("200")
	require.True(t, ok)
	assert.Equal(t, "where is my order?", turn.Question)
	assert.False(t, turn.Timestamp.IsZero())
	assert.Empty(t, turn.Outcome)
}

func TestAppendDuplicateTurn(t *testing.T) {
	l, _ := openTestLog(t)

	require.NoError(t, l.Append("200", Turn{Question: "first"}))
	err := l.Append("200", Turn{Question: "second"})
	assert.ErrorIs(t, err, ErrDuplicateTurn)

	turn, ok := l.Lookup("200")
	require.True(t, ok)
	assert.Equal(t, "first", turn.Question)
}

func TestUpdateMergesPatch(t *testing.T) {
	l, _ := openTestLog(t)
	require.NoError(t, l.Append("200", Turn{Question: "q"}))

	auto := "generated answer"
	require.NoError(t, l.Update("200", Patch{Autoreply: &auto}))

	manual := "operator answer"
	outcome := "Discarded"
	require.NoError(t, l.Update("200", Patch{ManualReply: &manual, Outcome: &outcome}))

	turn, ok := l.Lookup("200")
	require.True(t, ok)
	assert.Equal(t, "q", turn.Question)
	assert.Equal(t, "generated answer", turn.Autoreply)
	assert.Equal(t, "operator answer", turn.ManualReply)
	assert.Equal(t, "Discarded", turn.Outcome)
}

func TestUpdateClearsWithEmptyPointer(t *testing.T) {
	l, _ := openTestLog(t)
	auto := "generated"
	require.NoError(t, l.Append("200", Turn{Question: "q", Autoreply: auto}))

	empty := ""
	require.NoError(t, l.Update("200", Patch{Autoreply: &empty}))

	turn, ok := l.Lookup("200")
	require.True(t, ok)
	assert.Empty(t, turn.Autoreply)
}

func TestUpdateUnknownTurn(t *testing.T) {
	l, _ := openTestLog(t)

	outcome := "Approved"
	err := l.Update("999", Patch{Outcome: &outcome})
	assert.ErrorIs(t, err, ErrUnknownTurn)
}

func TestTurnsKeepAppendOrder(t *testing.T) {
	l, _ := openTestLog(t)
	require.NoError(t, l.Append("1", Turn{Question: "first"}))
	require.NoError(t, l.Append("2", Turn{Question: "second"}))
	require.NoError(t, l.Append("3", Turn{Question: "third"}))

	outcome := "Approved"
	require.NoError(t, l.Update("2", Patch{Outcome: &outcome}))

	turns := l.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "first", turns[0].Question)
	assert.Equal(t, "second", turns[1].Question)
	assert.Equal(t, "Approved", turns[1].Outcome)
	assert.Equal(t, "third", turns[2].Question)
}

func TestReopenReadsRowsButNotIndex(t *testing.T) {
	l, path := openTestLog(t)
	require.NoError(t, l.Append("200", Turn{Question: "persisted"}))

	reopened, err := Open(path)
	require.NoError(t, err)

	turns := reopened.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "persisted", turns[0].Question)

	// Turns from a previous run are readable but no longer patchable.
	outcome := "Approved"
	assert.ErrorIs(t, reopened.Update("200", Patch{Outcome: &outcome}), ErrUnknownTurn)

	// New turns still append after the old rows.
	require.NoError(t, reopened.Append("201", Turn{Question: "fresh"}))
	assert.Len(t, reopened.Turns(), 2)
}

func TestTabAndNewlineSafeEncoding(t *testing.T) {
	l, path := openTestLog(t)
	require.NoError(t, l.Append("200", Turn{Question: "line one\nline two\twith tab"}))

	reopened, err := Open(path)
	require.NoError(t, err)
	turns := reopened.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "line one\nline two\twith tab", turns[0].Question)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Embedded separators are quoted, not escaped away.
	assert.True(t, strings.Contains(string(data), `"`))
}
