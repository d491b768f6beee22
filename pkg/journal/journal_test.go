package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Write(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	path, err := w.Write(&Entry{
		Message: "swap 100 USDC to SEI",
		Text:    "swapped",
		Content: map[string]any{"tx": "0xabc"},
		Success: true,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "action_20250601_120000_00001.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Entry
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "swap 100 USDC to SEI", got.Message)
	assert.True(t, got.Success)
	assert.Equal(t, "0xabc", got.Content["tx"])
	assert.False(t, got.Timestamp.IsZero())
}

func TestWriter_SequenceAndNilEntry(t *testing.T) {
	w := NewWriter(t.TempDir())

	_, err := w.Write(nil)
	require.Error(t, err)

	p1, err := w.Write(&Entry{Message: "first"})
	require.NoError(t, err)
	p2, err := w.Write(&Entry{Message: "second"})
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)
}
