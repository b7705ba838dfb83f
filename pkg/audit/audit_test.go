package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRequestWritesOneJSONLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.LogRequest("acct-1", "/transaction", 200, 3, 5*time.Millisecond, nil)
	l.LogRequest("acct-1", "/transaction", 400, 1, time.Millisecond, errors.New("Item #0: invalid value"))

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 2)

	var first Event
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, 200, first.Status)
	assert.Empty(t, first.Error)

	var second Event
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, 400, second.Status)
	assert.Contains(t, second.Error, "Item #0")
}
