package logsvc

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	l := NewConsoleLogger(log.New(buf, "", 0), "warn")

	l.Debug("hidden")
	l.Warn("backup failed", errors.New("boom"))
	l.Error("remote failed")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN] backup failed")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "[ERROR] remote failed")

	assert.Len(t, l.Entries(), 3)
	warns := l.Entries("warn")
	require.Len(t, warns, 1)
	assert.Equal(t, "backup failed", warns[0].Msg)
}

func TestRollbarLogger_prepare(t *testing.T) {
	err := errors.New("boom")
	req, _ := http.NewRequest(http.MethodGet, "/v1/students", nil)

	args := RollbarLogger{}.prepare("failed", []interface{}{
		err,
		req,
		map[string]interface{}{"op": "save"},
		"iep-tracker-backup-2025-08-15",
		42,
	})

	require.Len(t, args, 4)
	assert.Equal(t, "failed", args[0])
	assert.Equal(t, err, args[1])
	assert.Equal(t, req, args[2])
	assert.Equal(t, map[string]interface{}{
		"op":      "save",
		"details": []string{"iep-tracker-backup-2025-08-15", "42"},
	}, args[3])
}
