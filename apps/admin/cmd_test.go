package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/ieptracker/apps"
	"github.com/trezcool/ieptracker/core/student"
	"github.com/trezcool/ieptracker/tests"
)

var (
	now                 = time.Date(2025, 8, 18, 10, 0, 0, 0, time.UTC)
	defaultReadPassword = readPasswordFunc
)

func setup(t *testing.T) (*commandLine, *testutil.Stack, *bytes.Buffer) {
	t.Helper()
	testutil.MockNow(t, now)

	stack := testutil.NewStack()
	out := new(bytes.Buffer)
	_, err := stack.Store.Save(context.Background(), testutil.SampleRoster(), "")
	require.NoError(t, err)

	return &commandLine{svc: stack.Store, out: out}, stack, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func Test_commandLine_run(t *testing.T) {
	cli, _, _ := setup(t)
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.json")
	require.NoError(t, os.WriteFile(existing, []byte("[]"), 0o600))

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "help flag", args: []string{"backups", "-h"}, wantErr: errHelp},
		{name: "restore: no key", args: []string{"restore"}, wantErr: errHelp},
		{name: "restore: unknown key", args: []string{"restore", "-key", "lol"}, wantErrStr: "backup not found"},
		{name: "prune: negative max", args: []string{"prune", "-max", "-1"}, wantErrStr: "max must not be negative"},
		{name: "export: no output", args: []string{"export"}, wantErr: errHelp},
		{name: "export: existing output", args: []string{"export", "-o", existing}, wantErrStr: existing + " already exists"},
		{name: "import: no input", args: []string{"import"}, wantErr: errHelp},
		{name: "import: missing input", args: []string{"import", "-i", filepath.Join(dir, "lol.json")}, wantErrStr: "opening import file"},
		{name: "report: no output", args: []string{"report"}, wantErr: errHelp},
		{name: "clear: unconfirmed", args: []string{"clear"}, wantErr: errHelp},
		{name: "status", args: []string{"status"}},
		{name: "backups", args: []string{"backups"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_argumentErrors(t *testing.T) {
	cli, _, _ := setup(t)

	err := cli.run([]string{"admin", "prune", "-max", "-2"})
	var aErr *apps.ArgumentError
	require.ErrorAs(t, err, &aErr)
	assert.Equal(t, "max", aErr.Arg)
	assert.Equal(t, "-max must not be negative", err.Error())
}

func Test_commandLine_status(t *testing.T) {
	cli, stack, out := setup(t)

	require.NoError(t, cli.run([]string{"admin", "status"}))
	assert.Contains(t, out.String(), "Local: ")
	assert.Contains(t, out.String(), "1 backups, last saved 2025-08-18T10:00:00Z")
	assert.Contains(t, out.String(), "Drive: no token")

	readPasswordFunc = func(int) ([]byte, error) { return []byte("tok"), nil }
	t.Cleanup(func() { readPasswordFunc = defaultReadPassword })

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "status", "-token-prompt"}))
	assert.Contains(t, out.String(), "Drive: folder ")

	stack.Drive.FailAll("transport", 0)
	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "status", "-token-prompt"}))
	assert.Contains(t, out.String(), "Drive: unavailable")
}

func Test_commandLine_backups(t *testing.T) {
	cli, stack, out := setup(t)

	require.NoError(t, cli.run([]string{"admin", "backups"}))
	assert.Contains(t, out.String(), "iep-tracker-backup-2025-08-18\t2 students")

	// the roster is emptied then restored from the backup of the day
	require.NoError(t, stack.Local.Save(context.Background(), nil))
	require.NoError(t, cli.run([]string{"admin", "restore", "-key", "iep-tracker-backup-2025-08-18"}))
	assert.Equal(t, testutil.SampleRoster(), stack.Store.Load(context.Background(), "").Students)

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "prune", "-max", "1"}))
	assert.Contains(t, out.String(), "iep-tracker-backup-2025-08-18")
}

func Test_commandLine_exportImport(t *testing.T) {
	cli, stack, out := setup(t)
	path := filepath.Join(t.TempDir(), "roster.json")

	require.NoError(t, cli.run([]string{"admin", "export", "-o", path}))
	assert.Contains(t, out.String(), "Exported 2 students to "+path)

	require.NoError(t, cli.run([]string{"admin", "clear", "-yes"}))
	assert.Empty(t, stack.Store.Load(context.Background(), "").Students)

	require.NoError(t, cli.run([]string{"admin", "import", "-i", path}))
	assert.Equal(t, testutil.SampleRoster(), stack.Store.Load(context.Background(), "").Students)

	invalid := filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`[{"studentId":"1"}]`), 0o600))
	err := cli.run([]string{"admin", "import", "-i", invalid})
	require.Error(t, err)
	assert.Equal(t, "invalid import file: student at index 0: missing required fields", err.Error())
}

func Test_commandLine_exportToDrive(t *testing.T) {
	cli, stack, _ := setup(t)
	cli.token = "tok"
	require.NoError(t, cli.run([]string{"admin", "export", "-o", filepath.Join(t.TempDir(), "mine.json")}))

	_, ok := stack.Drive.Content("mine.json")
	assert.True(t, ok)
}

func Test_commandLine_report(t *testing.T) {
	cli, _, _ := setup(t)
	path := filepath.Join(t.TempDir(), "progress.xlsx")

	require.NoError(t, cli.run([]string{"admin", "report", "-o", path}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{"Summary", "Lovelace, Ada", "Smith, Bob"}, f.GetSheetList())
}

func Test_commandLine_clearRemoteFailure(t *testing.T) {
	cli, stack, _ := setup(t)
	cli.token = "tok"
	_, err := stack.Store.Save(context.Background(), testutil.SampleRoster(), "tok")
	require.NoError(t, err)
	stack.Drive.FailOn("delete", assert.AnError)

	err = cli.run([]string{"admin", "clear", "-yes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local data cleared")
	assert.Equal(t, []student.Student{}, stack.Store.Load(context.Background(), "").Students)
}
