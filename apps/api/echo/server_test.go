package echoapi_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	echoapi "github.com/trezcool/ieptracker/apps/api/echo"
	"github.com/trezcool/ieptracker/core/roster"
	"github.com/trezcool/ieptracker/core/store"
	"github.com/trezcool/ieptracker/core/student"
	reportsvc "github.com/trezcool/ieptracker/services/report"
	"github.com/trezcool/ieptracker/storage/drive"
	inmemdrive "github.com/trezcool/ieptracker/storage/drive/inmem"
	inmemkv "github.com/trezcool/ieptracker/storage/kv/inmem"
	"github.com/trezcool/ieptracker/storage/local"
	"github.com/trezcool/ieptracker/tests"
)

const token = "ya29.token"

// monday is 2025-08-18, the first business day after the last assessment of the sample roster.
var monday = time.Date(2025, 8, 18, 10, 0, 0, 0, time.UTC)

type testApp struct {
	server echoapi.Server
	stack  *testutil.Stack
	state  *roster.State
	saver  *roster.Autosaver
}

func newTestApp(t *testing.T, svc ...*store.Service) *testApp {
	t.Helper()
	testutil.MockNow(t, monday)

	a := &testApp{stack: testutil.NewStack()}
	storeSvc := a.stack.Store
	if len(svc) > 0 {
		storeSvc = svc[0]
	}
	a.state = roster.NewState(testutil.SampleRoster())
	a.saver = roster.NewAutosaver(storeSvc, time.Hour, a.stack.Logger)
	a.state.OnChange(a.saver.Hook())
	t.Cleanup(a.saver.Stop)
	a.server = echoapi.NewServer(&echoapi.Options{
		AppName:        "IEP Tracker",
		TestMode:       true,
		DisableReqLogs: true,
		Logger:         a.stack.Logger,
		Store:          storeSvc,
		Roster:         a.state,
		Autosaver:      a.saver,
	})
	return a
}

func (a *testApp) do(method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     string
	wantCode int
	wantData string // compared as JSON when set
}

func TestServer_home(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to IEP Tracker API!", rec.Body.String())
}

func TestStudentApi(t *testing.T) {
	tests := []httpTest{
		{name: "create", method: http.MethodPost, path: "/v1/students", body: `{"studentId":"s3","firstName":"Grace","lastName":"Hopper"}`, wantCode: http.StatusCreated,
			wantData: `{"studentId":"s3","studentName":"Hopper, Grace","goals":[]}`},
		{name: "create invalid", method: http.MethodPost, path: "/v1/students", body: `{}`, wantCode: http.StatusBadRequest,
			wantData: `{"firstName":"this field is required","lastName":"this field is required"}`},
		{name: "create duplicate", method: http.MethodPost, path: "/v1/students", body: `{"studentId":"s1","firstName":"A","lastName":"B"}`, wantCode: http.StatusBadRequest,
			wantData: `{"studentId":"a student with this id already exists"}`},
		{name: "retrieve unknown", method: http.MethodGet, path: "/v1/students/nope", wantCode: http.StatusNotFound,
			wantData: `{"error":"retrieving student: student not found"}`},
		{name: "rename", method: http.MethodPut, path: "/v1/students/s2/", body: `{"studentName":"Smith, Robert"}`, wantCode: http.StatusOK,
			wantData: `{"studentId":"s2","studentName":"Smith, Robert","goals":[]}`},
		{name: "rename unknown", method: http.MethodPut, path: "/v1/students/nope", body: `{"studentName":"x"}`, wantCode: http.StatusNotFound},
		{name: "delete", method: http.MethodDelete, path: "/v1/students/s2", wantCode: http.StatusNoContent},
		{name: "create goal", method: http.MethodPost, path: "/v1/students/s2/goals", wantCode: http.StatusCreated,
			body: `{"title":"Math","description":"Adds","startDate":"2025-08-18","endDate":"2026-06-30","frequency":"custom","customFrequencyDays":3}`},
		{name: "create goal invalid", method: http.MethodPost, path: "/v1/students/s2/goals", wantCode: http.StatusBadRequest,
			body:     `{"title":"Math","description":"Adds","startDate":"2025-08-18","endDate":"2026-06-30","frequency":"hourly"}`,
			wantData: `{"frequency":"invalid frequency"}`},
		{name: "create goal bad date", method: http.MethodPost, path: "/v1/students/s2/goals", body: `{"startDate":"18/08/2025"}`, wantCode: http.StatusBadRequest},
		{name: "delete goal", method: http.MethodDelete, path: "/v1/students/s1/goals/g1", wantCode: http.StatusNoContent},
		{name: "delete unknown goal", method: http.MethodDelete, path: "/v1/students/s1/goals/nope", wantCode: http.StatusNotFound},
		{name: "record assessment", method: http.MethodPost, path: "/v1/students/s1/goals/g1/assessments", body: `{"result":"pass"}`, wantCode: http.StatusCreated,
			wantData: `{"date":"2025-08-18","result":"pass"}`},
		{name: "record invalid assessment", method: http.MethodPost, path: "/v1/students/s1/goals/g1/assessments", body: `{"result":"maybe"}`, wantCode: http.StatusBadRequest},
		{name: "delete day", method: http.MethodDelete, path: "/v1/students/s1/goals/g1/assessments/2025-08-15", wantCode: http.StatusOK,
			wantData: `{"removed":2}`},
		{name: "delete day bad date", method: http.MethodDelete, path: "/v1/students/s1/goals/g1/assessments/yesterday", wantCode: http.StatusBadRequest,
			wantData: `{"error":"dates must be formatted as YYYY-MM-DD"}`},
		{name: "add note", method: http.MethodPost, path: "/v1/students/s1/goals/g1/notes", body: `{"note":"Focused"}`, wantCode: http.StatusCreated},
		{name: "add empty note", method: http.MethodPost, path: "/v1/students/s1/goals/g1/notes", body: `{"note":"  "}`, wantCode: http.StatusBadRequest,
			wantData: `{"note":"this field is required"}`},
		{name: "edit note", method: http.MethodPut, path: "/v1/students/s1/goals/g1/notes/n1", body: `{"note":"Very tired"}`, wantCode: http.StatusOK,
			wantData: `{"noteId":"n1","date":"2025-08-15","note":"Very tired"}`},
		{name: "delete note", method: http.MethodDelete, path: "/v1/students/s1/goals/g1/notes/n1", wantCode: http.StatusNoContent},
		{name: "delete unknown note", method: http.MethodDelete, path: "/v1/students/s1/goals/g1/notes/nope", wantCode: http.StatusNotFound,
			wantData: `{"error":"deleting note: note not found"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			rec := app.do(tt.method, tt.path, "", []byte(tt.body))

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantData != "" {
				assert.JSONEq(t, tt.wantData, rec.Body.String())
			}
			// successful mutations are scheduled for saving
			assert.Equal(t, rec.Code < 300 && tt.method != http.MethodGet, app.saver.Pending())
		})
	}
}

func TestStudentApi_query(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(http.MethodGet, "/v1/students", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []echoapi.StudentListItem
	decode(t, rec, &items)
	require.Len(t, items, 2)
	assert.Equal(t, "Lovelace, Ada", items[0].StudentName)
	assert.Equal(t, student.StatusCounts{DueToday: 1}, items[0].StatusCounts)
	assert.True(t, items[1].StatusCounts.UpToDate())
}

func TestStudentApi_retrieve(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(http.MethodGet, "/v1/students/s1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail echoapi.StudentDetail
	decode(t, rec, &detail)
	require.Len(t, detail.Goals, 1)
	assert.Equal(t, "g1", detail.Goals[0].GoalID)
	assert.Equal(t, student.StateDue, detail.Goals[0].Status.State)
	assert.Equal(t, "Due today", detail.Goals[0].Status.Message)
	assert.Equal(t, 0, detail.Goals[0].Today.Total)
}

func TestReportApi(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/v1/students/s1/report", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rep student.Report
	decode(t, rec, &rep)
	require.Len(t, rep.Summaries, 1)
	assert.Equal(t, 50, rep.Summaries[0].PassPercentage)
	assert.Equal(t, 1, rep.TotalSessions)

	rec = app.do(http.MethodGet, "/v1/students/nope/report", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(http.MethodGet, "/v1/reports.xlsx", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reportsvc.ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="iep-progress-2025-08-18.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{"Summary", "Lovelace, Ada", "Smith, Bob"}, f.GetSheetList())
}

func TestDataApi_saveLoad(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/v1/data/save", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved store.SaveResult
	decode(t, rec, &saved)
	assert.True(t, saved.Local.Saved)
	assert.True(t, saved.Local.BackupCreated)
	assert.True(t, saved.Remote.OK)
	_, ok := app.stack.Drive.Content(drive.DefaultDataFileName)
	assert.True(t, ok)

	// local edits are pending, then dropped by a load
	rec = app.do(http.MethodDelete, "/v1/students/s2", "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, app.saver.Pending())

	rec = app.do(http.MethodPost, "/v1/data/load", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var loaded store.LoadResult
	decode(t, rec, &loaded)
	assert.Equal(t, store.SourceRemote, loaded.Source)
	assert.Equal(t, testutil.SampleRoster(), loaded.Students)
	assert.Equal(t, testutil.SampleRoster(), app.state.Students())
	assert.False(t, app.saver.Pending())

	// without a token only the local roster is read
	rec = app.do(http.MethodPost, "/v1/data/load", "", nil)
	decode(t, rec, &loaded)
	assert.Equal(t, store.SourceLocal, loaded.Source)
	assert.False(t, loaded.Remote.Attempted)
}

func TestDataApi_saveFailure(t *testing.T) {
	stack := testutil.NewStack()
	full := local.New(inmemkv.New(16), stack.Logger, local.DefaultMaxBackups)
	app := newTestApp(t, store.NewService(full, nil, stack.Logger, local.DefaultMaxBackups))

	rec := app.do(http.MethodPost, "/v1/data/save", "", nil)
	assert.Equal(t, http.StatusInsufficientStorage, rec.Code)
}

func TestDataApi_exportImport(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/v1/data/export", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="iep-export-2025-08-18.json"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "ok", rec.Header().Get("X-Remote-Export"))
	exported := rec.Body.Bytes()

	var doc store.ExportDocument
	require.NoError(t, json.Unmarshal(exported, &doc))
	assert.Equal(t, 2, doc.ExportInfo.TotalStudents)
	assert.Equal(t, 1, doc.ExportInfo.TotalGoals)

	rec = app.do(http.MethodGet, "/v1/data/export?filename=mine.json", "", nil)
	assert.Equal(t, `attachment; filename="mine.json"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "skipped", rec.Header().Get("X-Remote-Export"))

	app.stack.Drive.FailAll(store.RemoteQuota, 403)
	rec = app.do(http.MethodGet, "/v1/data/export", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "failed: quota", rec.Header().Get("X-Remote-Export"))

	// import of the export restores the same roster
	app.state.Reset(nil)
	rec = app.do(http.MethodPost, "/v1/data/import", "", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res echoapi.ImportResponse
	decode(t, rec, &res)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, testutil.SampleRoster(), app.state.Students())
	assert.True(t, app.saver.Pending())
}

func TestDataApi_importMultipart(t *testing.T) {
	app := newTestApp(t)

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "students.json")
	require.NoError(t, err)
	_, err = fw.Write([]byte(`[{"studentId":"x","studentName":"X","goals":[]}]`))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/data/import", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []student.Student{{StudentID: "x", StudentName: "X", Goals: []student.Goal{}}}, app.state.Students())
}

func TestDataApi_importInvalid(t *testing.T) {
	tests := []httpTest{
		{name: "no body", wantCode: http.StatusBadRequest, wantData: `{"error":"an import file or a JSON body is required"}`},
		{name: "not an array", body: `{"students":{}}`, wantCode: http.StatusBadRequest,
			wantData: `{"error":"invalid import file: students data must be an array","index":-1}`},
		{name: "invalid student", body: `[{"studentId":"1","studentName":"A","goals":[]},{"studentId":"2","goals":[]}]`, wantCode: http.StatusBadRequest,
			wantData: `{"error":"invalid import file: student at index 1: missing required fields","index":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			rec := app.do(http.MethodPost, "/v1/data/import", "", []byte(tt.body))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantData, rec.Body.String())
			assert.Equal(t, testutil.SampleRoster(), app.state.Students(), "the roster is left untouched")
		})
	}
}

func TestDataApi_backups(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/v1/data/save", "", nil).Code)

	rec := app.do(http.MethodGet, "/v1/data/backups", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var backups []store.BackupInfo
	decode(t, rec, &backups)
	require.Len(t, backups, 1)
	assert.Equal(t, "iep-tracker-backup-2025-08-18", backups[0].Key)
	assert.Equal(t, 2, backups[0].StudentCount)

	app.state.Reset(nil)
	rec = app.do(http.MethodPost, "/v1/data/backups/iep-tracker-backup-2025-08-18/restore", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testutil.SampleRoster(), app.state.Students())
	assert.True(t, app.saver.Pending())

	rec = app.do(http.MethodPost, "/v1/data/backups/iep-tracker-backup-2020-01-01/restore", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(http.MethodPost, "/v1/data/backups/prune?max=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = app.do(http.MethodPost, "/v1/data/backups/prune?max=1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &backups)
	assert.Len(t, backups, 1)
}

func TestDataApi_remoteBackup(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/v1/data/remote-backup", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/v1/data/save", token, nil).Code)
	rec = app.do(http.MethodPost, "/v1/data/remote-backup", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var res echoapi.RemoteBackupResponse
	decode(t, rec, &res)
	assert.Equal(t, "backup-2025-08-18T10-00-00-000Z.json", res.FileName)

	app.stack.Drive.FailOn(inmemdrive.OpFind, store.NewRemoteError(store.RemoteAuth, "find", 401, nil))
	rec = app.do(http.MethodPost, "/v1/data/remote-backup", token, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "auth", body["kind"])
}

func TestDataApi_info(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/v1/data/save", token, nil).Code)
	app.do(http.MethodDelete, "/v1/students/s2", token, nil)

	rec := app.do(http.MethodGet, "/v1/data/info", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info echoapi.InfoResponse
	decode(t, rec, &info)
	assert.True(t, info.RemoteEnabled)
	assert.True(t, info.AutosavePending)
	assert.Nil(t, info.LastAutosave)
	assert.Equal(t, 1, info.Storage.Local.BackupCount)
	require.NotNil(t, info.Storage.Folder)
	assert.Equal(t, 1, info.Storage.Folder.FileCount)
}

func TestDataApi_clear(t *testing.T) {
	t.Run("local and remote", func(t *testing.T) {
		app := newTestApp(t)
		require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/v1/data/save", token, nil).Code)

		rec := app.do(http.MethodDelete, "/v1/data", token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, app.state.Students())
		assert.Zero(t, app.stack.KV.Size())
		assert.False(t, app.saver.Pending())
	})

	t.Run("remote failure", func(t *testing.T) {
		app := newTestApp(t)
		require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/v1/data/save", token, nil).Code)
		app.stack.Drive.FailOn(inmemdrive.OpDelete, store.NewRemoteError(store.RemoteHTTP, "delete", 500, nil))

		rec := app.do(http.MethodDelete, "/v1/data", token, nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		var body map[string]interface{}
		decode(t, rec, &body)
		assert.Equal(t, true, body["localCleared"])
		assert.Empty(t, app.state.Students())
		assert.Zero(t, app.stack.KV.Size())
	})
}
