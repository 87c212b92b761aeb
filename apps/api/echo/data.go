package echoapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ieptracker/core/roster"
	"github.com/trezcool/ieptracker/core/store"
	"github.com/trezcool/ieptracker/core/student"
)

const (
	headerRemoteExport = "X-Remote-Export"
	importFormField    = "file"
)

type (
	ImportResponse struct {
		Imported int               `json:"imported"`
		Students []student.Student `json:"students"`
	}

	RemoteBackupResponse struct {
		FileName string `json:"fileName"`
	}

	InfoResponse struct {
		Storage         store.Info         `json:"storage"`
		RemoteEnabled   bool               `json:"remoteEnabled"`
		AutosavePending bool               `json:"autosavePending"`
		LastAutosave    *roster.SaveStatus `json:"lastAutosave"`
	}
)

// remoteStatus summarizes a best-effort remote phase in a response header.
func remoteStatus(res store.RemoteResult) string {
	switch {
	case !res.Attempted:
		return "skipped"
	case res.OK:
		return "ok"
	case res.Kind != "":
		return "failed: " + string(res.Kind)
	default:
		return "failed"
	}
}

type dataApi struct {
	svc   *store.Service
	state *roster.State
	saver *roster.Autosaver
}

func registerDataAPI(g *echo.Group, svc *store.Service, state *roster.State, saver *roster.Autosaver) {
	api := dataApi{svc: svc, state: state, saver: saver}

	dg := g.Group("/data")
	dg.POST("/load", api.load)
	dg.POST("/save", api.save)
	dg.GET("/export", api.export)
	dg.POST("/import", api.importRoster)
	dg.GET("/backups", api.backups)
	dg.POST("/backups/prune", api.prune)
	dg.POST("/backups/:key/restore", api.restore)
	dg.POST("/remote-backup", api.remoteBackup)
	dg.GET("/info", api.info)
	dg.DELETE("", api.clear)
}

// load replaces the roster with the stored one. Pending changes are dropped.
func (api *dataApi) load(ctx echo.Context) error {
	api.saver.Stop()
	res := api.svc.Load(ctx.Request().Context(), bearerToken(ctx))
	api.state.Reset(res.Students)
	return ctx.JSON(http.StatusOK, res)
}

// save persists the roster now, superseding any pending autosave.
func (api *dataApi) save(ctx echo.Context) error {
	api.saver.Stop()
	res, err := api.svc.Save(ctx.Request().Context(), api.state.Students(), bearerToken(ctx))
	if err != nil {
		return errors.Wrap(err, "saving roster")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *dataApi) export(ctx echo.Context) error {
	buf := new(bytes.Buffer)
	res, err := api.svc.Export(ctx.Request().Context(), buf, api.state.Students(), bearerToken(ctx), ctx.QueryParam("filename"))
	if err != nil {
		return errors.Wrap(err, "exporting roster")
	}
	setAttachment(ctx, res.FileName)
	ctx.Response().Header().Set(headerRemoteExport, remoteStatus(res.Remote))
	return ctx.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, buf.Bytes())
}

// importRoster replaces the roster with an uploaded export file, or with the JSON body.
func (api *dataApi) importRoster(ctx echo.Context) error {
	var r io.Reader
	req := ctx.Request()
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := ctx.FormFile(importFormField)
		if err != nil {
			return errHttpImportInput
		}
		file, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening import file")
		}
		defer func() { _ = file.Close() }()
		r = file
	} else {
		if req.ContentLength == 0 {
			return errHttpImportInput
		}
		r = req.Body
	}

	students, err := api.svc.Import(r)
	if err != nil {
		return errors.Wrap(err, "importing roster")
	}
	api.state.Replace(req.Context(), students)
	return ctx.JSON(http.StatusOK, ImportResponse{Imported: len(students), Students: students})
}

func (api *dataApi) backups(ctx echo.Context) error {
	backups, err := api.svc.ListBackups(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing backups")
	}
	if backups == nil {
		backups = []store.BackupInfo{}
	}
	return ctx.JSON(http.StatusOK, backups)
}

func (api *dataApi) prune(ctx echo.Context) error {
	max, err := maxQuery(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.PruneBackups(ctx.Request().Context(), max); err != nil {
		return errors.Wrap(err, "pruning backups")
	}
	return api.backups(ctx)
}

// restore replaces the roster with a local backup; the change is saved like any other.
func (api *dataApi) restore(ctx echo.Context) error {
	students, err := api.svc.RestoreBackup(ctx.Request().Context(), ctx.Param("key"))
	if err != nil {
		return errors.Wrap(err, "restoring backup")
	}
	api.state.Replace(ctx.Request().Context(), students)
	return ctx.JSON(http.StatusOK, students)
}

func (api *dataApi) remoteBackup(ctx echo.Context) error {
	name, err := api.svc.CreateRemoteBackup(ctx.Request().Context(), bearerToken(ctx))
	if err != nil {
		return errors.Wrap(err, "creating remote backup")
	}
	return ctx.JSON(http.StatusCreated, RemoteBackupResponse{FileName: name})
}

func (api *dataApi) info(ctx echo.Context) error {
	info, err := api.svc.Info(ctx.Request().Context(), bearerToken(ctx))
	if err != nil {
		return errors.Wrap(err, "reading storage info")
	}
	res := InfoResponse{
		Storage:         info,
		RemoteEnabled:   api.svc.RemoteEnabled(),
		AutosavePending: api.saver.Pending(),
	}
	if last, ok := api.saver.LastSave(); ok {
		res.LastAutosave = &last
	}
	return ctx.JSON(http.StatusOK, res)
}

// clear deletes all stored data and empties the roster, even when only the local data could be deleted.
func (api *dataApi) clear(ctx echo.Context) error {
	api.saver.Stop()
	err := api.svc.ClearAll(ctx.Request().Context(), bearerToken(ctx))
	var cErr *store.ClearError
	if err == nil || errors.As(err, &cErr) {
		api.state.Reset(nil)
	}
	if err != nil {
		return errors.Wrap(err, "clearing data")
	}
	return ctx.NoContent(http.StatusNoContent)
}
