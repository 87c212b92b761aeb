package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ieptracker/core/dates"
	"github.com/trezcool/ieptracker/core/roster"
	"github.com/trezcool/ieptracker/core/student"
	reportsvc "github.com/trezcool/ieptracker/services/report"
)

type reportApi struct {
	state *roster.State
}

func registerReportAPI(g *echo.Group, state *roster.State) {
	api := reportApi{state: state}
	g.GET("/students/:id/report", api.student)
	g.GET("/reports.xlsx", api.workbook)
}

func (api *reportApi) student(ctx echo.Context) error {
	stu, err := api.state.Student(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving student")
	}
	return ctx.JSON(http.StatusOK, student.BuildReport(stu, dates.Today()))
}

func (api *reportApi) workbook(ctx echo.Context) error {
	today := dates.Today()
	buf := new(bytes.Buffer)
	if err := reportsvc.WriteWorkbook(buf, api.state.Students(), today); err != nil {
		return errors.Wrap(err, "building workbook")
	}
	setAttachment(ctx, reportsvc.FileName(today))
	return ctx.Blob(http.StatusOK, reportsvc.ContentType, buf.Bytes())
}

func setAttachment(ctx echo.Context, name string) {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
}
