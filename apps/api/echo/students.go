package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ieptracker/core/dates"
	"github.com/trezcool/ieptracker/core/roster"
	"github.com/trezcool/ieptracker/core/student"
)

type (
	// StudentListItem is a student of the roster list with the status of its goals.
	StudentListItem struct {
		student.Student
		StatusCounts student.StatusCounts `json:"statusCounts"`
	}

	GoalDetail struct {
		student.Goal
		Status student.Status   `json:"assessmentStatus"`
		Today  student.DayTally `json:"today"`
	}

	StudentDetail struct {
		StudentID   string       `json:"studentId"`
		StudentName string       `json:"studentName"`
		Goals       []GoalDetail `json:"goals"`
	}

	RemovedResponse struct {
		Removed int `json:"removed"`
	}
)

func newStudentDetail(stu student.Student, today dates.Date) StudentDetail {
	detail := StudentDetail{
		StudentID:   stu.StudentID,
		StudentName: stu.StudentName,
		Goals:       make([]GoalDetail, 0, len(stu.Goals)),
	}
	for _, goal := range stu.Goals {
		detail.Goals = append(detail.Goals, GoalDetail{
			Goal:   goal,
			Status: student.StatusAt(goal, today),
			Today:  student.TodayTally(goal, today),
		})
	}
	return detail
}

type studentApi struct {
	state *roster.State
}

func registerStudentAPI(g *echo.Group, state *roster.State) {
	api := studentApi{state: state}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.POST("", api.create)

	// detail endpoints
	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)

	gg := dg.Group("/goals")
	gg.POST("", api.createGoal)
	gg.DELETE("/:goalId", api.destroyGoal)
	gg.POST("/:goalId/assessments", api.recordAssessment)
	gg.DELETE("/:goalId/assessments/:date", api.destroyDayAssessments)
	gg.POST("/:goalId/notes", api.createNote)
	gg.PUT("/:goalId/notes/:noteId", api.updateNote)
	gg.DELETE("/:goalId/notes/:noteId", api.destroyNote)
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	today := dates.Today()
	students := api.state.Students()
	items := make([]StudentListItem, 0, len(students))
	for _, stu := range students {
		items = append(items, StudentListItem{Student: stu, StatusCounts: student.StudentStatusCounts(stu, today)})
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data roster.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	stu, err := api.state.AddStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, stu)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	stu, err := api.state.Student(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving student")
	}
	return ctx.JSON(http.StatusOK, newStudentDetail(stu, dates.Today()))
}

func (api *studentApi) update(ctx echo.Context) error {
	var data roster.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	stu, err := api.state.RenameStudent(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	if err := api.state.DeleteStudent(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) createGoal(ctx echo.Context) error {
	var data roster.NewGoal
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGoal")
	}
	goal, err := api.state.AddGoal(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating goal")
	}
	return ctx.JSON(http.StatusCreated, goal)
}

func (api *studentApi) destroyGoal(ctx echo.Context) error {
	if err := api.state.DeleteGoal(ctx.Request().Context(), ctx.Param("id"), ctx.Param("goalId")); err != nil {
		return errors.Wrap(err, "deleting goal")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) recordAssessment(ctx echo.Context) error {
	var data roster.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	res, err := api.state.RecordAssessment(ctx.Request().Context(), ctx.Param("id"), ctx.Param("goalId"), data)
	if err != nil {
		return errors.Wrap(err, "recording assessment")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *studentApi) destroyDayAssessments(ctx echo.Context) error {
	day, err := dateParam(ctx, "date")
	if err != nil {
		return err
	}
	removed, err := api.state.DeleteDayAssessments(ctx.Request().Context(), ctx.Param("id"), ctx.Param("goalId"), day)
	if err != nil {
		return errors.Wrap(err, "deleting assessments")
	}
	return ctx.JSON(http.StatusOK, RemovedResponse{Removed: removed})
}

func (api *studentApi) createNote(ctx echo.Context) error {
	var data roster.NewNote
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNote")
	}
	note, err := api.state.AddNote(ctx.Request().Context(), ctx.Param("id"), ctx.Param("goalId"), data)
	if err != nil {
		return errors.Wrap(err, "creating note")
	}
	return ctx.JSON(http.StatusCreated, note)
}

func (api *studentApi) updateNote(ctx echo.Context) error {
	var data roster.UpdateNote
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateNote")
	}
	note, err := api.state.EditNote(ctx.Request().Context(), ctx.Param("id"), ctx.Param("goalId"), ctx.Param("noteId"), data)
	if err != nil {
		return errors.Wrap(err, "updating note")
	}
	return ctx.JSON(http.StatusOK, note)
}

func (api *studentApi) destroyNote(ctx echo.Context) error {
	err := api.state.DeleteNote(ctx.Request().Context(), ctx.Param("id"), ctx.Param("goalId"), ctx.Param("noteId"))
	if err != nil {
		return errors.Wrap(err, "deleting note")
	}
	return ctx.NoContent(http.StatusNoContent)
}
