package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/ieptracker/core/dates"
)

const bearerPrefix = "bearer "

// bearerToken returns the drive credential of the request, if any.
func bearerToken(ctx echo.Context) string {
	auth := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderAuthorization))
	if len(auth) <= len(bearerPrefix) || !strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(bearerPrefix):])
}

func dateParam(ctx echo.Context, name string) (dates.Date, error) {
	d, err := dates.Parse(ctx.Param(name))
	if err != nil {
		return dates.Date{}, errHttpBadDate
	}
	return d, nil
}

// maxQuery reads the optional `max` query parameter. Zero means absent.
func maxQuery(ctx echo.Context) (int, error) {
	val := ctx.QueryParam("max")
	if val == "" {
		return 0, nil
	}
	max, err := strconv.Atoi(val)
	if err != nil || max < 1 {
		return 0, errHttpBadMax
	}
	return max, nil
}
