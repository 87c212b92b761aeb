package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ieptracker/core"
	"github.com/trezcool/ieptracker/core/roster"
	"github.com/trezcool/ieptracker/core/store"
)

var (
	errHttpNotFound    = echo.NewHTTPError(http.StatusNotFound, "not found")
	errHttpBadDate     = echo.NewHTTPError(http.StatusBadRequest, "dates must be formatted as YYYY-MM-DD")
	errHttpBadMax      = echo.NewHTTPError(http.StatusBadRequest, "max must be a positive integer")
	errHttpImportInput = echo.NewHTTPError(http.StatusBadRequest, "an import file or a JSON body is required")
)

// errorStatus maps the domain errors to HTTP status codes. ok is false for unexpected errors.
func errorStatus(err error) (code int, ok bool) {
	switch {
	case errors.Is(err, roster.ErrStudentNotFound),
		errors.Is(err, roster.ErrGoalNotFound),
		errors.Is(err, roster.ErrNoteNotFound),
		errors.Is(err, store.ErrBackupNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, store.ErrBackupCorrupt):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, store.ErrNoCredential):
		return http.StatusUnauthorized, true
	case errors.Is(err, store.ErrRemoteDisabled):
		return http.StatusConflict, true
	case errors.Is(err, store.ErrRemoteUnavailable), errors.Is(err, store.ErrRemoteDataCorrupt):
		return http.StatusBadGateway, true
	case errors.Is(err, store.ErrStorageFailure):
		return http.StatusInsufficientStorage, true
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *store.ImportError:
			code = http.StatusBadRequest
			message = echo.Map{"error": origErr.Error(), "index": origErr.Index}
		case *store.ClearError:
			code = http.StatusBadGateway
			message = echo.Map{"error": origErr.Error(), "localCleared": origErr.LocalCleared}
		default:
			if status, ok := errorStatus(err); ok {
				code = status
				body := echo.Map{"error": err.Error()}
				if kind, ok := store.RemoteKind(err); ok {
					body["kind"] = kind
				}
				message = body
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), ctx.Request())

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
