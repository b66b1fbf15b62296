package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	errInvalidCredentials = echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errFileRequired       = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "the file field is required"})

	internalErrorText = http.StatusText(http.StatusInternalServerError)
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		// already handled by a middleware
		if ctx.Response().Committed {
			return
		}

		var code int
		var res errorResponse

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			// missing, invalid or expired session token
			if origErr == middleware.ErrJWTMissing || origErr.Code == http.StatusUnauthorized {
				origErr = errUnauthorized
			} else if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				res.Error = msg
			} else {
				res.Error = http.StatusText(code)
			}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			res.Fields = core.TranslateErrors(origErr, translator)
			res.Error = core.FirstFieldError(res.Fields)
		case *core.ValidationError:
			code = http.StatusBadRequest
			res.Fields = origErr.FieldMap()
			if origErr.Err != nil {
				res.Error = origErr.Err.Error()
			} else {
				res.Error = core.FirstFieldError(res.Fields)
			}
		default:
			switch origErr {
			case student.ErrNotFound, user.ErrNotFound:
				code = http.StatusNotFound
				res.Error = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				res.Error = internalErrorText
				if ctx.Echo().Debug {
					res.Error = err.Error()
				}

				var args []interface{}
				args = append(args, errors.Wrap(err, internalErrorText), map[string]interface{}{
					"request_id": ctx.Response().Header().Get(echo.HeaderXRequestID),
					"route":      ctx.Path(),
				})
				if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
					args = append(args, usr)
				}
				logger.Error(internalErrorText, args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		// Send response
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, res)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
