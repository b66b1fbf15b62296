package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
)

var orderingParam = "ordering"

// Ordering binds `?ordering=name,-created_at` (a leading "-" orders descending).
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// paramID parses the `:id` path param; ok is false if it is not a positive integer.
func paramID(ctx echo.Context) (id int64, ok bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// bindBody decodes the JSON request body into i.
// Unlike echo's Bind, path and query params are never bound.
func bindBody(ctx echo.Context, i interface{}) error {
	req := ctx.Request()
	if req.ContentLength == 0 {
		return nil
	}
	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return echo.ErrUnsupportedMediaType
	}

	if err := json.NewDecoder(req.Body).Decode(i); err != nil {
		msg := err.Error()
		switch jErr := err.(type) {
		case *json.UnmarshalTypeError:
			msg = fmt.Sprintf("Unmarshal type error: expected=%v, got=%v, field=%v", jErr.Type, jErr.Value, jErr.Field)
		case *json.SyntaxError:
			msg = fmt.Sprintf("Syntax error: offset=%v, error=%v", jErr.Offset, jErr.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(err)
	}
	return nil
}
