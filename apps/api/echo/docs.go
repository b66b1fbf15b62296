package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	appfs "github.com/trezcool/shule/fs"
	"github.com/trezcool/shule/routes"
)

var openAPIPath = routes.OpenAPI().Path

var redocPage = `<!DOCTYPE html>
<html>
<head>
  <title>Shule API</title>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
  <redoc spec-url="` + openAPIPath + `"></redoc>
  <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</body>
</html>
`

func registerDocs(s *Server) {
	s.handle(routes.NameDocs, func(ctx echo.Context) error {
		return ctx.HTML(http.StatusOK, redocPage)
	})
	s.handle(routes.NameOpenAPI, func(ctx echo.Context) error {
		data, err := appfs.FS.ReadFile(appfs.OpenAPIPath)
		if err != nil {
			return errors.Wrap(err, "reading openapi description")
		}
		return ctx.Blob(http.StatusOK, "application/yaml", data)
	})
}
