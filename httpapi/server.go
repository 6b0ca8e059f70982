// Package httpapi is notfd's optional debug HTTP surface: a health check,
// a JSON dump of any node's interface Values by path, and a way to drive a
// root Fact with a JSON body. Grounded on the teacher's echo-based
// cmd/orchestrator route handler style and common/server's graceful
// shutdown wrapper.
package httpapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lyzr/notf/common/logger"
	"github.com/lyzr/notf/path"
	"github.com/lyzr/notf/scene"
	"github.com/lyzr/notf/value"
)

// New builds the echo router: GET /healthz, GET /scene/*path, POST
// /facts/:name.
func New(sc *scene.Scene, log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(echoLogger(log))

	e.GET("/healthz", healthz)
	e.GET("/scene/*", getScene(sc))
	e.POST("/facts/:name", postFact(sc))

	return e
}

func healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// getScene resolves the request's wildcard path against the scene tree and
// returns the addressed node's interface Values as a JSON object.
func getScene(sc *scene.Scene) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := "/" + c.Param("*")
		p, err := path.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		node, err := sc.GetNode(p)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		doc, err := sc.InterfaceJSON(node)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSONBlob(http.StatusOK, []byte(doc))
	}
}

// postFact decodes the request body as JSON against the named root
// interop's current Value (for empty-list schema recovery) and drives it.
func postFact(sc *scene.Scene) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := c.Param("name")
		body, err := io.ReadAll(c.Request().Body)
		if err != nil || len(body) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "empty or unreadable request body")
		}

		root := sc.Node(sc.Root())
		reference, ok := root.Interop(name)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "no fact named "+name)
		}
		v, err := value.FromJSON(string(body), &reference)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if err := sc.DriveFact(name, v); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return c.NoContent(http.StatusAccepted)
	}
}

// echoLogger bridges echo's request logging into the shared slog-based
// Logger rather than echo's default writer-based middleware.
func echoLogger(log *logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Error("http request", "method", v.Method, "uri", v.URI, "status", v.Status, "error", v.Error)
				return nil
			}
			log.Info("http request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	})
}
