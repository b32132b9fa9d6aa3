package webserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stockpile-io/stockpile/config"
	"github.com/stockpile-io/stockpile/internal/policy"
	"github.com/stockpile-io/stockpile/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ctxKeyDB     = "stockpile_db"
	ctxKeyCaller = "stockpile_caller"
)

var server *WebServer

type WebServer struct {
	cfg  *config.AppConfig
	db   *gorm.DB
	root *echo.Echo
	pub  *echo.Group
	api  *echo.Group
}

// Init builds the echo instance with the jsoniter serializer, validator,
// metrics middleware and JWT auth on the /api/v1 group.
func Init(cfg *config.AppConfig, db *gorm.DB) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = NewJSONSerializer()
	e.Validator = NewValidator()

	e.Use(injectDB(db))
	e.Use(requestMetrics())

	server = &WebServer{
		cfg:  cfg,
		db:   db,
		root: e,
		pub:  e.Group("/api/v1"),
		api:  e.Group("/api/v1", jwtMiddleware(cfg), callerMiddleware()),
	}
}

// Start runs the listener; blocks until the server stops.
func Start() error {
	addr := fmt.Sprintf("%s:%d", server.cfg.Web.Host, server.cfg.Web.Port)
	zap.L().Info("starting web server", zap.String("listen", addr))
	return server.root.Start(addr)
}

// Shutdown asks echo to stop accepting connections.
func Shutdown() {
	_ = server.root.Close()
}

// Echo exposes the root instance (used by tests).
func Echo() *echo.Echo { return server.root }

// PubPOST registers an unauthenticated POST route under /api/v1.
func PubPOST(path string, h echo.HandlerFunc) {
	server.pub.POST(path, h)
}

// ApiGET registers an authenticated GET route under /api/v1.
func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

// ApiPOST registers an authenticated POST route under /api/v1.
func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

// ApiPUT registers an authenticated PUT route under /api/v1.
func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

// ApiDELETE registers an authenticated DELETE route under /api/v1.
func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

// Authorize evaluates the policy against the caller and the request verb
// before the handler runs.
func Authorize(pol policy.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller := GetCaller(c)
			if !pol.Allow(caller, policy.IsWriteMethod(c.Request().Method)) {
				return echo.NewHTTPError(http.StatusForbidden,
					"You do not have permission to perform this action.")
			}
			return next(c)
		}
	}
}

// DB returns the request-scoped database handle.
func DB(c echo.Context) *gorm.DB {
	return c.Get(ctxKeyDB).(*gorm.DB)
}

// GetCaller returns the authenticated caller, or policy.Anonymous.
func GetCaller(c echo.Context) policy.Caller {
	if v, ok := c.Get(ctxKeyCaller).(policy.Caller); ok {
		return v
	}
	return policy.Anonymous
}

func injectDB(db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ctxKeyDB, db)
			return next(c)
		}
	}
}

func requestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			metrics.Incr(metrics.ApiRequest)
			return next(c)
		}
	}
}
