package router

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/merchant/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()

	r := NewRouter(engine)
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.registrars)

	r = NewRouter(engine, WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.Use(func(c *gin.Context) {
		c.Header("X-Api", "yes")
		c.Next()
	})

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group)
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "yes", w.Header().Get("X-Api"))
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("auth", "/auth")
		assert.Equal(t, "auth", g.Name())
		assert.Equal(t, "/auth", g.Prefix())
	})

	t.Run("subgroups inherit middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("outer", "/outer")
		g.Use(func(c *gin.Context) {
			c.AbortWithStatus(http.StatusUnauthorized)
		})
		g.Group("inner", "/inner").POST("/items", func(c *gin.Context) {
			c.Status(http.StatusCreated)
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/outer/inner/items", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("nil middleware is skipped", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.Use(nil)
		g.POST("/items", nil, func(c *gin.Context) {
			c.Status(http.StatusCreated)
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/test/items", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

// newAPI wires the merchant API with guards that record which routes they saw.
// The handlers are never reached for guarded routes, so their services may be nil.
func newAPI(t *testing.T) (*gin.Engine, *[]string) {
	t.Helper()
	var limited []string
	guards := Guards{
		Authenticate: func(c *gin.Context) {
			c.AbortWithStatus(http.StatusUnauthorized)
		},
		OTPLimit: func(c *gin.Context) {
			limited = append(limited, c.FullPath())
			c.AbortWithStatus(http.StatusTooManyRequests)
		},
	}

	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(
		AuthRoutes(handler.NewAuthHandler(nil), guards),
		MerchantRoutes(handler.NewMerchantHandler(nil, nil), guards),
	)
	r.Setup()
	return engine, &limited
}

func TestRouteTable(t *testing.T) {
	engine, _ := newAPI(t)

	var got []string
	for _, route := range engine.Routes() {
		got = append(got, route.Method+" "+route.Path)
	}
	sort.Strings(got)

	want := []string{
		"GET /api/v1/merchant/next-step",
		"POST /api/v1/auth/entry",
		"POST /api/v1/auth/login",
		"POST /api/v1/auth/login-otp/request",
		"POST /api/v1/auth/login-otp/verify",
		"POST /api/v1/auth/logout",
		"POST /api/v1/auth/otp/request",
		"POST /api/v1/auth/otp/verify",
		"POST /api/v1/auth/refresh",
		"POST /api/v1/auth/register",
		"POST /api/v1/merchant/email/verify",
		"POST /api/v1/merchant/email/verify/request",
		"POST /api/v1/merchant/onboarding/business-types",
		"POST /api/v1/merchant/onboarding/country",
		"POST /api/v1/merchant/onboarding/store",
		"POST /api/v1/merchant/profile/complete",
	}
	assert.Equal(t, want, got)
}

func TestGuards(t *testing.T) {
	t.Run("merchant routes require authentication", func(t *testing.T) {
		engine, limited := newAPI(t)
		for _, path := range []string{
			"/api/v1/merchant/profile/complete",
			"/api/v1/merchant/onboarding/store",
			"/api/v1/merchant/email/verify",
		} {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		}
		assert.Empty(t, *limited, "authentication runs before the OTP limit")
	})

	t.Run("logout requires authentication", func(t *testing.T) {
		engine, _ := newAPI(t)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("otp endpoints are throttled", func(t *testing.T) {
		engine, limited := newAPI(t)
		paths := []string{
			"/api/v1/auth/otp/request",
			"/api/v1/auth/otp/verify",
			"/api/v1/auth/login-otp/request",
			"/api/v1/auth/login-otp/verify",
		}
		for _, path := range paths {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
			assert.Equal(t, http.StatusTooManyRequests, w.Code, path)
		}
		require.Len(t, *limited, len(paths))
		assert.Equal(t, paths, *limited)
	})
}
