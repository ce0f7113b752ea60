// Package admin serves a read-mostly HTTP view of a live client session.
package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/penne/internal/auth"
	"github.com/danmuck/penne/internal/client"
	"github.com/danmuck/penne/internal/delegate"
	"github.com/danmuck/penne/internal/observability"
	"github.com/danmuck/penne/internal/protocol"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Session is the part of a client the admin routes read and drive. Delegate fields
// are only read inside View.
type Session interface {
	SessionID() string
	URL() string
	Name() string
	IsActive() bool
	Snapshot() []delegate.Delegate
	Methods() []*delegate.Method
	MethodByName(name string) (*delegate.Method, error)
	DelegateByName(name string) (delegate.Delegate, error)
	View(fn func())
	Call(ctx context.Context, method protocol.MethodID, args []any, opts ...client.InvokeOption) (protocol.Reply, error)
}

type Server struct {
	ID       string
	Appeared time.Time

	session     Session
	router      *gin.Engine
	callTimeout time.Duration
	validator   auth.Validator
}

func New(id string, s Session, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.HTTPMiddleware(id, observability.InitLogger(id)))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	if err := r.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
		log.Warn().Msgf("admin.New trusted proxies err=%v", err)
	}

	srv := &Server{
		ID:          id,
		Appeared:    time.Now(),
		session:     s,
		router:      r,
		callTimeout: 10 * time.Second,
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) Handler() http.Handler { return s.router }

// RequireToken guards the invoke route with v. Read-only routes stay open.
func (s *Server) RequireToken(v auth.Validator) { s.validator = v }

// ListenAndServe serves until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		log.Info().Msgf("admin.Server.ListenAndServe addr=%s", addr)
		errc <- httpSrv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		state := "ok"
		if !s.session.IsActive() {
			status = http.StatusServiceUnavailable
			state = "closed"
		}
		c.JSON(status, gin.H{
			"status":  state,
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"session": s.session.SessionID(),
			"server":  s.session.URL(),
			"client":  s.session.Name(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/state", func(c *gin.Context) {
		kind := strings.TrimSpace(c.Query("kind"))
		out := make([]delegateView, 0)
		s.session.View(func() {
			for _, d := range s.session.Snapshot() {
				v := viewOf(d)
				if kind != "" && v.Kind != kind {
					continue
				}
				out = append(out, v)
			}
		})
		c.JSON(http.StatusOK, gin.H{"delegates": out})
	})

	s.router.GET("/methods", func(c *gin.Context) {
		out := make([]methodView, 0)
		s.session.View(func() {
			for _, m := range s.session.Methods() {
				out = append(out, methodViewOf(m))
			}
		})
		c.JSON(http.StatusOK, gin.H{"methods": out})
	})

	s.router.GET("/tables/:name", func(c *gin.Context) {
		d, err := s.session.DelegateByName(c.Param("name"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		var (
			view tableView
			desc string
		)
		tbl, ok := delegate.AsTable(d)
		s.session.View(func() {
			if ok {
				view = tableViewOf(tbl)
			} else {
				desc = d.String()
			}
		})
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not a table: " + desc})
			return
		}
		c.JSON(http.StatusOK, view)
	})

	s.router.POST("/methods/:name/invoke", s.authorize, s.invoke)
}

func (s *Server) authorize(c *gin.Context) {
	if s.validator == nil {
		c.Next()
		return
	}
	if err := auth.Check(s.validator, c.GetHeader("Authorization")); err != nil {
		log.Warn().Msgf("admin.Server.authorize path=%s err=%v", c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthorized.Error()})
		return
	}
	c.Next()
}

type invokeRequest struct {
	Args []any `json:"args"`
}

func (s *Server) invoke(c *gin.Context) {
	var req invokeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	m, err := s.session.MethodByName(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var method protocol.MethodID
	s.session.View(func() { method = m.ID })
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.callTimeout)
	defer cancel()
	reply, err := s.session.Call(ctx, method, req.Args)
	switch {
	case errors.Is(err, client.ErrMethodException):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"invoke_id": reply.InvokeID,
			"exception": gin.H{
				"code":    reply.MethodException.Code,
				"message": reply.MethodException.Message,
			},
		})
		return
	case errors.Is(err, client.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	var result any
	if err := reply.Decode(&result); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoke_id": reply.InvokeID, "result": result})
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
