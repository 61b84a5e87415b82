// Package display serves the sentiment view, engine status and the operator
// confirmation endpoint over HTTP and websocket.
package display

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sentiment-trader/internal/confirm"
	"sentiment-trader/internal/engine"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

// StatusProvider is the engine as seen by the status endpoint.
type StatusProvider interface {
	Status() engine.Status
}

type ServerConfig struct {
	Addr      string
	Hub       *Hub
	Engine    StatusProvider
	Publisher *engine.Publisher
	Bridge    *confirm.Bridge
	Threshold float64
	Gatherer  prometheus.Gatherer
}

type Server struct {
	addr   string
	router *gin.Engine
}

type confirmRequest struct {
	ID     uint64 `json:"id"`
	Answer string `json:"answer" binding:"required"`
}

type statusResponse struct {
	engine.Status
	Pending *types.Prompt `json:"pending,omitempty"`
	Clients int           `json:"clients"`
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Hub != nil {
		router.GET("/ws", func(c *gin.Context) {
			cfg.Hub.ServeWS(c.Writer, c.Request)
		})
	}

	router.GET("/sentiments", func(c *gin.Context) {
		var scores []engine.Score
		var latest bool
		if cfg.Publisher != nil {
			_, latest = cfg.Publisher.Latest()
			scores = cfg.Publisher.Filtered(cfg.Threshold)
		}
		if scores == nil {
			scores = []engine.Score{}
		}
		c.JSON(http.StatusOK, gin.H{"published": latest, "min_abs_score": cfg.Threshold / 2, "scores": scores})
	})

	router.GET("/status", func(c *gin.Context) {
		resp := statusResponse{Status: engine.Status{State: engine.StateStopped}}
		if cfg.Engine != nil {
			resp.Status = cfg.Engine.Status()
		}
		if cfg.Bridge != nil {
			if p, ok := cfg.Bridge.Pending(); ok {
				resp.Pending = &p
			}
		}
		if cfg.Hub != nil {
			resp.Clients = cfg.Hub.Clients()
		}
		c.JSON(http.StatusOK, resp)
	})

	router.POST("/confirm", func(c *gin.Context) {
		if cfg.Bridge == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "confirmation disabled"})
			return
		}
		var req confirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var ok bool
		if req.ID == 0 {
			ok = cfg.Bridge.Respond(req.Answer)
		} else {
			ok = cfg.Bridge.RespondTo(req.ID, req.Answer)
		}
		if !ok {
			c.JSON(http.StatusConflict, gin.H{"error": confirm.ErrNoPending.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"delivered": true, "accepted": confirm.ParseYes(req.Answer)})
	})

	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return &Server{addr: cfg.Addr, router: router}
}

// requestLogger records every request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"ip", c.ClientIP(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info(ctx, "Display server listening", "addr", s.addr)
	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
