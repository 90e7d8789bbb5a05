package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
	"github.com/tanpawarit/chative-commerce-agent/pkg/metrics"
)

type ChatService interface {
	HandleMessage(ctx context.Context, conversationID string, text string) (contractx.TurnResult, error)
	Welcome() string
}

// Backoffice is the slice of the commerce engine exposed to staff tooling.
type Backoffice interface {
	ListProducts(ctx context.Context, filter commerce.ProductFilter) ([]commerce.Product, error)
	OrderStatus(ctx context.Context, orderID int64) (*commerce.OrderDetails, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, to commerce.OrderStatus) (*commerce.Order, error)
	UpdateReturnStatus(ctx context.Context, returnID int64, to commerce.ReturnStatus) (*commerce.ReturnOrder, error)
}

type Server struct {
	cfg     Config
	chat    ChatService
	office  Backoffice
	metrics *metrics.Metrics
	router  *gin.Engine
}

// SetMode switches gin between debug and release output. Call it once before NewServer.
func SetMode(cfg Config) {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}

func NewServer(cfg Config, chat ChatService, office Backoffice, m *metrics.Metrics) *Server {
	s := &Server{cfg: cfg, chat: chat, office: office, metrics: m}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe())

	origins := s.cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := r.Group("/v1")
	v1.POST("/chat", s.handleChat)
	v1.GET("/welcome", s.handleWelcome)
	v1.GET("/products", s.handleListProducts)
	v1.GET("/orders/:id", s.handleGetOrder)
	v1.PATCH("/orders/:id/status", s.handleUpdateOrderStatus)
	v1.PATCH("/returns/:id/status", s.handleUpdateReturnStatus)
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	log.Info().Msg("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(route, http.StatusText(status), elapsed)

		ev := log.Debug()
		if status >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("http request")
	}
}
