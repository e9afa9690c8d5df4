// Package server exposes the content store over HTTP: a publish
// endpoint for the pipeline and a read-only reader API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Adda-Baaj/khobor-kolom/internal/domain"
	"github.com/Adda-Baaj/khobor-kolom/internal/logger"
	"github.com/Adda-Baaj/khobor-kolom/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Articles is the slice of the store the server needs.
type Articles interface {
	Create(ctx context.Context, title, content string, imageURL *string) (*domain.Article, error)
	List(ctx context.Context, page, limit int) ([]domain.Article, int, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Article, error)
}

// Config tunes the HTTP server.
type Config struct {
	Addr         string
	AllowOrigins []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wires the echo engine, routes, and middleware.
type Server struct {
	echo  *echo.Echo
	store Articles
	log   logger.Logger
	addr  string
}

type createArticleRequest struct {
	Title     string `json:"title"`
	Text      string `json:"text"`
	ImageLink string `json:"image_link"`
}

type createArticleResponse struct {
	Success bool            `json:"success"`
	Article *domain.Article `json:"article"`
}

type listArticlesResponse struct {
	Articles   []domain.Article `json:"articles"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}

// New builds a Server around the given article store.
func New(cfg Config, articles Articles, log logger.Logger) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover())
	if len(cfg.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.InfoObj("request served", "http_request", map[string]any{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			return nil
		},
	}))

	s := &Server{echo: e, store: articles, log: log, addr: cfg.Addr}

	e.GET("/health", handleHealth())
	api := e.Group("/api")
	api.POST("/articles", s.handleCreateArticle())
	api.GET("/articles", s.handleListArticles())
	api.GET("/articles/:slug", s.handleGetArticle())

	return s
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.log.InfoObj("server listening", "server_start", map[string]any{"addr": s.addr})
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func handleHealth() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleCreateArticle() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createArticleRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		}
		if strings.TrimSpace(req.Title) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "title must not be empty"})
		}
		if strings.TrimSpace(req.Text) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "text must not be empty"})
		}

		var imageURL *string
		if link := strings.TrimSpace(req.ImageLink); link != "" {
			imageURL = &link
		}

		art, err := s.store.Create(c.Request().Context(), req.Title, req.Text, imageURL)
		if err != nil {
			s.log.ErrorObj("storing article failed", "store_create_error", map[string]any{
				"error": err.Error(),
			})
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to store article"})
		}
		return c.JSON(http.StatusCreated, createArticleResponse{Success: true, Article: art})
	}
}

func (s *Server) handleListArticles() echo.HandlerFunc {
	return func(c echo.Context) error {
		page := queryInt(c, "page", 1)
		if page < 1 {
			page = 1
		}
		limit := queryInt(c, "limit", defaultPageSize)
		if limit < 1 {
			limit = 1
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}

		articles, total, err := s.store.List(c.Request().Context(), page, limit)
		if err != nil {
			s.log.ErrorObj("listing articles failed", "store_list_error", map[string]any{
				"error": err.Error(),
			})
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list articles"})
		}

		return c.JSON(http.StatusOK, listArticlesResponse{
			Articles:   articles,
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		})
	}
}

func (s *Server) handleGetArticle() echo.HandlerFunc {
	return func(c echo.Context) error {
		art, err := s.store.GetBySlug(c.Request().Context(), c.Param("slug"))
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "article not found"})
		}
		if err != nil {
			s.log.ErrorObj("loading article failed", "store_get_error", map[string]any{
				"slug":  c.Param("slug"),
				"error": err.Error(),
			})
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load article"})
		}
		return c.JSON(http.StatusOK, art)
	}
}

// queryInt parses an integer query parameter, falling back to def on
// missing or malformed input.
func queryInt(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
