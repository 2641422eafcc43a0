// Package devserver serves an in-memory todo API for local runs and tests.
package devserver

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/five82/synq/internal/remote"
)

// Server holds todos in memory and serves them over HTTP.
type Server struct {
	mu          sync.Mutex
	todos       []remote.Todo
	idempotency map[string]string
	failNext    int
	failRate    float64
	latency     time.Duration

	log    *zap.Logger
	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger attaches a request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithLatency delays every response by d.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// WithFailRate makes a random share of requests fail with 503.
func WithFailRate(rate float64) Option {
	return func(s *Server) { s.failRate = rate }
}

// WithSeed preloads todos. Entries without an id get one.
func WithSeed(todos []remote.Todo) Option {
	return func(s *Server) {
		for _, t := range todos {
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			s.todos = append(s.todos, t)
		}
	}
}

// New builds a server and its routes.
func New(opts ...Option) *Server {
	s := &Server{
		idempotency: make(map[string]string),
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests(), s.injectFailures())

	api := router.Group("/api")
	{
		todos := api.Group("/todos")
		{
			todos.GET("", s.list)
			todos.POST("", s.create)
			todos.POST("/batch", s.createBatch)
			todos.PUT("/:id", s.replace)
			todos.PATCH("/:id", s.patch)
			todos.DELETE("/:id", s.remove)
		}
	}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.engine = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// FailNext makes the next n requests fail with 503.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

// SetFailRate changes the random failure share (0 disables).
func (s *Server) SetFailRate(rate float64) {
	s.mu.Lock()
	s.failRate = rate
	s.mu.Unlock()
}

// Todos returns a copy of the stored todos.
func (s *Server) Todos() []remote.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]remote.Todo, len(s.todos))
	copy(out, s.todos)
	return out
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *Server) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.latency > 0 {
			time.Sleep(s.latency)
		}
		if s.shouldFail() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, remote.ErrorResponse{Error: "injected failure"})
			return
		}
		c.Next()
	}
}

func (s *Server) shouldFail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return true
	}
	return s.failRate > 0 && rand.Float64() < s.failRate
}

func (s *Server) list(c *gin.Context) {
	c.JSON(http.StatusOK, remote.TodoList{Items: s.Todos()})
}

func (s *Server) create(c *gin.Context) {
	var in remote.Todo
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid todo: "+err.Error())
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		badRequest(c, "title is required")
		return
	}
	key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))

	s.mu.Lock()
	defer s.mu.Unlock()
	if key != "" {
		if id, ok := s.idempotency[key]; ok {
			if idx := s.indexLocked(id); idx >= 0 {
				c.JSON(http.StatusOK, s.todos[idx])
				return
			}
		}
	}
	in.ID = uuid.NewString()
	s.todos = append(s.todos, in)
	if key != "" {
		s.idempotency[key] = in.ID
	}
	c.JSON(http.StatusCreated, in)
}

func (s *Server) createBatch(c *gin.Context) {
	var in remote.TodoList
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid batch: "+err.Error())
		return
	}
	for _, t := range in.Items {
		if strings.TrimSpace(t.Title) == "" {
			badRequest(c, "title is required")
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]remote.Todo, len(in.Items))
	for i, t := range in.Items {
		t.ID = uuid.NewString()
		s.todos = append(s.todos, t)
		out[i] = t
	}
	c.JSON(http.StatusCreated, remote.TodoList{Items: out})
}

func (s *Server) replace(c *gin.Context) {
	id := c.Param("id")
	var in remote.Todo
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid todo: "+err.Error())
		return
	}
	in.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		notFound(c, id)
		return
	}
	s.todos[idx] = in
	c.JSON(http.StatusOK, in)
}

func (s *Server) patch(c *gin.Context) {
	id := c.Param("id")
	patch, err := c.GetRawData()
	if err != nil {
		badRequest(c, "read body: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		notFound(c, id)
		return
	}
	doc, err := json.Marshal(s.todos[idx])
	if err != nil {
		c.JSON(http.StatusInternalServerError, remote.ErrorResponse{Error: err.Error()})
		return
	}
	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		badRequest(c, "invalid merge patch: "+err.Error())
		return
	}
	var next remote.Todo
	if err := json.Unmarshal(merged, &next); err != nil {
		badRequest(c, "patched todo is invalid: "+err.Error())
		return
	}
	next.ID = id
	s.todos[idx] = next
	c.JSON(http.StatusOK, next)
}

func (s *Server) remove(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		notFound(c, id)
		return
	}
	s.todos = append(s.todos[:idx], s.todos[idx+1:]...)
	c.Status(http.StatusNoContent)
}

func (s *Server) indexLocked(id string) int {
	for i, t := range s.todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, remote.ErrorResponse{Error: msg})
}

func notFound(c *gin.Context, id string) {
	c.JSON(http.StatusNotFound, remote.ErrorResponse{Error: "todo " + id + " not found"})
}
