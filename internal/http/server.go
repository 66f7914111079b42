// Package http is the engine's request boundary: it parses JSON requests,
// checks capabilities, calls the services and renders the response envelope.
package http

import (
	"container/list"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ssandworth/incomeLineUpdatex/internal/amqp"
	"github.com/ssandworth/incomeLineUpdatex/internal/core"
	applog "github.com/ssandworth/incomeLineUpdatex/internal/log"
	"github.com/ssandworth/incomeLineUpdatex/internal/services"
	"github.com/ssandworth/incomeLineUpdatex/internal/sheets"
)

// lruCache is a TTL'd LRU used for read-mostly lookups like the income-line
// whitelist.
type lruCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

func newLRUCache[T any](maxSize int, ttl time.Duration) *lruCache[T] {
	return &lruCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (c *lruCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])
	if time.Now().After(item.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *lruCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *lruCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

func (c *lruCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// SourceFactory builds the budget row source for an ingestion request.
// Production wires the Google Sheets reader; tests wire the memory source.
type SourceFactory func(ctx context.Context) (sheets.BudgetRowSource, error)

type Server struct {
	http.Server

	budget      *services.BudgetService
	performance *services.PerformanceService
	approvals   *services.ApprovalService
	bulk        *services.BulkOperationCoordinator
	ingest      *services.IngestService
	targets     *services.TargetService
	access      *services.AccessService

	amqpClient *amqp.Client

	newSource   SourceFactory
	rateLimiter *rateLimiter

	incomeLineCache *lruCache[[]core.Account]

	shutdownOnce sync.Once
}

// Deps bundles everything the server needs.
type Deps struct {
	Budget      *services.BudgetService
	Performance *services.PerformanceService
	Approvals   *services.ApprovalService
	Bulk        *services.BulkOperationCoordinator
	Ingest      *services.IngestService
	Targets     *services.TargetService
	Access      *services.AccessService
	NewSource   SourceFactory
	// AMQP is optional; without it reconcile requests run inline.
	AMQP *amqp.Client
	// Logger defaults to a text logger on stdout.
	Logger *applog.Logger
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: applog.Middleware(logger.WithComponent(applog.ComponentHTTP))(mux),
		},
		budget:          deps.Budget,
		performance:     deps.Performance,
		approvals:       deps.Approvals,
		bulk:            deps.Bulk,
		ingest:          deps.Ingest,
		targets:         deps.Targets,
		access:          deps.Access,
		amqpClient:      deps.AMQP,
		newSource:       deps.NewSource,
		rateLimiter:     newRateLimiter(),
		incomeLineCache: newLRUCache[[]core.Account](4, 5*time.Minute),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/income-lines", s.protect(s.handleListIncomeLines))
	mux.HandleFunc("GET /api/budget-lines", s.protect(s.handleListBudgetLines))
	mux.HandleFunc("GET /api/budget-lines/{id}", s.protect(s.handleGetBudgetLine))
	mux.HandleFunc("POST /api/budget-lines", s.protect(s.handleSaveBudgetLine))
	mux.HandleFunc("DELETE /api/budget-lines/{id}", s.protect(s.handleDeleteBudgetLine))
	mux.HandleFunc("POST /api/budget-lines/ingest", s.protect(s.handleIngestBudget))

	mux.HandleFunc("POST /api/transactions", s.protect(s.handlePostCollection))
	mux.HandleFunc("GET /api/transactions/pending", s.protect(s.handleListPending))
	mux.HandleFunc("GET /api/transactions/{id}", s.protect(s.handleGetTransaction))
	mux.HandleFunc("POST /api/transactions/{id}/approve", s.protect(s.handleApprove))
	mux.HandleFunc("POST /api/transactions/{id}/decline", s.protect(s.handleDecline))
	mux.HandleFunc("POST /api/transactions/{id}/flag", s.protect(s.handleFlag))
	mux.HandleFunc("POST /api/transactions/bulk-approve", s.protect(s.handleBulkApprove))
	mux.HandleFunc("POST /api/transactions/bulk-decline", s.protect(s.handleBulkDecline))

	mux.HandleFunc("GET /api/performance", s.protect(s.handleQueryPerformance))
	mux.HandleFunc("POST /api/performance/reconcile", s.protect(s.handleReconcile))
	mux.HandleFunc("GET /api/performance/daily-target", s.protect(s.handleDailyTarget))

	mux.HandleFunc("POST /api/targets", s.protect(s.handleSaveTarget))
	mux.HandleFunc("POST /api/targets/bulk-assign", s.protect(s.handleBulkAssignTargets))
	mux.HandleFunc("GET /api/targets", s.protect(s.handleListTargets))
	mux.HandleFunc("GET /api/targets/by-account", s.protect(s.handleAccountTargets))
	mux.HandleFunc("GET /api/officers", s.protect(s.handleListOfficers))
	mux.HandleFunc("GET /api/officers/{id}/summary", s.protect(s.handleOfficerSummary))

	return s
}

// protect adds security headers, rate limiting and request logging.
func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)
		logger := applog.FromContext(ctx).With(applog.FieldRequestID, requestID)

		logger.InfoContext(ctx, "Request started",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		logger.InfoContext(ctx, "Request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ready")
}

// Shutdown stops the rate limiter's cleanup goroutine before draining the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
