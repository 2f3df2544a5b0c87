// Package main implements a mock storefront catalog for local development.
// It serves a featured-items listing that grows over time, JSON detail and
// thumbnail endpoints, rendered item pages, and a CSRF token exchange, so the
// notifier can be exercised end to end without touching a real site.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

const csrfHeader = "X-CSRF-Token"

type item struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Price   int    `json:"price"`
	Limited bool   `json:"-"`
}

// catalog is the mutable store behind the mock. Items are kept newest first.
type catalog struct {
	mu          sync.Mutex
	items       []item
	nextID      int
	token       string
	requireCSRF bool
}

func newCatalog(seed int, requireCSRF bool) *catalog {
	c := &catalog{nextID: 1000, requireCSRF: requireCSRF}
	c.rotateToken()
	for range seed {
		c.add("")
	}
	return c
}

func (c *catalog) add(name string) item {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	if name == "" {
		name = fmt.Sprintf("Mock Item %d", c.nextID)
	}
	it := item{ID: c.nextID, Name: name, Price: 25 * (c.nextID % 40), Limited: c.nextID%5 == 0}
	c.items = append([]item{it}, c.items...)
	return it
}

func (c *catalog) featured(limit int) []item {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := min(limit, len(c.items))
	out := make([]item, n)
	copy(out, c.items[:n])
	return out
}

func (c *catalog) lookup(id int) (item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.ID == id {
			return it, true
		}
	}
	return item{}, false
}

func (c *catalog) rotateToken() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = hex.EncodeToString(buf)
	return c.token
}

func (c *catalog) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	seed := flag.Int("seed", 5, "number of items present at startup")
	newEvery := flag.Duration("new-every", 30*time.Second, "publish a new item this often (0 disables)")
	rotateEvery := flag.Duration("rotate-csrf", 0, "rotate the CSRF token this often (0 disables)")
	requireCSRF := flag.Bool("require-csrf", false, "reject listing requests without a valid CSRF token")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cat := newCatalog(*seed, *requireCSRF)
	logger.Info("seeded catalog", "items", *seed)

	if *newEvery > 0 {
		go publishLoop(logger, cat, *newEvery)
	}
	if *rotateEvery > 0 {
		go func() {
			for range time.Tick(*rotateEvery) {
				cat.rotateToken()
				logger.Info("rotated csrf token")
			}
		}()
	}

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock catalog", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, newMux(logger, cat)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func publishLoop(logger *slog.Logger, cat *catalog, every time.Duration) {
	for range time.Tick(every) {
		it := cat.add("")
		logger.Info("published item", "id", it.ID, "name", it.Name)
	}
}

func newMux(logger *slog.Logger, cat *catalog) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /apisite/catalog/v1/items/featured", featuredHandler(logger, cat))
	mux.HandleFunc("GET /apisite/catalog/v1/items/{id}/details", detailsHandler(cat))
	mux.HandleFunc("GET /apisite/thumbnails/v1/assets", thumbnailHandler(cat))
	mux.HandleFunc("POST /apisite/auth/v1/csrf", csrfHandler(cat))
	mux.HandleFunc("GET /catalog/{id}/{slug}", pageHandler(cat))
	mux.HandleFunc("POST /admin/items", addHandler(logger, cat))
	return mux
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

func featuredHandler(logger *slog.Logger, cat *catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat.requireCSRF && r.Header.Get(csrfHeader) != cat.currentToken() {
			w.Header().Set(csrfHeader, cat.currentToken())
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "token validation failed"})
			logger.Warn("rejected listing request with stale csrf token")
			return
		}

		limit := 10
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = v
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": cat.featured(limit)})
	}
}

func itemFromPath(cat *catalog, r *http.Request) (item, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return item{}, false
	}
	return cat.lookup(id)
}

func detailsHandler(cat *catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, ok := itemFromPath(cat, r)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		restrictions := []string{}
		if it.Limited {
			restrictions = append(restrictions, "LimitedUnique")
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":               it.ID,
			"name":             it.Name,
			"price":            it.Price,
			"itemRestrictions": restrictions,
		})
	}
}

func thumbnailHandler(cat *catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.URL.Query().Get("ids"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids is required"})
			return
		}
		if _, ok := cat.lookup(id); !ok {
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{
			"targetId": id,
			"state":    "Completed",
			"imageUrl": fmt.Sprintf("http://%s/images/thumbnails/%d.png", r.Host, id),
		}}})
	}
}

// csrfHandler mimics sites that hand out a fresh token on a rejected POST.
func csrfHandler(cat *catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(csrfHeader, cat.currentToken())
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "token validation failed"})
	}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta name="csrf-token" content="{{.Token}}">
  <title>{{.Item.Name}}</title>
</head>
<body>
  <div class="row">
    <div class="col-10">
      <h1 class="title-mock">{{.Item.Name}}</h1>
      <img src="/images/thumbnails/{{.Item.ID}}.png" alt="{{.Item.Name}}">
      <span class="price">{{.Item.Price}}</span>
    </div>
  </div>
</body>
</html>`))

func pageHandler(cat *catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, ok := itemFromPath(cat, r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
		pageTemplate.Execute(w, map[string]any{"Item": it, "Token": cat.currentToken()})
	}
}

func addHandler(logger *slog.Logger, cat *catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
				return
			}
		}
		it := cat.add(req.Name)
		logger.Info("published item", "id", it.ID, "name", it.Name)
		writeJSON(w, http.StatusCreated, it)
	}
}
