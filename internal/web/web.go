// Package web provides the HTTP admin interface: command execution, key
// inspection, health and metrics.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mockredis/mockredis/internal/engine"
	"github.com/mockredis/mockredis/internal/protocol"
	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/version"
)

const apiVersionPath = "/api/v1"

// Backend runs commands with access already serialized.
type Backend interface {
	Exec(name string, args ...string) (reply.Reply, error)
	Stats() engine.Stats
}

// Server represents the web server.
type Server struct {
	addr    string
	backend Backend
	metrics http.Handler
	server  *http.Server
}

// New creates a web server. A nil metrics handler leaves /metrics unrouted.
func New(addr string, b Backend, metrics http.Handler) *Server {
	return &Server{addr: addr, backend: b, metrics: metrics}
}

// CommandRequest represents a command execution request. Without Args the
// Command string is split like a shell line.
type CommandRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// CommandResponse represents a command execution response.
type CommandResponse struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Type    string `json:"type,omitempty"`
}

// StatsResponse represents server statistics.
type StatsResponse struct {
	Version       string           `json:"version"`
	Name          string           `json:"name"`
	Uptime        int64            `json:"uptime"`
	UptimeHuman   string           `json:"uptime_human"`
	Keys          int              `json:"keys"`
	Databases     []engine.DBStats `json:"databases"`
	TotalCommands int64            `json:"total_commands"`
	GoRoutines    int              `json:"goroutines"`
}

// KeyInfo represents information about a key.
type KeyInfo struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	TTL   int64  `json:"ttl"`
	Value any    `json:"value,omitempty"`
}

// ScoredMember is one sorted set entry of a KeyInfo value.
type ScoredMember struct {
	Member string  `json:"member"`
	Score  float64 `json:"score"`
}

// Start starts the web server. It blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           corsMiddleware(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	log.Printf("web: listening on %s", s.addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("web: serve: %w", err)
	}
	return nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix(apiVersionPath).Subrouter()
	api.HandleFunc("/execute", s.handleExecute).Methods(http.MethodPost)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/keys", s.handleKeys).Methods(http.MethodGet)
	api.HandleFunc("/key/{key}", s.handleKey).Methods(http.MethodGet)
	api.HandleFunc("/key/{key}", s.handleDeleteKey).Methods(http.MethodDelete)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	return r
}

// corsMiddleware adds CORS headers.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONWithStatus(w, http.StatusBadRequest, CommandResponse{Error: "invalid request"})
		return
	}

	args := req.Args
	name := strings.TrimSpace(req.Command)
	if len(args) == 0 {
		parts := protocol.SplitCommand(req.Command)
		if len(parts) == 0 {
			writeJSONWithStatus(w, http.StatusBadRequest, CommandResponse{Error: "empty command"})
			return
		}
		name, args = parts[0], parts[1:]
	}

	res, err := s.backend.Exec(name, args...)
	if err != nil {
		writeJSON(w, CommandResponse{Error: err.Error()})
		return
	}
	writeJSON(w, CommandResponse{Success: true, Result: toJSON(res), Type: res.Type.String()})
}

// toJSON maps a reply onto plain JSON values.
func toJSON(r reply.Reply) any {
	switch r.Type {
	case reply.TypeInteger:
		return r.Int
	case reply.TypeBulk, reply.TypeStatus:
		return string(r.Str)
	case reply.TypeArray:
		out := make([]any, len(r.Array))
		for i, item := range r.Array {
			out[i] = toJSON(item)
		}
		return out
	case reply.TypeError:
		return r.Err.Error()
	}
	return nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.backend.Stats()
	keys := 0
	for _, db := range st.DBs {
		keys += db.Keys
	}
	writeJSON(w, StatsResponse{
		Version:       version.Version,
		Name:          st.Name,
		Uptime:        int64(st.Uptime.Seconds()),
		UptimeHuman:   formatDuration(st.Uptime),
		Keys:          keys,
		Databases:     st.DBs,
		TotalCommands: st.Commands,
		GoRoutines:    runtime.NumGoroutine(),
	})
}

// handleKeys lists keys of the selected database matching ?pattern=.
func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	res, err := s.backend.Exec("keys", pattern)
	if err != nil {
		writeJSONWithStatus(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	keys := make([]string, 0, len(res.Array))
	for _, k := range res.Array {
		keys = append(keys, string(k.Str))
	}
	sort.Strings(keys)
	total := len(keys)
	if len(keys) > limit {
		keys = keys[:limit]
	}

	infos := make([]KeyInfo, 0, len(keys))
	for _, key := range keys {
		if info, ok := s.describe(key, false); ok {
			infos = append(infos, info)
		}
	}
	writeJSON(w, map[string]any{
		"keys":  infos,
		"total": total,
	})
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	info, ok := s.describe(key, true)
	if !ok {
		http.Error(w, "Key not found", http.StatusNotFound)
		return
	}
	writeJSON(w, info)
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.Exec("del", mux.Vars(r)["key"])
	if err != nil {
		writeJSONWithStatus(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, map[string]any{"success": true, "deleted": res.Int})
}

// describe reads the type, TTL and optionally the value of key.
func (s *Server) describe(key string, withValue bool) (KeyInfo, bool) {
	kind, err := s.backend.Exec("type", key)
	if err != nil || string(kind.Str) == "none" {
		return KeyInfo{}, false
	}
	info := KeyInfo{Key: key, Type: string(kind.Str)}
	if ttl, err := s.backend.Exec("ttl", key); err == nil {
		info.TTL = ttl.Int
	}
	if !withValue {
		return info, true
	}

	var res reply.Reply
	switch info.Type {
	case "string":
		res, err = s.backend.Exec("get", key)
	case "list":
		res, err = s.backend.Exec("lrange", key, "0", "-1")
	case "set":
		res, err = s.backend.Exec("smembers", key)
	case "hash":
		res, err = s.backend.Exec("hgetall", key)
	case "zset":
		res, err = s.backend.Exec("zrange", key, "0", "-1", "WITHSCORES")
	}
	if err != nil {
		return info, true
	}

	switch info.Type {
	case "set":
		members := bulkStrings(res)
		sort.Strings(members)
		info.Value = members
	case "hash":
		pairs := bulkStrings(res)
		fields := make(map[string]string, len(pairs)/2)
		for i := 0; i+1 < len(pairs); i += 2 {
			fields[pairs[i]] = pairs[i+1]
		}
		info.Value = fields
	case "zset":
		pairs := bulkStrings(res)
		members := make([]ScoredMember, 0, len(pairs)/2)
		for i := 0; i+1 < len(pairs); i += 2 {
			score, _ := strconv.ParseFloat(pairs[i+1], 64)
			members = append(members, ScoredMember{Member: pairs[i], Score: score})
		}
		info.Value = members
	default:
		info.Value = toJSON(res)
	}
	return info, true
}

func bulkStrings(r reply.Reply) []string {
	out := make([]string, len(r.Array))
	for i, item := range r.Array {
		out[i] = string(item.Str)
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data any) {
	writeJSONWithStatus(w, http.StatusOK, data)
}

func writeJSONWithStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// formatDuration formats a duration as human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, mins, secs)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, mins, secs)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	return fmt.Sprintf("%ds", secs)
}
