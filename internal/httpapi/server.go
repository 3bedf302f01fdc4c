package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yuqie6/StudyMirror/internal/bootstrap"
	"github.com/yuqie6/StudyMirror/internal/eventbus"
	"github.com/yuqie6/StudyMirror/internal/pkg/config"
)

type LocalServer struct {
	rt      *bootstrap.AgentRuntime
	ln      net.Listener
	srv     *http.Server
	baseURL string
}

type Options struct {
	ListenAddr string // e.g. "127.0.0.1:8690"
}

func Start(ctx context.Context, rt *bootstrap.AgentRuntime, opts Options) (*LocalServer, error) {
	if rt == nil || rt.Core == nil {
		return nil, fmt.Errorf("rt 不能为空")
	}
	if strings.TrimSpace(opts.ListenAddr) == "" {
		opts.ListenAddr = "127.0.0.1:0"
	}

	ln, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return nil, err
	}
	baseURL := "http://" + ln.Addr().String()

	srv := &http.Server{
		Handler:           NewHandler(rt),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ls := &LocalServer{
		rt:      rt,
		ln:      ln,
		srv:     srv,
		baseURL: baseURL,
	}

	go func() {
		<-ctx.Done()
		_ = ls.Shutdown(context.Background())
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server 异常退出", "error", err)
		}
	}()

	slog.Info("HTTP API 已启动", "base_url", baseURL)
	return ls, nil
}

func (s *LocalServer) BaseURL() string {
	if s == nil {
		return ""
	}
	return s.baseURL
}

func (s *LocalServer) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

type apiServer struct {
	rt             *bootstrap.AgentRuntime
	hub            *eventbus.Hub
	validate       *validator.Validate
	cfgPath        string
	startTime      time.Time
	requestTimeout time.Duration
}

func newAPI(rt *bootstrap.AgentRuntime) *apiServer {
	cfgPath, _ := config.DefaultConfigPath()
	timeout := 15 * time.Second
	if sec := rt.Cfg.Server.RequestTimeoutSec; sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}
	hub := rt.Hub
	if hub == nil {
		hub = eventbus.NewHub()
	}
	return &apiServer{
		rt:             rt,
		hub:            hub,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		cfgPath:        cfgPath,
		startTime:      time.Now(),
		requestTimeout: timeout,
	}
}

// NewHandler 构建完整路由
func NewHandler(rt *bootstrap.AgentRuntime) http.Handler {
	a := newAPI(rt)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events", a.handleSSE)
		r.Get("/status", a.getStatus)

		r.Post("/activities", a.logActivity)
		r.Get("/catalog", a.listCatalog)
		r.Put("/catalog", a.importCatalog)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/activities", a.listActivities)
			r.Get("/skills", a.listSkills)
			r.Get("/badges", a.listBadges)
			r.Post("/badges/sweep", a.sweepBadges)
			r.Get("/profile", a.getProfile)
			r.Get("/recommendations", a.listRecommendations)
			r.Post("/recommendations/regenerate", a.regenerateRecommendations)
			r.Post("/recommendations/{itemID}/viewed", a.markRecommendationViewed)
		})
	})
	return r
}

func (a *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	ok := true
	if a.rt.DB != nil {
		if err := a.rt.DB.Ping(); err != nil {
			status, ok = http.StatusServiceUnavailable, false
		}
	}
	writeJSON(w, status, map[string]any{
		"ok":         ok,
		"name":       a.rt.Cfg.App.Name,
		"version":    a.rt.Cfg.App.Version,
		"safe_mode":  a.rt.DB != nil && a.rt.DB.SafeMode,
		"started_at": a.startTime.Format(time.RFC3339),
	})
}

func (a *apiServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "stream not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	sub := a.hub.SubscribeUser(ctx, strings.TrimSpace(r.URL.Query().Get("user_id")), 32)

	// initial event
	_, _ = io.WriteString(w, "event: ready\n")
	_, _ = io.WriteString(w, "data: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, "event: ping\n")
			_, _ = io.WriteString(w, "data: {}\n\n")
			flusher.Flush()
		case evt, ok := <-sub:
			if !ok {
				return
			}
			b, _ := json.Marshal(evt)
			_, _ = io.WriteString(w, "event: "+sanitizeSSEName(evt.Type)+"\n")
			_, _ = io.WriteString(w, "data: ")
			_, _ = w.Write(b)
			_, _ = io.WriteString(w, "\n\n")
			flusher.Flush()
		}
	}
}

func sanitizeSSEName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return "message"
	}
	n = strings.ReplaceAll(n, "\n", "")
	n = strings.ReplaceAll(n, "\r", "")
	return n
}

// requestLogger 用 slog 记录请求；SSE 长连接只在结束时记录一次
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "http 请求",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(started),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}
