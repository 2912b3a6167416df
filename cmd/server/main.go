// Package main provides the forecast service: it proxies simulation
// requests to the upstream provider, normalizes the responses into the
// canonical schema, serves derived forecasts and the merged activity feed,
// and pushes completed forecasts to dashboard clients over a websocket.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tx-forecast-lab/internal/calltree"
	"tx-forecast-lab/internal/domain"
	"tx-forecast-lab/internal/flows"
	"tx-forecast-lab/internal/history"
	"tx-forecast-lab/internal/normalization"
	"tx-forecast-lab/internal/observability"
	"tx-forecast-lab/internal/reporting"
	"tx-forecast-lab/internal/storage"
	"tx-forecast-lab/internal/storage/memory"
	"tx-forecast-lab/internal/upstream"
)

// Server wires the upstream client, the reconciliation core and the feed.
type Server struct {
	logger     *log.Logger
	client     *upstream.Client
	executions storage.ExecutionStore
	reconciler *history.Reconciler
	metrics    *observability.Metrics
	hub        *feedHub

	topCallees int
	maxPoints  int
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	endpoint := flag.String("upstream-endpoint", os.Getenv("UPSTREAM_ENDPOINT"), "Simulation provider base URL")
	accessKey := flag.String("access-key", os.Getenv("UPSTREAM_ACCESS_KEY"), "Simulation provider access key")
	listenAddr := flag.String("listen", ":8080", "HTTP listen address")
	executionCap := flag.Int("execution-cap", memory.DefaultExecutionCap, "Local execution retention cap")
	topCallees := flag.Int("top-callees", 0, "Number of callees in the gas ranking (0 = default)")
	maxPoints := flag.Int("max-points", 0, "Flow series point bound (0 = default)")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if *endpoint == "" {
		logger.Fatal("--upstream-endpoint is required")
	}

	metrics := observability.NewMetrics("")
	srv := &Server{
		logger:     logger,
		client:     upstream.NewClient(strings.TrimRight(*endpoint, "/"), upstream.WithAPIKey(*accessKey)),
		executions: memory.NewExecutionStore(*executionCap),
		reconciler: history.NewReconciler(),
		metrics:    metrics,
		hub:        newFeedHub(logger, metrics),
		topCallees: *topCallees,
		maxPoints:  *maxPoints,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /simulate", srv.handleSimulate)
	mux.HandleFunc("POST /executions", srv.handleRecordExecution)
	mux.HandleFunc("GET /history", srv.handleHistory)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("GET /ws", srv.hub.handleWS)
	mux.Handle("GET /metrics", observability.Handler())

	httpServer := &http.Server{Addr: *listenAddr, Handler: mux}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.hub.closeAll()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}()

	logger.Printf("Listening on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// simulateRequest is the inbound request: the provider round-trip shape plus
// the focal actor for flow aggregation.
type simulateRequest struct {
	domain.SimulationRequest
	Actor string `json:"actor,omitempty"`
}

// forecastResponse is the serialized forecast handed to the dashboard.
type forecastResponse struct {
	Result *domain.SimulationResult `json:"result"`
	Gas    gasBreakdownView         `json:"gas"`
	Access calltree.AccessSummary   `json:"accessSummary"`
	Flows  *flows.Summary           `json:"flows"`
}

type gasBreakdownView struct {
	TotalGas      string       `json:"totalGas"`
	ExecutionGas  string       `json:"executionGas"`
	OverheadGas   string       `json:"overheadGas"`
	OverheadPct   float64      `json:"overheadPct"`
	Concentration float64      `json:"concentration"`
	PeakVsMedian  float64      `json:"peakVsMedian"`
	TopCallees    []calleeView `json:"topCallees,omitempty"`
}

type calleeView struct {
	Address      string `json:"address"`
	ExclusiveGas string `json:"exclusiveGas"`
	Calls        int    `json:"calls"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SimulationType == "" {
		req.SimulationType = domain.SimulationTypeFull
	}

	s.metrics.UpstreamRequests.WithLabelValues("simulate").Inc()
	upstreamStart := time.Now()
	raw, err := s.client.Simulate(r.Context(), &req.SimulationRequest)
	s.metrics.UpstreamRequestLatency.WithLabelValues("simulate").Observe(time.Since(upstreamStart).Seconds())
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("simulate").Inc()
		s.logger.Printf("simulate: upstream: %v", err)
		http.Error(w, "simulation provider unavailable", http.StatusBadGateway)
		return
	}

	result, err := normalization.Normalize(raw)
	if err != nil {
		s.metrics.PayloadsRejected.Inc()
		s.logger.Printf("simulate: %v", err)
		http.Error(w, "unexpected response from simulation provider", http.StatusBadGateway)
		return
	}
	s.metrics.PayloadsNormalized.Inc()

	actor := req.Actor
	if actor == "" {
		actor = req.From
	}
	forecast := reporting.BuildForecast(result, actor, s.topCallees, s.maxPoints)
	resp := buildResponse(forecast)

	s.metrics.ForecastsServed.Inc()
	s.metrics.ForecastLatency.Observe(time.Since(started).Seconds())
	s.hub.broadcast(resp)
	writeJSON(w, s.logger, resp)
}

func (s *Server) handleRecordExecution(w http.ResponseWriter, r *http.Request) {
	var rec domain.ExecutionRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}
	if err := s.executions.Insert(r.Context(), &rec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.metrics.ExecutionsRecorded.Inc()
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	// A dead upstream degrades the feed to local executions only.
	s.metrics.UpstreamRequests.WithLabelValues("list").Inc()
	remote, err := s.client.ListSimulations(r.Context(), 0)
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("list").Inc()
		s.logger.Printf("history: list simulations: %v", err)
		remote = nil
	}

	local, err := s.executions.Recent(r.Context(), 0)
	if err != nil {
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}

	items := s.reconciler.Merge(remote, local)
	dropped := len(remote) - remoteCount(items)
	if dropped > 0 {
		s.metrics.HistoryRecordsDropped.Add(float64(dropped))
	}
	s.metrics.HistoryRecordsMerged.Add(float64(len(items)))

	writeJSON(w, s.logger, items)
}

func remoteCount(items []domain.HistoryItem) int {
	n := 0
	for _, it := range items {
		if it.Kind == domain.KindSimulation {
			n++
		}
	}
	return n
}

func buildResponse(f *reporting.Forecast) forecastResponse {
	view := gasBreakdownView{
		TotalGas:      f.Gas.TotalGas.Dec(),
		ExecutionGas:  f.Gas.ExecutionGas.Dec(),
		OverheadGas:   f.Gas.OverheadGas.Dec(),
		OverheadPct:   f.Gas.OverheadPct,
		Concentration: f.Gas.Concentration,
		PeakVsMedian:  f.Gas.PeakVsMedian,
	}
	for _, c := range f.Gas.TopCallees {
		view.TopCallees = append(view.TopCallees, calleeView{
			Address:      c.Address,
			ExclusiveGas: c.ExclusiveGas.Dec(),
			Calls:        c.Calls,
		})
	}
	return forecastResponse{
		Result: f.Result,
		Gas:    view,
		Access: f.Access,
		Flows:  f.Flows,
	}
}

func writeJSON(w http.ResponseWriter, logger *log.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Printf("write response: %v", err)
	}
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
