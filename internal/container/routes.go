package container

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"quote-chart-go/infrastructure/alert"
	"quote-chart-go/stream"
)

// StatusResponse GET /status 的响应
type StatusResponse struct {
	Stream      stream.Status `json:"stream"`
	Graph       string        `json:"graph"`
	GraphDrops  int           `json:"graph_dropped_rows"`
	StoreRows   int           `json:"store_rows"`
	Source      string        `json:"source"`
	SourceReady *bool         `json:"source_connected,omitempty"`
	Alerts      []alert.Alert `json:"alerts,omitempty"`
}

// Router 控制面路由：开始按钮、状态、渲染结果、健康检查与指标
func (c *Container) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/start", c.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/status", c.handleStatus).Methods(http.MethodGet)
	r.Handle("/view", c.viewer).Methods(http.MethodGet)
	r.HandleFunc("/healthz", c.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", c.monitor.Handler()).Methods(http.MethodGet)
	if c.sim != nil {
		r.Handle("/query", c.sim).Methods(http.MethodGet)
	}
	return r
}

func (c *Container) handleStart(w http.ResponseWriter, r *http.Request) {
	err := c.StartStream()
	switch {
	case errors.Is(err, stream.ErrAlreadyStarted):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		c.logger.LogError(err, map[string]interface{}{"action": "start_stream"})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, c.status())
	}
}

func (c *Container) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.status())
}

func (c *Container) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.HealthCheck(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *Container) status() StatusResponse {
	resp := StatusResponse{
		Stream:     c.streamer.Status(),
		Graph:      c.graph.State().String(),
		GraphDrops: c.graph.Dropped(),
		Source:     c.cfg.Source.Kind,
		Alerts:     c.recent.Alerts(),
	}
	if tbl := c.graph.Table(); tbl != nil {
		resp.StoreRows = tbl.Size()
	}
	if c.ws != nil {
		connected := c.ws.Connected()
		resp.SourceReady = &connected
	}
	return resp
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
