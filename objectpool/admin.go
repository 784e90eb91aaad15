package objectpool

import (
	"encoding/json"
	"net/http"

	"github.com/phax/ph-commons-sub015/objectpool/domain"
	"github.com/phax/ph-commons-sub015/objectpool/infra"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type AdminOptions struct {
	// Pools é chamado a cada requisição; a ordem retornada é a ordem do JSON.
	Pools    func() []domain.Inspectable
	// Stats é opcional; sem ele GET /stats responde 404.
	Stats    *infra.MemoryStatsStore
	Gatherer prometheus.Gatherer
	Log      *zap.Logger
}

type adminHandler struct {
	pools func() []domain.Inspectable
	stats *infra.MemoryStatsStore
	log   *zap.Logger
}

type statsResponse struct {
	Total  infra.Counters            `json:"total"`
	ByPool map[string]infra.Counters `json:"by_pool,omitempty"`
}

// NewAdminHandler monta a API de inspeção dos pools:
//
//	GET  /pools              snapshots de todos os pools
//	GET  /pools/{name}       snapshot de um pool (404 se não existir)
//	POST /pools/{name}/clear ClearUnused (204)
//	GET  /stats              contadores de eventos (se Stats for informado)
//	GET  /metrics            métricas Prometheus
func NewAdminHandler(opts AdminOptions) http.Handler {
	if opts.Pools == nil {
		opts.Pools = func() []domain.Inspectable { return nil }
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	h := &adminHandler{pools: opts.Pools, stats: opts.Stats, log: opts.Log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/pools", h.list)
	r.Get("/pools/{name}", h.get)
	r.Post("/pools/{name}/clear", h.clear)
	r.Get("/stats", h.statsCounters)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	return r
}

func (h *adminHandler) list(w http.ResponseWriter, r *http.Request) {
	pools := h.pools()
	out := make([]domain.Snapshot, 0, len(pools))
	for _, p := range pools {
		out = append(out, p.Snapshot())
	}
	h.writeJSON(w, out)
}

func (h *adminHandler) get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.find(chi.URLParam(r, "name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.writeJSON(w, p.Snapshot())
}

func (h *adminHandler) clear(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, ok := h.find(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	p.ClearUnused()
	h.log.Info("pool cleared via admin", zap.String("pool", name))
	w.WriteHeader(http.StatusNoContent)
}

func (h *adminHandler) statsCounters(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		http.NotFound(w, r)
		return
	}
	h.writeJSON(w, statsResponse{Total: h.stats.Total(), ByPool: h.stats.ByPool()})
}

func (h *adminHandler) find(name string) (domain.Inspectable, bool) {
	for _, p := range h.pools() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

func (h *adminHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("admin response encode failed", zap.Error(err))
	}
}
