package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Spok95/asset-subs/internal/domain/catalog"
	"github.com/Spok95/asset-subs/internal/domain/consumption"
	"github.com/Spok95/asset-subs/internal/domain/lots"
	"github.com/Spok95/asset-subs/internal/domain/subscriptions"
	"github.com/Spok95/asset-subs/internal/workflow"
)

type Server struct {
	srv *http.Server
}

type Deps struct {
	Log     *slog.Logger
	Flow    *workflow.Workflow
	Subs    *subscriptions.Repo
	Catalog *catalog.Repo
	Lots    *lots.Repo
	Cons    *consumption.Repo
}

func New(addr string, exposeMetrics bool, deps Deps) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if exposeMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	h := &handlers{deps: deps}
	mux.HandleFunc("POST /subscriptions", h.createSubscription)
	mux.HandleFunc("GET /subscriptions", h.listSubscriptions)
	mux.HandleFunc("GET /subscriptions/{id}", h.getSubscription)
	mux.HandleFunc("POST /subscriptions/{id}/run", h.runSubscription)
	mux.HandleFunc("POST /subscriptions/{id}/cancel", h.cancelSubscription)
	mux.HandleFunc("POST /subscriptions/{id}/consume", h.consumeSubscription)
	mux.HandleFunc("POST /lines", h.createLine)
	mux.HandleFunc("GET /lines/{id}", h.getLine)
	mux.HandleFunc("PATCH /lines/{id}/dates", h.updateLineDates)
	mux.HandleFunc("PUT /lines/{id}/lot", h.setLineLot)
	mux.HandleFunc("GET /lines/{id}/consumptions", h.listLineConsumptions)
	mux.HandleFunc("POST /services", h.createService)
	mux.HandleFunc("GET /services", h.listServices)
	mux.HandleFunc("POST /services/{id}/lots", h.addServiceLot)
	mux.HandleFunc("DELETE /services/{id}/lots/{lot}", h.removeServiceLot)
	mux.HandleFunc("GET /services/{id}/lots", h.listServiceLots)
	mux.HandleFunc("GET /services/{id}/available-lots", h.availableLots)
	mux.HandleFunc("POST /lots", h.createLot)
	mux.HandleFunc("GET /reports/reservations.xlsx", h.reservationsReport)

	return &Server{srv: &http.Server{Addr: addr, Handler: mux}}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
