package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "care-ledger/docs"
	"care-ledger/internal/domain/events"
	"care-ledger/internal/domain/prediction"
	"care-ledger/internal/domain/syncer"
	"care-ledger/internal/middleware"
	"care-ledger/internal/platform/logger"
	"care-ledger/internal/ports/auth"
)

type Options struct {
	Ledger *events.Ledger

	// Opcional: sin engine no se exponen /sync ni /sync/status.
	Engine *syncer.Engine

	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)
	Logger       logger.Logger

	// Opcional: si viene, /metrics expone este registry y se registran
	// gauges del ledger.
	Registry *prometheus.Registry

	// Ventana de vigilia vigente (puede cambiar en caliente).
	AwakeWindow prediction.WindowFunc
	Now         func() time.Time
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.Recover(log))

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if opts.Registry != nil {
		registerLedgerGauges(opts.Registry, opts.Ledger)
		r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Rutas por módulo
	events.RegisterRoutes(r, opts.Ledger, log)
	prediction.RegisterRoutes(r, opts.Ledger, opts.AwakeWindow, opts.Now)
	if opts.Engine != nil {
		syncer.RegisterRoutes(r, opts.Engine)
	}

	return r
}

func registerLedgerGauges(reg prometheus.Registerer, l *events.Ledger) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "care_ledger",
			Name:      "events",
			Help:      "Events currently in the local ledger.",
		}, func() float64 { return float64(l.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "care_ledger",
			Name:      "unsynced_events",
			Help:      "Events not yet acknowledged by the remote store.",
		}, func() float64 { return float64(len(l.Unsynced())) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "care_ledger",
			Name:      "dirty",
			Help:      "1 while in-memory changes are not persisted.",
		}, func() float64 {
			if l.Dirty() {
				return 1
			}
			return 0
		}),
	)
}
