package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/fx"

	"backtester/internal/modules/config"
	"backtester/internal/modules/health/service"
	"backtester/pkg/logger"
)

// WS: websocket-эндпоинт, который монтируется рядом с пробами.
type WS interface {
	http.Handler
	Clients() int
}

type Config struct {
	Addr string // например ":8081"
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.AdminPort)}
}

type healthz struct {
	Ready         bool  `json:"ready"`
	Cycles        int64 `json:"cycles"`
	LastCycleUnix int64 `json:"lastCycleUnix"`
	LastFailed    int64 `json:"lastFailed"`
	TotalFailed   int64 `json:"totalFailed"`
	WSClients     int   `json:"wsClients"`
	UptimeSec     int64 `json:"uptimeSec"`
}

func NewMux(state *service.State, ws WS) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: прошёл хотя бы один live-цикл
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := healthz{
			Ready:       state.Ready(),
			Cycles:      state.Cycles(),
			LastFailed:  state.LastFailed(),
			TotalFailed: state.TotalFailed(),
			UptimeSec:   int64(state.Uptime().Seconds()),
		}
		if t := state.LastCycle(); !t.IsZero() {
			resp.LastCycleUnix = t.Unix()
		}
		if ws != nil {
			resp.WSClients = ws.Clients()
		}
		body, err := sonic.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	if ws != nil {
		mux.Handle("/ws", ws)
	}

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			logger.Info("[HTTP] listening on %s", cfg.Addr)
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// Module ждёт *service.State и WS от live-модуля.
func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			NewConfig,
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
