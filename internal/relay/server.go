package relay

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Routes builds the relay's HTTP surface with the hub injected.
func Routes(h *Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthz)
	r.Get("/ws", wsHandler(h, log))
	return r
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Serve runs the relay on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, runner Runner, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	h := NewHub(ctx, runner, log)
	srv := &http.Server{Addr: addr, Handler: Routes(h, log)}

	go func() {
		<-ctx.Done()
		h.Inbox() <- ShutdownHub{}
		_ = srv.Shutdown(context.Background())
	}()

	log.Info("relay listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
