package workers

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// HTTPServerWorker serves the relay router (REST, WebSocket, metrics)
// until the context is canceled, then drains in-flight requests.
type HTTPServerWorker struct {
	log             *slog.Logger
	server          *http.Server
	listener        net.Listener
	shutdownTimeout time.Duration
}

func NewHTTPServerWorker(log *slog.Logger, server *http.Server, shutdownTimeout time.Duration) *HTTPServerWorker {
	return &HTTPServerWorker{log: log, server: server, shutdownTimeout: shutdownTimeout}
}

// WithListener serves on an already bound listener instead of server.Addr.
func (w *HTTPServerWorker) WithListener(l net.Listener) *HTTPServerWorker {
	w.listener = l
	return w
}

func (w *HTTPServerWorker) Run(ctx context.Context) error {
	listener := w.listener
	if listener == nil {
		var err error
		if listener, err = net.Listen("tcp", w.server.Addr); err != nil {
			return err
		}
	}
	// A restarted worker must bind again
	w.listener = nil

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		w.log.Info("Starting HTTP server", "addr", listener.Addr().String())
		if err := w.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()
		w.log.Info("Shutting down HTTP server")
		return w.server.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
