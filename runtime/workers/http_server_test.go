package workers

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestHTTPServerWorker_Serves_Until_Canceled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	worker := NewHTTPServerWorker(log, &http.Server{Handler: mux}, time.Second).WithListener(listener)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// When the server is up
	resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
	req.NoError(err)
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.NoError(resp.Body.Close())
	req.Equal("ok", string(body))

	// Then canceling stops it cleanly
	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("HTTP server did not shut down")
	}
}
