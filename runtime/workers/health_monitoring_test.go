package workers

import (
	"chat-relay/contract"
	"chat-relay/mocks"
	"chat-relay/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) (float64, bool) {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name || len(family.GetMetric()) == 0 {
			continue
		}
		return family.GetMetric()[0].GetGauge().GetValue(), true
	}
	return 0, false
}

func TestHealthMonitoringWorker_Publishes_Connections_And_Process_Usage(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	reg := prometheus.NewRegistry()
	metrics := observability.NewCollector(reg)

	// Given three registered identities
	registry.EXPECT().Len().Return(3).MinTimes(1)

	worker := NewHealthMonitoringWorker(log, contract.IRegistry(registry), metrics, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Then the gauges are filled in
	req.Eventually(func() bool {
		connections, _ := gaugeValue(t, reg, "chat_relay_connections")
		rss, _ := gaugeValue(t, reg, "chat_relay_process_rss_bytes")
		return connections == 3 && rss > 0
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	req.NoError(<-done)
}
