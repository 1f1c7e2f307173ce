// Copyright 2026 Peter Edge
//
// All rights reserved.

package runmetrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	r.ObserveQuery("report", 20*time.Millisecond, nil)
	r.ObserveQuery("report", 30*time.Millisecond, nil)
	r.ObserveQuery("report", time.Millisecond, errors.New("boom"))
	r.ObserveRequest("dxapi", "GET", 200, 10*time.Millisecond, nil)
	r.ObserveRequest("dxapi", "GET", 0, 10*time.Millisecond, errors.New("refused"))
	r.ObserveReport("orders", 12)

	err := testutil.GatherAndCompare(
		r.Gatherer(),
		strings.NewReader(`
# HELP dxctl_queries_total Total number of SQL queries by target and outcome.
# TYPE dxctl_queries_total counter
dxctl_queries_total{outcome="error",target="report"} 1
dxctl_queries_total{outcome="success",target="report"} 2
# HELP dxctl_http_requests_total Total number of HTTP requests by client, method, and status.
# TYPE dxctl_http_requests_total counter
dxctl_http_requests_total{client="dxapi",method="GET",status="200"} 1
dxctl_http_requests_total{client="dxapi",method="GET",status="error"} 1
# HELP dxctl_report_rows Number of rows produced by a report.
# TYPE dxctl_report_rows gauge
dxctl_report_rows{report="orders"} 12
`),
		"dxctl_queries_total",
		"dxctl_http_requests_total",
		"dxctl_report_rows",
	)
	require.NoError(t, err)
	count, err := testutil.GatherAndCount(r.Gatherer(), "dxctl_query_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestWriteToTextfile(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	r.ObserveReport("balances", 3)
	path := filepath.Join(t.TempDir(), "dxctl.prom")
	require.NoError(t, r.WriteToTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `dxctl_report_rows{report="balances"} 3`)
	require.Error(t, r.WriteToTextfile(""))
}
