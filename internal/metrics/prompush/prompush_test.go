package prompush

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"fraudprep/internal/metrics"
)

// gathered indexes the registry by metric family name and the joined label
// values of each series.
func gathered(t *testing.T, reg *prometheus.Registry) map[string]map[string]*dto.Metric {
	t.Helper()

	fams, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]map[string]*dto.Metric, len(fams))
	for _, f := range fams {
		series := make(map[string]*dto.Metric, len(f.GetMetric()))
		for _, m := range f.GetMetric() {
			k := ""
			for _, lp := range m.GetLabel() {
				k += lp.GetName() + "=" + lp.GetValue() + ","
			}
			series[k] = m
		}
		out[f.GetName()] = series
	}
	return out
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		job     string
		url     string
		wantErr bool
		wantJob string
	}{
		{name: "gateway required", job: "fraud_prep", wantErr: true},
		{name: "default job", url: "http://pushgateway:9091", wantJob: "fraudprep"},
		{name: "configured job", job: "fraud_prep", url: "http://pushgateway:9091", wantJob: "fraud_prep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.job, tt.url)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, b)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantJob, b.jobName)
			require.Equal(t, tt.url, b.gatewayURL)
		})
	}
}

// TestBackend_PipelineRun feeds the backend the calls a transactions run
// makes through the metrics package and checks the resulting series.
func TestBackend_PipelineRun(t *testing.T) {
	b, err := NewBackend("fraud_prep", "http://example.com")
	require.NoError(t, err)
	prev := metrics.SetBackend(b)
	t.Cleanup(func() { metrics.SetBackend(prev) })

	for _, step := range []string{"load", "normalize", "index", "resolve", "clean", "features", "transform"} {
		metrics.RecordStep("fraud_prep", step, nil, 250*time.Millisecond)
	}
	metrics.RecordRow("fraud_prep", metrics.RowsRead, 3)
	metrics.RecordRow("fraud_prep", metrics.RowsMatched, 2)
	metrics.RecordRow("fraud_prep", metrics.RowsUnmatched, 1)
	metrics.RecordRow("fraud_prep", metrics.RowsDropped, 1)
	metrics.RecordRow("fraud_prep", metrics.RowsFilled, 0)
	metrics.RecordRow("fraud_prep", metrics.RowsWritten, 2)
	metrics.RecordBatches("fraud_prep", 1)

	got := gathered(t, b.reg)

	rows := got[metrics.RowsTotal]
	require.Len(t, rows, 5, "zero deltas create no series")
	for kind, want := range map[string]float64{
		metrics.RowsRead:      3,
		metrics.RowsMatched:   2,
		metrics.RowsUnmatched: 1,
		metrics.RowsDropped:   1,
		metrics.RowsWritten:   2,
	} {
		m := rows["kind="+kind+","]
		require.NotNil(t, m, kind)
		require.Equal(t, want, m.GetCounter().GetValue(), kind)
	}

	steps := got[metrics.StepTotal]
	require.Len(t, steps, 7)
	resolve := steps["status=success,step=resolve,"]
	require.NotNil(t, resolve)
	require.Equal(t, 1.0, resolve.GetCounter().GetValue())

	dur := got[metrics.StepDuration]["status=success,step=transform,"]
	require.NotNil(t, dur)
	require.Equal(t, uint64(1), dur.GetSummary().GetSampleCount())
	require.InDelta(t, 0.25, dur.GetSummary().GetSampleSum(), 1e-9)

	batches := got[metrics.BatchesTotal][""]
	require.NotNil(t, batches)
	require.Equal(t, 1.0, batches.GetCounter().GetValue())
}

func TestBackend_FailedStep(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("fraud_prep", "http://example.com")
	require.NoError(t, err)

	l := metrics.Labels{"job": "fraud_prep", "step": "resolve", "status": "failure"}
	b.IncCounter(metrics.StepTotal, 1, l)
	b.ObserveHistogram(metrics.StepDuration, 0.5, l)
	// Names the backend does not know are dropped.
	b.IncCounter("fraudprep_unknown_total", 1, l)
	b.ObserveHistogram(metrics.RowsTotal, 1, l)

	got := gathered(t, b.reg)
	require.Equal(t, 1.0, got[metrics.StepTotal]["status=failure,step=resolve,"].GetCounter().GetValue())
	require.Equal(t, uint64(1), got[metrics.StepDuration]["status=failure,step=resolve,"].GetSummary().GetSampleCount())
	require.NotContains(t, got, "fraudprep_unknown_total")
	require.NotContains(t, got, metrics.RowsTotal)
}

func TestBackend_ZeroValueIsNoop(t *testing.T) {
	t.Parallel()

	var b Backend
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "load", "status": "success"})
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": metrics.RowsMatched})
	b.IncCounter(metrics.BatchesTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDuration, 1, metrics.Labels{"step": "load", "status": "success"})
}

func TestFlush_PushesUnderJob(t *testing.T) {
	t.Parallel()

	type pushed struct {
		method string
		path   string
		size   int64
	}
	reqs := make(chan pushed, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs <- pushed{method: r.Method, path: r.URL.Path, size: r.ContentLength}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b, err := NewBackend("fraud_prep", srv.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.RowsTotal, 2, metrics.Labels{"kind": metrics.RowsWritten})
	require.NoError(t, b.Flush())

	select {
	case got := <-reqs:
		require.Equal(t, http.MethodPut, got.method)
		require.Equal(t, "/metrics/job/fraud_prep", got.path)
		require.NotZero(t, got.size)
	default:
		t.Fatal("Flush sent no request")
	}
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("fraud_prep", srv.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": metrics.RowsRead})
	require.ErrorContains(t, b.Flush(), "prompush: push to")
}
