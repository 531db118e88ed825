package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/busway/busway/internal/config"
	"github.com/busway/busway/internal/output"
	"github.com/busway/busway/internal/reconcile"
	"github.com/busway/busway/internal/topology"

	"github.com/stretchr/testify/assert"
)

// captureStdout redirects output writes to a buffer for the duration of
// one test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	oldStdout := output.Stdout
	oldStderr := output.Stderr
	output.Stdout = buf
	output.Stderr = buf
	t.Cleanup(func() {
		output.Stdout = oldStdout
		output.Stderr = oldStderr
	})
	return buf
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		report *reconcile.Report
		want   string
	}{
		{
			name: "mixed states in stable order",
			report: &reconcile.Report{Results: []reconcile.NodeResult{
				{Node: "bus/central-bus", State: reconcile.StateConverged},
				{Node: "pipeline/p-audit", State: reconcile.StateFailed},
				{Node: "enrollment/e-audit", State: reconcile.StateBlocked},
				{Node: "pipeline/p-orders", State: reconcile.StateConverged},
			}},
			want: "2 converged, 1 failed, 1 blocked",
		},
		{
			name: "all converged",
			report: &reconcile.Report{Results: []reconcile.NodeResult{
				{Node: "bus/central-bus", State: reconcile.StateConverged},
				{Node: "pipeline/p-audit", State: reconcile.StateConverged},
			}},
			want: "2 converged",
		},
		{
			name:   "empty report",
			report: &reconcile.Report{},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summarize(tt.report))
		})
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := &config.Config{Parallelism: 4}

	opts := engineOptions(cfg, 0)
	assert.Equal(t, 4, opts.Parallelism)

	opts = engineOptions(cfg, 8)
	assert.Equal(t, 8, opts.Parallelism)
}

func TestRenderReport(t *testing.T) {
	buf := captureStdout(t)

	renderReport(&reconcile.Report{Results: []reconcile.NodeResult{
		{
			Node:     "bus/central-bus",
			Kind:     topology.KindMessageBus,
			State:    reconcile.StateConverged,
			Action:   reconcile.ActionCreate,
			Attempts: 1,
		},
		{
			Node:     "pipeline/p-audit",
			Kind:     topology.KindPipeline,
			State:    reconcile.StateConverged,
			Action:   reconcile.ActionNone,
			Attempts: 1,
		},
	}})

	out := buf.String()
	assert.Contains(t, out, "bus/central-bus")
	assert.Contains(t, out, "pipeline/p-audit")
	assert.Contains(t, out, "+ create")
	assert.Contains(t, out, "converged")
	assert.Contains(t, out, "2 converged")
}

func TestRenderReport_Empty(t *testing.T) {
	buf := captureStdout(t)

	renderReport(&reconcile.Report{})

	assert.Contains(t, buf.String(), "nothing to do")
}

func TestRenderFailures(t *testing.T) {
	buf := captureStdout(t)

	renderFailures(&reconcile.Report{Results: []reconcile.NodeResult{
		{Node: "bus/central-bus", State: reconcile.StateConverged},
		{
			Node:  "pipeline/p-audit",
			State: reconcile.StateFailed,
			Err:   errors.New("quota exceeded"),
		},
	}})

	out := buf.String()
	assert.Contains(t, out, "1 node(s) failed")
	assert.Contains(t, out, "pipeline/p-audit: quota exceeded")
	assert.NotContains(t, out, "bus/central-bus")
}

func TestRenderFailures_NothingFailed(t *testing.T) {
	buf := captureStdout(t)

	renderFailures(&reconcile.Report{Results: []reconcile.NodeResult{
		{Node: "bus/central-bus", State: reconcile.StateConverged},
	}})

	assert.Empty(t, buf.String())
}

func TestRenderOutputs(t *testing.T) {
	buf := captureStdout(t)

	sourceName := "projects/acme-prod/locations/us-central1/googleApiSources/google-api-source"
	renderOutputs(&reconcile.Outputs{
		ProjectNumber:       "123456789",
		BusName:             "projects/acme-prod/locations/us-central1/messageBuses/central-bus",
		GoogleAPISourceName: &sourceName,
		PipelineNames: map[string]string{
			"orders": "projects/acme-prod/locations/us-central1/pipelines/p-orders",
			"audit":  "projects/acme-prod/locations/us-central1/pipelines/p-audit",
		},
		EnrollmentNames: map[string]string{
			"audit": "projects/acme-prod/locations/us-central1/enrollments/e-audit",
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Outputs")
	assert.Contains(t, out, "Project number")
	assert.Contains(t, out, "123456789")
	assert.Contains(t, out, "messageBuses/central-bus")
	assert.Contains(t, out, "googleApiSources/google-api-source")
	assert.Contains(t, out, "Enrollment audit")

	// Pipelines print in sorted key order.
	auditIdx := bytes.Index(buf.Bytes(), []byte("Pipeline audit"))
	ordersIdx := bytes.Index(buf.Bytes(), []byte("Pipeline orders"))
	assert.GreaterOrEqual(t, auditIdx, 0)
	assert.Greater(t, ordersIdx, auditIdx)
}

func TestRenderOutputs_OmitsAbsentResources(t *testing.T) {
	buf := captureStdout(t)

	renderOutputs(&reconcile.Outputs{
		ProjectNumber:   "123456789",
		PipelineNames:   map[string]string{},
		EnrollmentNames: map[string]string{},
		TriggerNames:    map[string]string{},
	})

	out := buf.String()
	assert.Contains(t, out, "Project number")
	assert.NotContains(t, out, "Message bus")
	assert.NotContains(t, out, "Google API source")
}
