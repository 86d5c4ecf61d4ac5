package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsanders-rh/costctl/internal/api"
	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/internal/report"
	"github.com/tsanders-rh/costctl/pkg/types"
)

const testFleetYAML = `
name: gpu-inference
displayName: GPU Inference Fleet
enabled: true
region: us-east-1
projectTag:
  key: Project
  value: AI-Starter-Kit
autoScaling:
  groupName: gpu-asg
instanceTypes:
  allowlist:
    - g4dn.xlarge
  default: g4dn.xlarge
`

func testRegistry(t *testing.T) *fleet.Registry {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gpu-inference.yaml"), []byte(testFleetYAML), 0644))

	registry, err := fleet.NewRegistry(fleet.NewLoader(dir))
	require.NoError(t, err)

	return registry
}

func newContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	e.Validator = api.NewValidator()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

type fakeRunner struct {
	report *types.CostReport
	err    error
}

func (f *fakeRunner) RunFleet(_ context.Context, fleetName string) (*types.CostReport, error) {
	return f.report, f.err
}

func TestReportHandler_Run(t *testing.T) {
	registry := testRegistry(t)

	t.Run("runs a cycle for a known fleet", func(t *testing.T) {
		runner := &fakeRunner{report: &types.CostReport{
			ID:          types.GenerateReportID(),
			GeneratedAt: time.Now().UTC(),
			Fleet:       "gpu-inference",
		}}
		handler := api.NewReportHandler(nil, nil, registry, runner)

		c, rec := newContext(t, http.MethodPost, "/api/v1/reports", `{"fleet":"gpu-inference"}`)
		require.NoError(t, handler.Run(c))

		assert.Equal(t, http.StatusCreated, rec.Code)

		var got types.CostReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, runner.report.ID, got.ID)
	})

	t.Run("rejects unknown fleet", func(t *testing.T) {
		handler := api.NewReportHandler(nil, nil, registry, &fakeRunner{})

		c, rec := newContext(t, http.MethodPost, "/api/v1/reports", `{"fleet":"no-such-fleet"}`)
		require.NoError(t, handler.Run(c))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejects missing fleet", func(t *testing.T) {
		handler := api.NewReportHandler(nil, nil, registry, &fakeRunner{})

		c, rec := newContext(t, http.MethodPost, "/api/v1/reports", `{}`)
		require.NoError(t, handler.Run(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns the report even when persistence fails", func(t *testing.T) {
		runner := &fakeRunner{
			report: &types.CostReport{ID: types.GenerateReportID(), Fleet: "gpu-inference"},
			err:    fmt.Errorf("persist report: connection refused"),
		}
		handler := api.NewReportHandler(nil, nil, registry, runner)

		c, rec := newContext(t, http.MethodPost, "/api/v1/reports", `{"fleet":"gpu-inference"}`)
		require.NoError(t, handler.Run(c))

		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestDiagnosticsHandler_Get(t *testing.T) {
	registry := testRegistry(t)

	assemble := func(f *fleet.Fleet) *report.Assembler {
		return report.NewAssembler(f, report.Sources{
			Prices:      stubPrices{},
			Instances:   stubInstances{},
			Utilization: stubUtilization{},
			Groups:      stubGroups{},
			Insights:    stubInsights{},
			Storage:     stubStorage{},
		})
	}
	handler := api.NewDiagnosticsHandler(registry, assemble)

	run := func(t *testing.T, stage, fleetName string) *httptest.ResponseRecorder {
		c, rec := newContext(t, http.MethodGet, "/api/v1/diagnostics/"+stage+"?fleet="+fleetName, "")
		c.SetParamNames("stage")
		c.SetParamValues(stage)
		require.NoError(t, handler.Get(c))
		return rec
	}

	for _, stage := range []string{"spot", "idle", "scaling", "costs", "storage"} {
		t.Run(stage, func(t *testing.T) {
			rec := run(t, stage, "gpu-inference")
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	t.Run("unknown stage", func(t *testing.T) {
		rec := run(t, "bogus", "gpu-inference")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown fleet", func(t *testing.T) {
		rec := run(t, "spot", "no-such-fleet")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type fakeApplier struct {
	capacity *types.GroupCapacity
	applied  *types.ScalingRecommendation
	applyErr error
}

func (f *fakeApplier) Capacity(context.Context) (*types.GroupCapacity, error) {
	return f.capacity, nil
}

func (f *fakeApplier) Apply(_ context.Context, rec *types.ScalingRecommendation) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = rec
	return nil
}

func TestScalingHandler_Apply(t *testing.T) {
	registry := testRegistry(t)

	newHandler := func(applier *fakeApplier) *api.ScalingHandler {
		return api.NewScalingHandler(registry, func(*fleet.Fleet) api.CapacityApplier {
			return applier
		})
	}

	t.Run("applies a capacity change", func(t *testing.T) {
		applier := &fakeApplier{capacity: &types.GroupCapacity{
			GroupName: "gpu-asg", Desired: 3, Min: 1, Max: 5,
		}}
		handler := newHandler(applier)

		c, rec := newContext(t, http.MethodPost, "/api/v1/scaling/apply",
			`{"fleet":"gpu-inference","proposed_desired":4}`)
		require.NoError(t, handler.Apply(c))

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, applier.applied)
		assert.Equal(t, 4, applier.applied.ProposedDesired)
		assert.Equal(t, 3, applier.applied.CurrentDesired)
	})

	t.Run("rejects a no-op change", func(t *testing.T) {
		applier := &fakeApplier{capacity: &types.GroupCapacity{
			GroupName: "gpu-asg", Desired: 3, Min: 1, Max: 5,
		}}
		handler := newHandler(applier)

		c, rec := newContext(t, http.MethodPost, "/api/v1/scaling/apply",
			`{"fleet":"gpu-inference","proposed_desired":3}`)
		require.NoError(t, handler.Apply(c))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Nil(t, applier.applied)
	})

	t.Run("surfaces bound violations from the applier", func(t *testing.T) {
		applier := &fakeApplier{
			capacity: &types.GroupCapacity{GroupName: "gpu-asg", Desired: 3, Min: 1, Max: 5},
			applyErr: fmt.Errorf("proposed capacity 9 outside bounds [1, 5]"),
		}
		handler := newHandler(applier)

		c, rec := newContext(t, http.MethodPost, "/api/v1/scaling/apply",
			`{"fleet":"gpu-inference","proposed_desired":9}`)
		require.NoError(t, handler.Apply(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestFleetHandler(t *testing.T) {
	registry := testRegistry(t)
	handler := api.NewFleetHandler(registry)

	t.Run("lists enabled fleets", func(t *testing.T) {
		c, rec := newContext(t, http.MethodGet, "/api/v1/fleets", "")
		require.NoError(t, handler.List(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "gpu-inference")
	})

	t.Run("get unknown fleet", func(t *testing.T) {
		c, rec := newContext(t, http.MethodGet, "/api/v1/fleets/nope", "")
		c.SetParamNames("name")
		c.SetParamValues("nope")
		require.NoError(t, handler.Get(c))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// Minimal no-op sources for the diagnostics handler tests.

type stubPrices struct{}

func (stubPrices) Observe(context.Context, types.Window) ([]types.PricePoint, map[string]*types.SpotPriceStats, error) {
	return nil, map[string]*types.SpotPriceStats{}, nil
}

type stubInstances struct{}

func (stubInstances) ListRunning(context.Context) ([]types.ResourceUtilization, error) {
	return nil, nil
}

type stubUtilization struct{}

func (stubUtilization) ObserveAll(_ context.Context, instances []types.ResourceUtilization, _ types.Window) []types.ResourceUtilization {
	return instances
}

type stubGroups struct{}

func (stubGroups) Capacity(context.Context) (*types.GroupCapacity, error) {
	return &types.GroupCapacity{GroupName: "gpu-asg", Desired: 1, Min: 1, Max: 2}, nil
}

func (stubGroups) RecentActivity(_ context.Context, w types.Window) (*types.ScalingActivitySummary, error) {
	return &types.ScalingActivitySummary{Window: w}, nil
}

type stubInsights struct{}

func (stubInsights) Insights(context.Context, time.Time) (*types.CostInsights, error) {
	return &types.CostInsights{}, nil
}

type stubStorage struct{}

func (stubStorage) Analyze(context.Context, time.Time) ([]types.StorageFinding, error) {
	return nil, nil
}
