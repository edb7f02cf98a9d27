// Package services exposes the ingestion facade wired into the API layer:
// request validation, tool-family dispatch, metrics and dataset
// registration.
package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/campbellstack/campbell-engine/internal/dataset"
	"github.com/campbellstack/campbell-engine/internal/engine"
	"github.com/campbellstack/campbell-engine/internal/ingest/bladed"
	"github.com/campbellstack/campbell-engine/internal/ingest/hawcstab2"
	"github.com/campbellstack/campbell-engine/internal/metrics"
	"github.com/campbellstack/campbell-engine/internal/models"
	"github.com/campbellstack/campbell-engine/internal/store"
	"github.com/campbellstack/campbell-engine/internal/utils"
)

// Options carries the tunables of the ingestion pipeline.
type Options struct {
	// Header lines skipped by default in the HAWCStab2 tables.
	SkipHeaderCmb int
	SkipHeaderAmp int
	SkipHeaderOpt int

	// Linkage tolerances; zero values use the built-in defaults.
	FreqConsistencyRTol float64
	PointMatchTol       float64
}

// DefaultOptions returns the header-skip counts the tool versions in the
// field actually write.
func DefaultOptions() Options {
	return Options{SkipHeaderCmb: 1, SkipHeaderAmp: 5, SkipHeaderOpt: 1}
}

// IngestService runs ingestions and registers the resulting datasets.
type IngestService struct {
	logger    *slog.Logger
	registry  *store.Registry
	opts      Options
	hs2       *hawcstab2.Reader
	bladed    *bladed.Reader
	latencies *utils.LatencyTracker
}

// NewIngestService constructs the facade; logger may be nil.
func NewIngestService(logger *slog.Logger, registry *store.Registry, opts Options) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	linker := engine.NewLinker(logger, opts.FreqConsistencyRTol, opts.PointMatchTol)
	return &IngestService{
		logger:    logger,
		registry:  registry,
		opts:      opts,
		hs2:       hawcstab2.NewReader(logger),
		bladed:    bladed.NewReader(logger, linker),
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Ingest validates the request, runs the tool-family pipeline and registers
// the dataset. Recoverable problems come back as diagnostics next to a
// partially populated dataset; only an unusable request or an unreadable
// primary input is an error.
func (s *IngestService) Ingest(ctx context.Context, req models.IngestRequest) (*dataset.Dataset, models.Diagnostics, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, utils.NewAppError("ingest", "invalid request", err)
	}

	runID := uuid.NewString()
	d := dataset.New(req.Tool, req.Name)
	d.Attrs["run_id"] = runID
	s.logger.Info("ingestion started",
		slog.String("run_id", runID), slog.String("tool", string(req.Tool)), slog.String("name", req.Name))

	var diags models.Diagnostics
	start := time.Now()
	var err error
	switch req.Tool {
	case models.ToolHawcStab2:
		err = s.ingestHawcStab2(ctx, d, &diags, *req.HawcStab2)
	case models.ToolBladedLin:
		err = s.bladed.Read(d, &diags, req.Bladed.ResultDir, req.Bladed.ResultPrefix)
	}
	duration := time.Since(start)

	if err != nil {
		metrics.ObserveIngest(req.Tool, duration, metrics.OutcomeError, diags)
		s.logger.Error("ingestion failed",
			slog.String("run_id", runID), slog.Any("error", err))
		return nil, diags, utils.NewAppError("ingest", "pipeline failed", err)
	}

	finalName := s.registry.Add(d)
	s.latencies.Observe(duration)
	metrics.ObserveIngest(req.Tool, duration, metrics.OutcomeSuccess, diags)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("ingestion latency",
			slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}
	s.logger.Info("ingestion finished",
		slog.String("run_id", runID), slog.String("name", finalName),
		slog.Int("modes", d.NumModes()), slog.Int("diagnostics", len(diags)))
	return d, diags, nil
}

// ingestHawcStab2 runs the sequential table stages; each stage degrades to
// diagnostics on its own. The context is checked between stages since each
// one is blocking file I/O.
func (s *IngestService) ingestHawcStab2(ctx context.Context, d *dataset.Dataset, diags *models.Diagnostics, req models.HawcStab2Request) error {
	skipCmb := orDefault(req.SkipHeaderCmb, s.opts.SkipHeaderCmb)
	skipAmp := orDefault(req.SkipHeaderAmp, s.opts.SkipHeaderAmp)
	skipOpt := orDefault(req.SkipHeaderOpt, s.opts.SkipHeaderOpt)

	stages := []func(){}
	if req.CmbPath != "" {
		stages = append(stages, func() { s.hs2.ReadCmb(d, diags, req.CmbPath, skipCmb) })
	}
	if req.AmpPath != "" {
		stages = append(stages, func() { s.hs2.ReadAmp(d, diags, req.AmpPath, skipAmp) })
	}
	if req.OptPath != "" {
		stages = append(stages, func() { s.hs2.ReadOpt(d, diags, req.OptPath, skipOpt) })
	}
	if req.BinPath != "" {
		stages = append(stages, func() { s.readModeShapes(d, diags, req.BinPath) })
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		stage()
	}
	return nil
}

// readModeShapes decodes the binary mode-shape stream. The shapes themselves
// stay out of the canonical arrays; the decode is validated and summarized
// into the dataset metadata.
func (s *IngestService) readModeShapes(d *dataset.Dataset, diags *models.Diagnostics, path string) {
	turbine, err := hawcstab2.ReadBinFile(path)
	if err != nil {
		diags.Add(models.DiagShapeMismatch, "mode-shape stream %s: %v", path, err)
		return
	}
	d.Attrs["filenamebin"] = path
	d.Attrs["modeshape_substructures"] = strconv.Itoa(len(turbine.Substructures))
	d.Attrs["modeshape_modes"] = strconv.Itoa(turbine.NumModes)
	d.Attrs["modeshape_steps"] = strconv.Itoa(turbine.NumSteps)
	s.logger.Info("mode shapes decoded",
		slog.Int("substructures", len(turbine.Substructures)),
		slog.Int("modes", turbine.NumModes), slog.Int("steps", turbine.NumSteps))
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
