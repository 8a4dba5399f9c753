// Package pipeline runs the fetch, geocode, reproject and write phases for
// the universities and schools datasets.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/czedu/internal/model"
	"github.com/sells-group/czedu/internal/schools"
	"github.com/sells-group/czedu/pkg/crs"
	"github.com/sells-group/czedu/pkg/geocode"
)

// UniversitySource loads university records.
type UniversitySource interface {
	Load(ctx context.Context) ([]model.University, error)
}

// SchoolScraper discovers registry search entries and scrapes them.
type SchoolScraper interface {
	Entries(ctx context.Context) ([]schools.Entry, error)
	Scrape(ctx context.Context, entries []schools.Entry) (*schools.Result, error)
}

// Options configures a pipeline.
type Options struct {
	// CRS is the output coordinate reference system.
	CRS crs.CRS
	// FallbackLon and FallbackLat (WGS 84) place records that could not be
	// geocoded.
	FallbackLon, FallbackLat float64
	CSVDelimiter             rune
}

// Pipeline orchestrates dataset runs.
type Pipeline struct {
	geocoder     geocode.Client
	universities UniversitySource
	scraper      SchoolScraper
	opts         Options
}

// New creates a pipeline that geocodes with gc.
func New(gc geocode.Client, opts Options) *Pipeline {
	if opts.CSVDelimiter == 0 {
		opts.CSVDelimiter = ';'
	}
	return &Pipeline{geocoder: gc, opts: opts}
}

// SetUniversities sets the university workbook source.
func (p *Pipeline) SetUniversities(src UniversitySource) {
	p.universities = src
}

// SetSchools sets the school registry scraper.
func (p *Pipeline) SetSchools(s SchoolScraper) {
	p.scraper = s
}

// RunOptions selects the outputs of a complete run.
type RunOptions struct {
	UniversitiesPath string
	SchoolsPath      string
	SchoolsCSVPath   string
}

// Run processes universities, then schools. Datasets with an empty output
// path are skipped. The first fatal error stops the run.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) ([]*model.RunSummary, error) {
	var summaries []*model.RunSummary

	if opts.UniversitiesPath != "" {
		s, err := p.RunUniversities(ctx, opts.UniversitiesPath)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, s)
	}
	if opts.SchoolsPath != "" {
		s, err := p.RunSchools(ctx, opts.SchoolsPath, opts.SchoolsCSVPath)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// run tracks the phases of one dataset run.
type run struct {
	summary *model.RunSummary
	log     *zap.Logger
	start   time.Time
}

func newRun(dataset model.Dataset) *run {
	id := uuid.NewString()
	return &run{
		summary: &model.RunSummary{RunID: id, Dataset: dataset},
		log: zap.L().With(
			zap.String("component", "pipeline"),
			zap.String("run_id", id),
			zap.String("dataset", string(dataset)),
		),
		start: time.Now(),
	}
}

// phase runs fn and records its outcome. fn may return metadata for the
// phase summary.
func (r *run) phase(name string, fn func() (map[string]any, error)) error {
	start := time.Now()
	meta, err := fn()
	res := model.PhaseResult{
		Name:     name,
		Status:   model.PhaseStatusComplete,
		Duration: time.Since(start),
		Metadata: meta,
	}
	if err != nil {
		res.Status = model.PhaseStatusFailed
		res.Error = err.Error()
		r.log.Error("phase failed",
			zap.String("phase", name),
			zap.Duration("elapsed", res.Duration),
			zap.Error(err),
		)
	} else {
		r.log.Info("phase complete",
			zap.String("phase", name),
			zap.Duration("elapsed", res.Duration),
			zap.Any("metadata", meta),
		)
	}
	r.summary.Phases = append(r.summary.Phases, res)
	return err
}

func (r *run) skip(name, reason string) {
	r.summary.Phases = append(r.summary.Phases, model.PhaseResult{
		Name:     name,
		Status:   model.PhaseStatusSkipped,
		Metadata: map[string]any{"reason": reason},
	})
}

func (r *run) finish() *model.RunSummary {
	r.summary.Duration = time.Since(r.start)
	r.log.Info("run complete",
		zap.Int("records", r.summary.Records),
		zap.Int("geocoded", r.summary.Geocoded),
		zap.Int("failures", r.summary.Failures),
		zap.Duration("elapsed", r.summary.Duration),
	)
	return r.summary
}

// fallback returns the fallback point in the output CRS.
func (p *Pipeline) fallback() (*geom.Point, error) {
	wgs, err := crs.MustFromEPSG(crs.WGS84).Point(p.opts.FallbackLon, p.opts.FallbackLat)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fallback point")
	}
	return crs.Transform(wgs, p.opts.CRS)
}

// reproject moves a WGS 84 location into the output CRS. A location the
// projection cannot represent is dropped with a warning.
func (p *Pipeline) reproject(loc *geom.Point, entity string) *geom.Point {
	if loc == nil {
		return nil
	}
	out, err := crs.Transform(loc, p.opts.CRS)
	if err != nil {
		zap.L().Warn("cannot reproject location",
			zap.String("component", "pipeline"),
			zap.String("entity", entity),
			zap.String("crs", p.opts.CRS.String()),
			zap.Error(err),
		)
		return nil
	}
	return out
}
