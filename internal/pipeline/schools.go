package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/czedu/internal/export"
	"github.com/sells-group/czedu/internal/model"
	"github.com/sells-group/czedu/internal/schools"
)

// RunSchools scrapes the registry, geocodes school addresses and writes the
// schools shapefile to out and, when csvPath is set, the schools CSV.
// Failed entries, pages and rows are counted in the summary; only fatal
// errors fail the run.
func (p *Pipeline) RunSchools(ctx context.Context, out, csvPath string) (*model.RunSummary, error) {
	if p.scraper == nil {
		return nil, eris.New("pipeline: no school scraper configured")
	}
	r := newRun(model.DatasetSchools)

	var entries []schools.Entry
	err := r.phase("entries", func() (map[string]any, error) {
		var err error
		entries, err = p.scraper.Entries(ctx)
		return map[string]any{"entries": len(entries)}, err
	})
	if err != nil {
		return nil, err
	}

	var res *schools.Result
	err = r.phase("scrape", func() (map[string]any, error) {
		var err error
		res, err = p.scraper.Scrape(ctx, entries)
		if err != nil {
			return nil, err
		}
		r.summary.Failures = len(res.Failures)
		return map[string]any{
			"schools":        len(res.Schools),
			"pages":          res.Pages,
			"details":        res.Details,
			"failed_entries": res.FailedEntries,
			"failures":       len(res.Failures),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	for _, f := range res.Failures {
		r.log.Debug("record failure", zap.Error(f))
	}

	list := res.Schools
	err = r.phase("geocode", func() (map[string]any, error) {
		queries := make([]string, len(list))
		for i := range list {
			queries[i] = list[i].Address
		}
		matched, err := p.geocodeUnique(ctx, queries)
		if err != nil {
			return nil, err
		}
		for i := range list {
			if hit, ok := matched[list[i].Address]; ok {
				list[i].Location = hit.Point()
			}
		}
		return map[string]any{"queries": len(queries), "matched": len(matched)}, nil
	})
	if err != nil {
		return nil, err
	}

	if csvPath == "" {
		r.skip("csv", "no csv path")
	} else {
		err = r.phase("csv", func() (map[string]any, error) {
			n, err := export.WriteSchoolsCSV(csvPath, list, p.opts.CSVDelimiter)
			r.summary.Outputs = append(r.summary.Outputs, csvPath)
			return map[string]any{"path": csvPath, "rows": n}, err
		})
		if err != nil {
			return nil, err
		}
	}

	err = r.phase("write", func() (map[string]any, error) {
		fallback, err := p.fallback()
		if err != nil {
			return nil, err
		}
		projected := make([]model.School, len(list))
		copy(projected, list)
		for i := range projected {
			projected[i].Location = p.reproject(list[i].Location, list[i].ID)
			if projected[i].Location != nil {
				r.summary.Geocoded++
			}
		}

		n, err := export.WriteSchools(out, projected, p.opts.CRS, fallback)
		r.summary.Records = n
		r.summary.Outputs = append(r.summary.Outputs, out)
		return map[string]any{"path": out, "rows": n, "crs": p.opts.CRS.String()}, err
	})
	if err != nil {
		return nil, err
	}

	return r.finish(), nil
}
