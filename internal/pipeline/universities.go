package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/czedu/internal/export"
	"github.com/sells-group/czedu/internal/model"
)

// RunUniversities loads the workbook, geocodes each unit by its full name
// and writes the universities shapefile to out.
func (p *Pipeline) RunUniversities(ctx context.Context, out string) (*model.RunSummary, error) {
	if p.universities == nil {
		return nil, eris.New("pipeline: no university source configured")
	}
	r := newRun(model.DatasetUniversities)

	var unis []model.University
	err := r.phase("load", func() (map[string]any, error) {
		var err error
		unis, err = p.universities.Load(ctx)
		return map[string]any{"records": len(unis)}, err
	})
	if err != nil {
		return nil, err
	}

	err = r.phase("geocode", func() (map[string]any, error) {
		queries := make([]string, len(unis))
		for i := range unis {
			queries[i] = unis[i].FullName
		}
		matched, err := p.geocodeUnique(ctx, queries)
		if err != nil {
			return nil, err
		}
		for i := range unis {
			if hit, ok := matched[unis[i].FullName]; ok {
				unis[i].Location = hit.Point()
				unis[i].Address = hit.Address
			}
		}
		return map[string]any{"queries": len(queries), "matched": len(matched)}, nil
	})
	if err != nil {
		return nil, err
	}

	err = r.phase("write", func() (map[string]any, error) {
		fallback, err := p.fallback()
		if err != nil {
			return nil, err
		}
		projected := make([]model.University, len(unis))
		copy(projected, unis)
		for i := range projected {
			projected[i].Location = p.reproject(unis[i].Location, unis[i].Code)
			if projected[i].Location != nil {
				r.summary.Geocoded++
			}
		}

		n, err := export.WriteUniversities(out, projected, p.opts.CRS, fallback)
		r.summary.Records = n
		r.summary.Outputs = append(r.summary.Outputs, out)
		return map[string]any{"path": out, "rows": n, "crs": p.opts.CRS.String()}, err
	})
	if err != nil {
		return nil, err
	}

	return r.finish(), nil
}
