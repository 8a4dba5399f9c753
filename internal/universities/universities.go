// Package universities builds university, faculty and other unit records
// from the ministry's student-count workbook (f21.xlsx).
package universities

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/czedu/internal/fetcher"
	"github.com/sells-group/czedu/internal/model"
	"github.com/sells-group/czedu/internal/resilience"
)

// Workbook layout: an 8-row title block, 2 footnote rows, code and name in
// columns B and C, student counts in columns G to Q.
const (
	headerRows  = 8
	footerRows  = 2
	codeColumn  = 1
	nameColumn  = 2
	countsStart = 6
	countsEnd   = 16
)

// Options configures the workbook source.
type Options struct {
	URL string
	// SheetIndex selects the academic year; -1 is the most recent.
	SheetIndex int
	TempDir    string
}

// Source downloads and parses the workbook.
type Source struct {
	fetcher fetcher.Fetcher
	opts    Options
}

// NewSource creates a workbook source.
func NewSource(f fetcher.Fetcher, opts Options) *Source {
	return &Source{fetcher: f, opts: opts}
}

// Load downloads the workbook and returns its university records. A workbook
// that cannot be fetched or read is an environment error.
func (s *Source) Load(ctx context.Context) ([]model.University, error) {
	log := zap.L().With(zap.String("component", "universities"), zap.String("url", s.opts.URL))

	dir, err := os.MkdirTemp(s.opts.TempDir, "czedu-f21-")
	if err != nil {
		return nil, resilience.NewEnvironmentError("create temp dir", err)
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	path := filepath.Join(dir, "f21.xlsx")
	n, err := s.fetcher.DownloadToFile(ctx, s.opts.URL, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, resilience.NewEnvironmentError("download university workbook", err)
	}
	log.Info("downloaded workbook", zap.Int64("bytes", n))

	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{
		SheetIndex: s.opts.SheetIndex,
		SkipRows:   headerRows,
		SkipFooter: footerRows,
	})
	if err != nil {
		return nil, resilience.NewEnvironmentError("read university workbook", err)
	}

	unis := Parse(rows)
	if len(unis) == 0 {
		return nil, resilience.NewEnvironmentError("read university workbook",
			eris.Errorf("sheet %d has no university rows (%d data rows)", s.opts.SheetIndex, len(rows)))
	}

	log.Info("parsed universities", zap.Int("rows", len(rows)), zap.Int("records", len(unis)))
	return unis, nil
}

// Parse turns data rows (title block and footnotes already removed) into
// records. Rows with an empty code, name or count cell are skipped, as are
// the section subtotal rows. Rows after the 60000 subtotal are private.
func Parse(rows [][]string) []model.University {
	var (
		out        []model.University
		university string
		private    bool
		skipped    int
	)

	for _, row := range rows {
		cells, ok := selectCells(row)
		if !ok {
			skipped++
			continue
		}

		code := normalizeCode(cells[0])
		name := cells[1]
		kind := model.ClassifyUniversity(code, name)

		if code == model.PrivateSectionCode {
			private = true
		}
		if kind == model.KindIndicator {
			continue
		}

		u := model.University{
			Code:     code,
			Kind:     kind,
			Name:     name,
			FullName: name,
			Private:  private,
			Counts:   parseCounts(cells[2:]),
		}
		switch kind {
		case model.KindUniversity:
			university = name
			u.University = name
		case model.KindFaculty:
			if university != "" {
				u.University = university
				u.Faculty = name
				u.FullName = university + ", " + name
			}
		case model.KindOther:
			u.University = university
			u.Other = name
		}
		out = append(out, u)
	}

	if skipped > 0 {
		zap.L().Debug("skipped incomplete workbook rows",
			zap.String("component", "universities"),
			zap.Int("rows", skipped),
		)
	}
	return out
}

// selectCells returns code, name and the eleven count cells, or false when
// any of them is empty.
func selectCells(row []string) ([]string, bool) {
	if len(row) <= countsEnd {
		return nil, false
	}
	cells := make([]string, 0, 2+countsEnd-countsStart+1)
	cells = append(cells, row[codeColumn], row[nameColumn])
	cells = append(cells, row[countsStart:countsEnd+1]...)
	for _, c := range cells {
		if c == "" {
			return nil, false
		}
	}
	return cells, true
}

// normalizeCode restores the leading zeros a numeric code cell loses
// ("0" -> "00000", "11000.0" -> "11000").
func normalizeCode(code string) string {
	f, err := strconv.ParseFloat(code, 64)
	if err != nil || f != math.Trunc(f) || f < 0 {
		return code
	}
	return leftPad(strconv.FormatInt(int64(f), 10), 5)
}

func leftPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

// parseCount reads a count cell; spaces are thousands separators and a
// non-numeric cell counts as zero.
func parseCount(v string) int {
	v = strings.Join(strings.Fields(v), "")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return int(math.Round(f))
}

func parseCounts(c []string) model.StudentCounts {
	return model.StudentCounts{
		Total:     parseCount(c[0]),
		FTTotal:   parseCount(c[1]),
		FTBach:    parseCount(c[2]),
		FTMaster:  parseCount(c[3]),
		FTFMaster: parseCount(c[4]),
		FTPhD:     parseCount(c[5]),
		DCTotal:   parseCount(c[6]),
		DCBach:    parseCount(c[7]),
		DCMaster:  parseCount(c[8]),
		DCFMaster: parseCount(c[9]),
		DCPhD:     parseCount(c[10]),
	}
}
