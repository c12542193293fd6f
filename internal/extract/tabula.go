package extract

import (
	"fmt"

	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"

	"github.com/local/pdftoolkit/internal/pdferr"
)

// TabulaSource detects tables from positioned text fragments with tabula's
// geometric detector.
type TabulaSource struct {
	r     *reader.Reader
	det   *tables.GeometricDetector
	pages int
}

func OpenTabula(path string) (*TabulaSource, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, &pdferr.SourceError{Path: path, Err: fmt.Errorf("open pdf: %w", err)}
	}
	n, err := r.PageCount()
	if err != nil {
		r.Close()
		return nil, &pdferr.SourceError{Path: path, Err: fmt.Errorf("page count: %w", err)}
	}
	det := tables.NewGeometricDetector()
	if err := det.Configure(tables.DefaultConfig()); err != nil {
		r.Close()
		return nil, fmt.Errorf("configure table detector: %w", err)
	}
	return &TabulaSource{r: r, det: det, pages: n}, nil
}

func (s *TabulaSource) NumPage() int { return s.pages }

func (s *TabulaSource) PageTables(i int) ([][][]string, error) {
	page, err := s.r.GetPage(i)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", i+1, err)
	}
	frags, err := s.r.ExtractTextFragments(page)
	if err != nil {
		return nil, fmt.Errorf("page %d fragments: %w", i+1, err)
	}
	if len(frags) == 0 {
		return nil, nil
	}

	width, err := page.Width()
	if err != nil {
		return nil, fmt.Errorf("page %d width: %w", i+1, err)
	}
	height, err := page.Height()
	if err != nil {
		return nil, fmt.Errorf("page %d height: %w", i+1, err)
	}

	mp := model.NewPage(width, height)
	for _, f := range frags {
		mp.RawText = append(mp.RawText, model.TextFragment{
			Text:     f.Text,
			BBox:     model.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height},
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}

	found, err := s.det.Detect(mp)
	if err != nil {
		return nil, fmt.Errorf("page %d detect tables: %w", i+1, err)
	}
	grids := make([][][]string, 0, len(found))
	for _, t := range found {
		grid := make([][]string, len(t.Rows))
		for r, row := range t.Rows {
			cells := make([]string, len(row))
			for c, cell := range row {
				cells[c] = cell.Text
			}
			grid[r] = cells
		}
		grids = append(grids, grid)
	}
	return grids, nil
}

func (s *TabulaSource) Close() error { return s.r.Close() }
