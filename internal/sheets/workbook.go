package sheets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/timtanatarov/daydi-spa/internal/models"
	"github.com/timtanatarov/daydi-spa/internal/utils"
)

// WorkbookBackend stores rows in a local .xlsx file. Opening the workbook
// holds a lock until the service is closed, so concurrent appends are
// serialized.
type WorkbookBackend struct {
	Path string

	mu sync.Mutex
}

func NewWorkbookBackend(path string) *WorkbookBackend {
	return &WorkbookBackend{Path: path}
}

func (b *WorkbookBackend) Check() error {
	if strings.TrimSpace(b.Path) == "" {
		return utils.ConfigError("missing workbook path: SHEETS_XLSX_PATH")
	}
	return nil
}

// Open loads the workbook, creating an empty one when the file does not exist.
func (b *WorkbookBackend) Open(ctx context.Context) (Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()

	f, err := excelize.OpenFile(b.Path)
	dirty := false
	if errors.Is(err, fs.ErrNotExist) {
		f, err, dirty = excelize.NewFile(), nil, true
	}
	if err != nil {
		b.mu.Unlock()
		return nil, fmt.Errorf("open workbook %s: %w", b.Path, err)
	}
	return &workbookService{file: f, path: b.Path, dirty: dirty, unlock: b.mu.Unlock}, nil
}

type workbookService struct {
	file   *excelize.File
	path   string
	dirty  bool
	closed bool
	unlock func()
}

// sheet maps a title to a worksheet name. An empty title is the first sheet.
func (s *workbookService) sheet(title string, create bool) (string, bool, error) {
	title = Unquote(title)
	if title == "" {
		list := s.file.GetSheetList()
		if len(list) == 0 {
			return "", false, errors.New("workbook has no sheets")
		}
		return list[0], true, nil
	}
	idx, err := s.file.GetSheetIndex(title)
	if err != nil {
		return "", false, err
	}
	if idx >= 0 {
		return title, true, nil
	}
	if !create {
		return title, false, nil
	}
	if _, err := s.file.NewSheet(title); err != nil {
		return "", false, fmt.Errorf("create sheet %q: %w", title, err)
	}
	s.dirty = true
	return title, true, nil
}

// bounds returns the 1-based corners of a cell range. An empty range has no
// bounds.
func bounds(rng string) (c1, r1, c2, r2 int, ok bool, err error) {
	if rng == "" {
		return 0, 0, 0, 0, false, nil
	}
	first, last, _ := strings.Cut(rng, ":")
	if c1, r1, err = excelize.CellNameToCoordinates(first); err != nil {
		return 0, 0, 0, 0, false, err
	}
	c2, r2 = c1, r1
	if last != "" {
		if c2, r2, err = excelize.CellNameToCoordinates(last); err != nil {
			return 0, 0, 0, 0, false, err
		}
	}
	return c1, r1, c2, r2, true, nil
}

func (s *workbookService) Values(ctx context.Context, rng string) ([][]string, error) {
	ref := ParseRef(rng)
	name, exists, err := s.sheet(ref.Title, false)
	if err != nil || !exists {
		return nil, err
	}
	c1, r1, c2, r2, ok, err := bounds(ref.Range)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.file.GetRows(name)
	}

	var rows [][]string
	for r := r1; r <= r2; r++ {
		row := make([]string, 0, c2-c1+1)
		for c := c1; c <= c2; c++ {
			cell, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return nil, err
			}
			v, err := s.file.GetCellValue(name, cell)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *workbookService) Update(ctx context.Context, rng string, rows [][]string) error {
	ref := ParseRef(rng)
	name, _, err := s.sheet(ref.Title, true)
	if err != nil {
		return err
	}
	col, row, _, _, ok, err := bounds(ref.Range)
	if err != nil {
		return err
	}
	if !ok {
		col, row = 1, 1
	}
	return s.write(name, col, row, rows)
}

// Append writes rows below the last non-empty row of the sheet, starting at
// the column of rng.
func (s *workbookService) Append(ctx context.Context, rng string, rows [][]string) error {
	ref := ParseRef(rng)
	name, _, err := s.sheet(ref.Title, true)
	if err != nil {
		return err
	}
	col, _, _, _, ok, err := bounds(ref.Range)
	if err != nil {
		return err
	}
	if !ok {
		col = 1
	}
	existing, err := s.file.GetRows(name)
	if err != nil {
		return err
	}
	last := len(existing)
	for last > 0 && HeaderEmpty(existing[last-1:]) {
		last--
	}
	return s.write(name, col, last+1, rows)
}

func (s *workbookService) write(name string, col, row int, rows [][]string) error {
	for i, values := range rows {
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+j, row+i)
			if err != nil {
				return err
			}
			if err := s.file.SetCellValue(name, cell, s.userEntered(v)); err != nil {
				return err
			}
		}
	}
	s.dirty = true
	return nil
}

// userEntered interprets timestamp-shaped text as a date. Everything else is
// stored verbatim. The timestamp carries no zone, so it is read as UTC to keep
// the wall clock unchanged in the serial date.
func (s *workbookService) userEntered(v string) any {
	if t, ok := models.ParseTimestamp(v, time.UTC); ok {
		return t
	}
	return v
}

func (s *workbookService) Format(ctx context.Context, title string, layout Layout) error {
	name, _, err := s.sheet(title, true)
	if err != nil {
		return err
	}

	if layout.DatePattern != "" {
		pattern := layout.DatePattern
		dateStyle, err := s.file.NewStyle(&excelize.Style{CustomNumFmt: &pattern})
		if err != nil {
			return err
		}
		col, err := excelize.ColumnNumberToName(int(layout.DateColumn) + 1)
		if err != nil {
			return err
		}
		if err := s.file.SetColStyle(name, col, dateStyle); err != nil {
			return err
		}
	}

	// Header cells are styled after the date column so A1 keeps the header look.
	for i, c := range layout.Columns {
		style, err := s.file.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{c.Background.Hex()}},
			Font:      &excelize.Font{Bold: layout.Bold, Color: layout.Foreground.Hex()},
			Alignment: &excelize.Alignment{Horizontal: "left"},
		})
		if err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := s.file.SetCellStyle(name, cell, cell, style); err != nil {
			return err
		}
		if c.Width > 0 {
			col, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return err
			}
			if err := s.file.SetColWidth(name, col, col, pixelsToWidth(c.Width)); err != nil {
				return err
			}
		}
	}

	if layout.FrozenRows > 0 {
		topLeft, err := excelize.CoordinatesToCellName(1, int(layout.FrozenRows)+1)
		if err != nil {
			return err
		}
		if err := s.file.SetPanes(name, &excelize.Panes{
			Freeze:      true,
			YSplit:      int(layout.FrozenRows),
			TopLeftCell: topLeft,
			ActivePane:  "bottomLeft",
		}); err != nil {
			return err
		}
	}

	s.dirty = true
	return nil
}

// pixelsToWidth converts pixels to the character-based width unit of xlsx
// columns (about 7px per character of the default font).
func pixelsToWidth(px int64) float64 {
	return float64(px) / 7
}

// Close saves pending changes and releases the workbook lock.
func (s *workbookService) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer s.unlock()

	var err error
	if s.dirty {
		if mkErr := os.MkdirAll(filepath.Dir(s.path), 0o755); mkErr != nil {
			err = mkErr
		} else {
			err = s.file.SaveAs(s.path)
		}
	}
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}
