package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/skychik/football-tg-poll-sheets-sync/internal/models"
)

// Client is the capability surface the workflow consumes. The workbook layout
// is fixed: row 1 holds date headers, row 2 the player count, column A the
// player nicknames starting at row 3.
type Client interface {
	DetectColumns(ctx context.Context, dateHint string) ([]models.ColumnMatch, error)
	NextColumn(ctx context.Context) (string, error)
	NicknameRows(ctx context.Context) (map[string]int, error)
	ExistingValues(ctx context.Context, column string, entries []models.WriteEntry) ([]models.ExistingValue, error)
	WriteColumnMeta(ctx context.Context, column, dateName string, playerCount *int) error
	CommitAttendance(ctx context.Context, column string, entries []models.WriteEntry) error
}

const (
	headerRow    = 1
	countRow     = 2
	firstDataRow = 3
	attendMark   = "+"
)

// Workbook implements Client over a shared .xlsx file. Every call opens the
// file fresh so edits made by humans between calls are picked up.
type Workbook struct {
	mu    sync.Mutex
	path  string
	sheet string
}

func NewWorkbook(path, sheet string) *Workbook {
	return &Workbook{path: path, sheet: sheet}
}

func (w *Workbook) DetectColumns(ctx context.Context, dateHint string) ([]models.ColumnMatch, error) {
	if strings.TrimSpace(dateHint) == "" {
		return nil, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := w.headerCells(f)
	if err != nil {
		return nil, err
	}

	var matches []models.ColumnMatch
	for i, cell := range header {
		if i == 0 || cell == "" {
			continue
		}
		if strings.Contains(cell, dateHint) {
			name, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return nil, fmt.Errorf("column name: %w", err)
			}
			matches = append(matches, models.ColumnMatch{Column: name, Date: cell})
		}
	}
	return matches, nil
}

func (w *Workbook) NextColumn(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	header, err := w.headerCells(f)
	if err != nil {
		return "", err
	}

	last := 1 // column A is the nickname column
	for i, cell := range header {
		if i > 0 && cell != "" {
			last = i + 1
		}
	}
	name, err := excelize.ColumnNumberToName(last + 1)
	if err != nil {
		return "", fmt.Errorf("column name: %w", err)
	}
	return name, nil
}

func (w *Workbook) NicknameRows(ctx context.Context) (map[string]int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read rows: %v", models.ErrSheetTransport, err)
	}

	mapping := make(map[string]int)
	for i := firstDataRow - 1; i < len(rows); i++ {
		if len(rows[i]) == 0 {
			continue
		}
		nick := strings.TrimSpace(rows[i][0])
		if nick == "" {
			continue
		}
		if _, ok := mapping[nick]; !ok {
			mapping[nick] = i + 1
		}
	}
	return mapping, nil
}

func (w *Workbook) ExistingValues(ctx context.Context, column string, entries []models.WriteEntry) ([]models.ExistingValue, error) {
	if err := validColumn(column); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var existing []models.ExistingValue
	for _, entry := range entries {
		value, err := f.GetCellValue(w.sheet, fmt.Sprintf("%s%d", column, entry.Row))
		if err != nil {
			return nil, fmt.Errorf("%w: read cell %s%d: %v", models.ErrSheetTransport, column, entry.Row, err)
		}
		if strings.TrimSpace(value) != "" {
			existing = append(existing, models.ExistingValue{Nickname: entry.Nickname, Value: value})
		}
	}
	return existing, nil
}

func (w *Workbook) WriteColumnMeta(ctx context.Context, column, dateName string, playerCount *int) error {
	if err := validColumn(column); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if dateName != "" {
		if err := f.SetCellValue(w.sheet, fmt.Sprintf("%s%d", column, headerRow), dateName); err != nil {
			return fmt.Errorf("%w: write header: %v", models.ErrSheetTransport, err)
		}
	}
	if playerCount != nil {
		if err := f.SetCellValue(w.sheet, fmt.Sprintf("%s%d", column, countRow), *playerCount); err != nil {
			return fmt.Errorf("%w: write player count: %v", models.ErrSheetTransport, err)
		}
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("%w: save workbook: %v", models.ErrSheetTransport, err)
	}
	return nil
}

func (w *Workbook) CommitAttendance(ctx context.Context, column string, entries []models.WriteEntry) error {
	if err := validColumn(column); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	for _, entry := range entries {
		if err := f.SetCellValue(w.sheet, fmt.Sprintf("%s%d", column, entry.Row), attendMark); err != nil {
			return fmt.Errorf("%w: write cell %s%d: %v", models.ErrSheetTransport, column, entry.Row, err)
		}
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("%w: save workbook: %v", models.ErrSheetTransport, err)
	}
	return nil
}

func (w *Workbook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", models.ErrSheetTransport, err)
	}
	if idx, err := f.GetSheetIndex(w.sheet); err != nil || idx < 0 {
		f.Close()
		return nil, fmt.Errorf("%w: sheet %q not found in workbook", models.ErrSheetTransport, w.sheet)
	}
	return f, nil
}

func (w *Workbook) headerCells(f *excelize.File) ([]string, error) {
	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read rows: %v", models.ErrSheetTransport, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func validColumn(column string) error {
	if _, err := excelize.ColumnNameToNumber(column); err != nil {
		return fmt.Errorf("column %q: %w", column, models.ErrValidation)
	}
	return nil
}
