package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/occupancy"
	"github.com/tpoisot/IntroScientificComputing/internal"
)

// DefaultSheet is read when no sheet is named
const DefaultSheet = "Sheet1"

// DataReader reads presence/absence records from Excel or CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	logger   *internal.Logger
}

// NewDataReader creates a reader; files ending in .csv are read as CSV,
// everything else as a workbook
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{
		filePath: filePath,
		fileType: fileType,
		sheet:    DefaultSheet,
		logger:   internal.DefaultLogger.Component("DataReader"),
	}
}

// WithSheet selects the worksheet to read. Ignored for CSV files.
func (r *DataReader) WithSheet(sheet string) *DataReader {
	if sheet != "" {
		r.sheet = sheet
	}
	return r
}

// ReadRows returns the raw rows of the file, header included
func (r *DataReader) ReadRows() ([][]string, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	start := time.Now()
	switch r.fileType {
	case "csv":
		rows, err = r.readCSV()
	default:
		rows, err = r.readExcel()
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug("%s read in %.2fms (%d rows)", r.filePath, float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, core.NewConfigError("empirical", fmt.Sprintf("%s must have a header row and at least one data row", r.filePath))
	}
	return rows, nil
}

func (r *DataReader) readExcel() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.sheet, err)
	}
	return rows, nil
}

func (r *DataReader) readCSV() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// ReadSequence reads one presence/absence column. column is matched against
// the header case-insensitively; an empty column selects the first one.
// Trailing empty cells end the record, an empty cell inside it is an error.
func (r *DataReader) ReadSequence(column string) (occupancy.Sequence, error) {
	rows, err := r.ReadRows()
	if err != nil {
		return nil, err
	}

	col, err := columnIndex(rows[0], column)
	if err != nil {
		return nil, err
	}

	cells := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cell := ""
		if col < len(row) {
			cell = strings.TrimSpace(row[col])
		}
		cells = append(cells, cell)
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	if len(cells) == 0 {
		return nil, core.NewConfigError("empirical", fmt.Sprintf("column %q is empty", rows[0][col]))
	}

	seq := make(occupancy.Sequence, len(cells))
	for i, cell := range cells {
		v, err := occupancy.ParseFlag(cell)
		if err != nil {
			// +2: one for the header, one for 1-based rows
			return nil, core.NewConfigError("empirical", fmt.Sprintf("row %d: %v", i+2, err))
		}
		seq[i] = v
	}

	r.logger.Info("read %d steps from column %q of %s (%d present)", len(seq), rows[0][col], r.filePath, seq.Count())
	return seq, nil
}

// ReadSequence reads a presence/absence column from a workbook or CSV file
func ReadSequence(path, sheet, column string) (occupancy.Sequence, error) {
	return NewDataReader(path).WithSheet(sheet).ReadSequence(column)
}

func columnIndex(header []string, column string) (int, error) {
	if len(header) == 0 {
		return 0, core.NewConfigError("empirical", "header row is empty")
	}
	if column == "" {
		return 0, nil
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(column)) {
			return i, nil
		}
	}
	return 0, core.NewConfigError("empirical", fmt.Sprintf("column %q not found (have %s)", column, strings.Join(header, ", ")))
}
