// Package preview sniffs column headers from an upload before it leaves the
// machine, so the UI can show the dataset shape while the transfer runs.
package preview

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"datalens/internal/errors"
)

// Columns extracts the header row from the raw file bytes. The format is
// chosen by extension. JSON files are expected to hold an array of objects;
// keys of the first object become the columns.
func Columns(filename string, data []byte) ([]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return csvColumns(data)
	case ".xlsx", ".xls":
		return excelColumns(data)
	case ".json":
		return jsonColumns(data)
	}
	return nil, errors.UnsupportedFileType(filename)
}

func csvColumns(data []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.New(errors.CodeInsufficientData, "file has no header row")
	}
	if err != nil {
		return nil, errors.Decode(err)
	}
	cols := make([]string, 0, len(header))
	for _, h := range header {
		cols = append(cols, strings.TrimSpace(h))
	}
	return cols, nil
}

func excelColumns(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Decode(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New(errors.CodeInsufficientData, "workbook has no sheets")
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, errors.Decode(err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, errors.New(errors.CodeInsufficientData, "sheet has no header row")
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, errors.Decode(err)
	}
	cols := make([]string, 0, len(header))
	for _, h := range header {
		cols = append(cols, strings.TrimSpace(h))
	}
	return cols, nil
}

func jsonColumns(data []byte) ([]string, error) {
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Decode(err)
	}
	if len(records) == 0 {
		return nil, errors.New(errors.CodeInsufficientData, "array has no records")
	}
	cols := make([]string, 0, len(records[0]))
	for k := range records[0] {
		cols = append(cols, k)
	}
	// map iteration order is random; callers expect a stable preview
	sort.Strings(cols)
	return cols, nil
}
