package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/YuminosukeSato/greenforecast/pkg/errors"
)

// RawTable is a CSV file as read from disk: trimmed header names and
// unparsed string cells.
type RawTable struct {
	Path    string
	Header  []string
	Records [][]string
}

// Load reads a CSV dataset. A missing file yields DatasetNotFound; a file
// without data rows yields DatasetEmpty.
func Load(path string) (*RawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewDatasetNotFoundError(path)
		}
		return nil, errors.Wrapf(err, "failed to open dataset %s", path)
	}
	defer file.Close()

	raw, err := Read(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read dataset %s", path)
	}
	raw.Path = path
	if len(raw.Records) == 0 {
		return nil, errors.NewDatasetEmptyError(path, 0)
	}
	return raw, nil
}

// Read parses CSV from r. Ragged rows are allowed; missing cells read as
// empty strings.
func Read(r io.Reader) (*RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &RawTable{}, nil
	}
	if err != nil {
		return nil, err
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return &RawTable{Header: header, Records: records}, nil
}

// cell returns record[j] or "" for short rows.
func cell(record []string, j int) string {
	if j < len(record) {
		return strings.TrimSpace(record[j])
	}
	return ""
}
