package intake

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/opensource-finance/dary/internal/domain"
)

// Format is a batch source encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectFormat picks the batch format from a content type, falling back to
// the file extension. JSON wins only when one of them says so.
func DetectFormat(contentType, filename string) Format {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch {
		case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
			return FormatJSON
		case mediaType == "text/csv":
			return FormatCSV
		}
	}
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// Read decodes a batch source in the given format.
func Read(r io.Reader, format Format) ([]Record, error) {
	switch format {
	case FormatJSON:
		return ReadJSON(r)
	case FormatCSV, "":
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("%w: unsupported batch format %q", domain.ErrInvalidInput, format)
	}
}

// ReadCSV reads a header row followed by one record per line.
// Blank cells are kept as empty strings and read as missing by FromRecord.
// A malformed file (for example an unterminated quote) fails as a whole.
func ReadCSV(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.TrimLeadingSpace = true
	// Short rows are allowed; absent trailing cells read as missing.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %v", domain.ErrInvalidInput, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records := []Record{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %v", domain.ErrInvalidInput, err)
		}

		rec := make(Record, len(header))
		for i, col := range header {
			if col == "" || i >= len(row) {
				continue
			}
			rec[col] = row[i]
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadJSON reads a JSON array of objects. Numbers are kept as json.Number so
// FromRecord sees the literal that was sent. Only a value that is not an
// array fails the batch; an element that is not an object is kept in place
// and rejected by FromRecord.
func ReadJSON(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("%w: batch must be a JSON array of objects: %v", domain.ErrInvalidInput, err)
	}

	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		rec, err := DecodeRecord(item)
		if err != nil {
			rec = malformed(item)
		}
		records = append(records, rec)
	}
	return records, nil
}

// DecodeRecord decodes one JSON object.
func DecodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}
	if rec == nil {
		return nil, errors.New("expected a JSON object, got null")
	}
	return rec, nil
}
