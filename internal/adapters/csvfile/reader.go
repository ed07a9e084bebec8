// Package csvfile reads survey exports into tables and writes export rows
// as CSV.
package csvfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/csimplestring/go-csv/detector"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
)

// Encodings reported in Info.
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF8BOM     = "utf-8-sig"
	EncodingUTF16       = "utf-16"
	EncodingWindows1252 = "windows-1252"
)

// candidate delimiters, in preference order
var delimiters = []rune{',', ';', '\t'}

// Info describes how an input was decoded.
type Info struct {
	Delimiter rune
	Encoding  string
}

// ReadOption applies a configuration option to Read.
type ReadOption func(*readConfig)

type readConfig struct {
	delimiter rune
}

// WithDelimiter disables sniffing and uses d.
func WithDelimiter(d rune) ReadOption {
	return func(c *readConfig) {
		c.delimiter = d
	}
}

// Read decodes a survey export. The first record is the header row;
// headers are NFC-normalized so marker matching is independent of how the
// exporting tool composed umlauts. Empty cells are missing values and short
// rows are padded with missing cells.
func Read(r io.Reader, opts ...ReadOption) (model.Table, Info, error) {
	cfg := &readConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return model.Table{}, Info{}, fmt.Errorf("read input: %w", err)
	}

	data, enc, err := decode(raw)
	if err != nil {
		return model.Table{}, Info{}, fmt.Errorf("%w: %v", ErrNotTabular, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return model.Table{}, Info{Encoding: enc}, ErrEmptyTable
	}

	delim := cfg.delimiter
	if delim == 0 {
		delim = DetectDelimiter(data)
	}
	info := Info{Delimiter: delim, Encoding: enc}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return model.Table{}, info, ErrEmptyTable
	}
	if err != nil {
		return model.Table{}, info, fmt.Errorf("%w: %v", ErrNotTabular, err)
	}
	if len(headers) == 0 {
		return model.Table{}, info, ErrEmptyTable
	}
	for i, h := range headers {
		headers[i] = norm.NFC.String(h)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Table{}, info, fmt.Errorf("%w: %v", ErrNotTabular, err)
		}
		rows = append(rows, fit(rec, len(headers)))
	}

	return model.NewTable(headers, rows), info, nil
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string, opts ...ReadOption) (model.Table, Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Table{}, Info{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, opts...)
}

// decode converts raw bytes to UTF-8. A BOM selects UTF-8 or UTF-16;
// otherwise invalid UTF-8 is treated as Windows-1252.
func decode(raw []byte) ([]byte, string, error) {
	enc := EncodingUTF8
	switch {
	case bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}):
		enc = EncodingUTF8BOM
	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}), bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		enc = EncodingUTF16
	case !utf8.Valid(raw):
		out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
		return out, EncodingWindows1252, err
	}
	out, _, err := transform.Bytes(xunicode.BOMOverride(xunicode.UTF8.NewDecoder()), raw)
	return out, enc, err
}

// DetectDelimiter sniffs the delimiter of CSV-like data among comma,
// semicolon and tab. When sniffing is inconclusive the candidate occurring
// most often in the first line wins, defaulting to comma.
func DetectDelimiter(data []byte) rune {
	data = bytes.TrimRight(data, "\r\n")
	found := make(map[rune]bool)
	for _, f := range detector.New().DetectDelimiter(bytes.NewReader(data), '"') {
		r, _ := utf8.DecodeRuneInString(f)
		found[r] = true
	}
	for _, d := range delimiters {
		if found[d] {
			return d
		}
	}

	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	best, bestCount := delimiters[0], 0
	for _, d := range delimiters {
		if n := bytes.Count(first, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// fit pads or truncates rec to n cells.
func fit(rec []string, n int) []string {
	if len(rec) == n {
		return rec
	}
	out := make([]string, n)
	copy(out, rec)
	return out
}
