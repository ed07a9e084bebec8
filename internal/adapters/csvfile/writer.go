package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/projection"
)

// ExportFilename returns the download name of an export created at t.
func ExportFilename(t time.Time) string {
	return "gNBS_Expertenreview_Zusammenfassung_" + t.Format("20060102") + ".csv"
}

// percent prints with exactly one decimal.
type percent float64

func (p percent) MarshalCSV() (string, error) {
	return strconv.FormatFloat(float64(p), 'f', 1, 64), nil
}

// flag prints the cut-off flag as Yes/No.
type flag bool

func (f flag) MarshalCSV() (string, error) {
	if f {
		return "Yes", nil
	}
	return "No", nil
}

type record struct {
	Gene             string  `csv:"Gen"`
	Disease          string  `csv:"Erkrankung"`
	NationalYesPct   percent `csv:"National_Ja_pct"`
	NationalN        int     `csv:"National_n"`
	StudyYesPct      percent `csv:"Studie_Ja_pct"`
	StudyN           int     `csv:"Studie_n"`
	National80       flag    `csv:"National_80"`
	NationalComments string  `csv:"Kommentare_National"`
	StudyComments    string  `csv:"Kommentare_Studie"`
	Recommendation   string  `csv:"Empfehlung"`
	ReviewDecision   string  `csv:"Reviewer_Entscheidung"`
	ReviewNotes      string  `csv:"Reviewer_Kommentar"`
}

// recordWithTotal is record with the leading response count column.
type recordWithTotal struct {
	TotalResponses   int     `csv:"Gesamt_Responses"`
	Gene             string  `csv:"Gen"`
	Disease          string  `csv:"Erkrankung"`
	NationalYesPct   percent `csv:"National_Ja_pct"`
	NationalN        int     `csv:"National_n"`
	StudyYesPct      percent `csv:"Studie_Ja_pct"`
	StudyN           int     `csv:"Studie_n"`
	National80       flag    `csv:"National_80"`
	NationalComments string  `csv:"Kommentare_National"`
	StudyComments    string  `csv:"Kommentare_Studie"`
	Recommendation   string  `csv:"Empfehlung"`
	ReviewDecision   string  `csv:"Reviewer_Entscheidung"`
	ReviewNotes      string  `csv:"Reviewer_Kommentar"`
}

func toRecord(r projection.ExportRow) record {
	return record{
		Gene:             r.Gene,
		Disease:          r.Disease,
		NationalYesPct:   percent(r.NationalYesPct),
		NationalN:        r.NationalN,
		StudyYesPct:      percent(r.StudyYesPct),
		StudyN:           r.StudyN,
		National80:       flag(r.National80),
		NationalComments: r.NationalComments,
		StudyComments:    r.StudyComments,
		Recommendation:   r.Recommendation.String(),
		ReviewDecision:   r.ReviewDecision,
		ReviewNotes:      r.ReviewNotes,
	}
}

func toRecordWithTotal(r projection.ExportRow) recordWithTotal {
	rec := toRecord(r)
	return recordWithTotal{
		TotalResponses:   r.TotalResponses,
		Gene:             rec.Gene,
		Disease:          rec.Disease,
		NationalYesPct:   rec.NationalYesPct,
		NationalN:        rec.NationalN,
		StudyYesPct:      rec.StudyYesPct,
		StudyN:           rec.StudyN,
		National80:       rec.National80,
		NationalComments: rec.NationalComments,
		StudyComments:    rec.StudyComments,
		Recommendation:   rec.Recommendation,
		ReviewDecision:   rec.ReviewDecision,
		ReviewNotes:      rec.ReviewNotes,
	}
}

// WriteOption applies a configuration option to WriteRows.
type WriteOption func(*writeConfig)

type writeConfig struct {
	total bool
	bom   bool
}

// WithTotalColumn prepends the Gesamt_Responses column.
func WithTotalColumn(on bool) WriteOption {
	return func(c *writeConfig) {
		c.total = on
	}
}

// WithBOM toggles the UTF-8 byte order mark. On by default so spreadsheet
// tools detect the encoding.
func WithBOM(on bool) WriteOption {
	return func(c *writeConfig) {
		c.bom = on
	}
}

// WriteRows writes rows as CSV with a header line. An empty slice still
// produces the header line.
func WriteRows(w io.Writer, rows []projection.ExportRow, opts ...WriteOption) error {
	cfg := &writeConfig{bom: true}
	for _, opt := range opts {
		opt(cfg)
	}

	out := w
	var tw io.WriteCloser
	if cfg.bom {
		tw = transform.NewWriter(w, xunicode.UTF8BOM.NewEncoder())
		out = tw
	}

	sw := gocsv.NewSafeCSVWriter(csv.NewWriter(out))
	var err error
	if cfg.total {
		recs := make([]recordWithTotal, len(rows))
		for i, r := range rows {
			recs[i] = toRecordWithTotal(r)
		}
		err = gocsv.MarshalCSV(recs, sw)
	} else {
		recs := make([]record, len(rows))
		for i, r := range rows {
			recs[i] = toRecord(r)
		}
		err = gocsv.MarshalCSV(recs, sw)
	}
	if err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	if tw != nil {
		if err := tw.Close(); err != nil {
			return fmt.Errorf("flush export: %w", err)
		}
	}
	return nil
}
