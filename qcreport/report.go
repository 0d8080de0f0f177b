package qcreport

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/neurosnap/sentences/english"

	"proxysift/ncdc"
)

//go:embed report.html.tmpl
var templateFiles embed.FS

// ReportOptions steer report generation.
type ReportOptions struct {
	// SummarySentences caps the description summary length.
	SummarySentences int
}

// Summarize keeps the first n sentences of free text. Tokenization handles
// abbreviations and decimal points, a plain period split would not.
func Summarize(text string, n int) string {
	text = strings.TrimSpace(text)
	if text == "" || n <= 0 {
		return ""
	}
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return text
	}
	var parts []string
	for _, s := range tokenizer.Tokenize(text) {
		parts = append(parts, strings.TrimSpace(s.Text))
		if len(parts) == n {
			break
		}
	}
	return strings.Join(parts, " ")
}

// ColumnStats is the per-measurement summary shown in the report table.
type ColumnStats struct {
	Name  string
	Units string
	Count int
	Min   float64
	Max   float64
	Mean  float64
}

func statsFor(r *ncdc.Record, data *ncdc.DataCollection) []ColumnStats {
	var out []ColumnStats
	for i := range data.Columns {
		col := &data.Columns[i]
		cs := ColumnStats{
			Name:  col.Name,
			Units: r.Variables.Info(col.Name).Units,
			Min:   math.Inf(1),
			Max:   math.Inf(-1),
		}
		sum := 0.0
		for _, v := range col.Values {
			if math.IsNaN(v) {
				continue
			}
			cs.Count++
			sum += v
			cs.Min = math.Min(cs.Min, v)
			cs.Max = math.Max(cs.Max, v)
		}
		if cs.Count > 0 {
			cs.Mean = sum / float64(cs.Count)
		} else {
			cs.Min, cs.Max, cs.Mean = math.NaN(), math.NaN(), math.NaN()
		}
		out = append(out, cs)
	}
	return out
}

type chronRow struct {
	Labcode      string
	Depth        float64
	C14Date      string
	C14Error     string
	DeltaR       string
	DeltaRError  string
	OtherDate    string
	OtherType    string
	SwappedNote  string
}

func numOrDash(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%g", v)
}

func chronRows(c *ncdc.ChronologyInformation) []chronRow {
	var out []chronRow
	for i := range c.Determinants {
		d := &c.Determinants[i]
		row := chronRow{
			Labcode:     d.Labcode,
			Depth:       d.Depth(),
			C14Date:     numOrDash(d.C14Date),
			C14Error:    numOrDash(d.C14Error),
			DeltaR:      numOrDash(d.DeltaR),
			DeltaRError: numOrDash(d.DeltaRError),
			OtherDate:   numOrDash(d.OtherDate),
			OtherType:   d.OtherType,
		}
		if d.DeltaROriginal != nil {
			row.SwappedNote = fmt.Sprintf("file value %s", numOrDash(*d.DeltaROriginal))
		}
		out = append(out, row)
	}
	return out
}

type reportData struct {
	Identifier  string
	SiteName    string
	Location    string
	Latitude    string
	Longitude   string
	Elevation   string
	GeneratedAt string
	Citations   []string
	Summary     string
	Chronology  []chronRow
	Cutoffs     []float64
	Columns     []ColumnStats
	PlotSVG     template.HTML
}

// Generate writes one record's HTML quality control report. plotSVG is
// inlined verbatim when non-empty, callers produce it with AgeDepthSVG.
func Generate(w io.Writer, r *ncdc.Record, data *ncdc.DataCollection, plotSVG []byte, opts ReportOptions) error {
	tmpl, err := template.New("report.html.tmpl").Funcs(sprig.FuncMap()).ParseFS(templateFiles, "report.html.tmpl")
	if err != nil {
		return fmt.Errorf("parsing report template: %w", err)
	}

	rd := reportData{
		Identifier:  r.Identifier(),
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05 MST"),
		Chronology:  chronRows(&r.Chronology),
		Cutoffs:     CutoffOverlays(&r.Chronology),
		Columns:     statsFor(r, data),
		PlotSVG:     template.HTML(plotSVG),
	}
	if r.Site.SiteName != nil {
		rd.SiteName = *r.Site.SiteName
	}
	if r.Site.Location != nil {
		rd.Location = *r.Site.Location
	}
	if lat, lon, ok := r.Site.LatLon(); ok {
		rd.Latitude = fmt.Sprintf("%g", lat)
		rd.Longitude = fmt.Sprintf("%g", lon)
	}
	if r.Site.Elevation != nil {
		rd.Elevation = fmt.Sprintf("%g", *r.Site.Elevation)
	}
	for i := range r.Publications {
		rd.Citations = append(rd.Citations, r.Publications[i].Citation())
	}
	if r.Description != nil {
		rd.Summary = Summarize(*r.Description, opts.SummarySentences)
	}

	if err := tmpl.Execute(w, rd); err != nil {
		return fmt.Errorf("rendering report for %s: %w", rd.Identifier, err)
	}
	return nil
}
