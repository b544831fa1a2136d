package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"relana/domain/project"
)

// Row is one output as rendered.
type Row struct {
	Path    string
	Exact   string
	Decimal string
	Float   float64
	Dispersion
}

// Rows formats the results of rep with the given number of decimals.
func Rows(rep *project.Report, decimals int) []Row {
	rows := make([]Row, len(rep.Results))
	for i, r := range rep.Results {
		rows[i] = Row{
			Path:       r.Path.String(),
			Exact:      r.Prob.RatString(),
			Decimal:    r.Prob.FloatString(decimals),
			Float:      r.Float(),
			Dispersion: Spread(r.Float()),
		}
	}
	return rows
}

// Format names a rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts text, markdown (or md) and html.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Render writes rep to w in format f.
func Render(w io.Writer, rep *project.Report, f Format, decimals int) error {
	switch f {
	case FormatText:
		return RenderText(w, rep, decimals)
	case FormatMarkdown:
		_, err := w.Write(Markdown(rep, decimals))
		return err
	case FormatHTML:
		_, err := w.Write(HTML(rep, decimals))
		return err
	}
	return fmt.Errorf("unknown report format %q", f)
}

// RenderText writes an aligned plain text table.
func RenderText(w io.Writer, rep *project.Report, decimals int) error {
	fmt.Fprintf(w, "project: %s\n\n", rep.Project)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OUTPUT\tPROBABILITY\tEXACT")
	for _, r := range Rows(rep, decimals) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Path, r.Decimal, r.Exact)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	return nil
}

// Markdown renders rep as a markdown document.
func Markdown(rep *project.Report, decimals int) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Reliability analysis: %s\n\n", rep.Project)
	b.WriteString("| Output | Probability | Exact | Std. dev. | Entropy |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range Rows(rep, decimals) {
		fmt.Fprintf(&b, "| `%s` | %s | %s | %.4f | %.4f |\n", r.Path, r.Decimal, r.Exact, r.StdDev, r.Entropy)
	}
	if s := rep.Summary; s != nil && s.Outputs > 0 {
		b.WriteString("\n## Summary\n\n")
		fmt.Fprintf(&b, "- outputs: %d\n", s.Outputs)
		fmt.Fprintf(&b, "- mean: %.6f, median: %.6f, std. dev.: %.6f\n", s.Mean, s.Median, s.StdDev)
		fmt.Fprintf(&b, "- range: %.6f to %.6f\n", s.Min, s.Max)
		fmt.Fprintf(&b, "- riskiest output: `%s`\n", s.Riskiest)
	}
	if len(rep.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range rep.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.Bytes()
}

// HTML renders rep as a complete HTML page.
func HTML(rep *project.Report, decimals int) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Reliability analysis: " + rep.Project,
	})
	return markdown.ToHTML(Markdown(rep, decimals), p, r)
}
