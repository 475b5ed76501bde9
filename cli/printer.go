package cli

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/Scalingo/sclng-repo-search/model"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Printer renders the search states in the terminal
type Printer struct {
	out io.Writer
	err io.Writer

	info    *color.Color
	warning *color.Color
	failure *color.Color
	bold    *color.Color
}

func NewPrinter(out io.Writer, errOut io.Writer, useColors bool) *Printer {
	p := &Printer{
		out:     out,
		err:     errOut,
		info:    color.New(color.FgCyan),
		warning: color.New(color.FgYellow),
		failure: color.New(color.FgRed),
		bold:    color.New(color.Bold),
	}

	for _, c := range []*color.Color{p.info, p.warning, p.failure, p.bold} {
		if useColors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

func (p *Printer) Loading(query string) {
	p.info.Fprintf(p.err, "searching %q...\n", query)
}

func (p *Printer) Retrying(attempt int, maxAttempts int) {
	p.warning.Fprintf(p.err, "retrying (%d/%d)\n", attempt, maxAttempts)
}

// PrintState renders a state. It returns an error for Error and JSONParsingError
// so that the command exits with a failure status
func (p *Printer) PrintState(state model.State) error {
	renderer := stateRenderer{printer: p}
	state.Accept(&renderer)
	return renderer.err
}

// PrintJSON writes the serializable view of state
func (p *Printer) PrintJSON(state model.State) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(model.NewStateView(state))
}

func (p *Printer) printItems(items []model.RepositoryItem) {
	rows := make([][]string, 0, len(items))

	for _, item := range items {
		rows = append(rows, []string{
			p.bold.Sprint(item.Name),
			item.DisplayLanguage(),
			humanize.Comma(item.StargazersCount),
			humanize.Comma(item.WatchersCount),
			humanize.Comma(item.ForksCount),
			humanize.Comma(item.OpenIssuesCount),
			item.HTMLURL(),
		})
	}

	table := tablewriter.NewTable(p.out)
	table.Header([]string{"Name", "Language", "Stars", "Watchers", "Forks", "Open Issues", "URL"})

	if err := table.Bulk(rows); err != nil {
		p.failure.Fprintf(p.err, "unable to render results: %v\n", err)
		return
	}

	if err := table.Render(); err != nil {
		p.failure.Fprintf(p.err, "unable to render results: %v\n", err)
	}
}

// stateRenderer prints one state
type stateRenderer struct {
	printer *Printer
	err     error
}

func (r *stateRenderer) VisitLoading(model.Loading) {
	r.printer.info.Fprintln(r.printer.err, "search in progress")
}

func (r *stateRenderer) VisitSuccess(s model.Success) {
	r.printer.printItems(s.Items)
	r.printer.info.Fprintf(r.printer.err, "%d repositories found\n", len(s.Items))
}

func (r *stateRenderer) VisitEmpty(model.Empty) {
	r.printer.warning.Fprintln(r.printer.out, "no repositories found")
}

func (r *stateRenderer) VisitError(s model.Error) {
	var networkErr *model.NetworkError
	if errors.As(s.Err, &networkErr) {
		r.printer.failure.Fprintln(r.printer.err, networkErr.Error())
	} else {
		r.printer.failure.Fprintf(r.printer.err, "error: %v\n", s.Err)
	}

	r.err = s.Err
}

func (r *stateRenderer) VisitJSONParsingError(s model.JSONParsingError) {
	r.printer.failure.Fprintln(r.printer.err, s.Err.Error())
	r.err = s.Err
}

// isRetryable reports whether a new attempt may give another result
func isRetryable(state model.State) bool {
	visitor := retryableVisitor{}
	state.Accept(&visitor)
	return visitor.retryable
}

type retryableVisitor struct {
	retryable bool
}

func (v *retryableVisitor) VisitLoading(model.Loading) {}

func (v *retryableVisitor) VisitSuccess(model.Success) {}

func (v *retryableVisitor) VisitEmpty(model.Empty) {}

func (v *retryableVisitor) VisitError(model.Error) {
	v.retryable = true
}

func (v *retryableVisitor) VisitJSONParsingError(model.JSONParsingError) {
	v.retryable = true
}
