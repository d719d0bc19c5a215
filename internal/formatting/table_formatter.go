package formatting

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"testrig/internal/module"
	"testrig/internal/precondition"
	"testrig/internal/reporter"
	"testrig/internal/resource"
	"testrig/internal/testcase"
	"testrig/internal/testlist"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) *TableFormatter {
	if options.Format == "" {
		options.Format = FormatTable
	}
	return &TableFormatter{options: options}
}

// SetOptions updates the formatter options
func (f *TableFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}

// Stats prints the case and leaf-step counters of a run.
func (f *TableFormatter) Stats(cases, steps reporter.Stats) error {
	if f.options.structured() {
		return f.emit(map[string]reporter.Stats{"cases": cases, "steps": steps})
	}

	t := f.createTable()
	t.AppendHeader(table.Row{"", "PASS", "FAIL", "ERROR", "WARNING", "EXCEPTION", "TOTAL"})
	for _, row := range []struct {
		label string
		s     reporter.Stats
	}{{"Cases", cases}, {"Steps", steps}} {
		t.AppendRow(table.Row{
			f.header(row.label),
			f.count(row.s.Pass, reporter.StatusPass),
			f.count(row.s.Fail, reporter.StatusFail),
			f.count(row.s.Error, reporter.StatusError),
			f.count(row.s.Warning, reporter.StatusWarning),
			f.count(row.s.Exception, reporter.StatusException),
			row.s.Total(),
		})
	}
	t.Render()
	return nil
}

// Ledger prints the per-case outcome of a run in execution order.
func (f *TableFormatter) Ledger(results []precondition.Result) error {
	if f.options.structured() {
		return f.emit(results)
	}
	if len(results) == 0 {
		f.emptyMessage("No cases ran")
		return nil
	}

	t := f.createTable()
	t.AppendHeader(table.Row{"CASE", "PRIORITY", "RESULT"})
	for _, r := range results {
		status := reporter.StatusFail
		if r.Passed {
			status = reporter.StatusPass
		}
		t.AppendRow(table.Row{r.Name, r.Priority, f.status(status)})
	}
	t.Render()
	return nil
}

type deviceView struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	PreConnect  bool           `json:"preConnect"`
	Properties  map[string]any `json:"properties,omitempty"`
	Links       []string       `json:"links,omitempty"`
}

// Devices prints the devices of a pool and their links.
func (f *TableFormatter) Devices(devices []*resource.Device, reserved *resource.Reservation) error {
	views := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		v := deviceView{Name: d.Name, Type: d.Type, Description: d.Description, PreConnect: d.PreConnect, Properties: d.Properties}
		for _, name := range d.PortNames() {
			p := d.Ports[name]
			for _, remote := range p.Remotes {
				v.Links = append(v.Links, p.Ref().String()+" -> "+remote.String())
			}
		}
		views = append(views, v)
	}

	if f.options.structured() {
		return f.emit(map[string]any{"devices": views, "reserved": reserved})
	}
	if len(views) == 0 {
		f.emptyMessage("No devices found")
		return nil
	}

	t := f.createTable()
	t.AppendHeader(table.Row{"NAME", "TYPE", "PRE-CONNECT", "PROPERTIES", "LINKS"})
	for _, v := range views {
		t.AppendRow(table.Row{f.header(v.Name), v.Type, v.PreConnect, Truncate(formatProperties(v.Properties), 60), strings.Join(v.Links, "\n")})
	}
	t.Render()
	if reserved != nil {
		fmt.Fprintf(f.options.writer(), "Reserved by %s since %s\n", reserved.Owner, reserved.Timestamp)
	}
	return nil
}

// Cases prints a case catalogue.
func (f *TableFormatter) Cases(metas []testcase.Meta) error {
	if f.options.structured() {
		return f.emit(metas)
	}
	if len(metas) == 0 {
		f.emptyMessage("No cases registered")
		return nil
	}

	t := f.createTable()
	t.AppendHeader(table.Row{"NAME", "PRIORITY", "TYPE", "PRE-TESTS", "DESCRIPTION"})
	for _, m := range metas {
		t.AppendRow(table.Row{f.header(m.Name), m.Priority, m.Type.String(), strings.Join(m.PreTests, ","), m.Description})
	}
	t.Render()
	return nil
}

type settingsView struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// SettingFiles prints the settings files stored in dir.
func (f *TableFormatter) SettingFiles(dir string, names []string) error {
	if f.options.structured() {
		return f.emit(settingsView{Dir: dir, Files: names})
	}
	if len(names) == 0 {
		f.emptyMessage("No settings in " + dir)
		return nil
	}

	t := f.createTable()
	t.AppendHeader(table.Row{"SETTINGS"})
	for _, n := range names {
		t.AppendRow(table.Row{f.header(n)})
	}
	t.Render()
	return nil
}

type listView struct {
	Path     string            `json:"path"`
	Cases    []string          `json:"cases"`
	Settings testlist.Settings `json:"settings"`
}

// TestList prints a list and its sub-lists, one row per list.
func (f *TableFormatter) TestList(tl *testlist.TestList) error {
	var views []listView
	tl.Walk(func(l *testlist.TestList, path []string) {
		views = append(views, listView{Path: strings.Join(path, " / "), Cases: l.Cases, Settings: l.Settings})
	})
	if f.options.structured() {
		return f.emit(views)
	}

	t := f.createTable()
	t.AppendHeader(table.Row{"LIST", "CASES", "RUN TYPE", "PRIORITIES", "FOLLOW PRIORITY"})
	for _, v := range views {
		runType := v.Settings.RunType
		if runType == 0 {
			runType = testcase.TypeAll
		}
		t.AppendRow(table.Row{f.header(v.Path), strings.Join(v.Cases, "\n"), runType.String(), fmt.Sprint(v.Settings.PriorityToRun), v.Settings.FollowPriority})
	}
	t.Render()
	return nil
}

// Modules prints a module list with each module's phase.
func (f *TableFormatter) Modules(entries []module.Entry, phases map[string]module.Phase) error {
	if f.options.structured() {
		return f.emit(entries)
	}
	if len(entries) == 0 {
		f.emptyMessage("No modules configured")
		return nil
	}

	t := f.createTable()
	t.AppendHeader(table.Row{"NAME", "PHASE", "SETTING FILE"})
	for _, e := range entries {
		phase := "-"
		if p, ok := phases[e.Name]; ok {
			phase = p.String()
		}
		t.AppendRow(table.Row{f.header(e.Name), phase, e.SettingFile})
	}
	t.Render()
	return nil
}

// Report prints the result tree.
func (f *TableFormatter) Report(root *reporter.Node) error {
	if f.options.structured() {
		return f.emit(root)
	}
	_, err := io.WriteString(f.options.writer(), root.Text())
	return err
}

// Helper methods

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.writer())
	if f.options.Format == FormatPlain {
		t.SetStyle(table.StyleLight)
		t.Style().Options = table.OptionsNoBordersAndSeparators
		return t
	}
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) emit(v any) error {
	var out string
	if f.options.Format == FormatJSON {
		out = PrettyJSON(v) + "\n"
	} else {
		out = PrettyYAML(v)
	}
	_, err := io.WriteString(f.options.writer(), out)
	return err
}

func (f *TableFormatter) header(s string) string {
	if f.options.Format == FormatPlain {
		return s
	}
	return text.FgHiCyan.Sprint(s)
}

func (f *TableFormatter) status(s reporter.Status) string {
	if f.options.Format == FormatPlain {
		return s.String()
	}
	return StatusColors(s).Sprint(s.String())
}

func (f *TableFormatter) count(n int, s reporter.Status) string {
	if n == 0 || f.options.Format == FormatPlain {
		return fmt.Sprint(n)
	}
	return StatusColors(s).Sprint(n)
}

// emptyMessage formats empty result messages
func (f *TableFormatter) emptyMessage(message string) {
	if f.options.Format == FormatPlain {
		fmt.Fprintln(f.options.writer(), message)
		return
	}
	fmt.Fprintln(f.options.writer(), text.FgYellow.Sprint(message))
}

func formatProperties(props map[string]any) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, props[k]))
	}
	return strings.Join(parts, " ")
}
