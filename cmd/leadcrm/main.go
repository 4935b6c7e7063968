// Command leadcrm manages leads, clients, tasks and campaigns from the shell.
// Each invocation opens the configured store, runs one operation and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"

	"leadcrm/internal/config"
	"leadcrm/internal/core"
	"leadcrm/pkg/domain"
)

var exitFunc = os.Exit

const usageText = `usage: leadcrm [-env FILE] [-audit] [-trace] [-metrics] COMMAND [ARGS]

commands:
  dashboard
  pipeline
  leads list [-status S] [-q Q]
  leads add -name N [-email E] [-phone P] [-status S] [-source S] [-tags a,b] [-notes N]
  leads edit -id ID [-name N] [-email E] [-phone P] [-status S] [-source S] [-tags a,b] [-notes N]
  leads delete -id ID
  leads move -id ID -stage S
  leads import -file F
  leads export [-out F]
  stages list | add NAME | remove INDEX
  rules list | add NAME VALUE | remove INDEX
  tasks list | add -title T [-due D] [-priority P] | toggle -id ID | delete -id ID
  tasks edit -id ID [-title T] [-due D] [-priority P] [-status S] [-notes N]
  clients list | add -name N [-company C] [-value V] | delete -id ID
  clients edit -id ID [-name N] [-company C] [-value V] [-status S] [-notes N]
  campaigns list | add -name N [-start D] [-end D] | delete -id ID
  campaigns edit -id ID [-name N] [-start D] [-end D] [-notes N]
`

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("leadcrm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usageText) }
	envFile := fs.String("env", ".env", "dotenv file loaded before the environment")
	audit := fs.Bool("audit", false, "log an audit entry for every mutation")
	trace := fs.Bool("trace", false, "write a JSON span per operation to stderr")
	metrics := fs.Bool("metrics", false, "print operation counters to stderr on exit (backend from LEADCRM_METRICS)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logger, closer := config.NewLogger(cfg.Log)
	defer func() { _ = closer.Close() }()
	if cfg.Log.File == "" {
		logger.SetOutput(stderr)
	}

	var opts []core.Option
	if *audit {
		opts = append(opts, core.WithAuditRecorder(core.NewLogAuditRecorder(logger)))
	}
	if *trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(stderr)))
	}
	var writeMetrics func(io.Writer) error
	if *metrics {
		switch cfg.Metrics {
		case config.MetricsExpvar:
			rec := core.NewExpvarMetricsRecorder("")
			opts = append(opts, core.WithMetricsRecorder(rec))
			writeMetrics = rec.WriteJSON
		default:
			registry := prometheus.NewRegistry()
			rec, err := core.NewPrometheusRecorder(registry)
			if err != nil {
				fmt.Fprintf(stderr, "metrics: %v\n", err)
				return 1
			}
			opts = append(opts, core.WithMetricsRecorder(rec))
			writeMetrics = func(w io.Writer) error { return core.WriteMetricsSummary(w, registry) }
		}
	}

	ctx := context.Background()
	svc, store, err := core.OpenService(ctx, cfg, logger, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "open store: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()
	if rec := store.Recovery(); rec != nil {
		fmt.Fprintf(stderr, "warning: %v; started from defaults\n", rec)
	}

	err = dispatch(ctx, svc, fs.Args(), stdout)
	if writeMetrics != nil {
		if werr := writeMetrics(stderr); werr != nil {
			fmt.Fprintf(stderr, "metrics: %v\n", werr)
		}
	}
	var uerr usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &uerr):
		fmt.Fprintf(stderr, "%v\n\n%s", err, usageText)
		return 2
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

func dispatch(ctx context.Context, svc *core.Service, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "dashboard":
		return printDashboard(svc, out)
	case "pipeline":
		return printPipeline(svc, out)
	case "leads":
		return leadsCommand(ctx, svc, rest, out)
	case "stages":
		return stagesCommand(ctx, svc, rest, out)
	case "rules":
		return rulesCommand(ctx, svc, rest, out)
	case "tasks":
		return tasksCommand(ctx, svc, rest, out)
	case "clients":
		return clientsCommand(ctx, svc, rest, out)
	case "campaigns":
		return campaignsCommand(ctx, svc, rest, out)
	default:
		return usagef("unknown command %q", cmd)
	}
}

func subcommand(group string, args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, usagef("%s: missing subcommand", group)
	}
	return args[0], args[1:], nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usagef("%s: %v", fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return usagef("%s: unexpected arguments %v", fs.Name(), fs.Args())
	}
	return nil
}

// editFlags parses -id plus the named string flags and returns the id and the
// flags given explicitly, so unset fields keep their stored value.
func editFlags(name string, args []string, fields ...string) (string, map[string]string, error) {
	fs := newFlagSet(name)
	id := fs.String("id", "", "")
	for _, f := range fields {
		fs.String(f, "", "")
	}
	if err := parseFlags(fs, args); err != nil {
		return "", nil, err
	}
	if *id == "" {
		return "", nil, usagef("%s: -id required", name)
	}
	changed := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		if f.Name != "id" {
			changed[f.Name] = f.Value.String()
		}
	})
	return *id, changed, nil
}

func setField(changed map[string]string, name string, field *string) {
	if v, ok := changed[name]; ok {
		*field = v
	}
}

func deleteByID(name string, args []string, del func(id string) error) error {
	fs := newFlagSet(name)
	id := fs.String("id", "", "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return usagef("%s: -id required", name)
	}
	return del(*id)
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func printDashboard(svc *core.Service, out io.Writer) error {
	summary := svc.Dashboard()
	w := newTable(out)
	fmt.Fprintf(w, "Leads:\t%d\n", summary.TotalLeads)
	fmt.Fprintf(w, "Clients:\t%d\n", summary.TotalClients)
	fmt.Fprintf(w, "Open tasks:\t%d\n", summary.OpenTasks)
	fmt.Fprintf(w, "Campaigns:\t%d\n", summary.Campaigns)
	fmt.Fprintf(w, "Due today:\t%d\n", len(summary.DueToday))
	for _, task := range summary.DueToday {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", task.Title, task.Priority, task.Status)
	}
	return w.Flush()
}

func printPipeline(svc *core.Service, out io.Writer) error {
	scores := make(map[string]int)
	for _, sl := range svc.ScoredLeads(nil) {
		scores[sl.Lead.ID] = sl.Score
	}
	for _, col := range svc.Pipeline() {
		fmt.Fprintf(out, "%s (%d)\n", col.Stage, len(col.Leads))
		for _, lead := range col.Leads {
			fmt.Fprintf(out, "  %s  %s  score=%d\n", lead.ID, lead.Name, scores[lead.ID])
		}
	}
	if orphans := svc.OrphanedLeads(); len(orphans) > 0 {
		fmt.Fprintf(out, "removed stages (%d)\n", len(orphans))
		for _, lead := range orphans {
			fmt.Fprintf(out, "  %s  %s  status=%q\n", lead.ID, lead.Name, lead.Status)
		}
	}
	return nil
}

func leadsCommand(ctx context.Context, svc *core.Service, args []string, out io.Writer) error {
	sub, rest, err := subcommand("leads", args)
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		fs := newFlagSet("leads list")
		status := fs.String("status", "", "")
		query := fs.String("q", "", "")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		filter := core.LeadFilter{Status: *status, Query: *query}
		w := newTable(out)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tSCORE\tEMAIL\tPHONE\tTAGS")
		for _, sl := range svc.ScoredLeads(filter.Match) {
			l := sl.Lead
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n", l.ID, l.Name, l.Status, sl.Score, l.Email, l.Phone, strings.Join(l.Tags, ","))
		}
		return w.Flush()
	case "add":
		fs := newFlagSet("leads add")
		var lead core.Lead
		var tags string
		fs.StringVar(&lead.Name, "name", "", "")
		fs.StringVar(&lead.Email, "email", "", "")
		fs.StringVar(&lead.Phone, "phone", "", "")
		fs.StringVar(&lead.Status, "status", "", "")
		fs.StringVar(&lead.Source, "source", "", "")
		fs.StringVar(&lead.Notes, "notes", "", "")
		fs.StringVar(&tags, "tags", "", "")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		lead.Tags = core.ParseTags(tags)
		created, err := svc.CreateLead(ctx, lead)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, created.ID)
		return nil
	case "edit":
		id, changed, err := editFlags("leads edit", rest, "name", "email", "phone", "status", "source", "tags", "notes")
		if err != nil {
			return err
		}
		_, err = svc.UpdateLead(ctx, id, func(l *core.Lead) error {
			setField(changed, "name", &l.Name)
			setField(changed, "email", &l.Email)
			setField(changed, "phone", &l.Phone)
			setField(changed, "status", &l.Status)
			setField(changed, "source", &l.Source)
			setField(changed, "notes", &l.Notes)
			if tags, ok := changed["tags"]; ok {
				l.Tags = core.ParseTags(tags)
			}
			return nil
		})
		return err
	case "delete":
		return deleteByID("leads delete", rest, func(id string) error { return svc.DeleteLead(ctx, id) })
	case "move":
		fs := newFlagSet("leads move")
		id := fs.String("id", "", "")
		stage := fs.String("stage", "", "")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if *id == "" || *stage == "" {
			return usagef("leads move: -id and -stage required")
		}
		return svc.MoveLead(ctx, *id, *stage)
	case "import":
		fs := newFlagSet("leads import")
		path := fs.String("file", "", "")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if *path == "" {
			return usagef("leads import: -file required")
		}
		f, err := os.Open(*path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		n, err := svc.ImportLeadsFrom(ctx, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "imported %d leads\n", n)
		return nil
	case "export":
		fs := newFlagSet("leads export")
		path := fs.String("out", "", "")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if *path == "" {
			if err := svc.ExportLeadsTo(out); err != nil {
				return err
			}
			_, err := fmt.Fprintln(out)
			return err
		}
		data, err := svc.ExportLeads()
		if err != nil {
			return err
		}
		return os.WriteFile(*path, data, 0o600)
	default:
		return usagef("leads: unknown subcommand %q", sub)
	}
}

func indexArg(group string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, usagef("%s remove: expected INDEX", group)
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, usagef("%s remove: invalid index %q", group, args[0])
	}
	return idx, nil
}

func stagesCommand(ctx context.Context, svc *core.Service, args []string, out io.Writer) error {
	sub, rest, err := subcommand("stages", args)
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		if len(rest) != 0 {
			return usagef("stages list: unexpected arguments %v", rest)
		}
		for i, stage := range svc.Settings().Stages {
			fmt.Fprintf(out, "%d\t%s\n", i, stage)
		}
		return nil
	case "add":
		if len(rest) != 1 {
			return usagef("stages add: expected NAME")
		}
		return svc.AddStage(ctx, rest[0])
	case "remove":
		idx, err := indexArg("stages", rest)
		if err != nil {
			return err
		}
		return svc.RemoveStage(ctx, idx)
	default:
		return usagef("stages: unknown subcommand %q", sub)
	}
}

func rulesCommand(ctx context.Context, svc *core.Service, args []string, out io.Writer) error {
	sub, rest, err := subcommand("rules", args)
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		if len(rest) != 0 {
			return usagef("rules list: unexpected arguments %v", rest)
		}
		for i, rule := range svc.Settings().ScoringRules {
			fmt.Fprintf(out, "%d\t%s\t%d\n", i, rule.Name, rule.Value)
		}
		return nil
	case "add":
		if len(rest) != 2 {
			return usagef("rules add: expected NAME VALUE")
		}
		// a non-numeric value counts as zero
		value, _ := strconv.Atoi(strings.TrimSpace(rest[1]))
		rule, added, err := svc.AddScoringRule(ctx, rest[0], value)
		if err != nil || !added {
			return err
		}
		fmt.Fprintln(out, rule.ID)
		return nil
	case "remove":
		idx, err := indexArg("rules", rest)
		if err != nil {
			return err
		}
		return svc.RemoveScoringRule(ctx, idx)
	default:
		return usagef("rules: unknown subcommand %q", sub)
	}
}

func tasksCommand(ctx context.Context, svc *core.Service, args []string, out io.Writer) error {
	sub, rest, err := subcommand("tasks", args)
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		if err := parseFlags(newFlagSet("tasks list"), rest); err != nil {
			return err
		}
		w := newTable(out)
		fmt.Fprintln(w, "ID\tTITLE\tDUE\tPRIORITY\tSTATUS")
		for _, task := range svc.ListTasks(nil) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", task.ID, task.Title, task.DueDate, task.Priority, task.Status)
		}
		return w.Flush()
	case "add":
		fs := newFlagSet("tasks add")
		var task core.Task
		var priority string
		fs.StringVar(&task.Title, "title", "", "")
		fs.StringVar(&task.DueDate, "due", "", "")
		fs.StringVar(&task.Notes, "notes", "", "")
		fs.StringVar(&priority, "priority", "", "")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		task.Priority = domain.TaskPriority(priority)
		created, err := svc.CreateTask(ctx, task)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, created.ID)
		return nil
	case "toggle":
		fs := newFlagSet("tasks toggle")
		id := fs.String("id", "", "")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if *id == "" {
			return usagef("tasks toggle: -id required")
		}
		task, err := svc.ToggleTaskStatus(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, task.Status)
		return nil
	case "edit":
		id, changed, err := editFlags("tasks edit", rest, "title", "due", "priority", "status", "notes")
		if err != nil {
			return err
		}
		_, err = svc.UpdateTask(ctx, id, func(t *core.Task) error {
			setField(changed, "title", &t.Title)
			setField(changed, "due", &t.DueDate)
			setField(changed, "notes", &t.Notes)
			if v, ok := changed["priority"]; ok {
				t.Priority = domain.TaskPriority(v)
			}
			if v, ok := changed["status"]; ok {
				t.Status = domain.TaskStatus(v)
			}
			return nil
		})
		return err
	case "delete":
		return deleteByID("tasks delete", rest, func(id string) error { return svc.DeleteTask(ctx, id) })
	default:
		return usagef("tasks: unknown subcommand %q", sub)
	}
}

func clientsCommand(ctx context.Context, svc *core.Service, args []string, out io.Writer) error {
	sub, rest, err := subcommand("clients", args)
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		if err := parseFlags(newFlagSet("clients list"), rest); err != nil {
			return err
		}
		w := newTable(out)
		fmt.Fprintln(w, "ID\tNAME\tCOMPANY\tVALUE\tSTATUS")
		for _, c := range svc.ListClients(nil) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Company, c.Value, c.Status)
		}
		return w.Flush()
	case "add":
		fs := newFlagSet("clients add")
		var client core.Client
		fs.StringVar(&client.Name, "name", "", "")
		fs.StringVar(&client.Company, "company", "", "")
		fs.StringVar(&client.Value, "value", "", "")
		fs.StringVar(&client.Status, "status", "", "")
		fs.StringVar(&client.Notes, "notes", "", "")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		created, err := svc.CreateClient(ctx, client)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, created.ID)
		return nil
	case "edit":
		id, changed, err := editFlags("clients edit", rest, "name", "company", "value", "status", "notes")
		if err != nil {
			return err
		}
		_, err = svc.UpdateClient(ctx, id, func(c *core.Client) error {
			setField(changed, "name", &c.Name)
			setField(changed, "company", &c.Company)
			setField(changed, "value", &c.Value)
			setField(changed, "status", &c.Status)
			setField(changed, "notes", &c.Notes)
			return nil
		})
		return err
	case "delete":
		return deleteByID("clients delete", rest, func(id string) error { return svc.DeleteClient(ctx, id) })
	default:
		return usagef("clients: unknown subcommand %q", sub)
	}
}

func campaignsCommand(ctx context.Context, svc *core.Service, args []string, out io.Writer) error {
	sub, rest, err := subcommand("campaigns", args)
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		if err := parseFlags(newFlagSet("campaigns list"), rest); err != nil {
			return err
		}
		w := newTable(out)
		fmt.Fprintln(w, "ID\tNAME\tSTART\tEND\tSTEPS")
		for _, c := range svc.ListCampaigns(nil) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", c.ID, c.Name, c.StartDate, c.EndDate, len(c.Steps))
		}
		return w.Flush()
	case "add":
		fs := newFlagSet("campaigns add")
		var campaign core.Campaign
		fs.StringVar(&campaign.Name, "name", "", "")
		fs.StringVar(&campaign.StartDate, "start", "", "")
		fs.StringVar(&campaign.EndDate, "end", "", "")
		fs.StringVar(&campaign.Notes, "notes", "", "")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		created, err := svc.CreateCampaign(ctx, campaign)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, created.ID)
		return nil
	case "edit":
		id, changed, err := editFlags("campaigns edit", rest, "name", "start", "end", "notes")
		if err != nil {
			return err
		}
		_, err = svc.UpdateCampaign(ctx, id, func(c *core.Campaign) error {
			setField(changed, "name", &c.Name)
			setField(changed, "start", &c.StartDate)
			setField(changed, "end", &c.EndDate)
			setField(changed, "notes", &c.Notes)
			return nil
		})
		return err
	case "delete":
		return deleteByID("campaigns delete", rest, func(id string) error { return svc.DeleteCampaign(ctx, id) })
	default:
		return usagef("campaigns: unknown subcommand %q", sub)
	}
}
