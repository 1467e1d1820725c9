// Command mailactivate buys and manages SMS-Activate temporary mailboxes from
// the shell. Results are printed as JSON.
//
// Usage:
//
//	mailactivate domains <site>
//	mailactivate buy <site> <domain> [--category zone|popular]
//	mailactivate history [--page N] [--per-page N] [--search EMAIL] [--sort asc|desc]
//	mailactivate wait <id> <email> [--attempts N] [--period DURATION]
//	mailactivate reactivate <id> <email>
//	mailactivate cancel <id> <email>
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	mailactivate "github.com/mailactivate/client-go"
)

const usage = "usage: mailactivate <domains|buy|history|wait|reactivate|cancel> [args]"

// Config holds the process dependencies of run.
type Config struct {
	Stdout io.Writer
	Stderr io.Writer
	// Env replaces the process environment when non-nil.
	Env map[string]string
	// EnvFile is loaded before reading settings. A missing file is ignored.
	EnvFile string
}

// DefaultConfig returns the config for a normal process run.
func DefaultConfig() Config {
	return Config{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		EnvFile: ".env",
	}
}

type command func(ctx context.Context, app *app, args []string) (any, error)

var commands = map[string]command{
	"domains":    runDomains,
	"buy":        runBuy,
	"history":    runHistory,
	"wait":       runWait,
	"reactivate": runReactivate,
	"cancel":     runCancel,
}

type app struct {
	client   *mailactivate.Client
	settings Settings
	logger   *zap.Logger
	stderr   io.Writer
}

func run(args []string, cfg Config) error {
	if len(args) < 2 {
		return fmt.Errorf("%s", usage)
	}
	cmd, ok := commands[args[1]]
	if !ok {
		return fmt.Errorf("unknown command: %s\n%s", args[1], usage)
	}

	settings, err := loadSettings(cfg)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(settings, cfg.Stderr)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer closeLog()
	defer logger.Sync()

	opts := []mailactivate.Option{
		mailactivate.WithTimeout(settings.Timeout),
		mailactivate.WithRetries(settings.Retries),
		mailactivate.WithLogger(logger),
	}
	if settings.BaseURL != "" {
		opts = append(opts, mailactivate.WithBaseURL(settings.BaseURL))
	}

	client, err := mailactivate.New(settings.APIKey, opts...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := cmd(ctx, &app{
		client:   client,
		settings: settings,
		logger:   logger,
		stderr:   cfg.Stderr,
	}, args[2:])
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}

	enc := json.NewEncoder(cfg.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func (a *app) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// DomainOutput is one entry of the domains command output.
type DomainOutput struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Cost     float64 `json:"cost"`
	Count    int     `json:"count"`
}

// ActivationOutput is the JSON form of an activation.
type ActivationOutput struct {
	ID          int64    `json:"id"`
	Email       string   `json:"email"`
	Site        string   `json:"site,omitempty"`
	Status      *int     `json:"status,omitempty"`
	Value       string   `json:"value,omitempty"`
	Cost        *float64 `json:"cost,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	FullMessage string   `json:"fullMessage,omitempty"`
}

func toActivationOutput(a *mailactivate.Activation) ActivationOutput {
	out := ActivationOutput{
		ID:          a.ID,
		Email:       a.Email,
		FullMessage: a.FullMessage,
	}
	if d := a.Details; d != nil {
		out.Site = d.Site
		out.Status = &d.Status
		out.Value = d.Value
		out.Cost = &d.Cost
		if !d.CreatedAt.IsZero() {
			out.CreatedAt = d.CreatedAt.Format(time.RFC3339)
		}
	}
	return out
}

func runDomains(ctx context.Context, a *app, args []string) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("usage: mailactivate domains <site>")
	}

	domains, err := a.client.ListDomains(ctx, args[0])
	if err != nil {
		return nil, err
	}

	out := make([]DomainOutput, 0, len(domains))
	for _, d := range domains {
		out = append(out, DomainOutput{
			Name:     d.Name,
			Category: d.Category.String(),
			Cost:     d.Cost,
			Count:    d.Count,
		})
	}
	return out, nil
}

func runBuy(ctx context.Context, a *app, args []string) (any, error) {
	fs := a.flagSet("buy")
	category := fs.String("category", "popular", "domain category: zone or popular")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 2 {
		return nil, fmt.Errorf("usage: mailactivate buy <site> <domain> [--category zone|popular]")
	}

	var cat mailactivate.DomainCategory
	switch *category {
	case "zone":
		cat = mailactivate.CategoryZone
	case "popular":
		cat = mailactivate.CategoryPopular
	default:
		return nil, fmt.Errorf("invalid category %q: want zone or popular", *category)
	}

	activation, err := a.client.PurchaseMailbox(ctx, fs.Arg(0), mailactivate.NewDomain(fs.Arg(1), cat))
	if err != nil {
		return nil, err
	}
	return toActivationOutput(activation), nil
}

func runHistory(ctx context.Context, a *app, args []string) (any, error) {
	fs := a.flagSet("history")
	page := fs.Int("page", 1, "page number")
	perPage := fs.Int("per-page", 10, "entries per page")
	search := fs.String("search", "", "filter by mailbox email")
	sort := fs.String("sort", mailactivate.SortDesc, "order by id: asc or desc")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, fmt.Errorf("usage: mailactivate history [--page N] [--per-page N] [--search EMAIL] [--sort asc|desc]")
	}

	activations, err := a.client.ListActivations(ctx,
		mailactivate.WithPage(*page),
		mailactivate.WithPerPage(*perPage),
		mailactivate.WithSearch(*search),
		mailactivate.WithSort(*sort),
	)
	if err != nil {
		return nil, err
	}

	out := make([]ActivationOutput, 0, len(activations))
	for _, activation := range activations {
		out = append(out, toActivationOutput(activation))
	}
	return out, nil
}

func runWait(ctx context.Context, a *app, args []string) (any, error) {
	fs := a.flagSet("wait")
	attempts := fs.Int("attempts", a.settings.PollAttempts, "maximum number of checks")
	period := fs.Duration("period", a.settings.PollPeriod, "wait between checks")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	activation, err := parseActivation("wait", fs.Args())
	if err != nil {
		return nil, err
	}

	if _, err := a.client.FetchMessage(ctx, activation,
		mailactivate.WithAttempts(*attempts),
		mailactivate.WithPollPeriod(*period),
	); err != nil {
		return nil, err
	}
	return toActivationOutput(activation), nil
}

func runReactivate(ctx context.Context, a *app, args []string) (any, error) {
	activation, err := parseActivation("reactivate", args)
	if err != nil {
		return nil, err
	}

	oldID := activation.ID
	if _, err := a.client.Reactivate(ctx, activation); err != nil {
		return nil, err
	}
	return struct {
		PreviousID int64 `json:"previousId"`
		ActivationOutput
	}{oldID, toActivationOutput(activation)}, nil
}

func runCancel(ctx context.Context, a *app, args []string) (any, error) {
	activation, err := parseActivation("cancel", args)
	if err != nil {
		return nil, err
	}

	ok, err := a.client.Cancel(ctx, activation)
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": activation.ID, "cancelled": ok}, nil
}

// parseActivation rebuilds an activation from <id> <email> arguments.
func parseActivation(name string, args []string) (*mailactivate.Activation, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("usage: mailactivate %s <id> <email>", name)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid activation id %q", args[0])
	}
	return &mailactivate.Activation{ID: id, Email: args[1]}, nil
}

func fatal(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
	os.Exit(1)
}
