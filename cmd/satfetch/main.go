// Command satfetch loads a satellite group (or one satellite) through the
// catalog client and writes it to stdout as JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/sat-catalog-client/internal/config"
	"github.com/Sternrassler/sat-catalog-client/pkg/client"
	"github.com/Sternrassler/sat-catalog-client/pkg/logging"
	"github.com/Sternrassler/sat-catalog-client/pkg/pagination"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

type options struct {
	configPath  string
	group       string
	id          string
	target      int
	pageSize    int
	force       bool
	cancellable bool
	timeout     time.Duration
	summary     bool
}

// summary is written instead of the records when -summary is set.
type summary struct {
	Group      string   `json:"group"`
	Records    int      `json:"records"`
	Pages      int      `json:"pages"`
	Offsets    []int    `json:"offsets"`
	Exhausted  bool     `json:"exhausted"`
	Origin     string   `json:"origin"`
	FailedOver bool     `json:"failed_over"`
	Duration   string   `json:"duration"`
	Error      string   `json:"error,omitempty"`
	Sample     []string `json:"sample,omitempty"`
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("satfetch failed")
	}
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("satfetch", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", os.Getenv("SATCAT_CONFIG"), "path to YAML config file")
	fs.StringVar(&opts.group, "group", "", "satellite group to load (default: server default group)")
	fs.StringVar(&opts.id, "id", "", "look up a single NORAD catalog number instead of a group")
	fs.IntVar(&opts.target, "target", 0, "number of records to load (0 = whole group)")
	fs.IntVar(&opts.pageSize, "page-size", 0, "records per page (0 = configured page size)")
	fs.BoolVar(&opts.force, "force", false, "bypass the client cache")
	fs.BoolVar(&opts.cancellable, "cancellable", false, "abort in-flight calls on interrupt")
	fs.DurationVar(&opts.timeout, "timeout", 0, "overall deadline (0 = none)")
	fs.BoolVar(&opts.summary, "summary", false, "print a load summary instead of the records")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.target < 0 {
		fmt.Fprintln(fs.Output(), "-target must be >= 0")
		return options{}, errors.New("invalid target")
	}
	if opts.pageSize < 0 {
		fmt.Fprintln(fs.Output(), "-page-size must be >= 0")
		return options{}, errors.New("invalid page size")
	}

	return opts, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.LoggingOptions("satfetch"))

	if err := cfg.ValidateClient(); err != nil {
		return err
	}

	satClient, err := client.New(cfg.ClientOptions())
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer satClient.Close()

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	fetchOpts := client.FetchOptions{Cancellable: opts.cancellable, ForceRefresh: opts.force}

	if opts.id != "" {
		record, err := satClient.FetchSatellite(ctx, opts.id, fetchOpts)
		if err != nil {
			return fmt.Errorf("fetch satellite %s: %w", opts.id, err)
		}
		return writeJSON(out, record)
	}

	group := opts.group
	if group == "" {
		group = cfg.Server.DefaultGroup
	}

	loaderCfg := cfg.LoaderOptions()
	if opts.pageSize > 0 {
		loaderCfg.PageSize = opts.pageSize
	}

	result, loadErr := pagination.NewLoader(satClient, loaderCfg).Load(ctx, group, pagination.Options{
		Target:       opts.target,
		ForceRefresh: opts.force,
		Cancellable:  opts.cancellable,
	})
	if result == nil {
		return loadErr
	}

	log.Info().
		Str("group", group).
		Int("records", len(result.Records)).
		Int("pages", result.Pages).
		Str("origin", string(satClient.ActiveOrigin())).
		Bool("failed_over", satClient.FailedOver()).
		Dur("duration", result.Duration).
		Msg("Group loaded")

	if opts.summary {
		s := summary{
			Group:      group,
			Records:    len(result.Records),
			Pages:      result.Pages,
			Offsets:    result.Offsets,
			Exhausted:  result.Exhausted,
			Origin:     string(satClient.ActiveOrigin()),
			FailedOver: satClient.FailedOver(),
			Duration:   result.Duration.String(),
		}
		for i, r := range result.Records {
			if i == 5 {
				break
			}
			s.Sample = append(s.Sample, r.ObjectName)
		}
		if loadErr != nil {
			s.Error = loadErr.Error()
		}
		if err := writeJSON(out, s); err != nil {
			return err
		}
		return loadErr
	}

	if loadErr != nil {
		return loadErr
	}
	return writeJSON(out, result.Records)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
