package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"vhevents/internal/app"
	"vhevents/internal/config"
	appLog "vhevents/internal/log"
)

// flagConfig holds CLI flag values; they override the config file.
type flagConfig struct {
	configPath string
	listen     string
	debug      bool
	serve      bool
	printAll   bool
	opts       app.Options
}

func main() {
	os.Exit(run())
}

func run() int {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return 1
	}
	appLog.Init(conf.Env)
	defer appLog.Sync()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"timezone", conf.Timezone,
		"feeds", len(conf.Feeds),
		"rules", len(conf.AllRules()),
		"template", conf.Template,
		"read_file", flags.opts.ReadFile,
		"serve", flags.serve,
	)

	a, err := app.New(conf)
	if err != nil {
		appLog.Error("invalid config", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if flags.serve {
		if err := a.Serve(ctx, flags.opts); err != nil {
			appLog.Error("serve failed", err)
			return 1
		}
		appLog.Info("vhevents exiting")
		return 0
	}

	year, month := a.Month(flags.opts)
	appLog.Info("selected month", "year", year, "month", int(month), "all", flags.opts.All)

	res, err := a.Run(ctx, flags.opts)
	if err != nil {
		// Already logged with its run ID.
		return 1
	}
	app.PrintSummary(os.Stdout, res, flags.printAll)

	if err := a.WriteOutputs(res, flags.opts); err != nil {
		appLog.Error("failed to write outputs", err)
		return 1
	}
	return 0
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yml", "Path to config file")
	flag.StringVar(&cfg.opts.ReadFile, "read-file", "", "Read iCal data from this file instead of the configured feeds")
	flag.IntVar(&cfg.opts.Year, "year", 0, "Year to select (default: current)")
	flag.IntVar(&cfg.opts.Month, "month", 0, "Month to select, 1-12 (default: current)")
	flag.BoolVar(&cfg.opts.NextMonth, "next-month", false, "Select the month after the chosen one")
	flag.BoolVar(&cfg.opts.All, "all", false, "Select every event regardless of date")
	flag.BoolVar(&cfg.printAll, "print-all", false, "Print every selected event")
	flag.StringVar(&cfg.opts.JSONOutput, "json", "", "Write the weekly table as JSON to this path (% becomes YYYY-MM)")
	flag.StringVar(&cfg.opts.XLSXOutput, "xlsx", "", "Write the spreadsheet to this path (% becomes YYYY-MM)")
	flag.StringVar(&cfg.opts.Template, "template", "", "Spreadsheet template (overrides config)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&cfg.serve, "serve", false, "Refresh on the configured schedule and serve results over HTTP")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")

	flag.Parse()

	return cfg
}
