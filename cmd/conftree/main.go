// Package main is a demonstration host for the configuration tree: it
// builds an option table, applies a config file and command-line options,
// and can live-reload the file on change.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/conftree/internal/conf"
	"github.com/dshills/conftree/internal/conf/loader"
	"github.com/dshills/conftree/internal/conf/notify"
	"github.com/dshills/conftree/internal/conf/opt"
	"github.com/dshills/conftree/internal/conf/watcher"
	"github.com/dshills/conftree/internal/logging"
)

var version = "dev"

func main() {
	os.Exit(run())
}

var networkOptions = &opt.SubOptions{
	Opts: []opt.Option{
		{Name: "timeout", Type: opt.TypeDuration},
		{Name: "retries", Type: opt.TypeInt, Min: 0, Max: 10, HasMin: true, HasMax: true},
		{Name: "proxy", Type: opt.TypeString},
		{Name: "hosts", Type: opt.TypeStringList},
	},
	Defaults: map[string]opt.Value{
		"timeout": {Int: 30e9},
		"retries": {Int: 3},
	},
}

var rootOptions = &opt.SubOptions{
	Opts: []opt.Option{
		{Name: "log-level", Type: opt.TypeChoice, Flags: opt.FlagTermLevel,
			Choices: []string{"debug", "info", "warn", "error"},
			Default: &opt.Value{Str: "info"}},
		{Name: "cache", Type: opt.TypeFlag},
		{Name: "cache-size", Type: opt.TypeInt, Min: 1, Max: 1 << 20, HasMin: true, HasMax: true,
			Default: &opt.Value{Int: 512}},
		{Name: "display-aspect", Type: opt.TypeAspect, Default: &opt.Value{Float: -1}},
		{Name: "network", Type: opt.TypeSubConfig, Sub: networkOptions},
		{Name: "old-cache", Type: opt.TypeAlias, Alias: "cache",
			Deprecation: "use cache instead"},
		{Name: "cache-secs", Type: opt.TypeRemoved,
			RemovedMsg: "use network-timeout instead"},
		{Name: "include", Type: opt.TypeString, NoStorage: true, Flags: opt.FlagFile},
		{Name: "profile", Type: opt.TypeString, NoStorage: true},
		{Name: "show-profile", Type: opt.TypeString, NoStorage: true, Flags: opt.FlagNoConfig},
		{Name: "list-options", Type: opt.TypeFlag, NoStorage: true, Flags: opt.FlagNoConfig},
	},
}

func usage() {
	fmt.Fprintf(os.Stderr, "conftree - configuration tree demo\n\n")
	fmt.Fprintf(os.Stderr, "Usage: conftree [flags] [--option=value ...]\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	fmt.Fprintf(os.Stderr, "  -c, -config <path>   Path to TOML configuration file\n")
	fmt.Fprintf(os.Stderr, "  -watch               Reload the configuration file on change\n")
	fmt.Fprintf(os.Stderr, "  -version             Show version information\n")
	fmt.Fprintf(os.Stderr, "  -h, -help            Show this help\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  conftree --list-options\n")
	fmt.Fprintf(os.Stderr, "  conftree -c app.toml --network-timeout=5s\n")
	fmt.Fprintf(os.Stderr, "  conftree -c app.toml -watch\n")
}

func run() int {
	var configPath string
	var watch, showVersion bool
	var optArgs []string

	// Engine options use the "--name=value" spelling, so host flags are
	// parsed by hand instead of the flag package.
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-c", "-config", "--config":
			i++
			if i >= len(args) {
				fmt.Fprintf(os.Stderr, "Error: %s requires a path\n", arg)
				return 2
			}
			configPath = args[i]
		case "-watch", "--watch":
			watch = true
		case "-version", "--version":
			showVersion = true
		case "-h", "-help", "--help":
			usage()
			return 0
		default:
			if strings.HasPrefix(arg, "--") {
				optArgs = append(optArgs, arg)
				continue
			}
			fmt.Fprintf(os.Stderr, "Error: unexpected argument %q\n", arg)
			usage()
			return 2
		}
	}

	if showVersion {
		fmt.Printf("conftree %s\n", version)
		return 0
	}

	log := logging.New(logging.DefaultConfig())

	cfg := conf.New(rootOptions,
		conf.WithLogger(log),
		conf.WithTopLevel(),
		conf.WithProfiles(),
	)
	defer cfg.Close()
	ld := loader.New(cfg, log)

	cfg.Notifier().Subscribe(func(ch notify.Change) {
		log.Debug("changed %s: %s -> %s (%s)", ch.Name, ch.Old, ch.New, ch.Source)
	})

	if configPath != "" {
		if err := ld.LoadFile(configPath, 0); err != nil {
			if errors.Is(err, conf.ErrExit) {
				return 0
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if err := applyArgs(cfg, optArgs); err != nil {
		if errors.Is(err, conf.ErrExit) {
			return 0
		}
		return 1
	}

	printState(cfg, log)

	if !watch {
		return 0
	}
	if configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -watch requires -config")
		return 1
	}

	w, err := watcher.New(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer w.Close()
	w.OnChange(func(path string) {
		// Command-line values win over reloaded file values.
		if err := ld.LoadFile(path, conf.SetPreserveCmdline); err != nil {
			log.Error("reload failed: %v", err)
			return
		}
		printState(cfg, log)
	})
	if err := w.Watch(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
	return 0
}

// applyArgs applies "--name=value" and "--name" arguments in order. Errors
// are already logged by the tree; the first one aborts.
func applyArgs(cfg *conf.Config, args []string) error {
	for _, arg := range args {
		name := strings.TrimPrefix(arg, "--")
		name, value, _ := strings.Cut(name, "=")
		if err := cfg.SetOptionFlags(name, value, conf.SetFromCmdline); err != nil {
			return err
		}
	}
	return nil
}

func printState(cfg *conf.Config, log *logging.Logger) {
	for _, name := range cfg.OptionNames() {
		text, err := cfg.GetText(name)
		if err != nil {
			continue
		}
		log.Info("%-20s = %s", name, text)
	}
}
