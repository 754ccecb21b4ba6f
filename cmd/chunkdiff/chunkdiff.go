package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/nicolagi/chunkdiff"
	"github.com/nicolagi/chunkdiff/internal/config"
	log "github.com/sirupsen/logrus"
)

var (
	// To set this at build time, use go build -ldflags '-X main.version=something'.
	version = "unknown"

	// Flag sets are associated with the fields of a corresponding context struct. The global context is for flags
	// that are part of all flag sets, that is, all sub-commands.
	globalContext struct {
		base     string
		logLevel string
	}

	outputContext struct {
		format  string
		context int
		width   int
		color   bool
		names   bool
	}
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&globalContext.base, "base", config.DefaultBaseDirectoryPath, "`directory` for configuration and stored content")
	var levels []string
	for _, l := range log.AllLevels {
		levels = append(levels, l.String())
	}
	fs.StringVar(&globalContext.logLevel, "verbosity", "warning", "sets the log `level`, among "+strings.Join(levels, ", "))
	return fs
}

// Flags for the commands producing a diff.
func newOutputFlagSet(name string) *flag.FlagSet {
	fs := newFlagSet(name)
	fs.StringVar(&outputContext.format, "f", "unified", "output `format`: unified, side, or records")
	fs.IntVar(&outputContext.context, "U", 3, "number of unified context `lines`")
	fs.IntVar(&outputContext.width, "W", 130, "side-by-side output width in `columns`")
	fs.BoolVar(&outputContext.color, "color", false, "highlight intraline changes in side-by-side output")
	fs.BoolVar(&outputContext.names, "N", false, "print file names in unified output headers")
	return fs
}

func exitUsage(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	_, _ = fmt.Fprintf(os.Stderr, `Usage: %s COMMAND [ARGS]

Commands:

	diff: compare two files

		chunkdiff diff [-f format] ORIG MOD

		Exits with status 1 if the files differ, like diff(1).

	init: initializes configuration given the base directory
	interdiff: compare two diffs of the same change

		chunkdiff interdiff [-f format] ORIG1 MOD1 ORIG2 MOD2

		Lines of MOD1 and MOD2 are compared; each is tagged with whether it
		differs between the two diffs and whether its own diff changed it.

	put: store files in the content store and print their keys
	show: compare two files from the content store, given their keys
	version: show version information
`, os.Args[0])
	os.Exit(2)
}

func main() {
	diffFlags := newOutputFlagSet("diff")
	interdiffFlags := newOutputFlagSet("interdiff")
	showFlags := newOutputFlagSet("show")

	// For all commands that don't take flags.
	emptyFlags := newFlagSet("empty")

	if len(os.Args) < 2 {
		exitUsage("Command name required")
	}

	switch cmd := os.Args[1]; cmd {
	case "diff":
		// Ignoring error - here and in all other cases below - because we configure flag sets to exit on error.
		_ = diffFlags.Parse(os.Args[2:])
		if narg := diffFlags.NArg(); narg != 2 {
			exitUsage(fmt.Sprintf("diff: 2 args expected, got %d", narg))
		}
	case "interdiff":
		_ = interdiffFlags.Parse(os.Args[2:])
		if narg := interdiffFlags.NArg(); narg != 4 {
			exitUsage(fmt.Sprintf("interdiff: 4 args expected, got %d", narg))
		}
	case "show":
		_ = showFlags.Parse(os.Args[2:])
		if narg := showFlags.NArg(); narg != 2 {
			exitUsage(fmt.Sprintf("show: 2 args expected, got %d", narg))
		}
	case "init", "version":
		_ = emptyFlags.Parse(os.Args[2:])
		if narg := emptyFlags.NArg(); narg != 0 {
			exitUsage(fmt.Sprintf("%s: no args expected, got %d", cmd, narg))
		}
	case "put":
		_ = emptyFlags.Parse(os.Args[2:])
		if emptyFlags.NArg() == 0 {
			exitUsage("put: at least one file expected")
		}
	default:
		exitUsage(fmt.Sprintf("%q: command not recognized", cmd))
	}

	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.JSONFormatter{})
	ll, err := log.ParseLevel(globalContext.logLevel)
	if err != nil {
		log.Fatalf("Could not parse log level %q: %v", globalContext.logLevel, err)
	}
	log.SetLevel(ll)

	switch os.Args[1] {
	case "init":
		if err := config.Initialize(globalContext.base); err != nil {
			log.Fatalf("Could not initialize config in %q: %v", globalContext.base, err)
		}
		return
	case "version":
		fmt.Println(version)
		return
	}

	cfg, err := loadConfig(globalContext.base)
	if err != nil {
		log.Fatalf("Could not load config from %q: %v", globalContext.base, err)
	}
	cfg.LogLevel = globalContext.logLevel
	engine, err := chunkdiff.NewFromConfig(cfg, chunkdiff.WithLogger(log.StandardLogger()))
	if err != nil {
		log.Fatalf("Could not set up: %v", err)
	}
	status := 0
	defer func() {
		if err := engine.Close(); err != nil {
			log.WithField("cause", err).Error("Could not close content store")
		}
		os.Exit(status)
	}()

	ctx := context.Background()
	switch cmd := os.Args[1]; cmd {
	case "diff":
		cmdlog := log.WithField("op", cmd)
		orig, mod := mustRead(cmdlog, diffFlags.Arg(0)), mustRead(cmdlog, diffFlags.Arg(1))
		a, err := engine.Diff(ctx, orig, mod)
		if err != nil {
			cmdlog.WithField("cause", err).Error("Could not diff")
			status = 2
			return
		}
		status = output(cmdlog, a, diffFlags.Arg(0), diffFlags.Arg(1))

	case "interdiff":
		cmdlog := log.WithField("op", cmd)
		var diffs [2]*chunkdiff.Artifact
		for i := range diffs {
			orig := mustRead(cmdlog, interdiffFlags.Arg(2*i))
			mod := mustRead(cmdlog, interdiffFlags.Arg(2*i+1))
			if diffs[i], err = engine.Diff(ctx, orig, mod); err != nil {
				cmdlog.WithField("cause", err).Error("Could not diff")
				status = 2
				return
			}
		}
		a, err := engine.Interdiff(ctx, diffs[0], diffs[1])
		if err != nil {
			cmdlog.WithField("cause", err).Error("Could not compute interdiff")
			status = 2
			return
		}
		status = output(cmdlog, a, interdiffFlags.Arg(1), interdiffFlags.Arg(3))

	case "put":
		cmdlog := log.WithField("op", cmd)
		for _, name := range emptyFlags.Args() {
			key, err := engine.Put(mustRead(cmdlog, name))
			if err != nil {
				cmdlog.WithFields(log.Fields{"file": name, "cause": err}).Error("Could not store")
				status = 2
				return
			}
			fmt.Printf("%s %s\n", key, name)
		}

	case "show":
		cmdlog := log.WithField("op", cmd)
		a, err := engine.DiffStored(ctx, chunkdiff.ContentKey(showFlags.Arg(0)), chunkdiff.ContentKey(showFlags.Arg(1)))
		if err != nil {
			cmdlog.WithField("cause", err).Error("Could not diff stored content")
			status = 2
			return
		}
		status = output(cmdlog, a, showFlags.Arg(0), showFlags.Arg(1))

	default:
		panic("not reached")
	}
}

// loadConfig falls back to the defaults when the base directory has not
// been initialized.
func loadConfig(base string) (*config.C, error) {
	c, err := config.Load(base)
	if errors.Is(err, os.ErrNotExist) {
		log.WithField("base", base).Debug("No configuration, using defaults")
		return config.Default(), nil
	}
	return c, err
}

func mustRead(logger *log.Entry, name string) []byte {
	var (
		b   []byte
		err error
	)
	if name == "-" {
		b, err = ioutil.ReadAll(os.Stdin)
	} else {
		b, err = ioutil.ReadFile(name)
	}
	if err != nil {
		logger.WithFields(log.Fields{
			"file":  name,
			"cause": err,
		}).Fatal("Could not read file")
	}
	return b
}

// output renders a and returns the exit status.
func output(logger *log.Entry, a *chunkdiff.Artifact, origName, modName string) int {
	if err := render(os.Stdout, a, origName, modName); err != nil {
		logger.WithField("cause", err).Error("Could not write output")
		return 2
	}
	if a.Summary.Changed() {
		return 1
	}
	return 0
}

func render(w io.Writer, a *chunkdiff.Artifact, origName, modName string) error {
	switch outputContext.format {
	case "unified":
		opts := chunkdiff.UnifiedOptions{ContextLines: outputContext.context}
		if outputContext.names {
			opts.OrigName, opts.ModName = origName, modName
		}
		return chunkdiff.WriteUnified(w, a, opts)
	case "side":
		return chunkdiff.WriteSideBySide(w, a, chunkdiff.SideBySideOptions{
			Width:        outputContext.width,
			ContextLines: outputContext.context,
			Color:        outputContext.color,
		})
	case "records":
		return chunkdiff.WriteRecords(w, a)
	default:
		return fmt.Errorf("unknown output format %q", outputContext.format)
	}
}
