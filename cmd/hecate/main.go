// Package main implements the hecate command: it compiles a YAML problem
// description into a deal.II simulation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/njchilds90/hecate"
	"github.com/njchilds90/hecate/codegen"
	"github.com/njchilds90/hecate/codegen/dealii"
	"github.com/njchilds90/hecate/internal/config"
	"github.com/njchilds90/hecate/internal/logger"
	"github.com/njchilds90/hecate/internal/watch"
	"github.com/njchilds90/hecate/schema"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := config.Load()
	if cfg.LogLevel == logger.LevelDebug && cfg.LogFormat == "text" {
		logger.InitDev()
	} else {
		logger.Init(cfg.Logger())
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "gen":
		err = gen(cfg, os.Args[2:])
	case "parse":
		err = parse(os.Args[2:])
	case "pipeline":
		err = pipeline(os.Args[2:])
	case "version":
		fmt.Printf("hecate version %s\n", version)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`hecate - Generate deal.II simulations from PDE descriptions

Usage:
    hecate gen <schema.yaml> [options]   Generate main.cpp and CMakeLists.txt
    hecate parse <expression>            Parse an expression or equation
    hecate pipeline <schema.yaml>        Show the transformed system
    hecate version                       Show version
    hecate help                          Show this help message

Options for gen:
    -o <dir>        Output directory (default: $HECATE_OUT_DIR or build)
    -mpi            Enable MPI
    -debug          Debug build, embed the transformed system in main.cpp
    -matrix-free    Request matrix-free generation (unsupported)
    -watch          Regenerate whenever the schema file changes

Environment:
    HECATE_LOG_LEVEL, HECATE_LOG_FORMAT, HECATE_MPI, HECATE_DEBUG,
    HECATE_MATRIX_FREE, HECATE_OUT_DIR, HECATE_WATCH_DEBOUNCE_MS`)
}

// ============================================================
// gen
// ============================================================

func gen(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	out := fs.String("o", cfg.OutDir, "output directory")
	mpi := fs.Bool("mpi", cfg.MPI, "enable MPI")
	debug := fs.Bool("debug", cfg.Debug, "debug build")
	matrixFree := fs.Bool("matrix-free", cfg.MatrixFree, "matrix-free generation")
	watching := fs.Bool("watch", false, "regenerate on change")

	// the schema path may come before the flags
	var path string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		path, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if path == "" {
		if fs.NArg() == 0 {
			return errors.New("no schema file")
		}
		path = fs.Arg(0)
	}

	genCfg := codegen.GenConfig{MPI: *mpi, Debug: *debug, MatrixFree: *matrixFree}
	run := func() error { return generate(path, *out, genCfg) }

	if !*watching {
		return run()
	}
	if err := run(); err != nil {
		logger.Error("Generation failed", "schema", path, "error", err)
	}
	return watchSchema(path, cfg, run)
}

func generate(path, out string, cfg codegen.GenConfig) error {
	p, err := schema.Load(path)
	if err != nil {
		return err
	}
	artifacts, err := codegen.Generate(p, dealii.New(), cfg)
	if err != nil {
		return err
	}
	if err := artifacts.WriteToDir(out); err != nil {
		return err
	}
	logger.Info("Generated simulation", "schema", path, "dir", out)
	return nil
}

func watchSchema(path string, cfg config.Config, run func() error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.With("schema", path)
	w, err := watch.New(cfg.WatchDebounce, func(string) {
		log.Info("Schema changed, regenerating")
		if err := run(); err != nil {
			log.Error("Generation failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(path); err != nil {
		return err
	}

	log.Info("Watching schema")
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ============================================================
// parse and pipeline
// ============================================================

func parse(args []string) error {
	if len(args) == 0 {
		return errors.New("no expression")
	}
	text := strings.Join(args, " ")
	if strings.Contains(text, "=") {
		eq, err := hecate.ParseEquation(text)
		if err != nil {
			return err
		}
		fmt.Println(eq)
		return nil
	}
	e, err := hecate.Parse(text)
	if err != nil {
		return err
	}
	fmt.Println(e)
	return nil
}

func pipeline(args []string) error {
	if len(args) == 0 {
		return errors.New("no schema file")
	}
	p, err := schema.Load(args[0])
	if err != nil {
		return err
	}
	text, err := codegen.Describe(p)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}
