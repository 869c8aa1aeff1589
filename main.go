package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chazu/orienteer/pkg/config"
	"github.com/chazu/orienteer/pkg/logger"
	"github.com/chazu/orienteer/pkg/store"
)

const usage = `usage: orienteer [flags] <model.stl | model.3mf | primitive:NAME[:SIZE]>

Loads a model, seats it on the build plate, searches for a low-support
orientation unless one was saved before, and prints the overhang report.
`

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) != 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "orienteer: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging)
	defer logger.Sync()

	var st store.Store = store.NewMemory()
	if cfg.Store.Path != "" {
		st = store.NewFile(cfg.Store.Path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := NewApp(cfg, st)
	app.startup(ctx)
	defer app.Close()

	if err := run(app, args[0], os.Stdout); err != nil {
		logger.Error("run failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "orienteer: %v\n", err)
		os.Exit(1)
	}
}

// run drives one model through load, orientation and analysis.
func run(app *App, target string, w io.Writer) error {
	var loaded LoadResult
	if name, size, ok, err := parsePrimitive(target); err != nil {
		return err
	} else if ok {
		loaded = app.LoadPrimitive(name, size)
	} else {
		loaded = app.LoadModel(target)
	}
	if loaded.Error != "" {
		return errors.New(loaded.Error)
	}
	for _, warn := range loaded.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	fmt.Fprintf(w, "model:    %s (%d triangles)\n", loaded.Model.Name, loaded.Model.Triangles)

	if loaded.Restored {
		fmt.Fprintln(w, "orient:   restored saved orientation")
	} else {
		res := app.AutoOrient()
		if res.Error != "" {
			fmt.Fprintf(w, "warning: %s\n", res.Error)
		}
		fmt.Fprintf(w, "orient:   %d directions evaluated, cost %.2fmm²", res.Evaluated, res.Cost)
		if res.TimedOut {
			fmt.Fprint(w, " (stopped early)")
		}
		fmt.Fprintln(w)
	}

	a := app.Settle()
	report(w, a)
	if a.Error != "" {
		return errors.New(a.Error)
	}
	return nil
}

// parsePrimitive recognizes "primitive:NAME[:SIZE]". SIZE defaults to 20mm.
func parsePrimitive(target string) (name string, size float64, ok bool, err error) {
	rest, found := strings.CutPrefix(target, "primitive:")
	if !found {
		return "", 0, false, nil
	}
	name, sizeStr, hasSize := strings.Cut(rest, ":")
	size = 20
	if hasSize {
		size, err = strconv.ParseFloat(sizeStr, 64)
		if err != nil {
			return "", 0, false, errors.Wrapf(err, "primitive size %q", sizeStr)
		}
	}
	return name, size, true, nil
}

func report(w io.Writer, a AnalysisData) {
	r, t := a.Orientation.Rotation, a.Orientation.Translation
	fmt.Fprintf(w, "rotation: [%.4f %.4f %.4f %.4f]\n", r[0], r[1], r[2], r[3])
	fmt.Fprintf(w, "position: [%.2f %.2f %.2f]\n", t[0], t[1], t[2])
	fmt.Fprintf(w, "status:   %s\n", a.Status)
	fmt.Fprintf(w, "overhang: %d faces, %.2fmm² projected\n", len(a.FaceIndices), a.ProjectedArea)
	fmt.Fprintf(w, "support:  %.1fmm³, %.2fg\n", a.SupportVolume, a.SupportWeight)
	if a.InBounds {
		fmt.Fprintln(w, "bounds:   fits the build volume")
	} else {
		for _, v := range a.Violations {
			fmt.Fprintf(w, "bounds:   %s\n", v)
		}
	}
	if a.Warning != "" {
		fmt.Fprintf(w, "warning: %s\n", a.Warning)
	}
}
