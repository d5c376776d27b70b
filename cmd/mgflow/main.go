// Command mgflow computes the optical flow between two grayscale frames and
// writes its horizontal and vertical components as images.
//
//	mgflow [flags] frame1 frame2 [outU outV]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/setanarut/mgflow"
	"github.com/setanarut/mgflow/utils"
)

const (
	defaultOutU = "resultU.bmp"
	defaultOutV = "resultV.bmp"
)

type config struct {
	opt      mgflow.Options
	frame1   string
	frame2   string
	outU     string
	outV     string
	baseline bool
	compare  bool
	color    string
	motions  int
	method   utils.MotionMethod
	plot     string
	chart    string
}

var errUsage = errors.New("usage")

// parseArgs turns the command line into a config. Flags given explicitly
// override the values of -config.
func parseArgs(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("mgflow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: mgflow [flags] frame1 frame2 [outU outV]")
		fs.PrintDefaults()
	}

	defaults := mgflow.DefaultOptions()
	configPath := fs.String("config", "", "JSON options file")
	cycle := fs.String("cycle", defaults.Cycle.String(), "Multigrid cycle: v, f or w")
	alpha := fs.Float64("alpha", defaults.Alpha, "Smoothness weight")
	tol := fs.Float64("tol", defaults.Tolerance, "Residual norm at which the solve stops")
	maxIter := fs.Int("maxiter", defaults.MaxIterations, "Maximum number of cycles (sweeps with -baseline)")
	workers := fs.Int("workers", defaults.Workers, "Worker pool size (0 = GOMAXPROCS)")
	baseline := fs.Bool("baseline", false, "Use plain Gauss-Seidel sweeps instead of multigrid")
	compare := fs.Bool("compare", false, "Compare against <frame1 minus 5 bytes>ref_u.bmp / ref_v.bmp")
	colorOut := fs.String("color", "", "Write a colour-coded flow PNG")
	motions := fs.Int("motions", 0, "Report this many dominant motions")
	method := fs.String("motion-method", utils.MotionMethodKMeans.String(), "Dominant motion method: kmeans or dominantcolor")
	plotOut := fs.String("plot", "", "Write a residual convergence PNG")
	chartOut := fs.String("chart", "", "Write a residual convergence HTML chart")

	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	if fs.NArg() != 2 && fs.NArg() != 4 {
		fs.Usage()
		return nil, errUsage
	}

	cfg := &config{
		frame1:   fs.Arg(0),
		frame2:   fs.Arg(1),
		outU:     defaultOutU,
		outV:     defaultOutV,
		baseline: *baseline,
		compare:  *compare,
		color:    *colorOut,
		motions:  *motions,
		plot:     *plotOut,
		chart:    *chartOut,
	}
	if fs.NArg() == 4 {
		cfg.outU, cfg.outV = fs.Arg(2), fs.Arg(3)
	}

	var err error
	if cfg.method, err = utils.ParseMotionMethod(*method); err != nil {
		return nil, err
	}

	cfg.opt = defaults
	if *configPath != "" {
		if cfg.opt, err = mgflow.LoadOptions(*configPath); err != nil {
			return nil, err
		}
	}
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cycle":
			kind, err := mgflow.ParseCycleKind(*cycle)
			if err != nil {
				flagErr = err
				return
			}
			cfg.opt.Cycle = kind
		case "alpha":
			cfg.opt.Alpha = *alpha
		case "tol":
			cfg.opt.Tolerance = *tol
		case "maxiter":
			cfg.opt.MaxIterations = *maxIter
		case "workers":
			cfg.opt.Workers = *workers
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}
	if err := cfg.opt.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config) error {
	a, err := utils.ReadGrayGrid(cfg.frame1)
	if err != nil {
		return err
	}
	b, err := utils.ReadGrayGrid(cfg.frame2)
	if err != nil {
		return err
	}

	start := time.Now()
	solve := mgflow.Solve
	if cfg.baseline {
		solve = mgflow.SolveGaussSeidel
	}
	res, err := solve(ctx, a, b, cfg.opt)
	if err != nil {
		return err
	}
	log.Printf("Total time is %v (%d iterations, residual %g)", time.Since(start), res.Iterations, res.FinalResidual())

	flow := res.Flow
	if cfg.motions > 0 {
		for i, m := range utils.ExtractMotions(flow, cfg.motions, cfg.method) {
			log.Printf("motion %d: u=%.4f v=%.4f weight=%.3f", i, m.U, m.V, m.Weight)
		}
	}
	if cfg.color != "" {
		if err := utils.SaveImage(utils.FlowColorImage(flow, 0), cfg.color); err != nil {
			return err
		}
	}
	if cfg.plot != "" {
		if err := utils.SaveConvergencePlot(res, cfg.plot); err != nil {
			log.Printf("plot warning: %v", err)
		}
	}
	if cfg.chart != "" {
		if err := utils.SaveConvergenceChart(res, cfg.chart); err != nil {
			log.Printf("chart warning: %v", err)
		}
	}

	// The flow lives between pixels; it is exported at frame size with a
	// zero last row and column.
	flow.Normalize()
	if err := utils.WriteFlow(flow.Resize(a.Shape()), cfg.outU, cfg.outV); err != nil {
		return err
	}

	if cfg.compare {
		compareWithReference(flow, cfg.frame1, filepath.Dir(cfg.outU))
	}
	return nil
}

// compareWithReference reports the L2 and Linf error against the reference
// flow and writes the difference images into dir. A missing or mismatched
// reference is reported and skipped.
func compareWithReference(flow *mgflow.FlowField, frame, dir string) {
	refU, refV, err := utils.LoadReference(frame)
	if err == nil {
		refU, refV, err = utils.FitReference(flow, refU, refV)
	}
	if err != nil {
		log.Printf("compare warning: %v", err)
		return
	}
	log.Printf("Difference to reference: %g (L2), %g (Linf)",
		flow.Compare(refU, refV, mgflow.NormL2), flow.Compare(refU, refV, mgflow.NormLInf))

	du, dv := utils.ReferenceDiffs(flow, refU, refV)
	if err := utils.WriteFlow(&mgflow.FlowField{U: du, V: dv}, filepath.Join(dir, "uDiff.bmp"), filepath.Join(dir, "vDiff.bmp")); err != nil {
		log.Printf("compare warning: %v", err)
	}
}

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("mgflow: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		log.Fatalf("mgflow: %v", err)
	}
}
