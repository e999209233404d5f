// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/klauspost/cpuid"
	nl "github.com/mlnoga/pixfilter/internal"
	"github.com/mlnoga/pixfilter/internal/filter"
	"github.com/mlnoga/pixfilter/internal/ops"
	opfilter "github.com/mlnoga/pixfilter/internal/ops/filter"
	"github.com/mlnoga/pixfilter/internal/plane"
	"github.com/mlnoga/pixfilter/internal/rest"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")

var out = flag.String("out", "out%d.png", "save output images to `pattern`, where %d expands to the image id. Suffix selects the format")
var log = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")
var threads = flag.Int("threads", 0, "number of images processed in parallel, 0=auto")
var quality = flag.Int("quality", 95, "JPEG output quality")

var kernelFile = flag.String("kernel", "", "read correlation kernel from `file`")
var norm = flag.String("norm", "abs-max", "normalization of correlation results, one of abs-max, min-max, none")
var padding = flag.String("padding", "zero", "boundary padding for correlation, one of zero, replicate, reflect, wrap")
var order = flag.String("order", "rgb", "channel order for processing color images, rgb or bgr")
var curveMid = flag.Float64("mid", -1, "midpoint of the point transform, -1=default (128, or 0.5 for luma)")
var curveMax = flag.Float64("max", -1, "maximum of the point transform, -1=default (255, or 1 for luma)")

var pipeline = flag.String("pipeline", "", "run the operator pipeline from JSON `file`")

var addr = flag.String("addr", ":8080", "listen on `address` in server mode")
var chroot = flag.String("chroot", "", "chroot to `directory` in server mode (requires root)")
var setuid = flag.Int("setuid", -1, "change to user `id` in server mode, -1=keep")

func main() {
	logWriter := nl.LogWriter()
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `pixfilter Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (correlate|point|luma|stats|run|serve|legal|version) (img0.png ... imgn.png)

Commands:
  correlate Correlate each channel with the kernel given by -kernel, and normalize
  point     Apply the piecewise linear point transform to each channel
  luma      Apply the point transform to the luma band of color images only
  stats     Show input image statistics
  run       Run the operator pipeline given by -pipeline, loading the given images first
  serve     Serve the REST API and upload page on -addr
  legal     Show license and attribution information
  version   Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	// Initialize logging to file in addition to stdout, if selected
	if *log == "%auto" {
		if *out != "" && !strings.Contains(*out, "%") {
			*log = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".log"
		} else {
			*log = ""
		}
	}
	if *log != "" {
		if err := nl.LogAlsoToFile(*log); err != nil {
			nl.LogFatalf("Unable to open logfile '%s'\n", *log)
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			nl.LogFatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			nl.LogFatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	c := ops.NewContext(logWriter, *threads)
	c.Quality = *quality

	var err error
	switch args[0] {
	case "correlate", "point", "luma", "stats", "run":
		logSystemInfo(logWriter, c)
		var seq *ops.OpSequence
		if seq, err = buildSequence(args[0], args[1:]); err == nil {
			err = runSequence(seq, c)
		}

	case "serve":
		if err = rest.MakeSandbox(*chroot, *setuid, logWriter); err == nil {
			fmt.Fprintf(logWriter, "Serving on %s\n", *addr)
			err = rest.Serve(*addr, logWriter)
		}

	case "legal":
		fmt.Fprint(logWriter, legal)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	fmt.Fprintf(logWriter, "\nDone after %v\n", time.Since(start))
	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		nl.LogSync()
		os.Exit(-1)
	}
	nl.LogSync()
}

// Logs CPU and memory resources
func logSystemInfo(logWriter io.Writer, c *ops.Context) {
	fmt.Fprintf(logWriter, "Running on %s with %d physical and %d logical cores, AVX2 %v, GOMAXPROCS %d\n",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores, cpuid.CPU.AVX2(), runtime.GOMAXPROCS(0))
	fmt.Fprintf(logWriter, "Using %v\n", c)
}

// Builds the operator sequence for a command from the flags and the given file patterns
func buildSequence(cmd string, files []string) (*ops.OpSequence, error) {
	seq := ops.NewOpSequence()
	if len(files) > 0 {
		seq.Append(ops.NewOpLoadMany(files))
	} else if cmd != "run" {
		return nil, errors.New("no input files given")
	}

	processingOrder, err := plane.ParseChannelOrder(*order)
	if err != nil {
		return nil, err
	}
	if processingOrder != plane.RGB {
		seq.Append(opfilter.NewOpOrder(processingOrder))
	}

	switch cmd {
	case "correlate":
		if *kernelFile == "" {
			return nil, errors.New("correlate needs a kernel file given with -kernel")
		}
		normMode, err := filter.ParseNormMode(*norm)
		if err != nil {
			return nil, err
		}
		pad, err := filter.ParsePadding(*padding)
		if err != nil {
			return nil, err
		}
		seq.Append(opfilter.NewOpCorrelate(*kernelFile, normMode, pad))
	case "point":
		seq.Append(opfilter.NewOpPoint(curveFromFlags(filter.Curve8Bit)))
	case "luma":
		seq.Append(opfilter.NewOpLuma(curveFromFlags(filter.CurveLuma)))
	case "stats":
		seq.Append(opfilter.NewOpStats(true))
		return seq, nil
	case "run":
		if *pipeline == "" {
			return nil, errors.New("run needs a pipeline file given with -pipeline")
		}
		bs, err := os.ReadFile(*pipeline)
		if err != nil {
			return nil, err
		}
		op, err := ops.UnmarshalOperator(bs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", *pipeline, err)
		}
		seq.Append(op)
		return seq, nil
	}
	seq.Append(ops.NewOpSave(*out))
	return seq, nil
}

// Overrides the curve parameters given on the command line
func curveFromFlags(def filter.Curve) filter.Curve {
	if *curveMid >= 0 {
		def.Mid = float32(*curveMid)
	}
	if *curveMax >= 0 {
		def.Max = float32(*curveMax)
	}
	return def
}

// Logs the sequence settings, then materializes all resulting promises
func runSequence(seq *ops.OpSequence, c *ops.Context) error {
	m, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Log, "\nRunning with these settings:\n%s\n\n", string(m))

	promises, err := seq.MakePromises(nil, c)
	if err != nil {
		return err
	}
	_, err = ops.MaterializeAll(promises, c.MaxThreads, true)
	return err
}
