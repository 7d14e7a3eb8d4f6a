// Copyright 2018 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/524D/mzqc/internal/qc"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Program name and version
const progName = "mzQC"

var progVersion = `Unknown`

const (
	infoDefault = iota
	infoSilent
	infoVerbose
)

// ErrInvalidParameter is returned for inconsistent parameters or inputs.
// The program exits with code 2 on this error.
var ErrInvalidParameter = errors.New("invalid parameter")

// logger is replaced in main, tests keep the no-op logger
var logger = zap.NewNop()

// Command line parameters
type params struct {
	inCM           *string  // Consensus map (mandatory)
	inRaw          fileList // mzML files
	inPostFDR      fileList // featureXML files after FDR filtering
	inTrafo        fileList // trafoXML files of the RT alignment
	inContaminants *string  // FASTA file with contaminant proteins
	out            *string  // mzTab output (mandatory)
	outCM          *string  // consensusXML output with QC annotations
	outFeat        fileList // featureXML outputs with QC annotations
	fmeUnit        *string  // Unit of the fragment mass tolerance
	fmeTolerance   *float64 // Fragment mass tolerance
	forceNoFDR     *bool    // Count all identifications when no FDR was made
	paramFile      *string  // YAML file with default parameter values
	version        *bool
	verbose        *bool
	quiet          *bool
	unit           qc.ToleranceUnit
	verbosity      int
	args           []string // Additional values passed on the command line
}

// fileList is a flag that holds a list of file names. The flag can
// be repeated, and each value may contain a comma separated list.
type fileList []string

func (f *fileList) String() string {
	return strings.Join(*f, `,`)
}

func (f *fileList) Set(v string) error {
	for _, s := range strings.Split(v, `,`) {
		if s = strings.TrimSpace(s); s != `` {
			*f = append(*f, s)
		}
	}
	return nil
}

// defineFlags registers the command line parameters on fs
func defineFlags(fs *flag.FlagSet) *params {
	var par params
	par.inCM = fs.String("in_cm", "",
		"consensusXML `filename`"+` with the aggregated identifications (mandatory)`)
	fs.Var(&par.inRaw, "in_raw",
		"mzML `filenames`"+` of the experiments`)
	fs.Var(&par.inPostFDR, "in_postFDR",
		"featureXML `filenames`"+` after FDR filtering`)
	fs.Var(&par.inTrafo, "in_trafo",
		"trafoXML `filenames`"+` with the retention time alignment`)
	par.inContaminants = fs.String("in_contaminants", "",
		"FASTA `filename`"+` of contaminant proteins`)
	par.out = fs.String("out", "",
		"mzTab `filename`"+` of the report (mandatory)`)
	par.outCM = fs.String("out_cm", "",
		"consensusXML `filename`"+` with QC information`)
	fs.Var(&par.outFeat, "out_feat",
		"featureXML `filenames`"+` with QC information`)
	par.fmeUnit = fs.String("fragment_mass_error_unit", "auto",
		"`unit`"+` of the fragment mass tolerance: auto, ppm or Da.
auto takes the tolerance from the search parameters of the featureXML.`)
	par.fmeTolerance = fs.Float64("fragment_mass_error_tolerance", 20,
		`fragment mass tolerance, ignored when the unit is auto`)
	par.forceNoFDR = fs.Bool("force_no_fdr", false,
		`compute the MS2 identification rate although no FDR was made`)
	par.paramFile = fs.String("ini", "",
		"YAML `filename`"+` with parameter values. Parameters given on the
command line take precedence.`)
	par.version = fs.Bool("version", false,
		`Show software version`)
	par.verbose = fs.Bool("verbose", false,
		`Print more verbose progress information`)
	par.quiet = fs.Bool("quiet", false,
		`Don't print any output except for errors`)
	return &par
}

// parseParams parses the command line and applies the parameter file.
// The verbosity is derived after the parameter file was read.
func parseParams(fs *flag.FlagSet, args []string) (*params, error) {
	par := defineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return par, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	par.args = fs.Args()
	err := applyParamFile(fs, *par.paramFile)
	if *par.verbose {
		par.verbosity = infoVerbose
	}
	if *par.quiet {
		par.verbosity = infoSilent
	}
	return par, err
}

// sanatizeParams checks the parameters
func sanatizeParams(par *params) error {
	if len(par.args) != 0 {
		return fmt.Errorf("%w: unexpected argument %s", ErrInvalidParameter, par.args[0])
	}
	if *par.inCM == `` {
		return fmt.Errorf("%w: in_cm must be specified", ErrInvalidParameter)
	}
	if *par.out == `` {
		return fmt.Errorf("%w: out must be specified", ErrInvalidParameter)
	}
	unit, err := qc.ParseToleranceUnit(*par.fmeUnit)
	if err != nil {
		return fmt.Errorf("%w: fragment_mass_error_unit: %v", ErrInvalidParameter, err)
	}
	par.unit = unit
	if *par.fmeTolerance < 0 {
		return fmt.Errorf("%w: fragment_mass_error_tolerance must not be negative", ErrInvalidParameter)
	}
	return nil
}

// newLogger builds the console logger for the verbosity level
func newLogger(verbosity int) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = `console`
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	switch verbosity {
	case infoVerbose:
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case infoSilent:
		config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}
	return config.Build()
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr,
		`USAGE:
  %s [options] -in_cm <consensusXML> -out <mzTab>

  This program computes quality control metrics of the experiments
  that make up a consensus map, annotates the identifications of the
  consensus map with the results and writes an mzTab report.
  All file lists must be empty or have the same number of files.

OPTIONS:
`, exeName)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr,
		`
METRICS:
  Metrics run only when their inputs are given:
    Contaminants            in_postFDR, in_contaminants
    FragmentMassError       in_postFDR, in_raw
    MissedCleavages         in_postFDR
    Ms2IdentificationRate   in_raw, in_postFDR
    MzCalibration           in_postFDR, in_raw
    RTAlignment             in_postFDR, in_trafo
    TIC                     in_raw
    TopNoverRT              in_raw, in_postFDR

USAGE EXAMPLES:
  %s -in_cm merged.consensusXML -in_postFDR a.featureXML,b.featureXML \
     -in_raw a.mzML,b.mzML -out qc.mzTab
    Compute all metrics that need spectra and features for two experiments.

  %s -ini qc.yaml -verbose
    Read the parameters from qc.yaml.
`, exeName, exeName)
}

// exitCode maps an error to the exit status of the program
func exitCode(err error) int {
	if errors.Is(err, ErrInvalidParameter) {
		return 2
	}
	return 1
}

func main() {
	flag.Usage = usage
	par, paramErr := parseParams(flag.CommandLine, os.Args[1:])
	if *par.version {
		if progVersion == `Unknown` {
			progVersion = `Unknown
Please build this program with script 'build.sh' so that the git version is shown here.`
		}
		fmt.Fprintf(os.Stderr, "%s version %s\n", progName, progVersion)
		return
	}

	l, err := newLogger(par.verbosity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Can't initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = l
	defer logger.Sync()

	err = paramErr
	if err == nil {
		err = sanatizeParams(par)
	}
	if err == nil {
		err = run(par, defaultCollaborators())
	}
	if err != nil {
		logger.Error("mzQC failed", zap.Error(err))
		if errors.Is(err, ErrInvalidParameter) {
			fmt.Fprintf(os.Stderr, "Type %s --help for usage\n", filepath.Base(os.Args[0]))
		}
		logger.Sync()
		os.Exit(exitCode(err))
	}
}
