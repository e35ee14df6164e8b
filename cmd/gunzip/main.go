package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	getopt "github.com/pborman/getopt/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chronos-tachyon/parflate"
	"github.com/chronos-tachyon/parflate/internal/mmap"
)

const version = "gunzip (parflate) 0.1.0"

const (
	exitOK      = 0
	exitError   = 1
	exitWarning = 2
)

var (
	flagVersion   = false
	flagDebug     = false
	flagTrace     = false
	flagLogStderr = false

	flagThreads   = 1
	flagLineCount = false
	flagStdout    = false
	flagKeep      = false
	flagForce     = false
	flagCheck     = false
	flagSkip      = int64(0)
	flagUntil     = int64(-1)
	flagSuffix    = ".gz"
	flagWBits     = WindowBitsFlag{parflate.DefaultWindowBits}

	flagCPUProfile = ""
	flagMemProfile = ""
)

func init() {
	getopt.SetParameters("[<file>...]")

	getopt.FlagLong(&flagVersion, "version", 'V', "print version and exit")

	getopt.FlagLong(&flagDebug, "verbose", 'v', "enable debug logging")
	getopt.FlagLong(&flagTrace, "debug", 'D', "enable debug and trace logging")
	getopt.FlagLong(&flagLogStderr, "log-stderr", 'L', "log JSON to stderr")

	getopt.FlagLong(&flagCPUProfile, "cpu-profile", 0, "CPU profile output file")
	getopt.FlagLong(&flagMemProfile, "mem-profile", 0, "memory profile output file")

	getopt.FlagLong(&flagThreads, "threads", 't', "number of worker threads")
	getopt.FlagLong(&flagLineCount, "lines", 'l', "count newlines instead of writing output")
	getopt.FlagLong(&flagStdout, "stdout", 'c', "write on standard output, keep original files unchanged")
	getopt.FlagLong(&flagKeep, "keep", 'k', "keep (don't delete) input files")
	getopt.FlagLong(&flagForce, "force", 'f', "force overwrite of output file and read from a terminal")
	getopt.FlagLong(&flagCheck, "check", 'C', "verify the gzip CRC-32 and length of the decoded output")
	getopt.FlagLong(&flagSkip, "skip", 's', "skip BYTES of compressed input, then sync and decompress the rest")
	getopt.FlagLong(&flagUntil, "until", 'u', "stop 20 blocks after compressed byte offset BYTES")
	getopt.FlagLong(&flagSuffix, "suffix", 'S', "expected input filename suffix")
	getopt.FlagLong(&flagWBits, "window-size-bits", 'W', "base-2 logarithm of worker window size; one of default, 17, 18, 19, 20, or 21")
}

func main() {
	getopt.Parse()

	if flagVersion {
		fmt.Println(version)
		os.Exit(exitOK)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.DurationFieldUnit = time.Second
	zerolog.DurationFieldInteger = false
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if flagDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if flagTrace {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}

	if !flagLogStderr {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)

	var cpuProfile *os.File
	if flagCPUProfile != "" {
		f, err := os.OpenFile(flagCPUProfile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
		if err != nil {
			log.Logger.Fatal().
				Str("filename", flagCPUProfile).
				Err(err).
				Msg("os.OpenFile(O_WRONLY|O_CREATE|O_TRUNC) failed")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Logger.Fatal().
				Err(err).
				Msg("pprof.StartCPUProfile failed")
		}
		cpuProfile = f
	}

	code := run()

	if cpuProfile != nil {
		pprof.StopCPUProfile()
		_ = cpuProfile.Close()
	}
	os.Exit(code)
}

func run() int {
	files := getopt.Args()

	if len(files) == 0 {
		if err := decompressStdin(); err != nil {
			log.Logger.Error().Err(err).Msg("decompression failed")
			return exitError
		}
		return writeMemProfile(exitOK)
	}

	var merr *multierror.Error
	code := exitOK
	for _, path := range files {
		switch err := processFile(path); {
		case err == nil:
			// pass
		case isWarning(err):
			log.Logger.Warn().Str("filename", path).Err(err).Msg("skipped")
			merr = multierror.Append(merr, err)
			if code == exitOK {
				code = exitWarning
			}
		default:
			log.Logger.Error().Str("filename", path).Err(err).Msg("decompression failed")
			merr = multierror.Append(merr, err)
			code = exitError
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		log.Logger.Debug().Err(err).Msg("finished with errors")
	}
	return writeMemProfile(code)
}

// warning is a soft failure: the file is skipped but other files are still
// processed, and the exit code is 2 instead of 1.
type warning struct {
	problem string
}

func (w warning) Error() string { return w.problem }

func isWarning(err error) bool {
	_, ok := err.(warning)
	return ok
}

func decompressStdin() error {
	if !flagForce {
		if info, err := os.Stdin.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return fmt.Errorf("compressed data not read from a terminal; use -f to force")
		}
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	return decompressBuffer(data, "(stdin)", os.Stdout, nil)
}

func processFile(path string) error {
	if !strings.HasSuffix(path, flagSuffix) || path == flagSuffix {
		return warning{problem: fmt.Sprintf("unknown suffix; expected %q", flagSuffix)}
	}

	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	mapping, err := mmap.Open(in)
	if err != nil {
		return err
	}
	defer func() {
		_ = mapping.Close()
	}()

	var out io.Writer
	var outFile *os.File
	outPath := strings.TrimSuffix(path, flagSuffix)
	switch {
	case flagLineCount:
		out = io.Discard
	case flagStdout:
		out = os.Stdout
	default:
		if !flagForce {
			if _, err := os.Lstat(outPath); err == nil {
				return warning{problem: fmt.Sprintf("output file %q already exists; use -f to overwrite", outPath)}
			}
		}
		outFile, err = os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
		if err != nil {
			return err
		}
		out = outFile
	}

	err = decompressBuffer(mapping.Bytes(), path, out, mapping.Release)

	if outFile != nil {
		if cerr := outFile.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(outPath)
			return err
		}
		if info, serr := in.Stat(); serr == nil {
			_ = os.Chtimes(outPath, time.Now(), info.ModTime())
		}
	}
	if err != nil {
		return err
	}

	if !flagKeep && !flagStdout && !flagLineCount {
		_ = in.Close()
		if rerr := os.Remove(path); rerr != nil {
			log.Logger.Warn().Str("filename", path).Err(rerr).Msg("failed to remove input file")
		}
	}
	return nil
}

func decompressBuffer(data []byte, name string, out io.Writer, reclaim func(int64)) error {
	opts := []parflate.Option{
		parflate.WithWorkers(flagThreads),
		parflate.WithWindowBits(flagWBits.Value),
		parflate.WithLineCount(flagLineCount),
		parflate.WithChecksum(flagCheck),
		parflate.WithLogger(log.Logger),
	}
	if flagTrace {
		opts = append(opts, parflate.WithTracers(parflate.Log(log.Logger)))
	}
	if flagSkip > 0 {
		opts = append(opts, parflate.WithSkip(flagSkip))
	}
	if flagUntil >= 0 {
		opts = append(opts, parflate.WithStopAfter(flagUntil))
	}
	if reclaim != nil {
		opts = append(opts, parflate.WithReclaimer(reclaim))
	}

	stats, header, err := parflate.DecompressGzip(out, data, opts...)
	if err != nil {
		return err
	}

	log.Logger.Debug().
		Str("filename", name).
		Str("original-name", header.FileName).
		Int64("bytes", stats.Bytes).
		Msg("decompressed")

	if flagLineCount {
		fmt.Printf("%d %s\n", stats.Lines, name)
	}
	return nil
}

func writeMemProfile(code int) int {
	if flagMemProfile == "" {
		return code
	}
	f, err := os.OpenFile(flagMemProfile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		log.Logger.Error().
			Str("filename", flagMemProfile).
			Err(err).
			Msg("failed to open memory profile output file")
		return exitError
	}
	if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
		_ = f.Close()
		log.Logger.Error().
			Err(err).
			Msg("failed to write memory profile")
		return exitError
	}
	if err := f.Close(); err != nil {
		log.Logger.Error().
			Err(err).
			Msg("failed to close memory profile output file")
		return exitError
	}
	return code
}
