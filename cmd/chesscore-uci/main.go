package main

import (
	"flag"
	"os"
	"runtime/pprof"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/app"
	"github.com/hailam/chesscore/internal/uci"
)

var (
	configPath = flag.String("config", "chesscore.yaml", "path to the YAML config")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	// stdout carries the protocol, so logs go to stderr.
	a := app.New(cfg, os.Stderr)

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			a.Log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			a.Log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		a.Log.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	}

	eng, err := a.NewEngine()
	if err != nil {
		a.Log.Fatal().Err(err).Msg("creating engine")
	}

	protocol := uci.New(eng, os.Stdin, os.Stdout, a.Log)
	if err := protocol.Run(); err != nil {
		a.Log.Error().Err(err).Msg("reading commands")
	}
}
