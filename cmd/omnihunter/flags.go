package main

import (
	"flag"
	"fmt"
	"os"
)

type AppFlags struct {
	GlobalConfigFile string
	Target           string
	Platform         string
	URLFile          string
	OutputFile       string
	Threads          int
	AllScanners      bool
	DeepScan         bool
	NoProxy          bool
	PauseOnFind      bool
	Verbose          bool
	Debug            bool
}

func ParseFlags() AppFlags {
	globalConfigFile := flag.String("config", "", "Path to the global YAML/JSON configuration file. If not set, searches default locations.")
	globalConfigFileAlias := flag.String("c", "", "Alias for -config")

	target := flag.String("target", "", "Target domain or URL to hunt on")
	targetAlias := flag.String("t", "", "Alias for -target")

	platform := flag.String("platform", "", "Bug bounty platform name recorded with every finding")
	urlFile := flag.String("urls", "", "Path to a text file with additional seed URLs")
	outputFile := flag.String("output", "", "Findings output file (overrides config)")
	outputFileAlias := flag.String("o", "", "Alias for -output")
	threads := flag.Int("threads", 0, "Number of scan workers (overrides config)")

	allScanners := flag.Bool("all-scanners", false, "Enable every scanner variant")
	deepScan := flag.Bool("deep", false, "Deep scan: enables every scanner variant")
	noProxy := flag.Bool("no-proxy", false, "Disable the free proxy pool")
	pauseOnFind := flag.Bool("pause-on-find", false, "Wait for Enter after each verified finding")
	verbose := flag.Bool("verbose", false, "Verbose output")
	debug := flag.Bool("debug", false, "Debug logging")

	flag.Parse()

	flags := AppFlags{
		Platform:    *platform,
		URLFile:     *urlFile,
		Threads:     *threads,
		AllScanners: *allScanners,
		DeepScan:    *deepScan,
		NoProxy:     *noProxy,
		PauseOnFind: *pauseOnFind,
		Verbose:     *verbose,
		Debug:       *debug,
	}

	if *globalConfigFile != "" {
		flags.GlobalConfigFile = *globalConfigFile
	} else if *globalConfigFileAlias != "" {
		flags.GlobalConfigFile = *globalConfigFileAlias
	}

	if *target != "" {
		flags.Target = *target
	} else if *targetAlias != "" {
		flags.Target = *targetAlias
	}

	if *outputFile != "" {
		flags.OutputFile = *outputFile
	} else if *outputFileAlias != "" {
		flags.OutputFile = *outputFileAlias
	}

	if flags.Threads < 0 {
		fmt.Fprintln(os.Stderr, "[FATAL] -threads must not be negative")
		os.Exit(1)
	}

	return flags
}
