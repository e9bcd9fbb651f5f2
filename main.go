package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mykhaliev/agent-testkit/engine"
	"github.com/mykhaliev/agent-testkit/logger"
	"github.com/mykhaliev/agent-testkit/scaffold"
	"github.com/mykhaliev/agent-testkit/version"
)

const (
	AppName = "agent-testkit"
)

func main() {
	planPath := flag.String("f", "", "Path to the test plan file (YAML)")
	outputDir := flag.String("o", ".", "Directory for generated report files")
	logPath := flag.String("l", "", "Path to the log file (if not set, logs to stdout)")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	showVersion := flag.Bool("v", false, "Show version and exit")
	reportTypes := flag.String("reportType", "console", "Comma-separated report types (console, json, html, junit)")
	newSuite := flag.String("new", "", "Scaffold a new test suite with the given name and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("Version: %s\nCommit: %s\nBuildDate: %s\n",
			version.Version, version.Commit, version.BuildDate)
		return
	}

	logWriter, logFile, err := logger.SetupLogWriter(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to setup logging: %v\n", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetupLogger(logWriter, *verbose)

	if *newSuite != "" {
		if err := scaffold.New(*newSuite); err != nil {
			logger.Logger.Error("Scaffolding failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if *planPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -f <plan-file> is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	var types []string
	for _, rt := range strings.Split(*reportTypes, ",") {
		if rt = strings.TrimSpace(rt); rt != "" {
			types = append(types, rt)
		}
	}

	logger.Logger.Info("Starting application",
		"app", AppName,
		"plan", *planPath,
		"output", *outputDir,
		"reports", types,
		"verbose", *verbose)

	passed, err := engine.Run(*planPath, types, *outputDir, *verbose)
	if err != nil {
		logger.Logger.Error("Run failed", "error", err)
		os.Exit(1)
	}
	if !passed {
		os.Exit(1)
	}
}
