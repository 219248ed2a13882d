package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	logrusr "github.com/bombsimon/logrusr/v3"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/opportuna/analysis-tracker/client"
	"github.com/opportuna/analysis-tracker/cmd/tracker/lib"
	"github.com/opportuna/analysis-tracker/progress"
	"github.com/opportuna/analysis-tracker/progress/collector"
	"github.com/opportuna/analysis-tracker/progress/reporter"
	"github.com/opportuna/analysis-tracker/tracing"
)

const (
	EXIT_ON_ERROR_CODE = 3
)

var (
	baseURL        string
	company        string
	sector         string
	service        string
	sessionID      string
	outputFile     string
	errorOnFailure bool
	phasesFile     string
	pollInterval   time.Duration
	graceWindow    time.Duration
	simulateOnly   bool
	logLevel       int
	enableJaeger   bool
	jaegerEndpoint string
	getOpenAPISpec string
	progressOutput string
	progressFormat string
)

func TrackerCmd() *cobra.Command {
	var errLog logr.Logger

	rootCmd := &cobra.Command{
		Use:   "analysis-tracker",
		Short: "Tool for tracking business analysis report runs",
		PreRunE: func(c *cobra.Command, args []string) error {
			logrusErrLog := logrus.New()
			logrusErrLog.SetOutput(os.Stderr)
			errLog = logrusr.New(logrusErrLog)
			err := validateFlags()
			if err != nil {
				errLog.Error(err, "failed to validate flags")

				return err
			}

			return nil
		},
		Run: func(c *cobra.Command, args []string) {

			logrusLog := logrus.New()
			logrusLog.SetOutput(os.Stdout)
			logrusLog.SetFormatter(&logrus.TextFormatter{})
			// Adding 5 here to move logs to info level
			// setting verbose 1 -> V(2) logs show up
			// setting verbose 2 -> V(3) logs show up
			// setting verbose 3 -> .V(4) I believe show up
			// setting verbose 4 -> .V(5) I believe show up
			logrusLog.SetLevel(logrus.Level(logLevel + 5))
			log := logrusr.New(logrusLog)
			// This will globally prevent the yaml library from auto-wrapping lines at 80 characters
			yaml.FutureLineWrap()

			ctx, cancelFunc := context.WithCancel(context.Background())
			defer cancelFunc()

			if getOpenAPISpec != "" {
				sc, err := client.BuildSpec()
				if err != nil {
					errLog.Error(err, "unable to create inital schema")
					os.Exit(1)
				}
				b, err := json.Marshal(sc)
				if err != nil {
					errLog.Error(err, "unable to encode schema")
					os.Exit(1)
				}

				err = os.WriteFile(getOpenAPISpec, b, 0644)
				if err != nil {
					errLog.Error(err, "error writing output file", "file", getOpenAPISpec)
					os.Exit(1) // Treat the error as a fatal error
				}
				os.Exit(0)
			}

			tracerOptions := tracing.Options{
				EnableJaeger:   enableJaeger,
				JaegerEndpoint: jaegerEndpoint,
			}
			tp, err := tracing.InitTracerProvider(log, tracerOptions)
			if err != nil {
				errLog.Error(err, "failed to initialize tracing")
				os.Exit(1)
			}
			defer tracing.Shutdown(ctx, log, tp)

			ctx, mainSpan := tracing.StartNewSpan(ctx, "main")
			defer mainSpan.End()

			progressReporter := createProgressReporter()
			trackerCollector := collector.New()
			_, err = progress.New(
				progress.WithCollectors(trackerCollector),
				progress.WithReporters(progressReporter),
				progress.WithContext(ctx),
			)
			if err != nil {
				errLog.Error(err, "unable to create progress hub")
				os.Exit(1)
			}

			result, runErr := lib.Run(ctx, lib.RunConfig{
				BaseURL:      baseURL,
				Company:      company,
				Sector:       sector,
				Service:      service,
				SessionID:    sessionID,
				PhasesFile:   phasesFile,
				PollInterval: pollInterval,
				GraceWindow:  graceWindow,
				SimulateOnly: simulateOnly,
				Reporter:     trackerCollector,
			}, log)

			// Write results out to CLI
			b, _ := yaml.Marshal(result)
			if runErr != nil {
				errLog.Error(runErr, "analysis run failed", "session", result.SessionID)
				fmt.Printf("%s", string(b))
				if errorOnFailure {
					os.Exit(EXIT_ON_ERROR_CODE)
				}
				os.Exit(1)
			}

			log.Info("writing run result to file", "file", outputFile)
			err = os.WriteFile(outputFile, b, 0644)
			if err != nil {
				errLog.Error(err, "error writing output file", "file", outputFile)
				os.Exit(1) // Treat the error as a fatal error
			}
		},
	}

	rootCmd.Flags().StringVar(&baseURL, "base-url", client.DefaultBaseURL, "base URL of the analysis backend")
	rootCmd.Flags().StringVar(&company, "company", "", "company name to generate the report for")
	rootCmd.Flags().StringVar(&sector, "sector", "", "business sector of the company")
	rootCmd.Flags().StringVar(&service, "service", "", "service type to analyze")
	rootCmd.Flags().StringVar(&sessionID, "session-id", "", "override the generated session id")
	rootCmd.Flags().StringVar(&outputFile, "output-file", "report-result.yaml", "filepath to store the run result")
	rootCmd.Flags().BoolVar(&errorOnFailure, "error-on-failure", false, "exit with 3 if the analysis fails will also print the result to console")
	rootCmd.Flags().StringVar(&phasesFile, "phases", "", "path to a custom phase definition file")
	rootCmd.Flags().DurationVar(&pollInterval, "poll-interval", 2*time.Second, "how often to poll the backend for progress")
	rootCmd.Flags().DurationVar(&graceWindow, "grace-window", 5*time.Second, "how long to wait for backend progress before simulating locally")
	rootCmd.Flags().BoolVar(&simulateOnly, "simulate-only", false, "do not contact a backend, play the run out on the simulator")
	rootCmd.Flags().IntVar(&logLevel, "verbose", 0, "level for logging output")
	rootCmd.Flags().BoolVar(&enableJaeger, "enable-jaeger", false, "enable tracer exports to jaeger endpoint")
	rootCmd.Flags().StringVar(&jaegerEndpoint, "jaeger-endpoint", "http://localhost:14268/api/traces", "jaeger endpoint to collect tracing data")
	rootCmd.Flags().StringVar(&getOpenAPISpec, "get-openapi-spec", "", "Get the openAPI spec for the backend payloads and put in file passed in.")
	rootCmd.Flags().StringVar(&progressOutput, "progress-output", "", "where to write progress events (stderr, stdout, or file path)")
	rootCmd.Flags().StringVar(&progressFormat, "progress-format", "bar", "format for progress output: bar, text, or json")

	rootCmd.AddCommand(MCPCmd())
	rootCmd.AddCommand(ChartsCmd())

	return rootCmd
}

func main() {
	if err := TrackerCmd().Execute(); err != nil {
		os.Exit(1)
	} else if TrackerCmd().Flags().Changed("help") {
		return
	}
}

func validateFlags() error {
	if getOpenAPISpec != "" {
		return nil
	}

	if strings.TrimSpace(company) == "" {
		return fmt.Errorf("company name cannot be empty")
	}
	if strings.TrimSpace(sector) == "" {
		return fmt.Errorf("business sector cannot be empty")
	}
	if strings.TrimSpace(service) == "" {
		return fmt.Errorf("service type cannot be empty")
	}
	if phasesFile != "" {
		_, err := os.Stat(phasesFile)
		if err != nil {
			return fmt.Errorf("unable to find phase definition file")
		}
	}

	return nil
}

// createProgressReporter creates a progress reporter based on CLI flags
func createProgressReporter() progress.Reporter {
	// If no output specified, return noop reporter
	if progressOutput == "" {
		return progress.NewNoopReporter()
	}

	// Determine output writer
	var writer *os.File
	switch progressOutput {
	case "stderr":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	default:
		// It's a file path
		file, err := os.Create(progressOutput)
		if err != nil {
			// If we can't create the file, fallback to stderr
			fmt.Fprintf(os.Stderr, "Warning: failed to create progress output file %s: %v\n", progressOutput, err)
			writer = os.Stderr
		} else {
			writer = file
		}
	}

	// Create reporter based on format
	switch progressFormat {
	case "json":
		return reporter.NewJSONReporter(writer)
	case "text":
		return reporter.NewTextReporter(writer)
	case "bar":
		return reporter.NewProgressBarReporter(writer)
	default:
		// Default to progress bar
		return reporter.NewProgressBarReporter(writer)
	}
}
