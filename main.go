package main

import (
	"context"
	"fmt"
	"os"

	logrusr "github.com/bombsimon/logrusr/v3"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v2"

	"github.com/opportuna/analysis-tracker/client"
	"github.com/opportuna/analysis-tracker/progress"
	"github.com/opportuna/analysis-tracker/progress/reporter"
	"github.com/opportuna/analysis-tracker/tracing"
)

const (
	EXIT_ON_ERROR_CODE = 3
)

var (
	baseURL        = flag.String("base-url", client.DefaultBaseURL, "base URL of the analysis backend")
	company        = flag.String("company", "", "company name to generate the report for")
	sector         = flag.String("sector", "", "business sector of the company")
	service        = flag.String("service", "", "service type to analyze")
	outputFile     = flag.String("output-file", "report-result.yaml", "filepath to store the run result")
	errorOnFailure = flag.Bool("error-on-failure", false, "exit with 3 if the analysis fails will also print the result to console")
	logLevel       = flag.Int("verbose", 9, "level for logging output")
	enableJaeger   = flag.Bool("enable-jaeger", false, "enable tracer exports to jaeger endpoint")
	jaegerEndpoint = flag.String("jaeger-endpoint", "http://localhost:14268/api/traces", "jaeger endpoint to collect tracing data")
)

func main() {
	flag.Parse()

	err := validateFlags()
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	logrusLog := logrus.New()
	logrusLog.SetOutput(os.Stdout)
	logrusLog.SetFormatter(&logrus.TextFormatter{})
	// need to do research on mapping in logrusr to level here TODO
	logrusLog.SetLevel(logrus.Level(*logLevel))

	log := logrusr.New(logrusLog)

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	tracerOptions := tracing.Options{
		EnableJaeger:   *enableJaeger,
		JaegerEndpoint: *jaegerEndpoint,
	}
	tp, err := tracing.InitTracerProvider(log, tracerOptions)
	if err != nil {
		log.Error(err, "failed to initialize tracing")
		os.Exit(1)
	}

	defer tracing.Shutdown(ctx, log, tp)

	ctx, span := tracing.StartNewSpan(ctx, "main")
	defer span.End()

	session := progress.NewSession(*company, *sector, *service)

	apiClient := client.New(*baseURL, log)
	textReporter := reporter.NewTextReporter(os.Stderr)

	var failure error
	terminal := make(chan struct{})

	coordinator, err := progress.NewCoordinator(session, log,
		progress.WithFetcher(apiClient),
		progress.WithOnProgress(func(st progress.State) {
			textReporter.Report(st)
		}),
		progress.WithOnComplete(func(interface{}) {
			close(terminal)
		}),
		progress.WithOnError(func(err error) {
			failure = err
			close(terminal)
		}),
	)
	if err != nil {
		log.Error(err, "unable to create coordinator")
		os.Exit(1)
	}

	if err := coordinator.Start(ctx); err != nil {
		log.Error(err, "unable to start tracking")
		os.Exit(1)
	}
	defer coordinator.Stop()

	result, err := apiClient.StartReport(ctx, client.ReportRequest{
		Company: session.Company,
		Sector:  session.Sector,
		Service: session.Service,
	}, session.ID)
	if err != nil {
		coordinator.Fail(err)
	} else {
		coordinator.Complete(result)
	}

	<-terminal

	if err := apiClient.ClearProgress(ctx, session.ID); err != nil {
		log.V(7).Info("unable to clear progress record", "session", session.ID, "error", err)
	}

	// Write results out to CLI
	b, _ := yaml.Marshal(result)
	if failure != nil {
		fmt.Printf("%s", string(b))
		if *errorOnFailure {
			os.Exit(EXIT_ON_ERROR_CODE)
		}
		os.Exit(1)
	}

	os.WriteFile(*outputFile, b, 0644)
}

func validateFlags() error {
	if *company == "" {
		return fmt.Errorf("company name cannot be empty")
	}
	if *sector == "" {
		return fmt.Errorf("business sector cannot be empty")
	}
	if *service == "" {
		return fmt.Errorf("service type cannot be empty")
	}

	return nil
}
