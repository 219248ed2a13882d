package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/go-logr/stdr"

	"github.com/opportuna/analysis-tracker/progress"
	"github.com/opportuna/analysis-tracker/progress/reporter"
)

// Demo program that plays a simulated analysis through the coordinator and
// renders the states from a channel reporter
func main() {
	fmt.Println("=== Progress Tracking Demo ===")

	log := stdr.New(stdlog.New(os.Stderr, "", stdlog.Lshortfile))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The channel reporter closes its stream when the context is cancelled
	events := reporter.NewChannelReporter(ctx, reporter.WithLogger(log))

	session := progress.NewSession("Globex Logistics", "logistics", "fleet analytics")

	// No fetcher configured, so the coordinator goes straight to simulation
	coordinator, err := progress.NewCoordinator(session, log,
		progress.WithSimulatorInterval(100*time.Millisecond),
		progress.WithSimulatorSeed(7),
		progress.WithOnProgress(func(st progress.State) {
			events.Report(st)
		}),
		progress.WithOnComplete(func(interface{}) {
			cancel()
		}),
		progress.WithOnError(func(error) {
			cancel()
		}),
	)
	if err != nil {
		log.Error(err, "unable to create coordinator")
		os.Exit(1)
	}

	if err := coordinator.Start(ctx); err != nil {
		log.Error(err, "unable to start coordinator")
		os.Exit(1)
	}
	defer coordinator.Stop()

	displayProgress(events)

	fmt.Println("\n=== Demo Complete ===")
}

// displayProgress shows progress updates with a nice progress bar
func displayProgress(events *reporter.ChannelReporter) {
	for st := range events.States() {
		if st.Failed {
			fmt.Printf("\n❌ %s\n", st.Error)
			continue
		}
		if st.Terminal || st.Phase == progress.PhaseCompleted {
			fmt.Printf("\n✅ %s\n", st.Message)
			continue
		}

		bar := drawProgressBar(st.Percent, 40)
		fmt.Printf("\r%s %s %3d%% (phase %d/%d) ETA %s - %s",
			phaseIcon(st.Phase),
			bar,
			st.Percent,
			st.PhaseIndex+1,
			st.TotalPhases,
			st.FormatETA(),
			st.Step)
	}
}

// phaseIcon picks a display icon for a phase
func phaseIcon(phase progress.Phase) string {
	switch phase {
	case progress.PhaseInitialization:
		return "⏳"
	case progress.PhaseCompetitorAnalysis:
		return "🔎"
	case progress.PhaseParallelProcessing:
		return "⚙️"
	case progress.PhaseTrendAnalysis:
		return "📈"
	case progress.PhaseFinalAnalysis:
		return "🧮"
	case progress.PhaseReportGeneration:
		return "📄"
	case progress.PhaseCompleted:
		return "✅"
	default:
		return "⏳"
	}
}

// drawProgressBar creates a visual progress bar
func drawProgressBar(percent int, width int) string {
	filled := percent * width / 100
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s]", bar)
}
