// Package progress tracks the advancement of long-running business analysis
// sessions.
//
// The package has two halves. The first is the tracking pipeline: a
// Coordinator mediates between an authoritative Poller (which fetches the
// backend's progress records) and a local Simulator (which fabricates a
// plausible trajectory when the backend goes quiet), emitting one coherent,
// monotonically non-decreasing stream of State snapshots with exactly one
// terminal state per session. The second is the reporting fan-out: a
// Progress hub distributes states from collectors to reporters.
//
// # Tracking a session
//
//	session := progress.NewSession("Acme", "logistics", "fleet analytics")
//	coordinator, err := progress.NewCoordinator(session, log,
//	    progress.WithFetcher(apiClient),
//	    progress.WithOnProgress(func(state progress.State) {
//	        fmt.Printf("%d%% %s\n", state.Percent, state.Message)
//	    }),
//	    progress.WithOnComplete(func(result interface{}) { done <- struct{}{} }),
//	    progress.WithOnError(func(err error) { done <- struct{}{} }),
//	)
//	if err := coordinator.Start(ctx); err != nil { ... }
//	defer coordinator.Stop()
//
// The coordinator delivers a synthetic connection state immediately, then
// polls the backend. If the backend never answers inside the grace window,
// or fails repeatedly, the coordinator switches to the simulator and never
// switches back.
//
// # Throttled Reporting
//
// To avoid overwhelming consumers with too many updates, use
// ThrottledReporter:
//
//	baseReporter := reporter.NewTextReporter(os.Stderr)
//	throttled := progress.NewThrottledReporter(progress.SourcePoller, baseReporter)
//
//	// Reports are automatically throttled to 500ms intervals.
//	// First states, phase changes and terminal states always pass.
//	throttled.Report(state)
//
// # Streaming
//
// ThrottledReporter supports dual-mode operation for channel consumers:
//
//	stateChan := make(chan progress.State, 100)
//	throttled.EnableStreaming(stateChan)
//
//	// States are sent to both the base reporter AND the channel.
//	// The channel uses non-blocking sends, so slow consumers don't block progress.
//
//	// When done:
//	throttled.DisableStreaming()
//	close(stateChan)
//
// # Thread Safety
//
// All reporters are safe for concurrent use, and the coordinator's Stop,
// Complete and Fail may be called from any goroutine.
package progress
