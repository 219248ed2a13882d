package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/cbroglie/mustache"
	"gopkg.in/yaml.v2"
)

// PhaseDefinition describes one stage of the analysis pipeline.
type PhaseDefinition struct {
	// Name identifies the phase on the wire and in the model.
	Name Phase

	// Title is the short human-readable form shown by reporters.
	Title string

	// Task is a mustache template describing the work happening during the
	// phase. RenderTask fills it from the session's report inputs.
	Task string

	// EstimatedDuration is how long the phase is expected to take. The
	// simulator paces its increments from it.
	EstimatedDuration time.Duration

	// Ceiling is the cumulative percentage reached when the phase finishes.
	// Ceilings increase strictly across the model and the last one is 100.
	Ceiling int
}

// PhaseModel is an ordered, validated collection of phase definitions. All
// lookups are pure; the model carries no mutable state and is safe to share.
type PhaseModel struct {
	phases []PhaseDefinition
	index  map[Phase]int
}

// DefaultModel returns the pipeline the analysis backend runs. Ceilings and
// durations match the backend's own phase table.
func DefaultModel() *PhaseModel {
	m, err := NewPhaseModel([]PhaseDefinition{
		{Name: PhaseInitialization, Title: "Initializing", Task: "Preparing analysis for {{company}}", EstimatedDuration: 10 * time.Second, Ceiling: 5},
		{Name: PhaseCompetitorAnalysis, Title: "Competitor analysis", Task: "Identifying competitors for {{company}} in {{sector}}", EstimatedDuration: 45 * time.Second, Ceiling: 25},
		{Name: PhaseParallelProcessing, Title: "Parallel processing", Task: "Gathering market and web signals for {{service}}", EstimatedDuration: 150 * time.Second, Ceiling: 73},
		{Name: PhaseTrendAnalysis, Title: "Trend analysis", Task: "Analyzing {{sector}} trends", EstimatedDuration: 30 * time.Second, Ceiling: 82},
		{Name: PhaseFinalAnalysis, Title: "Final analysis", Task: "Scoring opportunities for {{company}}", EstimatedDuration: 30 * time.Second, Ceiling: 90},
		{Name: PhaseReportGeneration, Title: "Report generation", Task: "Assembling the report for {{company}}", EstimatedDuration: 35 * time.Second, Ceiling: 100},
	})
	if err != nil {
		// the builtin table is always valid
		panic(err)
	}
	return m
}

// NewPhaseModel builds a model from the given definitions. Definitions must
// be non-empty and uniquely named, ceilings must increase strictly and end
// at 100, and every estimated duration must be positive.
func NewPhaseModel(phases []PhaseDefinition) (*PhaseModel, error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("phase model requires at least one phase")
	}
	index := map[Phase]int{}
	prevCeiling := 0
	for i, def := range phases {
		if def.Name == "" {
			return nil, fmt.Errorf("phase %d has no name", i)
		}
		if _, ok := index[def.Name]; ok {
			return nil, fmt.Errorf("duplicate phase name '%s'", def.Name)
		}
		if def.Ceiling <= prevCeiling || def.Ceiling > 100 {
			return nil, fmt.Errorf("phase '%s' ceiling %d must be greater than %d and at most 100", def.Name, def.Ceiling, prevCeiling)
		}
		if def.EstimatedDuration <= 0 {
			return nil, fmt.Errorf("phase '%s' needs a positive estimated duration", def.Name)
		}
		index[def.Name] = i
		prevCeiling = def.Ceiling
	}
	if prevCeiling != 100 {
		return nil, fmt.Errorf("final phase ceiling must be 100, got %d", prevCeiling)
	}
	out := make([]PhaseDefinition, len(phases))
	copy(out, phases)
	return &PhaseModel{phases: out, index: index}, nil
}

type phaseYAML struct {
	Name             string `yaml:"name"`
	Title            string `yaml:"title"`
	Task             string `yaml:"task"`
	EstimatedSeconds int    `yaml:"estimatedSeconds"`
	Ceiling          int    `yaml:"ceiling"`
}

// LoadPhaseModel reads phase definitions from a YAML file holding a list of
// phases in pipeline order:
//
//	- name: initialization
//	  title: Initializing
//	  task: Preparing analysis for {{company}}
//	  estimatedSeconds: 10
//	  ceiling: 5
func LoadPhaseModel(path string) (*PhaseModel, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read phase file %s: %w", path, err)
	}
	entries := []phaseYAML{}
	if err := yaml.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("unable to parse phase file %s: %w", path, err)
	}
	defs := make([]PhaseDefinition, 0, len(entries))
	for _, e := range entries {
		defs = append(defs, PhaseDefinition{
			Name:              Phase(e.Name),
			Title:             e.Title,
			Task:              e.Task,
			EstimatedDuration: time.Duration(e.EstimatedSeconds) * time.Second,
			Ceiling:           e.Ceiling,
		})
	}
	return NewPhaseModel(defs)
}

// PhaseForName returns the definition for the named phase.
func (m *PhaseModel) PhaseForName(name Phase) (PhaseDefinition, bool) {
	i, ok := m.index[name]
	if !ok {
		return PhaseDefinition{}, false
	}
	return m.phases[i], true
}

// PhaseIndex returns the position of the named phase, or -1 when unknown.
func (m *PhaseModel) PhaseIndex(name Phase) int {
	i, ok := m.index[name]
	if !ok {
		return -1
	}
	return i
}

// PhaseForPercent returns the phase covering the given percentage: the first
// phase whose ceiling is at or above it. Out-of-range values clamp to the
// first or last phase.
func (m *PhaseModel) PhaseForPercent(percent int) PhaseDefinition {
	for _, def := range m.phases {
		if percent <= def.Ceiling {
			return def
		}
	}
	return m.phases[len(m.phases)-1]
}

// TotalEstimatedDuration sums the estimated durations of every phase.
func (m *PhaseModel) TotalEstimatedDuration() time.Duration {
	var total time.Duration
	for _, def := range m.phases {
		total += def.EstimatedDuration
	}
	return total
}

// Len returns the number of phases in the model.
func (m *PhaseModel) Len() int {
	return len(m.phases)
}

// Phases returns the definitions in pipeline order.
func (m *PhaseModel) Phases() []PhaseDefinition {
	out := make([]PhaseDefinition, len(m.phases))
	copy(out, m.phases)
	return out
}

// floor returns the cumulative percentage where phase i begins.
func (m *PhaseModel) floor(i int) int {
	if i <= 0 {
		return 0
	}
	return m.phases[i-1].Ceiling
}

// RenderTask fills the phase's task template with the session's report
// inputs. Rendering problems fall back to the phase title.
func (d PhaseDefinition) RenderTask(session Session) string {
	if d.Task == "" {
		return d.Title
	}
	out, err := mustache.Render(d.Task, true, map[string]string{
		"company": session.Company,
		"sector":  session.Sector,
		"service": session.Service,
	})
	if err != nil || out == "" {
		return d.Title
	}
	return out
}
