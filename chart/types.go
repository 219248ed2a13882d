package chart

import (
	"fmt"
	"strings"
	"time"
)

// Type identifies the visual rendering of a chart artifact. The values match
// the camelCase names the analysis backend emits.
type Type string

const (
	TypeLine          Type = "line"
	TypeBar           Type = "bar"
	TypePie           Type = "pie"
	TypeDoughnut      Type = "doughnut"
	TypeArea          Type = "area"
	TypeScatter       Type = "scatter"
	TypeBubble        Type = "bubble"
	TypeRadar         Type = "radar"
	TypePolarArea     Type = "polarArea"
	TypeHorizontalBar Type = "horizontalBar"
	TypeMixed         Type = "mixed"
)

// Valid reports whether t is a known chart type.
func (t Type) Valid() bool {
	switch t {
	case TypeLine, TypeBar, TypePie, TypeDoughnut, TypeArea, TypeScatter,
		TypeBubble, TypeRadar, TypePolarArea, TypeHorizontalBar, TypeMixed:
		return true
	}
	return false
}

// Origin records which part of the system produced an artifact.
type Origin string

const (
	// OriginAnalysis marks artifacts produced by the initial analysis run.
	OriginAnalysis Origin = "analysis"

	// OriginAssistant marks artifacts produced by later assistant
	// interactions, which are the ones reconciliation typically merges into
	// an existing collection.
	OriginAssistant Origin = "assistant"
)

// Artifact is one renderable chart produced by the analysis backend.
type Artifact struct {
	// ID is derived deterministically from the normalized title and type,
	// so regenerating the same chart yields the same identity.
	ID string `json:"id" yaml:"id"`

	Title string `json:"title" yaml:"title"`
	Type  Type   `json:"type" yaml:"type"`

	// Labels name the data points; Data carries their values in the same
	// order. Scatter and bubble charts pair values by index instead (see
	// Points), so their lengths may differ.
	Labels []string  `json:"labels" yaml:"labels"`
	Data   []float64 `json:"data" yaml:"data"`

	// Description is a one-line caption; Insights is an optional ordered
	// narrative the backend attaches to richer charts.
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Insights    []string `json:"insights,omitempty" yaml:"insights,omitempty"`

	Origin Origin `json:"origin,omitempty" yaml:"origin,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Validate checks that the artifact is renderable: a title, a known type,
// and non-empty labels and data. Labels and data must pair up except for
// scatter-style charts, which pair data by index.
func (a Artifact) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("chart title cannot be empty")
	}
	if !a.Type.Valid() {
		return fmt.Errorf("unknown chart type '%s'", a.Type)
	}
	if len(a.Labels) == 0 {
		return fmt.Errorf("chart '%s' has no labels", a.Title)
	}
	if len(a.Data) == 0 {
		return fmt.Errorf("chart '%s' has no data", a.Title)
	}
	if a.Type != TypeScatter && a.Type != TypeBubble && len(a.Labels) != len(a.Data) {
		return fmt.Errorf("chart '%s' has %d labels but %d data points", a.Title, len(a.Labels), len(a.Data))
	}
	return nil
}

// GetLabels exposes the selector labels describing an artifact, allowing
// collections to be filtered with a Selector expression such as
// "chart.type=line || chart.type=bar".
func (a Artifact) GetLabels() []string {
	return []string{
		fmt.Sprintf("chart.type=%s", a.Type),
		fmt.Sprintf("chart.origin=%s", a.Origin),
	}
}

// Point is one x/y pair of a scatter-style chart.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Points derives index/value pairs from the data sequence, which is how
// scatter and bubble charts are rendered.
func (a Artifact) Points() []Point {
	points := make([]Point, len(a.Data))
	for i, v := range a.Data {
		points[i] = Point{X: float64(i), Y: v}
	}
	return points
}

// DeriveID builds the deterministic identity for a title/type pair: the
// title lowercased with whitespace runs collapsed to underscores, suffixed
// with the lowercased type.
func DeriveID(title string, t Type) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(title)), "_")
	return normalized + "_" + strings.ToLower(string(t))
}

// normalizeTitle lowercases and collapses whitespace so titles compare the
// way derived ids do.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
