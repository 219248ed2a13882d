package chart

import (
	"reflect"
	"testing"
)

func Test_getBooleanExpression(t *testing.T) {
	tests := []struct {
		name          string
		expr          string
		compareLabels map[string][]string
		want          string
	}{
		{
			name: "single match",
			expr: "chart.type=line",
			compareLabels: map[string][]string{
				"chart.type": {"line"},
			},
			want: "true",
		},
		{
			name: "single mismatch",
			expr: "chart.type=line",
			compareLabels: map[string][]string{
				"chart.type": {"bar"},
			},
			want: "false",
		},
		{
			name: "or expression",
			expr: "chart.type=line || chart.type=bar",
			compareLabels: map[string][]string{
				"chart.type": {"bar"},
			},
			want: "false || true",
		},
		{
			name: "and with negation",
			expr: "chart.type=line && !chart.origin=assistant",
			compareLabels: map[string][]string{
				"chart.type":   {"line"},
				"chart.origin": {"assistant"},
			},
			want: "true && ! true",
		},
		{
			name: "grouping",
			expr: "(chart.type=line || chart.type=bar) && chart.origin=analysis",
			compareLabels: map[string][]string{
				"chart.type":   {"line"},
				"chart.origin": {"analysis"},
			},
			want: "( true || false ) && true",
		},
		{
			name: "unknown key",
			expr: "chart.sector=retail",
			compareLabels: map[string][]string{
				"chart.type": {"line"},
			},
			want: "false",
		},
		{
			name: "key without value matches presence",
			expr: "chart.origin",
			compareLabels: map[string][]string{
				"chart.origin": {"assistant"},
			},
			want: "true",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getBooleanExpression(tt.expr, tt.compareLabels); got != tt.want {
				t.Errorf("getBooleanExpression() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		wantKey string
		wantVal string
		wantErr bool
	}{
		{
			name:    "key and value",
			label:   "chart.type=line",
			wantKey: "chart.type",
			wantVal: "line",
		},
		{
			name:    "key only",
			label:   "chart.origin",
			wantKey: "chart.origin",
			wantVal: "",
		},
		{
			name:    "empty value",
			label:   "chart.origin=",
			wantKey: "chart.origin",
			wantVal: "",
		},
		{
			name:    "invalid key",
			label:   "=line",
			wantErr: true,
		},
		{
			name:    "too many separators",
			label:   "chart.type=line=bar",
			wantErr: true,
		},
		{
			name:    "invalid value characters",
			label:   "chart.type=li ne",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, val, err := ParseLabel(tt.label)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLabel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if key != tt.wantKey || val != tt.wantVal {
				t.Errorf("ParseLabel() = (%v, %v), want (%v, %v)", key, val, tt.wantKey, tt.wantVal)
			}
		})
	}
}

func TestParseLabels(t *testing.T) {
	labels, err := ParseLabels([]string{
		"chart.type=line",
		"chart.type=bar",
		"chart.origin=assistant",
	})
	if err != nil {
		t.Fatalf("ParseLabels() error = %v", err)
	}
	want := map[string][]string{
		"chart.type":   {"line", "bar"},
		"chart.origin": {"assistant"},
	}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("ParseLabels() = %v, want %v", labels, want)
	}

	if _, err := ParseLabels([]string{"chart.type=line", "==broken=="}); err == nil {
		t.Error("ParseLabels() expected error for invalid label")
	}
}

func TestNewSelector_InvalidExpression(t *testing.T) {
	invalid := []string{
		"chart.type=line &&",
		"|| chart.type=line",
		"(chart.type=line",
	}
	for _, expr := range invalid {
		if _, err := NewSelector[Artifact](expr); err == nil {
			t.Errorf("NewSelector(%q) expected error", expr)
		}
	}
}

func TestSelector_Matches(t *testing.T) {
	lineChart := Artifact{Title: "Revenue Growth", Type: TypeLine, Origin: OriginAnalysis}
	barChart := Artifact{Title: "Cost Breakdown", Type: TypeBar, Origin: OriginAssistant}

	tests := []struct {
		name     string
		expr     string
		artifact Artifact
		want     bool
	}{
		{
			name:     "type match",
			expr:     "chart.type=line",
			artifact: lineChart,
			want:     true,
		},
		{
			name:     "type mismatch",
			expr:     "chart.type=line",
			artifact: barChart,
			want:     false,
		},
		{
			name:     "or across types",
			expr:     "chart.type=line || chart.type=bar",
			artifact: barChart,
			want:     true,
		},
		{
			name:     "origin and type",
			expr:     "chart.type=bar && chart.origin=assistant",
			artifact: barChart,
			want:     true,
		},
		{
			name:     "negation",
			expr:     "!chart.origin=assistant",
			artifact: lineChart,
			want:     true,
		},
		{
			name:     "grouped expression",
			expr:     "(chart.type=line || chart.type=pie) && !chart.origin=assistant",
			artifact: lineChart,
			want:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selector, err := NewSelector[Artifact](tt.expr)
			if err != nil {
				t.Fatalf("NewSelector() error = %v", err)
			}
			got, err := selector.Matches(tt.artifact)
			if err != nil {
				t.Fatalf("Matches() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelector_MatchList(t *testing.T) {
	artifacts := []Artifact{
		{Title: "Revenue Growth", Type: TypeLine, Origin: OriginAnalysis},
		{Title: "Cost Breakdown", Type: TypeBar, Origin: OriginAssistant},
		{Title: "Market Share", Type: TypePie, Origin: OriginAnalysis},
		{Title: "Trend Overview", Type: TypeLine, Origin: OriginAssistant},
	}

	selector, err := NewSelector[Artifact]("chart.type=line")
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}
	matched, err := selector.MatchList(artifacts)
	if err != nil {
		t.Fatalf("MatchList() error = %v", err)
	}
	if len(matched) != 2 {
		t.Fatalf("MatchList() returned %d artifacts, want 2", len(matched))
	}
	if matched[0].Title != "Revenue Growth" || matched[1].Title != "Trend Overview" {
		t.Errorf("MatchList() kept wrong artifacts: %v, %v", matched[0].Title, matched[1].Title)
	}

	selector, err = NewSelector[Artifact]("chart.origin=analysis && (chart.type=line || chart.type=pie)")
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}
	matched, err = selector.MatchList(artifacts)
	if err != nil {
		t.Fatalf("MatchList() error = %v", err)
	}
	if len(matched) != 2 {
		t.Errorf("MatchList() returned %d artifacts, want 2", len(matched))
	}
}
