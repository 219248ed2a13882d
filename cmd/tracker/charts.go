package main

import (
	"encoding/json"
	"fmt"
	"os"

	logrusr "github.com/bombsimon/logrusr/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/opportuna/analysis-tracker/chart"
)

var (
	chartsInput     string
	chartsMergeInto string
	chartsSelector  string
	chartsOrigin    string
	chartsOutput    string
	chartsFormat    string
	chartsLogLevel  int
)

func ChartsCmd() *cobra.Command {
	chartsCmd := &cobra.Command{
		Use:   "charts",
		Short: "Extract chart artifacts from an analysis response and reconcile them into an existing set",
		RunE: func(cmd *cobra.Command, args []string) error {
			logrusLog := logrus.New()
			logrusLog.SetOutput(os.Stderr)
			logrusLog.SetFormatter(&logrus.TextFormatter{})
			logrusLog.SetLevel(logrus.Level(chartsLogLevel))
			log := logrusr.New(logrusLog)

			if chartsInput == "" {
				return fmt.Errorf("input is required")
			}

			existing := []chart.Artifact{}
			if chartsMergeInto != "" {
				b, err := os.ReadFile(chartsMergeInto)
				if err != nil {
					return fmt.Errorf("unable to read existing charts file %s: %w", chartsMergeInto, err)
				}
				if err := json.Unmarshal(b, &existing); err != nil {
					return fmt.Errorf("unable to parse existing charts file %s: %w", chartsMergeInto, err)
				}
			}

			f, err := os.Open(chartsInput)
			if err != nil {
				return fmt.Errorf("unable to open input file %s: %w", chartsInput, err)
			}
			defer f.Close()

			incoming, err := chart.ExtractArtifacts(f, chart.Origin(chartsOrigin))
			if err != nil {
				return err
			}

			merged, updated, added := chart.Merge(existing, incoming)

			if chartsSelector != "" {
				selector, err := chart.NewSelector[chart.Artifact](chartsSelector)
				if err != nil {
					return err
				}
				merged, err = selector.MatchList(merged)
				if err != nil {
					return err
				}
			}

			log.Info("reconciled chart artifacts", "updated", updated, "added", added, "total", len(merged))

			var b []byte
			switch chartsFormat {
			case "yaml":
				b, err = yaml.Marshal(merged)
			default:
				b, err = json.MarshalIndent(merged, "", "  ")
			}
			if err != nil {
				return fmt.Errorf("unable to marshal merged charts: %w", err)
			}

			if chartsOutput == "" {
				fmt.Printf("%s\n", string(b))
				return nil
			}
			return os.WriteFile(chartsOutput, b, 0644)
		},
	}

	chartsCmd.Flags().StringVar(&chartsInput, "input", "", "path to an analysis response file to extract charts from")
	chartsCmd.Flags().StringVar(&chartsMergeInto, "merge-into", "", "path to a JSON file of existing charts to merge the extracted ones into")
	chartsCmd.Flags().StringVar(&chartsSelector, "selector", "", "an expression to select charts based on labels. ex: (chart.type=line || chart.origin=analysis)")
	chartsCmd.Flags().StringVar(&chartsOrigin, "origin", string(chart.OriginAssistant), "origin tag for extracted charts: analysis or assistant")
	chartsCmd.Flags().StringVar(&chartsOutput, "output", "", "filepath to store the merged charts, prints to stdout when unset")
	chartsCmd.Flags().StringVar(&chartsFormat, "format", "json", "output format: json or yaml")
	chartsCmd.Flags().IntVar(&chartsLogLevel, "log-level", 5, "Log level (0-9, higher is more verbose)")

	return chartsCmd
}
