package chart

import (
	"fmt"
	"io"
	"strconv"

	"github.com/antchfx/jsonquery"
	json "github.com/goccy/go-json"
)

// Envelope is the response shape of the backend's data analysis endpoint.
// On success Charts carries the produced artifacts; on failure the Error
// fields describe what went wrong.
type Envelope struct {
	Success         bool       `json:"success"`
	Charts          []Artifact `json:"charts,omitempty"`
	AnalysisSummary string     `json:"analysis_summary,omitempty"`
	RawDataSize     int        `json:"raw_data_size,omitempty"`
	ProcessingTime  float64    `json:"processing_time,omitempty"`

	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Details   string `json:"details,omitempty"`
}

// DecodeEnvelope parses a backend analysis response.
func DecodeEnvelope(r io.Reader) (Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("unable to parse analysis response: %w", err)
	}
	return env, nil
}

// ExtractArtifacts pulls chart artifacts out of an arbitrary JSON document
// by locating any "charts" array regardless of nesting depth. This tolerates
// the assistant wrapping its response in varying envelope shapes. Entries
// that don't validate as artifacts are skipped; every extracted artifact is
// tagged with the given origin.
func ExtractArtifacts(r io.Reader, origin Origin) ([]Artifact, error) {
	doc, err := jsonquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("unable to parse chart document: %w", err)
	}
	nodes, err := jsonquery.QueryAll(doc, "//charts/*")
	if err != nil {
		return nil, err
	}

	artifacts := []Artifact{}
	for _, node := range nodes {
		artifact, err := artifactFromNode(node)
		if err != nil {
			continue
		}
		artifact.Origin = origin
		if err := artifact.Validate(); err != nil {
			continue
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}

// artifactFromNode rebuilds an Artifact from a jsonquery object node by
// walking its fields.
func artifactFromNode(node *jsonquery.Node) (Artifact, error) {
	artifact := Artifact{}
	for field := node.FirstChild; field != nil; field = field.NextSibling {
		switch field.Data {
		case "id":
			artifact.ID = field.InnerText()
		case "title":
			artifact.Title = field.InnerText()
		case "type":
			artifact.Type = Type(field.InnerText())
		case "description":
			artifact.Description = field.InnerText()
		case "labels":
			for child := field.FirstChild; child != nil; child = child.NextSibling {
				artifact.Labels = append(artifact.Labels, child.InnerText())
			}
		case "insights":
			for child := field.FirstChild; child != nil; child = child.NextSibling {
				artifact.Insights = append(artifact.Insights, child.InnerText())
			}
		case "data":
			for child := field.FirstChild; child != nil; child = child.NextSibling {
				v, err := strconv.ParseFloat(child.InnerText(), 64)
				if err != nil {
					return Artifact{}, fmt.Errorf("chart '%s' has non-numeric data point '%s'", artifact.Title, child.InnerText())
				}
				artifact.Data = append(artifact.Data, v)
			}
		}
	}
	return artifact, nil
}
