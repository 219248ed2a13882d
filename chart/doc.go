// Package chart models the chart artifacts the analysis backend produces
// and the reconciliation that folds regenerated charts into an existing
// collection.
//
// An Artifact's identity is derived from its normalized title and type, so
// asking the assistant to regenerate a chart yields the same identity and
// Merge refreshes the existing entry in place instead of appending a
// duplicate. Collections can be filtered with label Selector expressions
// such as "chart.type=line && chart.origin=assistant".
package chart
