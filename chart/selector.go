package chart

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PaesslerAG/gval"
)

// LabelValueFmt is the grammar for label keys and values: alphanumeric with
// interior dots, dashes and dots allowed.
const LabelValueFmt = "^[a-zA-Z0-9]([-a-zA-Z0-9.]*[a-zA-Z0-9])?$"

// Labeled is anything that can describe itself as key=val labels. Artifact
// implements it via GetLabels.
type Labeled interface {
	GetLabels() []string
}

// Selector filters labeled values with a boolean expression over their
// labels, e.g. "chart.type=line || chart.type=bar".
type Selector[T Labeled] struct {
	expr     string
	language gval.Language
}

// NewSelector returns a selector for the given expression. Expressions
// support "&&", "||" and "!" operators and "(" ")" for grouping; operands
// are labels in key=val format.
func NewSelector[T Labeled](expr string) (*Selector[T], error) {
	language := gval.NewLanguage(
		gval.Ident(),
		gval.Parentheses(),
		gval.Constant("true", true),
		gval.Constant("false", false),
		gval.PrefixOperator("!", func(c context.Context, v interface{}) (interface{}, error) {
			b, ok := convertToBool(v)
			if !ok {
				return nil, fmt.Errorf("unexpected %T expected bool", v)
			}
			return !b, nil
		}),
		gval.InfixShortCircuit("&&", func(a interface{}) (interface{}, bool) { return false, a == false }),
		gval.InfixBoolOperator("&&", func(a, b bool) (interface{}, error) { return a && b, nil }),
		gval.InfixShortCircuit("||", func(a interface{}) (interface{}, bool) { return true, a == true }),
		gval.InfixBoolOperator("||", func(a, b bool) (interface{}, error) { return a || b, nil }),
	)
	// we need this hack to force validation
	_, err := gval.Evaluate(getBooleanExpression(expr, map[string][]string{}), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid expression '%s'", expr)
	}
	return &Selector[T]{
		language: language,
		expr:     expr,
	}, nil
}

// Matches evaluates the selector expression against v's labels.
func (l *Selector[T]) Matches(v T) (bool, error) {
	labels, _ := ParseLabels(v.GetLabels())
	expr := getBooleanExpression(l.expr, labels)
	val, err := l.language.Evaluate(expr, nil)
	if err != nil {
		return false, err
	}
	boolVal, ok := val.(bool)
	if !ok {
		return false, nil
	}
	return boolVal, nil
}

// MatchList filters the list down to values matching the expression.
func (l *Selector[T]) MatchList(list []T) ([]T, error) {
	newList := []T{}
	for _, v := range list {
		b, err := l.Matches(v)
		if err != nil {
			return nil, err
		}
		if b {
			newList = append(newList, v)
		}
	}
	return newList, nil
}

// ParseLabels given a list of string labels, returns them as key=[val] map.
// A list of values is needed because keys can be duplicate.
func ParseLabels(labels []string) (map[string][]string, error) {
	keyVal := map[string][]string{}
	errors := []string{}
	for _, label := range labels {
		key, val, err := ParseLabel(label)
		if err != nil {
			errors = append(errors, err.Error())
			continue
		}
		if _, ok := keyVal[key]; !ok {
			keyVal[key] = []string{}
		}
		keyVal[key] = append(keyVal[key], val)
	}
	if len(errors) > 0 {
		return keyVal, fmt.Errorf("failed parsing, errors %v", errors)
	}
	return keyVal, nil
}

// ParseLabel given a string label converts into key=val.
func ParseLabel(label string) (string, string, error) {
	valueRegex := regexp.MustCompile(LabelValueFmt)
	parts := strings.Split(label, "=")
	if len(parts) > 2 || len(parts) < 1 {
		return "", "", fmt.Errorf("invalid label '%s'", label)
	}
	key, val := parts[0], ""
	if !valueRegex.MatchString(key) {
		return "", "", fmt.Errorf("invalid label key '%s'", key)
	}
	if len(parts) == 2 {
		if parts[1] != "" && !valueRegex.MatchString(parts[1]) {
			return "", "", fmt.Errorf("invalid label value '%s'", parts[1])
		}
		val = parts[1]
	}
	return key, val, nil
}

func convertToBool(o interface{}) (bool, bool) {
	if b, ok := o.(bool); ok {
		return b, true
	}
	if s, ok := o.(string); ok {
		switch s {
		case "true":
			return true, ok
		case "false":
			return false, ok
		}
	}
	return false, false
}

// getLabelsFromExpression parses only the labels from an expression
func getLabelsFromExpression(expr string) (map[string][]string, error) {
	labelsList := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ' ' || r == '&' || r == '|' || r == '!' || r == '(' || r == ')'
	})
	labelsMap, err := ParseLabels(labelsList)
	if err != nil {
		return nil, err
	}
	return labelsMap, nil
}

// getBooleanExpression for every label in the string expression, check if the
// label key val is present in the given map and replace the label in the string
// expression with match result - true or false. we have to do this because gval
// does not understand labels as operands. "chart.type=line && chart.origin=assistant"
// will look something like "true && false" as a boolean expression depending on
// the compared labels. we wouldn't need this if gval supported custom operands
func getBooleanExpression(expr string, compareLabels map[string][]string) string {
	exprLabels, err := getLabelsFromExpression(expr)
	if err != nil {
		return expr
	}
	replaceMap := map[string]string{}
	for exprLabelKey, exprLabelVals := range exprLabels {
		for _, exprLabelVal := range exprLabelVals {
			toReplace := exprLabelKey
			if exprLabelVal != "" {
				toReplace = fmt.Sprintf("%s=%s", toReplace, exprLabelVal)
			}
			if labelVals, ok := compareLabels[exprLabelKey]; !ok {
				replaceMap[toReplace] = "false"
			} else if exprLabelVal != "" && !contains(exprLabelVal, labelVals) {
				replaceMap[toReplace] = "false"
			} else {
				replaceMap[toReplace] = "true"
			}
		}
	}
	expr = strings.ReplaceAll(expr, " ", "")
	tokens := regexp.MustCompile(`\s*(!|\|\||&&|\(|\)|[^!\s()&|]+)\s*`).FindAllString(expr, -1)
	expr = ""
	for _, token := range tokens {
		token = strings.TrimSuffix(token, "=")
		if val, ok := replaceMap[token]; ok {
			expr = fmt.Sprintf("%s %s", expr, val)
		} else {
			expr = fmt.Sprintf("%s %s", expr, token)
		}
	}
	expr = strings.Trim(expr, " ")
	return expr
}

func contains(elem string, items []string) bool {
	for _, item := range items {
		if item == elem {
			return true
		}
	}
	return false
}
