package model

import (
	"fmt"
	"strings"
)

// ClassMetrics are per-class evaluation numbers.
type ClassMetrics struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// ClassificationReport is the held-out evaluation of a fitted forest.
type ClassificationReport struct {
	Negative ClassMetrics
	Positive ClassMetrics
	Accuracy float64

	// Confusion[t][p] = count of true class t predicted as p.
	Confusion [2][2]int
}

// buildReport computes precision/recall/F1 per class from truth and
// predictions.
func buildReport(truth, predictions []int) ClassificationReport {
	var r ClassificationReport
	for i := range truth {
		r.Confusion[truth[i]][predictions[i]]++
	}

	r.Negative = classMetrics(r.Confusion, 0)
	r.Positive = classMetrics(r.Confusion, 1)
	if n := len(truth); n > 0 {
		r.Accuracy = float64(r.Confusion[0][0]+r.Confusion[1][1]) / float64(n)
	}
	return r
}

func classMetrics(confusion [2][2]int, class int) ClassMetrics {
	other := 1 - class
	tp := confusion[class][class]
	fp := confusion[other][class]
	fn := confusion[class][other]

	var m ClassMetrics
	m.Support = tp + fn
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// String renders the report in the familiar per-class table layout.
func (r ClassificationReport) String() string {
	var sb strings.Builder
	sb.WriteString("              precision    recall  f1-score   support\n\n")
	sb.WriteString(formatClassRow("0", r.Negative))
	sb.WriteString(formatClassRow("1", r.Positive))
	sb.WriteString(fmt.Sprintf("\n    accuracy                      %8.2f  %8d\n",
		r.Accuracy, r.Negative.Support+r.Positive.Support))
	return sb.String()
}

func formatClassRow(name string, m ClassMetrics) string {
	return fmt.Sprintf("%12s  %9.2f  %8.2f  %8.2f  %8d\n",
		name, m.Precision, m.Recall, m.F1, m.Support)
}
