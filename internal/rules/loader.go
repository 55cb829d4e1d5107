package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"interview-insights-go/internal/logger"
)

// LoadWorkbook merges analyst-maintained overrides from an xlsx workbook into
// the default tables. Recognized sheets:
//
//	Vocabulary: term, canonical
//	Rules: metric, op, threshold, kind, label
//	Analysis: key, value (aggregation weights and thresholds)
//
// Column positions are detected from the header row; unknown sheets and rows
// that fail to parse are skipped.
func LoadWorkbook(path string) (Tables, error) {
	log := logger.New().WithField("component", "rules.loader").WithField("path", path)
	t := Defaults()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return t, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			log.WithError(err).WithField("sheet", sheet).Warn("read rows failed")
			continue
		}
		if len(rows) <= 1 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(sheet)) {
		case "vocabulary":
			n := loadVocabulary(rows, t.Vocabulary)
			log.WithField("sheet", sheet).WithField("terms", n).Info("vocabulary overrides loaded")
		case "rules":
			loaded := loadFindings(rows)
			if len(loaded) > 0 {
				t.Findings = loaded
				log.WithField("sheet", sheet).WithField("rules", len(loaded)).Info("finding rules replaced")
			}
		case "analysis":
			n := loadAnalysis(rows, &t.Analysis)
			log.WithField("sheet", sheet).WithField("keys", n).Info("analysis overrides loaded")
		}
	}
	return t, nil
}

func loadVocabulary(rows [][]string, vocab map[string]string) int {
	termIdx, canonIdx := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "term":
			termIdx = i
		case "canonical", "standard":
			canonIdx = i
		}
	}
	if termIdx == -1 || canonIdx == -1 {
		return 0
	}
	count := 0
	for _, r := range rows[1:] {
		if termIdx >= len(r) || canonIdx >= len(r) {
			continue
		}
		term := strings.ToLower(strings.TrimSpace(r[termIdx]))
		canon := strings.TrimSpace(r[canonIdx])
		if term == "" || canon == "" {
			continue
		}
		vocab[term] = canon
		count++
	}
	return count
}

func loadAnalysis(rows [][]string, cfg *AnalysisConfig) int {
	keyIdx, valIdx := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "key":
			keyIdx = i
		case "value":
			valIdx = i
		}
	}
	if keyIdx == -1 || valIdx == -1 {
		return 0
	}
	count := 0
	for _, r := range rows[1:] {
		if keyIdx >= len(r) || valIdx >= len(r) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(r[valIdx]), 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(r[keyIdx])) {
		case "ratio_weight":
			cfg.RatioWeight = v
		case "score_weight":
			cfg.ScoreWeight = v
		case "hesitation_threshold":
			cfg.HesitationThreshold = v
		case "stress_threshold":
			cfg.StressThreshold = v
		case "default_score":
			cfg.DefaultScore = v
		default:
			continue
		}
		count++
	}
	return count
}

func loadFindings(rows [][]string) []FindingRule {
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	col := func(r []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(r) {
			return ""
		}
		return strings.TrimSpace(r[i])
	}

	var out []FindingRule
	for _, r := range rows[1:] {
		op := col(r, "op")
		if op != ">=" && op != "<" {
			continue
		}
		value, err := strconv.ParseFloat(col(r, "threshold"), 64)
		if err != nil {
			continue
		}
		kind := strings.ToLower(col(r, "kind"))
		if kind != "strength" && kind != "concern" {
			continue
		}
		metric := strings.ToLower(col(r, "metric"))
		label := col(r, "label")
		if metric == "" || label == "" {
			continue
		}
		out = append(out, FindingRule{Metric: metric, Op: op, Value: value, Kind: kind, Label: label})
	}
	return out
}
