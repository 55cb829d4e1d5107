package analysis

import (
	"strings"

	"interview-insights-go/internal/logger"
	"interview-insights-go/internal/rules"
	"interview-insights-go/internal/types"
)

// Aggregator reduces per-segment scores into the request-level summary.
// All thresholds and weights come from the rules tables.
type Aggregator struct {
	tables rules.Tables
}

func New(tables rules.Tables) *Aggregator {
	return &Aggregator{tables: tables}
}

// Summarize walks the transcript once and produces the analysis summary.
// Behavioral metrics average only over segments that report them; a metric
// absent everywhere falls back to the default score.
func (a *Aggregator) Summarize(t *types.Transcript) types.AnalysisSummary {
	log := logger.New().WithField("component", "analysis")
	cfg := a.tables.Analysis

	var (
		sentimentSum float64
		positive     int
		negative     int
		counts       = map[types.SentimentLabel]int{}
		scoreSums    = map[types.SentimentLabel]float64{}
		firstSeen    = map[types.SentimentLabel]int{}
		timeline     []types.TimelinePoint
		questions    []string

		clarity      meanAcc
		confidence   meanAcc
		fluency      meanAcc
		professional meanAcc
	)

	for i, seg := range t.Segments {
		sentimentSum += seg.SentimentScore
		counts[seg.Sentiment]++
		scoreSums[seg.Sentiment] += seg.SentimentScore
		if _, ok := firstSeen[seg.Sentiment]; !ok {
			firstSeen[seg.Sentiment] = i
		}
		switch seg.Sentiment {
		case types.SentimentPositive:
			positive++
		case types.SentimentNegative:
			negative++
		}

		timeline = append(timeline, types.TimelinePoint{
			SegmentIndex: i,
			Label:        seg.Sentiment,
			Score:        seg.SentimentScore,
		})

		clarity.add(seg.Clarity)
		confidence.add(seg.Confidence)
		fluency.add(seg.Fluency)
		professional.add(seg.Professionalism)

		if seg.Speaker == types.RoleCandidate && isCandidateQuestion(seg) {
			questions = append(questions, questionText(seg))
		}
	}

	n := len(t.Segments)
	summary := types.AnalysisSummary{
		SentimentTimeline:  timeline,
		CandidateQuestions: questions,
	}
	if n == 0 {
		summary.DominantSentiment = types.SentimentNeutral
		summary.AvgSentimentScore = cfg.DefaultScore
		summary.AvgClarity = cfg.DefaultScore
		summary.AvgConfidence = cfg.DefaultScore
		summary.AvgFluency = cfg.DefaultScore
		summary.AvgProfessionalism = cfg.DefaultScore
		summary.InterestLevel = cfg.DefaultScore
		summary.EnthusiasmScore = cfg.DefaultScore
		return summary
	}

	summary.AvgSentimentScore = sentimentSum / float64(n)
	summary.AvgClarity = clarity.mean(cfg.DefaultScore)
	summary.AvgConfidence = confidence.mean(cfg.DefaultScore)
	summary.AvgFluency = fluency.mean(cfg.DefaultScore)
	summary.AvgProfessionalism = professional.mean(cfg.DefaultScore)
	summary.DominantSentiment = dominant(counts, scoreSums, firstSeen)

	positiveRatio := float64(positive) / float64(n)
	negativeRatio := float64(negative) / float64(n)
	summary.InterestLevel = clamp(cfg.RatioWeight*positiveRatio*100 + cfg.ScoreWeight*summary.AvgSentimentScore)
	summary.EnthusiasmScore = clamp((summary.AvgConfidence + summary.AvgFluency) / 2)
	summary.HesitationDetected = negativeRatio > cfg.HesitationThreshold
	summary.StressIndicators = negativeRatio > cfg.StressThreshold

	summary.Strengths, summary.Concerns = a.findings(summary)

	log.WithField("segments", n).
		WithField("dominant", string(summary.DominantSentiment)).
		Info("analysis summarized")
	return summary
}

// dominant picks the most frequent sentiment. Count ties break on the higher
// aggregate score, then on earliest occurrence.
func dominant(counts map[types.SentimentLabel]int, scoreSums map[types.SentimentLabel]float64, firstSeen map[types.SentimentLabel]int) types.SentimentLabel {
	order := []types.SentimentLabel{types.SentimentPositive, types.SentimentNeutral, types.SentimentNegative}
	best := types.SentimentNeutral
	found := false
	for _, label := range order {
		if counts[label] == 0 {
			continue
		}
		if !found {
			best, found = label, true
			continue
		}
		switch {
		case counts[label] > counts[best]:
			best = label
		case counts[label] == counts[best]:
			if scoreSums[label] > scoreSums[best] ||
				(scoreSums[label] == scoreSums[best] && firstSeen[label] < firstSeen[best]) {
				best = label
			}
		}
	}
	return best
}

// findings evaluates the data-driven rules against the averaged metrics.
func (a *Aggregator) findings(s types.AnalysisSummary) (strengths, concerns []string) {
	values := map[string]float64{
		rules.MetricClarity:         s.AvgClarity,
		rules.MetricConfidence:      s.AvgConfidence,
		rules.MetricFluency:         s.AvgFluency,
		rules.MetricProfessionalism: s.AvgProfessionalism,
		rules.MetricSentimentScore:  s.AvgSentimentScore,
		rules.MetricEnthusiasm:      s.EnthusiasmScore,
	}
	for _, r := range a.tables.Findings {
		v, ok := values[r.Metric]
		if !ok || !r.Matches(v) {
			continue
		}
		if r.Kind == "strength" {
			strengths = append(strengths, r.Label)
		} else {
			concerns = append(concerns, r.Label)
		}
	}
	return strengths, concerns
}

func isCandidateQuestion(seg types.TranscriptSegment) bool {
	return seg.IsQuestion || strings.HasSuffix(strings.TrimSpace(seg.Text), "?")
}

func questionText(seg types.TranscriptSegment) string {
	if q := strings.TrimSpace(seg.QuestionText); q != "" {
		return q
	}
	return seg.Text
}

// meanAcc averages only reported values.
type meanAcc struct {
	sum float64
	n   int
}

func (m *meanAcc) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m *meanAcc) mean(def float64) float64 {
	if m.n == 0 {
		return def
	}
	return m.sum / float64(m.n)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
