package normalizer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"interview-insights-go/internal/logger"
	"interview-insights-go/internal/rules"
	"interview-insights-go/internal/types"
)

// mergeGapSeconds is the largest pause between two utterances by the same
// speaker that still reads as one continuous thought.
const mergeGapSeconds = 1.0

// Normalizer cleans raw transcript segments into the canonical transcript:
// merged turns, cleaned text, clock timestamps, mapped roles and statistics.
type Normalizer struct {
	tables rules.Tables

	fillerPatterns []*regexp.Regexp
	vocabPatterns  []vocabPattern
}

type vocabPattern struct {
	re        *regexp.Regexp
	canonical string
}

func New(tables rules.Tables) *Normalizer {
	n := &Normalizer{tables: tables}
	n.compileFillers()
	n.compileVocabulary()
	return n
}

// compileFillers builds removal patterns, longest phrase first so "you know"
// goes before any single word. A comma trailing the filler goes with it.
func (n *Normalizer) compileFillers() {
	fillers := append([]string(nil), n.tables.FillerWords...)
	sort.Slice(fillers, func(i, j int) bool { return len(fillers[i]) > len(fillers[j]) })
	for _, f := range fillers {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(f) + `\b,?`)
		if err != nil {
			continue
		}
		n.fillerPatterns = append(n.fillerPatterns, re)
	}
}

// compileVocabulary builds word-boundary patterns, longest term first so
// "java script" wins over "java".
func (n *Normalizer) compileVocabulary() {
	terms := make([]string, 0, len(n.tables.Vocabulary))
	for term := range n.tables.Vocabulary {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })

	for _, term := range terms {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		if err != nil {
			continue
		}
		n.vocabPatterns = append(n.vocabPatterns, vocabPattern{re: re, canonical: n.tables.Vocabulary[term]})
	}
}

// Normalize transforms raw segments into the final transcript. Input order
// is preserved; segments arrive sorted by start time.
func (n *Normalizer) Normalize(segments []types.TranscriptSegment) *types.Transcript {
	log := logger.New().WithField("component", "normalizer")

	merged := n.mergeAdjacent(segments)
	for i := range merged {
		merged[i].Text = n.CleanText(merged[i].Text)
		merged[i].Timestamp = formatClock(merged[i].StartTime)
	}
	merged = dropEmpty(merged)
	n.mapRoles(merged)
	for i := range merged {
		merged[i].ID = i + 1
	}

	t := &types.Transcript{
		Segments:   merged,
		Statistics: computeStats(merged),
		RawText:    joinText(merged),
	}
	log.WithField("segments", len(merged)).Info("transcript normalized")
	return t
}

// mergeAdjacent joins consecutive segments by the same speaker separated by
// at most mergeGapSeconds. The merged segment keeps the first segment's
// sentiment fields and widens the time range.
func (n *Normalizer) mergeAdjacent(segments []types.TranscriptSegment) []types.TranscriptSegment {
	var out []types.TranscriptSegment
	for _, seg := range segments {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if last.Speaker == seg.Speaker && seg.StartTime-last.EndTime <= mergeGapSeconds {
				last.Text = strings.TrimSpace(last.Text + " " + seg.Text)
				if seg.EndTime > last.EndTime {
					last.EndTime = seg.EndTime
				}
				if seg.IsQuestion {
					last.IsQuestion = true
					if last.QuestionText == "" {
						last.QuestionText = seg.QuestionText
					}
				}
				continue
			}
		}
		out = append(out, seg)
	}
	return out
}

// CleanText removes filler words, converts spelled-out numbers to digits and
// canonicalizes technical vocabulary.
func (n *Normalizer) CleanText(text string) string {
	text = n.removeFillers(text)
	text = n.convertNumbers(text)
	text = n.canonicalize(text)
	return collapseSpaces(text)
}

func (n *Normalizer) removeFillers(text string) string {
	for _, re := range n.fillerPatterns {
		text = re.ReplaceAllString(text, "")
	}
	return text
}

// convertNumbers rewrites number words to digits, folding compounds such as
// "twenty five" into 25. Tens followed by a units word combine additively.
func (n *Normalizer) convertNumbers(text string) string {
	words := strings.Fields(text)
	var out []string
	for i := 0; i < len(words); i++ {
		bare, trailing := splitTrailing(words[i])
		val, ok := n.tables.NumberWords[strings.ToLower(bare)]
		if !ok {
			out = append(out, words[i])
			continue
		}
		if val >= 20 && val%10 == 0 && i+1 < len(words) {
			nextBare, nextTrailing := splitTrailing(words[i+1])
			if unit, ok := n.tables.NumberWords[strings.ToLower(nextBare)]; ok && unit < 10 && unit > 0 {
				out = append(out, fmt.Sprintf("%d%s", val+unit, nextTrailing))
				i++
				continue
			}
		}
		out = append(out, fmt.Sprintf("%d%s", val, trailing))
	}
	return strings.Join(out, " ")
}

// canonicalize rewrites matched terms to their canonical form. A match whose
// position already starts the canonical spelling is left alone, so terms like
// "node" never re-expand inside an earlier "Node.js" replacement.
func (n *Normalizer) canonicalize(text string) string {
	for _, p := range n.vocabPatterns {
		locs := p.re.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			continue
		}
		var b strings.Builder
		prev := 0
		for _, loc := range locs {
			b.WriteString(text[prev:loc[0]])
			if strings.HasPrefix(text[loc[0]:], p.canonical) {
				b.WriteString(text[loc[0]:loc[1]])
			} else {
				b.WriteString(p.canonical)
			}
			prev = loc[1]
		}
		b.WriteString(text[prev:])
		text = b.String()
	}
	return text
}

// mapRoles assigns interviewer/candidate. Explicit role labels win; otherwise
// the first distinct speaker in time order is the interviewer.
func (n *Normalizer) mapRoles(segments []types.TranscriptSegment) {
	explicit := false
	for i := range segments {
		switch strings.ToLower(strings.TrimSpace(segments[i].Speaker)) {
		case types.RoleInterviewer, "recruiter", "interviewer 1":
			segments[i].Speaker = types.RoleInterviewer
			explicit = true
		case types.RoleCandidate, "applicant", "interviewee":
			segments[i].Speaker = types.RoleCandidate
			explicit = true
		}
	}
	if explicit {
		return
	}

	var first string
	mapping := map[string]string{}
	for i := range segments {
		sp := segments[i].Speaker
		if _, ok := mapping[sp]; !ok {
			if first == "" {
				first = sp
				mapping[sp] = types.RoleInterviewer
			} else {
				mapping[sp] = types.RoleCandidate
			}
		}
		segments[i].Speaker = mapping[sp]
	}
}

func computeStats(segments []types.TranscriptSegment) types.TranscriptStats {
	stats := types.TranscriptStats{
		SpeakerBreakdown: map[string]types.SpeakerStats{},
	}
	for _, seg := range segments {
		words := len(strings.Fields(seg.Text))
		stats.TotalSegments++
		stats.TotalWords += words
		if seg.EndTime > stats.TotalDuration {
			stats.TotalDuration = seg.EndTime
		}

		sp := stats.SpeakerBreakdown[seg.Speaker]
		sp.Segments++
		sp.Words += words
		sp.Duration += seg.Duration()
		stats.SpeakerBreakdown[seg.Speaker] = sp
	}
	return stats
}

func joinText(segments []types.TranscriptSegment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(seg.Speaker)
		b.WriteString(": ")
		b.WriteString(seg.Text)
	}
	return b.String()
}

func dropEmpty(segments []types.TranscriptSegment) []types.TranscriptSegment {
	out := segments[:0]
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) != "" {
			out = append(out, seg)
		}
	}
	return out
}

func splitTrailing(w string) (string, string) {
	bare := strings.TrimRight(w, ".,!?;:")
	return bare, w[len(bare):]
}

func collapseSpaces(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, " ,", ",")
	s = strings.ReplaceAll(s, " .", ".")
	return strings.TrimLeft(s, ",. ")
}

// formatClock renders seconds as MM:SS, or HH:MM:SS past an hour.
func formatClock(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
