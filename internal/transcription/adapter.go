package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"interview-insights-go/internal/audio"
	"interview-insights-go/internal/logger"
	"interview-insights-go/internal/types"
)

const transcribePrompt = `You are a speech transcription engine for interview recordings. Transcribe the attached audio and return ONLY a JSON object, no prose and no markdown fences, with this exact shape:

{
  "segments": [
    {
      "speaker": "Speaker 1",
      "start_time": 0.0,
      "end_time": 4.2,
      "text": "...",
      "sentiment": "positive|neutral|negative",
      "sentiment_score": 72,
      "clarity": 80,
      "confidence": 75,
      "fluency": 70,
      "professionalism": 85,
      "is_question": false,
      "question_text": ""
    }
  ]
}

Rules:
- One segment per continuous utterance by one speaker.
- Times are seconds from the start of this audio.
- Scores are integers 0-100; omit a score you cannot judge.
- sentiment_score follows sentiment: positive above 60, negative below 40.
- Set is_question true and fill question_text when the utterance asks something.`

// wireSegment tolerates degraded model output: score fields arrive as numbers,
// numeric strings, or junk, and junk must not sink the whole response.
type wireSegment struct {
	Speaker         string `json:"speaker"`
	StartTime       any    `json:"start_time"`
	EndTime         any    `json:"end_time"`
	Text            string `json:"text"`
	Sentiment       string `json:"sentiment"`
	SentimentScore  any    `json:"sentiment_score"`
	Clarity         any    `json:"clarity"`
	Confidence      any    `json:"confidence"`
	Fluency         any    `json:"fluency"`
	Professionalism any    `json:"professionalism"`
	IsQuestion      bool   `json:"is_question"`
	QuestionText    string `json:"question_text"`
}

type wireResponse struct {
	Segments []wireSegment `json:"segments"`
}

// Outcome carries the assembled segments plus whether any sub-range fell back
// to naive sentence segmentation of the raw model text.
type Outcome struct {
	Segments []types.TranscriptSegment
	Fallback bool
}

// Adapter turns preprocessed audio sub-ranges into transcript segments.
type Adapter struct {
	client      Client
	language    string
	diarization bool
}

func NewAdapter(client Client, language string, diarization bool) *Adapter {
	return &Adapter{client: client, language: language, diarization: diarization}
}

// Transcribe runs each sub-range through the gateway. Sub-ranges may run
// concurrently but results assemble strictly in index order, with segment
// times shifted by the range offset and ids renumbered globally.
func (a *Adapter) Transcribe(ctx context.Context, ranges []audio.SubRange) (Outcome, error) {
	log := logger.New().WithField("component", "transcription.adapter")

	type rangeResult struct {
		segments []types.TranscriptSegment
		fallback bool
		err      error
	}
	results := make([]rangeResult, len(ranges))

	var wg sync.WaitGroup
	for i := range ranges {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := ranges[i]
			content, err := a.client.Transcribe(ctx, Request{
				AudioWAV:    sub.WAV,
				MimeType:    "audio/wav",
				Language:    a.language,
				Diarization: a.diarization,
				Prompt:      transcribePrompt,
			})
			if err != nil {
				results[i] = rangeResult{err: err}
				return
			}
			segs, ok := parseSegments(content)
			if !ok {
				log.WithField("range", sub.Index).Warn("unparsable transcription response, using sentence fallback")
				segs = fallbackSegments(content)
				results[i] = rangeResult{segments: shift(segs, sub.Offset), fallback: true}
				return
			}
			results[i] = rangeResult{segments: shift(segs, sub.Offset)}
		}(i)
	}
	wg.Wait()

	out := Outcome{}
	for i, r := range results {
		if r.err != nil {
			return Outcome{}, fmt.Errorf("sub-range %d: %w", i, r.err)
		}
		out.Segments = append(out.Segments, r.segments...)
		if r.fallback {
			out.Fallback = true
		}
	}

	sort.SliceStable(out.Segments, func(i, j int) bool {
		return out.Segments[i].StartTime < out.Segments[j].StartTime
	})
	for i := range out.Segments {
		out.Segments[i].ID = i + 1
	}
	log.WithField("segments", len(out.Segments)).Info("transcription assembled")
	return out, nil
}

func shift(segs []types.TranscriptSegment, offset float64) []types.TranscriptSegment {
	for i := range segs {
		segs[i].StartTime += offset
		segs[i].EndTime += offset
	}
	return segs
}

// parseSegments extracts and decodes the JSON payload from the model text.
// Returns false when no usable JSON object is present.
func parseSegments(content string) ([]types.TranscriptSegment, bool) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, false
	}
	var resp wireResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, false
	}
	segs := make([]types.TranscriptSegment, 0, len(resp.Segments))
	for i, w := range resp.Segments {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		seg := types.TranscriptSegment{
			ID:           i + 1,
			Speaker:      defaultSpeaker(w.Speaker),
			StartTime:    floatOr(w.StartTime, 0),
			EndTime:      floatOr(w.EndTime, 0),
			Text:         text,
			Sentiment:    normalizeSentiment(w.Sentiment),
			IsQuestion:   w.IsQuestion,
			QuestionText: strings.TrimSpace(w.QuestionText),
		}
		if seg.EndTime < seg.StartTime {
			seg.EndTime = seg.StartTime
		}
		if s, ok := score(w.SentimentScore); ok {
			seg.SentimentScore = *s
		} else {
			seg.SentimentScore = 50
		}
		seg.Clarity, _ = score(w.Clarity)
		seg.Confidence, _ = score(w.Confidence)
		seg.Fluency, _ = score(w.Fluency)
		seg.Professionalism, _ = score(w.Professionalism)
		segs = append(segs, seg)
	}
	return segs, true
}

func defaultSpeaker(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Speaker 1"
	}
	return s
}

func normalizeSentiment(s string) types.SentimentLabel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return types.SentimentPositive
	case "negative":
		return types.SentimentNegative
	default:
		return types.SentimentNeutral
	}
}

// floatOr coerces json numbers and numeric strings.
func floatOr(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%g", &f); err == nil {
			return f
		}
	}
	return def
}

func score(v any) (*float64, bool) {
	switch n := v.(type) {
	case float64:
		c := clampScore(n)
		return &c, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%g", &f); err == nil {
			c := clampScore(f)
			return &c, true
		}
	}
	return nil, false
}

func clampScore(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return f
}

// extractJSON pulls the first balanced JSON object out of model text,
// stripping markdown fences when present.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.Contains(content, "```") {
		start := strings.Index(content, "```")
		rest := content[start+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			content = strings.TrimSpace(rest[:end])
		} else {
			content = strings.TrimSpace(rest)
		}
	}

	start := strings.Index(content, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return content[start : i+1]
				}
			}
		}
	}
	return ""
}

// fallbackSegments builds neutral segments from raw text when the response
// is not valid JSON. Durations assume roughly two words per second; every
// score, behavioral metrics included, defaults to 50.
func fallbackSegments(content string) []types.TranscriptSegment {
	text := strings.TrimSpace(stripFences(content))
	if text == "" {
		return nil
	}
	sentences := splitSentences(text)
	segs := make([]types.TranscriptSegment, 0, len(sentences))
	cursor := 0.0
	for i, s := range sentences {
		words := len(strings.Fields(s))
		dur := float64(words) * 0.5
		if dur < 1.0 {
			dur = 1.0
		}
		neutral := func() *float64 {
			v := 50.0
			return &v
		}
		segs = append(segs, types.TranscriptSegment{
			ID:              i + 1,
			Speaker:         "Speaker 1",
			StartTime:       cursor,
			EndTime:         cursor + dur,
			Text:            s,
			Sentiment:       types.SentimentNeutral,
			SentimentScore:  50,
			Clarity:         neutral(),
			Confidence:      neutral(),
			Fluency:         neutral(),
			Professionalism: neutral(),
		})
		cursor += dur
	}
	return segs
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	return strings.ReplaceAll(s, "```", "")
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '?' || r == '!' {
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}
