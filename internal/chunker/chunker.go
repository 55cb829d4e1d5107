package chunker

import (
	"fmt"
	"sort"
	"strings"

	"interview-insights-go/internal/logger"
	"interview-insights-go/internal/rules"
	"interview-insights-go/internal/types"
)

const (
	StrategyToken   = "token"
	StrategySpeaker = "speaker"
	StrategyTopic   = "topic"
	StrategyQA      = "qa"

	DefaultMaxTokens     = 4000
	DefaultOverlapTokens = 200
)

// Chunker slices a normalized transcript into bounded chunks. Chunking is a
// pure function of the transcript: the same input always yields the same
// chunks.
type Chunker struct {
	tok    Tokenizer
	tables rules.Tables

	MaxTokens     int
	OverlapTokens int
}

func New(tok Tokenizer, tables rules.Tables) *Chunker {
	return &Chunker{
		tok:           tok,
		tables:        tables,
		MaxTokens:     DefaultMaxTokens,
		OverlapTokens: DefaultOverlapTokens,
	}
}

// Chunk applies the named strategy. Unknown strategies are an input error.
func (c *Chunker) Chunk(t *types.Transcript, strategy string) ([]types.Chunk, types.ChunkSummary, error) {
	log := logger.New().WithField("component", "chunker").WithField("strategy", strategy)

	var groups [][]types.TranscriptSegment
	switch strategy {
	case StrategyToken, "":
		strategy = StrategyToken
		groups = c.byTokens(t.Segments)
	case StrategySpeaker:
		groups = c.bySpeaker(t.Segments)
	case StrategyTopic:
		groups = c.byTopic(t.Segments)
	case StrategyQA:
		groups = c.byQuestionAnswer(t.Segments)
	default:
		return nil, types.ChunkSummary{}, fmt.Errorf("unknown chunking strategy %q", strategy)
	}

	chunks := make([]types.Chunk, 0, len(groups))
	for i, g := range groups {
		chunks = append(chunks, c.build(i+1, g))
	}
	summary := summarize(chunks, strategy)
	log.WithField("chunks", len(chunks)).WithField("tokens", summary.TotalTokens).Info("transcript chunked")
	return chunks, summary, nil
}

// byTokens packs consecutive segments up to MaxTokens, carrying roughly
// OverlapTokens of trailing segments into the next chunk for context. A
// single oversized segment becomes its own chunk.
func (c *Chunker) byTokens(segments []types.TranscriptSegment) [][]types.TranscriptSegment {
	var groups [][]types.TranscriptSegment
	var current []types.TranscriptSegment
	tokens := 0

	for i := 0; i < len(segments); i++ {
		segTokens := c.tok.Count(render(segments[i]))
		if len(current) > 0 && tokens+segTokens > c.MaxTokens {
			groups = append(groups, current)
			current, tokens = c.overlapTail(current)
		}
		current = append(current, segments[i])
		tokens += segTokens
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// overlapTail walks back whole segments from the finished chunk until the
// overlap budget is met, never carrying the entire chunk forward.
func (c *Chunker) overlapTail(chunk []types.TranscriptSegment) ([]types.TranscriptSegment, int) {
	var tail []types.TranscriptSegment
	tokens := 0
	for i := len(chunk) - 1; i > 0; i-- {
		segTokens := c.tok.Count(render(chunk[i]))
		if tokens+segTokens > c.OverlapTokens {
			break
		}
		tail = append([]types.TranscriptSegment{chunk[i]}, tail...)
		tokens += segTokens
	}
	return tail, tokens
}

// bySpeaker starts a new chunk on every speaker change.
func (c *Chunker) bySpeaker(segments []types.TranscriptSegment) [][]types.TranscriptSegment {
	var groups [][]types.TranscriptSegment
	var current []types.TranscriptSegment
	for _, seg := range segments {
		if len(current) > 0 && current[len(current)-1].Speaker != seg.Speaker {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, seg)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// byTopic groups segments by the topic category their keywords map to.
// Segments without a keyword stay with the running topic.
func (c *Chunker) byTopic(segments []types.TranscriptSegment) [][]types.TranscriptSegment {
	var groups [][]types.TranscriptSegment
	var current []types.TranscriptSegment
	topic := ""
	for _, seg := range segments {
		next := c.topicOf(seg.Text)
		if next != "" && topic != "" && next != topic && len(current) > 0 {
			groups = append(groups, current)
			current = nil
		}
		if next != "" {
			topic = next
		}
		current = append(current, seg)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func (c *Chunker) topicOf(text string) string {
	lower := strings.ToLower(text)
	keywords := make([]string, 0, len(c.tables.TopicKeywords))
	for k := range c.tables.TopicKeywords {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return c.tables.TopicKeywords[k]
		}
	}
	return ""
}

// byQuestionAnswer pairs each question with the segments that follow it,
// up to the next question. Leading small talk before the first question
// forms its own chunk.
func (c *Chunker) byQuestionAnswer(segments []types.TranscriptSegment) [][]types.TranscriptSegment {
	var groups [][]types.TranscriptSegment
	var current []types.TranscriptSegment
	for _, seg := range segments {
		if isQuestion(seg) && len(current) > 0 {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, seg)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func isQuestion(seg types.TranscriptSegment) bool {
	return seg.IsQuestion || strings.HasSuffix(strings.TrimSpace(seg.Text), "?")
}

func (c *Chunker) build(id int, segments []types.TranscriptSegment) types.Chunk {
	var b strings.Builder
	seen := map[string]bool{}
	var speakers []string
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(render(seg))
		if !seen[seg.Speaker] {
			seen[seg.Speaker] = true
			speakers = append(speakers, seg.Speaker)
		}
	}
	text := b.String()
	return types.Chunk{
		ChunkID:      id,
		Text:         text,
		Tokens:       c.tok.Count(text),
		StartTime:    segments[0].StartTime,
		EndTime:      segments[len(segments)-1].EndTime,
		Speakers:     speakers,
		SegmentCount: len(segments),
	}
}

func render(seg types.TranscriptSegment) string {
	return seg.Speaker + ": " + seg.Text
}

func summarize(chunks []types.Chunk, strategy string) types.ChunkSummary {
	s := types.ChunkSummary{TotalChunks: len(chunks), Strategy: strategy}
	if len(chunks) == 0 {
		return s
	}
	s.MinTokens = chunks[0].Tokens
	for _, ch := range chunks {
		s.TotalTokens += ch.Tokens
		if ch.Tokens < s.MinTokens {
			s.MinTokens = ch.Tokens
		}
		if ch.Tokens > s.MaxTokens {
			s.MaxTokens = ch.Tokens
		}
		s.ChunkDetails = append(s.ChunkDetails, types.ChunkDetail{
			ChunkID:  ch.ChunkID,
			Tokens:   ch.Tokens,
			Speakers: ch.Speakers,
			Duration: ch.EndTime - ch.StartTime,
		})
	}
	s.AvgTokensPerChunk = s.TotalTokens / len(chunks)
	return s
}
