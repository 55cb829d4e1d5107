package chunker

import (
	"reflect"
	"strings"
	"testing"

	"interview-insights-go/internal/rules"
	"interview-insights-go/internal/types"
)

// wordTokenizer makes token math predictable: one token per word.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) int { return len(strings.Fields(text)) }

func seg(id int, speaker, text string, start, end float64) types.TranscriptSegment {
	return types.TranscriptSegment{
		ID: id, Speaker: speaker, StartTime: start, EndTime: end,
		Text: text, Sentiment: types.SentimentNeutral, SentimentScore: 50,
	}
}

func transcript(segments ...types.TranscriptSegment) *types.Transcript {
	return &types.Transcript{Segments: segments}
}

func newTestChunker(maxTokens, overlap int) *Chunker {
	c := New(wordTokenizer{}, rules.Defaults())
	c.MaxTokens = maxTokens
	c.OverlapTokens = overlap
	return c
}

func TestTokenStrategyRespectsBudget(t *testing.T) {
	c := newTestChunker(12, 0)
	tr := transcript(
		seg(1, "interviewer", "tell me about your background please", 0, 5),
		seg(2, "candidate", "I spent four years building services", 5, 12),
		seg(3, "candidate", "mostly payments and billing work", 12, 18),
		seg(4, "interviewer", "interesting tell me more", 18, 21),
	)
	chunks, summary, err := c.Chunk(tr, StrategyToken)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	for _, ch := range chunks {
		if ch.Tokens > c.MaxTokens {
			t.Errorf("chunk %d has %d tokens, budget %d", ch.ChunkID, ch.Tokens, c.MaxTokens)
		}
	}
	if summary.TotalChunks != len(chunks) || summary.Strategy != StrategyToken {
		t.Errorf("summary mismatch: %+v", summary)
	}
	covered := 0
	for _, ch := range chunks {
		covered += ch.SegmentCount
	}
	if covered < len(tr.Segments) {
		t.Errorf("segments lost: covered %d of %d", covered, len(tr.Segments))
	}
}

func TestTokenStrategyOverlapCarriesContext(t *testing.T) {
	c := newTestChunker(10, 4)
	tr := transcript(
		seg(1, "candidate", "one two three four five", 0, 5),
		seg(2, "candidate", "six seven eight", 5, 8),
		seg(3, "candidate", "nine ten eleven twelve thirteen", 8, 13),
	)
	chunks, _, err := c.Chunk(tr, StrategyToken)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected a split, got %d chunks", len(chunks))
	}
	// segment 2 fits the overlap budget, so chunk 2 repeats it before segment 3
	if !strings.Contains(chunks[1].Text, "six seven eight") {
		t.Errorf("overlap segment missing from chunk 2: %q", chunks[1].Text)
	}
}

func TestTokenStrategyOversizedSegmentOwnChunk(t *testing.T) {
	c := newTestChunker(4, 0)
	tr := transcript(
		seg(1, "candidate", "short one", 0, 2),
		seg(2, "candidate", "this single utterance blows straight through the whole budget", 2, 10),
	)
	chunks, _, err := c.Chunk(tr, StrategyToken)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[1].SegmentCount != 1 {
		t.Errorf("oversized segment should stand alone, got %d segments", chunks[1].SegmentCount)
	}
}

func TestSpeakerStrategySplitsOnTurns(t *testing.T) {
	c := newTestChunker(DefaultMaxTokens, DefaultOverlapTokens)
	tr := transcript(
		seg(1, "interviewer", "first question", 0, 2),
		seg(2, "candidate", "first answer", 2, 5),
		seg(3, "candidate", "continued answer", 5, 8),
		seg(4, "interviewer", "second question", 8, 10),
	)
	chunks, _, err := c.Chunk(tr, StrategySpeaker)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[1].SegmentCount != 2 {
		t.Errorf("consecutive candidate segments should share a chunk")
	}
	if !reflect.DeepEqual(chunks[0].Speakers, []string{"interviewer"}) {
		t.Errorf("chunk speakers = %v", chunks[0].Speakers)
	}
}

func TestTopicStrategySplitsOnCategoryChange(t *testing.T) {
	c := newTestChunker(DefaultMaxTokens, DefaultOverlapTokens)
	tr := transcript(
		seg(1, "interviewer", "walk me through your experience", 0, 3),
		seg(2, "candidate", "I worked on several backend systems", 3, 8),
		seg(3, "interviewer", "how would you design a rate limiter", 8, 12),
		seg(4, "candidate", "I would start from the architecture", 12, 18),
		seg(5, "interviewer", "what are your salary expectations", 18, 22),
	)
	chunks, _, err := c.Chunk(tr, StrategyTopic)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3 (background, technical, compensation)", len(chunks))
	}
	if chunks[0].SegmentCount != 2 || chunks[1].SegmentCount != 2 || chunks[2].SegmentCount != 1 {
		t.Errorf("topic boundaries off: %d/%d/%d",
			chunks[0].SegmentCount, chunks[1].SegmentCount, chunks[2].SegmentCount)
	}
}

func TestQAStrategyPairsQuestionsWithAnswers(t *testing.T) {
	c := newTestChunker(DefaultMaxTokens, DefaultOverlapTokens)
	q1 := seg(1, "interviewer", "Why do you want this role?", 0, 3)
	q1.IsQuestion = true
	a1 := seg(2, "candidate", "The problem space fits my background", 3, 10)
	q2 := seg(3, "interviewer", "What is your biggest weakness?", 10, 13)
	q2.IsQuestion = true
	a2 := seg(4, "candidate", "I over-invest in tooling", 13, 18)
	a2b := seg(5, "candidate", "but I have been working on it", 18, 22)

	chunks, _, err := c.Chunk(transcript(q1, a1, q2, a2, a2b), StrategyQA)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].SegmentCount != 2 || chunks[1].SegmentCount != 3 {
		t.Errorf("qa pairing off: %d/%d", chunks[0].SegmentCount, chunks[1].SegmentCount)
	}
}

func TestChunkingIsDeterministic(t *testing.T) {
	c := newTestChunker(8, 2)
	tr := transcript(
		seg(1, "interviewer", "tell me about a hard bug", 0, 3),
		seg(2, "candidate", "we had a race in the cache layer", 3, 9),
		seg(3, "candidate", "it only showed under load", 9, 13),
	)
	first, firstSummary, err := c.Chunk(tr, StrategyToken)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	second, secondSummary, err := c.Chunk(tr, StrategyToken)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("chunking is not deterministic")
	}
	if !reflect.DeepEqual(firstSummary, secondSummary) {
		t.Error("summaries differ across runs")
	}
}

func TestUnknownStrategyRejected(t *testing.T) {
	c := newTestChunker(DefaultMaxTokens, DefaultOverlapTokens)
	if _, _, err := c.Chunk(transcript(seg(1, "candidate", "hi", 0, 1)), "paragraph"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
