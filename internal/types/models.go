package types

import "time"

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

const (
	RoleInterviewer = "interviewer"
	RoleCandidate   = "candidate"
)

// TranscriptSegment is one contiguous span of speech from a single speaker.
// The four behavioral metrics are pointers: a nil metric was not reported by
// the transcription service and is excluded from averages.
type TranscriptSegment struct {
	ID              int            `json:"id"`
	Speaker         string         `json:"speaker"`
	StartTime       float64        `json:"start_time"`
	EndTime         float64        `json:"end_time"`
	Timestamp       string         `json:"timestamp,omitempty"`
	Text            string         `json:"text"`
	Sentiment       SentimentLabel `json:"sentiment"`
	SentimentScore  float64        `json:"sentiment_score"`
	Clarity         *float64       `json:"clarity,omitempty"`
	Confidence      *float64       `json:"confidence,omitempty"`
	Fluency         *float64       `json:"fluency,omitempty"`
	Professionalism *float64       `json:"professionalism,omitempty"`
	IsQuestion      bool           `json:"is_question,omitempty"`
	QuestionText    string         `json:"question_text,omitempty"`
}

// Duration is the span length in seconds.
func (s TranscriptSegment) Duration() float64 {
	return s.EndTime - s.StartTime
}

type SpeakerStats struct {
	Segments int     `json:"segments"`
	Words    int     `json:"words"`
	Duration float64 `json:"duration"`
}

type TranscriptStats struct {
	TotalSegments    int                     `json:"total_segments"`
	TotalDuration    float64                 `json:"total_duration"`
	TotalWords       int                     `json:"total_words"`
	SpeakerBreakdown map[string]SpeakerStats `json:"speaker_breakdown"`
}

// Transcript is the normalized, ordered transcript. Built once per request
// and treated as immutable afterwards.
type Transcript struct {
	Segments   []TranscriptSegment `json:"segments"`
	Statistics TranscriptStats     `json:"statistics"`
	RawText    string              `json:"raw_text"`
}

// Chunk is a bounded slice of the transcript sized for LLM consumption.
type Chunk struct {
	ChunkID      int      `json:"chunk_id"`
	Text         string   `json:"text"`
	Tokens       int      `json:"tokens"`
	StartTime    float64  `json:"start_time"`
	EndTime      float64  `json:"end_time"`
	Speakers     []string `json:"speakers"`
	SegmentCount int      `json:"segment_count"`
}

type ChunkDetail struct {
	ChunkID  int      `json:"chunk_id"`
	Tokens   int      `json:"tokens"`
	Speakers []string `json:"speakers"`
	Duration float64  `json:"duration"`
}

type ChunkSummary struct {
	TotalChunks       int           `json:"total_chunks"`
	TotalTokens       int           `json:"total_tokens"`
	AvgTokensPerChunk int           `json:"avg_tokens_per_chunk"`
	MinTokens         int           `json:"min_tokens"`
	MaxTokens         int           `json:"max_tokens"`
	Strategy          string        `json:"strategy"`
	ChunkDetails      []ChunkDetail `json:"chunk_details,omitempty"`
}

type TimelinePoint struct {
	SegmentIndex int            `json:"segment_index"`
	Label        SentimentLabel `json:"label"`
	Score        float64        `json:"score"`
}

// AnalysisSummary is the request-level reduction of per-segment scores.
type AnalysisSummary struct {
	AvgSentimentScore  float64         `json:"avg_sentiment_score"`
	AvgClarity         float64         `json:"avg_clarity"`
	AvgConfidence      float64         `json:"avg_confidence"`
	AvgFluency         float64         `json:"avg_fluency"`
	AvgProfessionalism float64         `json:"avg_professionalism"`
	DominantSentiment  SentimentLabel  `json:"dominant_sentiment"`
	InterestLevel      float64         `json:"interest_level"`
	EnthusiasmScore    float64         `json:"enthusiasm_score"`
	HesitationDetected bool            `json:"hesitation_detected"`
	StressIndicators   bool            `json:"stress_indicators"`
	SentimentTimeline  []TimelinePoint `json:"sentiment_timeline"`
	CandidateQuestions []string        `json:"candidate_questions"`
	Strengths          []string        `json:"strengths"`
	Concerns           []string        `json:"concerns"`
}

type Stage string

const (
	StagePending       Stage = "pending"
	StagePreprocessing Stage = "preprocessing"
	StageTranscribing  Stage = "transcribing"
	StageNormalizing   Stage = "normalizing"
	StageChunking      Stage = "chunking"
	StageAnalyzing     Stage = "analyzing"
	StageCompleted     Stage = "completed"
	StageFailed        Stage = "failed"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type AudioInfo struct {
	Filename           string  `json:"filename"`
	Language           string  `json:"language"`
	DiarizationEnabled bool    `json:"diarization_enabled"`
	DurationSeconds    float64 `json:"duration_seconds,omitempty"`
}

// CallResult is the payload of a completed request.
type CallResult struct {
	Transcript   Transcript      `json:"transcript"`
	Chunks       []Chunk         `json:"chunks"`
	ChunkSummary ChunkSummary    `json:"chunk_summary"`
	Analysis     AnalysisSummary `json:"analysis_summary"`
	AudioInfo    AudioInfo       `json:"audio_info"`
}

// ProcessingRequest is the full cache record for one request id: progress
// snapshot while running, terminal record once done.
type ProcessingRequest struct {
	RequestID   string      `json:"request_id"`
	Status      Status      `json:"status"`
	Stage       Stage       `json:"stage"`
	Progress    int         `json:"progress"`
	Attempt     int         `json:"attempt"`
	RetryCount  int         `json:"retry_count"`
	CandidateID int         `json:"candidate_id,omitempty"`
	JobID       int         `json:"job_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
	Result      *CallResult `json:"result,omitempty"`
}

// IsTerminal reports whether the request reached a final state.
func (r *ProcessingRequest) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}
