package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"interview-insights-go/internal/analysis"
	"interview-insights-go/internal/audio"
	"interview-insights-go/internal/cache"
	"interview-insights-go/internal/chunker"
	"interview-insights-go/internal/logger"
	"interview-insights-go/internal/normalizer"
	"interview-insights-go/internal/transcription"
	"interview-insights-go/internal/types"
)

const (
	SuccessTTL = 7 * 24 * time.Hour
	FailureTTL = 24 * time.Hour
	// ProgressTTL covers pending and in-flight snapshots so abandoned
	// requests age out.
	ProgressTTL = 24 * time.Hour
)

// Submission is one queued processing request.
type Submission struct {
	RequestID   string
	Audio       []byte
	Filename    string
	Language    string
	Diarization bool
	Strategy    string
	CandidateID int
	JobID       int
}

// Orchestrator drives one submission through every stage, persisting a
// progress snapshot per transition and retrying transient failures from the
// top.
type Orchestrator struct {
	pre     *audio.Preprocessor
	split   *audio.Splitter
	adapter *transcription.Adapter
	norm    *normalizer.Normalizer
	chunk   *chunker.Chunker
	agg     *analysis.Aggregator
	store   cache.Store
	retry   RetryPolicy

	successTTL time.Duration
	failureTTL time.Duration
}

func NewOrchestrator(
	pre *audio.Preprocessor,
	split *audio.Splitter,
	adapter *transcription.Adapter,
	norm *normalizer.Normalizer,
	chunk *chunker.Chunker,
	agg *analysis.Aggregator,
	store cache.Store,
	retry RetryPolicy,
) *Orchestrator {
	return &Orchestrator{
		pre:        pre,
		split:      split,
		adapter:    adapter,
		norm:       norm,
		chunk:      chunk,
		agg:        agg,
		store:      store,
		retry:      retry,
		successTTL: SuccessTTL,
		failureTTL: FailureTTL,
	}
}

// Process runs the submission to a terminal state. Transient failures
// restart from preprocessing up to the retry policy's attempt budget.
func (o *Orchestrator) Process(ctx context.Context, sub Submission) {
	log := logger.New().WithRequestID(sub.RequestID)

	// the submission handler writes a pending record first; its created_at
	// marks submission time, not worker pickup
	createdAt := time.Now().UTC()
	if existing, err := o.store.Get(sub.RequestID); err == nil && !existing.CreatedAt.IsZero() {
		createdAt = existing.CreatedAt
	}

	attempt := 1
	for {
		result, err := o.runAttempt(ctx, sub, attempt, createdAt, log)
		if err == nil {
			o.persistSuccess(sub, attempt, createdAt, result, log)
			return
		}
		if o.retry.ShouldRetry(err, attempt) {
			log.WithError(err).WithField("attempt", attempt).Warn("transient failure, retrying")
			o.waitBackoff(ctx, attempt)
			attempt++
			continue
		}
		log.WithError(err).WithField("attempt", attempt).Error("pipeline failed")
		o.persistFailure(sub, attempt, createdAt, err, log)
		return
	}
}

func (o *Orchestrator) waitBackoff(ctx context.Context, attempt int) {
	if o.retry.NewBackOff == nil {
		return
	}
	bo := o.retry.NewBackOff()
	var wait time.Duration
	for i := 0; i < attempt; i++ {
		wait = bo.NextBackOff()
	}
	if wait <= 0 {
		return
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

func (o *Orchestrator) runAttempt(ctx context.Context, sub Submission, attempt int, createdAt time.Time, log *logrus.Entry) (*types.CallResult, error) {
	o.snapshot(sub, attempt, createdAt, types.StagePreprocessing, 10, log)
	pre, err := o.pre.Process(sub.Audio, sub.Filename)
	if err != nil {
		return nil, stageErr(types.StagePreprocessing, err)
	}

	ranges, err := o.split.Split(pre)
	if err != nil {
		return nil, stageErr(types.StagePreprocessing, err)
	}

	o.snapshot(sub, attempt, createdAt, types.StageTranscribing, 30, log)
	outcome, err := o.adapter.Transcribe(ctx, ranges)
	if err != nil {
		return nil, stageErr(types.StageTranscribing, err)
	}
	if outcome.Fallback {
		log.Warn("transcription degraded to sentence fallback")
	}

	o.snapshot(sub, attempt, createdAt, types.StageNormalizing, 60, log)
	transcript := o.norm.Normalize(outcome.Segments)

	o.snapshot(sub, attempt, createdAt, types.StageChunking, 80, log)
	chunks, chunkSummary, err := o.chunk.Chunk(transcript, sub.Strategy)
	if err != nil {
		return nil, stageErr(types.StageChunking, err)
	}

	o.snapshot(sub, attempt, createdAt, types.StageAnalyzing, 90, log)
	summary := o.agg.Summarize(transcript)

	return &types.CallResult{
		Transcript:   *transcript,
		Chunks:       chunks,
		ChunkSummary: chunkSummary,
		Analysis:     summary,
		AudioInfo: types.AudioInfo{
			Filename:           sub.Filename,
			Language:           sub.Language,
			DiarizationEnabled: sub.Diarization,
			DurationSeconds:    pre.Duration(),
		},
	}, nil
}

// snapshot persists a progress record. Writes are fenced by attempt number:
// a snapshot never overwrites one from a newer attempt.
func (o *Orchestrator) snapshot(sub Submission, attempt int, createdAt time.Time, stage types.Stage, progress int, log *logrus.Entry) {
	if o.stale(sub.RequestID, attempt) {
		log.WithField("attempt", attempt).Debug("skipping stale snapshot")
		return
	}
	rec := &types.ProcessingRequest{
		RequestID:   sub.RequestID,
		Status:      types.StatusProcessing,
		Stage:       stage,
		Progress:    progress,
		Attempt:     attempt,
		RetryCount:  attempt - 1,
		CandidateID: sub.CandidateID,
		JobID:       sub.JobID,
		CreatedAt:   createdAt,
	}
	if err := o.store.Set(sub.RequestID, rec, ProgressTTL); err != nil {
		log.WithError(err).Warn("progress snapshot write failed")
	}
}

func (o *Orchestrator) stale(requestID string, attempt int) bool {
	existing, err := o.store.Get(requestID)
	if err != nil {
		return false
	}
	return existing.Attempt > attempt
}

func (o *Orchestrator) persistSuccess(sub Submission, attempt int, createdAt time.Time, result *types.CallResult, log *logrus.Entry) {
	if o.stale(sub.RequestID, attempt) {
		return
	}
	now := time.Now().UTC()
	rec := &types.ProcessingRequest{
		RequestID:   sub.RequestID,
		Status:      types.StatusCompleted,
		Stage:       types.StageCompleted,
		Progress:    100,
		Attempt:     attempt,
		RetryCount:  attempt - 1,
		CandidateID: sub.CandidateID,
		JobID:       sub.JobID,
		CreatedAt:   createdAt,
		CompletedAt: &now,
		Result:      result,
	}
	if err := o.store.Set(sub.RequestID, rec, o.successTTL); err != nil {
		log.WithError(err).Error("result write failed")
		return
	}
	log.WithField("retry_count", rec.RetryCount).Info("pipeline completed")
}

func (o *Orchestrator) persistFailure(sub Submission, attempt int, createdAt time.Time, cause error, log *logrus.Entry) {
	if o.stale(sub.RequestID, attempt) {
		return
	}
	now := time.Now().UTC()
	rec := &types.ProcessingRequest{
		RequestID:   sub.RequestID,
		Status:      types.StatusFailed,
		Stage:       types.StageFailed,
		Progress:    0,
		Attempt:     attempt,
		RetryCount:  attempt - 1,
		CandidateID: sub.CandidateID,
		JobID:       sub.JobID,
		CreatedAt:   createdAt,
		CompletedAt: &now,
		Error:       cause.Error(),
	}
	if err := o.store.Set(sub.RequestID, rec, o.failureTTL); err != nil {
		log.WithError(err).Error("failure record write failed")
	}
}
