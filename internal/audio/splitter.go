package audio

import (
	"fmt"

	"interview-insights-go/internal/logger"
)

const (
	// DefaultMaxPayloadBytes is the transcription gateway's payload ceiling.
	DefaultMaxPayloadBytes = 15 * 1024 * 1024

	// DefaultTargetBytes is the per-sub-range size we aim for when splitting.
	DefaultTargetBytes = 10 * 1024 * 1024

	// defaultToleranceSeconds bounds how far from the target a silence cut
	// may land before we fall back to a fixed-position cut.
	defaultToleranceSeconds = 15.0

	// cut candidates are scored over 50ms windows
	cutWindowSamples = TargetSampleRate / 20
)

// SubRange is a service-size-compliant slice of the preprocessed audio.
// Offset is its start position in the original timeline.
type SubRange struct {
	Index    int
	Offset   float64
	Duration float64
	WAV      []byte
}

// Splitter partitions oversized audio into sub-ranges, preferring cuts at
// silence so no word is sliced mid-utterance.
type Splitter struct {
	MaxPayloadBytes  int
	TargetBytes      int
	ToleranceSeconds float64
}

func NewSplitter() *Splitter {
	return &Splitter{
		MaxPayloadBytes:  DefaultMaxPayloadBytes,
		TargetBytes:      DefaultTargetBytes,
		ToleranceSeconds: defaultToleranceSeconds,
	}
}

// Split cuts the audio into sub-ranges whose WAV payloads fit the service
// limit. Every sample lands in exactly one sub-range, so concatenated
// durations equal the total duration.
func (sp *Splitter) Split(p *Preprocessed) ([]SubRange, error) {
	log := logger.New().WithField("component", "audio.splitter")

	if len(p.Samples) == 0 {
		return nil, fmt.Errorf("no samples to split")
	}
	if len(p.WAV) <= sp.MaxPayloadBytes {
		return []SubRange{{Index: 0, Offset: 0, Duration: p.Duration(), WAV: p.WAV}}, nil
	}

	// 16-bit mono: two payload bytes per sample.
	targetSamples := sp.TargetBytes / 2
	tolerance := int(sp.ToleranceSeconds * float64(p.SampleRate))

	var ranges []SubRange
	start := 0
	for start < len(p.Samples) {
		remaining := len(p.Samples) - start
		if remaining <= targetSamples {
			ranges = append(ranges, SubRange{Index: len(ranges), Offset: float64(start) / float64(p.SampleRate)})
			sub := p.Samples[start:]
			if err := finishRange(&ranges[len(ranges)-1], sub, p.SampleRate); err != nil {
				return nil, err
			}
			break
		}

		cut := sp.findCut(p.Samples, start+targetSamples, tolerance)
		ranges = append(ranges, SubRange{Index: len(ranges), Offset: float64(start) / float64(p.SampleRate)})
		sub := p.Samples[start:cut]
		if err := finishRange(&ranges[len(ranges)-1], sub, p.SampleRate); err != nil {
			return nil, err
		}
		start = cut
	}

	log.WithField("sub_ranges", len(ranges)).WithField("total_duration", p.Duration()).Info("audio split for transcription")
	return ranges, nil
}

// findCut returns the quietest 50ms window boundary within the tolerance
// around the target index, or the target itself when nothing quieter exists.
func (sp *Splitter) findCut(samples []int, target, tolerance int) int {
	lo := target - tolerance
	if lo < cutWindowSamples {
		lo = cutWindowSamples
	}
	hi := target + tolerance
	if hi > len(samples)-cutWindowSamples {
		hi = len(samples) - cutWindowSamples
	}
	if lo >= hi {
		return target
	}

	best, bestEnergy := target, int64(-1)
	for i := lo; i < hi; i += cutWindowSamples {
		var energy int64
		for _, s := range samples[i : i+cutWindowSamples] {
			v := int64(s)
			energy += v * v
		}
		if bestEnergy == -1 || energy < bestEnergy {
			bestEnergy = energy
			best = i
		}
	}

	// Only honor the candidate when it is genuinely quiet; otherwise a fixed
	// cut at the target is no worse.
	meanSq := bestEnergy / int64(cutWindowSamples)
	if meanSq > int64(silenceThreshold)*int64(silenceThreshold) {
		return target
	}
	return best
}

func finishRange(r *SubRange, samples []int, sampleRate int) error {
	wavBytes, err := encodeWAV(samples, sampleRate)
	if err != nil {
		return fmt.Errorf("encode sub-range %d: %w", r.Index, err)
	}
	r.Duration = float64(len(samples)) / float64(sampleRate)
	r.WAV = wavBytes
	return nil
}
