package audio

import (
	"errors"
	"fmt"
	"math"

	"interview-insights-go/internal/logger"
)

// Input validation errors. The orchestrator treats all three as terminal.
var (
	ErrEmptyAudio  = errors.New("audio content is empty")
	ErrAudioFormat = errors.New("audio format not decodable")
	ErrSizeLimit   = errors.New("audio exceeds configured size limit")
)

const (
	// TargetSampleRate is the canonical rate expected by the speech service.
	TargetSampleRate = 16000

	defaultMaxInputBytes = 100 * 1024 * 1024

	// silenceThreshold is roughly -40 dBFS on 16-bit samples.
	silenceThreshold = 330

	// trimWindow and trimPadding are in samples at the target rate.
	trimWindow  = TargetSampleRate / 100 // 10ms
	trimPadding = TargetSampleRate / 5   // 200ms

	highPassCutoffHz = 200.0
	normalizePeak    = 0.9 * 32767
)

// Preprocessed is the canonical decoded form: 16 kHz mono 16-bit PCM.
type Preprocessed struct {
	Samples    []int
	SampleRate int
	WAV        []byte
}

// Duration returns the audio length in seconds.
func (p *Preprocessed) Duration() float64 {
	if p.SampleRate == 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.SampleRate)
}

// Preprocessor normalizes raw uploads into Preprocessed audio.
type Preprocessor struct {
	MaxInputBytes int
}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{MaxInputBytes: defaultMaxInputBytes}
}

// Process decodes, downmixes, resamples, trims, filters, and normalizes raw
// audio. It either returns a complete Preprocessed or an error, never both.
func (p *Preprocessor) Process(raw []byte, filename string) (*Preprocessed, error) {
	log := logger.New().WithField("component", "audio.preprocessor").WithField("filename", filename)

	if len(raw) == 0 {
		return nil, ErrEmptyAudio
	}
	if p.MaxInputBytes > 0 && len(raw) > p.MaxInputBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d", ErrSizeLimit, len(raw), p.MaxInputBytes)
	}

	buf, err := decodeWAV(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAudioFormat, err)
	}
	log.WithFields(map[string]interface{}{
		"channels":    buf.Format.NumChannels,
		"sample_rate": buf.Format.SampleRate,
		"frames":      len(buf.Data) / buf.Format.NumChannels,
	}).Info("decoded audio")

	samples := downmix(buf.Data, buf.Format.NumChannels)
	samples = rescaleBitDepth(samples, buf.SourceBitDepth)
	samples = resample(samples, buf.Format.SampleRate, TargetSampleRate)
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: decoded to zero samples", ErrAudioFormat)
	}

	before := len(samples)
	samples = trimSilence(samples)
	if trimmed := before - len(samples); trimmed > 0 {
		log.WithField("trimmed_seconds", float64(trimmed)/TargetSampleRate).Info("trimmed silence")
	}

	samples = highPass(samples, TargetSampleRate, highPassCutoffHz)
	samples = normalize(samples)

	wavBytes, err := encodeWAV(samples, TargetSampleRate)
	if err != nil {
		return nil, fmt.Errorf("re-encode: %w", err)
	}

	out := &Preprocessed{Samples: samples, SampleRate: TargetSampleRate, WAV: wavBytes}
	log.WithField("duration", out.Duration()).WithField("bytes", len(wavBytes)).Info("preprocessing complete")
	return out, nil
}

// downmix averages interleaved channels into mono.
func downmix(data []int, channels int) []int {
	if channels <= 1 {
		out := make([]int, len(data))
		copy(out, data)
		return out
	}
	frames := len(data) / channels
	out := make([]int, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += data[i*channels+c]
		}
		out[i] = sum / channels
	}
	return out
}

// rescaleBitDepth maps samples of any source depth onto the 16-bit range.
func rescaleBitDepth(samples []int, sourceBits int) []int {
	if sourceBits == 16 || sourceBits == 0 {
		return samples
	}
	shift := sourceBits - 16
	out := make([]int, len(samples))
	for i, s := range samples {
		if shift > 0 {
			out[i] = s >> uint(shift)
		} else {
			out[i] = s << uint(-shift)
		}
	}
	return out
}

// resample converts between rates with linear interpolation.
func resample(samples []int, from, to int) []int {
	if from == to || from == 0 || len(samples) == 0 {
		return samples
	}
	ratio := float64(from) / float64(to)
	n := int(float64(len(samples)) / ratio)
	if n == 0 {
		return nil
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int(float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac)
	}
	return out
}

// trimSilence drops leading/trailing windows below the amplitude threshold,
// keeping a short padding. Fully silent audio is returned unchanged.
func trimSilence(samples []int) []int {
	loud := func(start int) bool {
		end := start + trimWindow
		if end > len(samples) {
			end = len(samples)
		}
		for _, s := range samples[start:end] {
			if s > silenceThreshold || s < -silenceThreshold {
				return true
			}
		}
		return false
	}

	first, last := -1, -1
	for i := 0; i < len(samples); i += trimWindow {
		if loud(i) {
			if first == -1 {
				first = i
			}
			last = i + trimWindow
		}
	}
	if first == -1 {
		return samples
	}

	start := first - trimPadding
	if start < 0 {
		start = 0
	}
	end := last + trimPadding
	if end > len(samples) {
		end = len(samples)
	}
	return samples[start:end]
}

// highPass applies a one-pole high-pass filter to cut low-frequency rumble.
func highPass(samples []int, sampleRate int, cutoffHz float64) []int {
	if len(samples) == 0 {
		return samples
	}
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	dt := 1.0 / float64(sampleRate)
	alpha := rc / (rc + dt)

	out := make([]int, len(samples))
	out[0] = samples[0]
	prevIn := float64(samples[0])
	prevOut := float64(samples[0])
	for i := 1; i < len(samples); i++ {
		in := float64(samples[i])
		filtered := alpha * (prevOut + in - prevIn)
		out[i] = clampSample(filtered)
		prevIn = in
		prevOut = filtered
	}
	return out
}

// normalize scales peaks to a consistent target loudness.
func normalize(samples []int) []int {
	peak := 0
	for _, s := range samples {
		if s > peak {
			peak = s
		} else if -s > peak {
			peak = -s
		}
	}
	if peak == 0 {
		return samples
	}
	gain := normalizePeak / float64(peak)
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = clampSample(float64(s) * gain)
	}
	return out
}

func clampSample(v float64) int {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int(v)
}
