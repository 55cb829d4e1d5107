package audio

import (
	"math"
	"testing"
)

func preprocessed(t *testing.T, samples []int) *Preprocessed {
	t.Helper()
	wavBytes, err := encodeWAV(samples, TargetSampleRate)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return &Preprocessed{Samples: samples, SampleRate: TargetSampleRate, WAV: wavBytes}
}

func TestSplitUnderLimitSingleRange(t *testing.T) {
	p := preprocessed(t, tone(1.0, TargetSampleRate, 0.5))
	ranges, err := NewSplitter().Split(p)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(ranges) != 1 {
		t.Fatalf("ranges = %d, want 1", len(ranges))
	}
	if ranges[0].Offset != 0 || ranges[0].Index != 0 {
		t.Fatalf("unexpected first range: %+v", ranges[0])
	}
}

func TestSplitConservesDuration(t *testing.T) {
	p := preprocessed(t, tone(10.0, TargetSampleRate, 0.5))
	sp := &Splitter{
		MaxPayloadBytes:  64 * 1024,
		TargetBytes:      48 * 1024,
		ToleranceSeconds: 0.25,
	}
	ranges, err := sp.Split(p)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(ranges) < 2 {
		t.Fatalf("expected multiple sub-ranges, got %d", len(ranges))
	}

	var sum float64
	for i, r := range ranges {
		if r.Index != i {
			t.Fatalf("range %d has index %d", i, r.Index)
		}
		sum += r.Duration
	}
	frame := 1.0 / float64(TargetSampleRate)
	if diff := math.Abs(sum - p.Duration()); diff > frame {
		t.Fatalf("duration sum %v != total %v (diff %v)", sum, p.Duration(), diff)
	}

	// offsets must be contiguous: no sample dropped or duplicated
	for i := 1; i < len(ranges); i++ {
		want := ranges[i-1].Offset + ranges[i-1].Duration
		if diff := math.Abs(ranges[i].Offset - want); diff > frame {
			t.Fatalf("range %d offset %v, want %v", i, ranges[i].Offset, want)
		}
	}
}

func TestSplitPrefersSilenceCut(t *testing.T) {
	const rate = TargetSampleRate
	// loud tone with a silent gap slightly past the size target
	samples := tone(6.0, rate, 0.5)
	gapStart := int(3.1 * rate)
	gapEnd := int(3.3 * rate)
	for i := gapStart; i < gapEnd; i++ {
		samples[i] = 0
	}
	p := preprocessed(t, samples)

	sp := &Splitter{
		MaxPayloadBytes:  5 * rate, // force a split
		TargetBytes:      6 * rate, // target = 3s of 16-bit samples
		ToleranceSeconds: 0.5,
	}
	ranges, err := sp.Split(p)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(ranges) < 2 {
		t.Fatalf("expected a split, got %d ranges", len(ranges))
	}
	cut := ranges[0].Duration
	if cut < 3.05 || cut > 3.35 {
		t.Fatalf("first cut at %vs, want inside silent gap 3.1-3.3s", cut)
	}
}

func TestSplitFixedCutWithoutSilence(t *testing.T) {
	const rate = TargetSampleRate
	p := preprocessed(t, tone(6.0, rate, 0.5))
	sp := &Splitter{
		MaxPayloadBytes:  5 * rate,
		TargetBytes:      6 * rate,
		ToleranceSeconds: 0.5,
	}
	ranges, err := sp.Split(p)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	// without silence in the tolerance window the cut stays at the target
	if cut := ranges[0].Duration; math.Abs(cut-3.0) > 0.01 {
		t.Fatalf("first cut at %vs, want fixed 3.0s", cut)
	}
}
