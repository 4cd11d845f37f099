package tracker

import (
	"testing"
	"time"

	"sauti/internal/wer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScores(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		swahili  int
		medical  int
		cultural int
	}{
		{name: "fever", input: "nina homa", swahili: 82, medical: 70, cultural: 60},
		{name: "greeting", input: "hujambo asante pole", swahili: 79, medical: 50, cultural: 99},
		{name: "insensitive", input: "mbaya duni hafifu", swahili: 79, medical: 50, cultural: 45},
		{name: "medical cap", input: "maumivu homa kikohozi dawa afya", swahili: 90, medical: 100, cultural: 60},
		{name: "empty", input: "", swahili: 70, medical: 50, cultural: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.swahili, swahiliAccuracy(tt.input), "swahili")
			assert.Equal(t, tt.medical, medicalTerminology(tt.input), "medical")
			assert.Equal(t, tt.cultural, culturalSensitivity(tt.input), "cultural")
		})
	}
}

func TestReference(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Nina MAUMIVU", "nina maumivu ya tumbo"},
		{"maumivu ya tumbo", "nina maumivu ya tumbo"},
		{"joto la mwili", "nina homa na joto la mwili"},
		{"kichwa kinauma", "tumbo linauma sana"},
		{"asante daktari", "asante sana hujambo"},
		{"habari za asubuhi", defaultReference},
		{"mahoma", defaultReference},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Reference(tt.input))
		})
	}
}

func TestTracker_Evaluate(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tr := New()
	tr.now = func() time.Time { return now }

	s := tr.Evaluate("Nina maumivu ya tumbo", 100, 250*time.Millisecond)
	assert.Equal(t, 0.0, s.WER)
	assert.Equal(t, int64(250), s.ResponseLatencyMs)
	assert.Equal(t, "nina maumivu ya tumbo", s.Reference)
	assert.Equal(t, now, s.Timestamp)

	s = tr.Evaluate("nina maumivu ya tumbo", 90, 0)
	assert.Equal(t, 0.01, s.WER)

	// one substitution out of four reference words, full confidence
	s = tr.Evaluate("nina maumivu ya kichwa", 100, 0)
	assert.Equal(t, 0.25, s.WER)
}

func TestTracker_SessionUnknown(t *testing.T) {
	tr := New()
	_, ok := tr.Session("missing")
	assert.False(t, ok)

	_, ok = tr.Global()
	assert.False(t, ok)
}

func TestTracker_RecordAndSummarize(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	now := start
	tr := New()
	tr.now = func() time.Time { return now }

	tr.Record("s1", Sample{KiswahiliAccuracy: 80, MedicalTerminology: 50, CulturalSensitivity: 60, ResponseLatencyMs: 600, WER: 0.1})
	now = now.Add(time.Second)
	tr.Record("s1", Sample{KiswahiliAccuracy: 91, MedicalTerminology: 65, CulturalSensitivity: 71, ResponseLatencyMs: 901, WER: 0.3})

	sum, ok := tr.Session("s1")
	require.True(t, ok)
	assert.Equal(t, "s1", sum.SessionID)
	assert.Equal(t, 2, sum.TotalMessages)
	assert.Equal(t, int64(1000), sum.DurationMs)
	assert.Equal(t, 86, sum.Averages.KiswahiliAccuracy)
	assert.Equal(t, 58, sum.Averages.MedicalTerminology)
	assert.Equal(t, 66, sum.Averages.CulturalSensitivity)
	assert.Equal(t, int64(751), sum.Averages.ResponseLatencyMs)
	assert.InDelta(t, 0.2, sum.Averages.WER, 1e-9)
	assert.Equal(t, 91, sum.Latest.KiswahiliAccuracy)
	assert.Equal(t, TrendStable, sum.Trend)
}

func TestTracker_HistoryBounded(t *testing.T) {
	tr := New(WithHistorySize(3))

	for i := 1; i <= 5; i++ {
		tr.Record("s1", Sample{KiswahiliAccuracy: i * 10})
	}

	sum, ok := tr.Session("s1")
	require.True(t, ok)
	assert.Equal(t, 5, sum.TotalMessages, "total counts every recorded sample")
	assert.Equal(t, 40, sum.Averages.KiswahiliAccuracy, "averages cover the retained window only")
	assert.Equal(t, 50, sum.Latest.KiswahiliAccuracy)
	assert.Len(t, tr.sessions["s1"].samples, 3)
}

func TestTrend(t *testing.T) {
	series := func(values ...int) []Sample {
		out := make([]Sample, len(values))
		for i, v := range values {
			out[i] = Sample{KiswahiliAccuracy: v}
		}
		return out
	}

	tests := []struct {
		name    string
		samples []Sample
		want    string
	}{
		{name: "single", samples: series(70), want: TrendStable},
		{name: "five only", samples: series(10, 20, 30, 40, 100), want: TrendStable},
		{name: "improving", samples: series(70, 70, 70, 70, 70, 80, 80, 80, 80, 80), want: TrendImproving},
		{name: "declining", samples: series(90, 90, 90, 90, 90, 80, 80, 80, 80, 80), want: TrendDeclining},
		{name: "within threshold", samples: series(70, 70, 70, 70, 70, 75, 75, 75, 75, 75), want: TrendStable},
		{name: "partial older window", samples: series(60, 80, 80, 80, 80, 80), want: TrendImproving},
		{name: "only last ten count", samples: series(0, 0, 0, 80, 80, 80, 80, 80, 80, 80, 80, 80, 80), want: TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trend(tt.samples))
		})
	}
}

func TestTracker_Global(t *testing.T) {
	tr := New()
	tr.Record("a", Sample{KiswahiliAccuracy: 80, WER: 0.2})
	tr.Record("a", Sample{KiswahiliAccuracy: 90, WER: 0.1})
	tr.Record("b", Sample{KiswahiliAccuracy: 100, WER: 0})

	g, ok := tr.Global()
	require.True(t, ok)
	assert.Equal(t, 2, g.TotalSessions)
	assert.Equal(t, 3, g.TotalMessages)
	assert.Equal(t, 90, g.AverageMetrics.KiswahiliAccuracy)
	assert.InDelta(t, 0.1, g.AverageMetrics.WER, 1e-9)
}

func TestTracker_Cleanup(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tr := New()
	tr.now = func() time.Time { return now }

	tr.Record("old", Sample{})
	now = now.Add(30 * time.Hour)
	tr.Record("fresh", Sample{})

	assert.Equal(t, 1, tr.Cleanup(24*time.Hour))
	_, ok := tr.Session("old")
	assert.False(t, ok)
	_, ok = tr.Session("fresh")
	assert.True(t, ok)
}

func TestTracker_SessionWER(t *testing.T) {
	tr := New(WithCalculator(wer.New(wer.WithOracle(wer.OracleFunc(func(string) string {
		return "a b c d"
	})))))

	res := tr.SessionWER([]wer.Turn{
		{Role: wer.RoleUser, Content: "habari"},
		{Role: wer.RoleDoctor, Content: "a b c x"},
	})
	assert.Equal(t, 1, res.TotalMessages)
	assert.Equal(t, 0.25, res.AverageWER)
}
