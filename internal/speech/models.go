package speech

// Transcription is the recognized text of one audio clip
type Transcription struct {
	Text       string  `json:"text"`
	Confidence int     `json:"confidence"`
	Language   string  `json:"language"`
	Duration   float64 `json:"duration"`
	Mock       bool    `json:"mock,omitempty"`
}

// verboseTranscription mirrors the verbose_json response body
type verboseTranscription struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []segment `json:"segments"`
}

// segment is one decoded window with its log-probability statistics
type segment struct {
	Text         string  `json:"text"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	AvgLogprob   float64 `json:"avg_logprob"`
	NoSpeechProb float64 `json:"no_speech_prob"`
}

var mockTranscriptions = map[string]Transcription{
	"sw": {
		Text:       "Jina langu ni John. Nina maumivu ya tumbo.",
		Confidence: 92,
		Language:   "sw",
		Duration:   3.5,
		Mock:       true,
	},
	"en": {
		Text:       "My name is John. I have stomach pain.",
		Confidence: 94,
		Language:   "en",
		Duration:   3.2,
		Mock:       true,
	},
}
