package wer

import "strings"

// Conversation roles recognised by Session.
const (
	RoleUser   = "user"
	RoleDoctor = "daktari"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionResult aggregates the detailed results of every scored pair.
type SessionResult struct {
	AverageWER      float64  `json:"averageWER"`
	TotalMessages   int      `json:"totalMessages"`
	DetailedResults []Result `json:"detailedResults"`
}

// Oracle produces the response a user message is expected to get.
type Oracle interface {
	Expected(userMessage string) string
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(userMessage string) string

func (f OracleFunc) Expected(userMessage string) string { return f(userMessage) }

// keywordResponse is one row of the KeywordOracle table; rows are checked in
// order and the first keyword contained in the message wins.
type keywordResponse struct {
	keyword  string
	response string
}

var expectedResponses = []keywordResponse{
	{"maumivu", "Pole sana kwa maumivu hayo. Je, ni mahali gani haswa mwilini unaposikia uchungu?"},
	{"homa", "Je, homa hii imekuwa ikiendelea kwa siku ngapi? Una dalili zingine?"},
	{"tumbo", "Je, tumbo linauma kwa namna gani? Ni maumivu makali au ya kupita?"},
}

const defaultExpectedResponse = "Asante kwa ujumbe wako. Je, unaweza kuniambia zaidi?"

// KeywordOracle maps symptom keywords to fixed doctor responses. It is a
// stand-in for real reference responses.
type KeywordOracle struct{}

func (KeywordOracle) Expected(userMessage string) string {
	input := strings.ToLower(userMessage)
	for _, row := range expectedResponses {
		if strings.Contains(input, row.keyword) {
			return row.response
		}
	}
	return defaultExpectedResponse
}

// Session scores a conversation. User turns and doctor turns are filtered
// separately and paired by position, so the i-th user turn is compared with
// the i-th doctor turn whether or not they are adjacent. Each doctor turn is
// scored against the oracle's expected response for its user turn.
func (c *Calculator) Session(turns []Turn) SessionResult {
	var users, doctors []string
	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			users = append(users, t.Content)
		case RoleDoctor:
			doctors = append(doctors, t.Content)
		}
	}

	pairs := min(len(users), len(doctors))
	res := SessionResult{DetailedResults: make([]Result, 0, pairs)}
	if pairs == 0 {
		return res
	}

	var total float64
	for i := 0; i < pairs; i++ {
		expected := c.oracle.Expected(users[i])
		detailed := c.Detailed(expected, doctors[i])
		total += detailed.WER
		res.DetailedResults = append(res.DetailedResults, detailed)
	}

	res.TotalMessages = pairs
	res.AverageWER = total / float64(pairs)
	return res
}
