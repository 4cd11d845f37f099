package conversation

// Supported survey languages. Anything else falls back to Kiswahili.
const (
	LanguageSwahili = "sw-KE"
	LanguageEnglish = "en"
)

// Reply confidences for the scripted branches.
const (
	confidenceCultural = 95
	confidenceName     = 93
	confidenceQuestion = 87
	confidenceClosing  = 85
)

var greetings = map[string]string{
	LanguageSwahili: "Hujambo! Mimi ni Daktari Maria. Nina maswali machache kuhusu afya yako. Je, unaweza kuniambia jina lako?",
	LanguageEnglish: "Hello! I am Doctor Maria. I have a few questions about your health. Can you tell me your name?",
}

var surveyQuestions = []string{
	"Asante. Je, una matatizo yoyote ya afya kwa sasa?",
	"Je, una maumivu mahali popote mwilini?",
	"Je, umepata homa au joto la mwili katika siku za hivi karibuni?",
	"Je, unakula vyakula vya kutosha na vya lishe nzuri kila siku?",
	"Je, unapata maji safi ya kunywa?",
	"Je, una bima ya afya au unalipia gharama za matibabu vipi?",
	"Je, kuna dawa zozote unazotumia kwa sasa?",
	"Je, umepata chanjo zozote za hivi karibuni?",
	"Asante kwa ushirikiano wako. Je, una maswali yoyote kuhusu afya yako?",
}

const closingLine = "Asante sana kwa mazungumzo haya. Je, kuna jambo lolote lingine la afya unalotaka kujadili?"

type symptomResponse struct {
	symptom    string
	text       string
	followUp   string
	confidence int
}

// Checked in order; the first symptom found in the message wins.
var symptomResponses = []symptomResponse{
	{
		symptom:    "maumivu",
		text:       "Pole sana kwa maumivu hayo. Je, ni mahali gani haswa mwilini unaposikia uchungu? Na yamekuwa yakiendelea kwa muda gani?",
		followUp:   "Je, maumivu hayo yanaweza kuwa na sababu gani kwa ufikiriaji wako?",
		confidence: 94,
	},
	{
		symptom:    "homa",
		text:       "Je, homa hii imekuwa ikiendelea kwa siku ngapi? Una dalili zingine kama vile kichefuchefu au kuharisha?",
		followUp:   "Je, umepima joto la mwili? Linaonyesha nini?",
		confidence: 92,
	},
	{
		symptom:    "tumbo",
		text:       "Je, tumbo linauma kwa namna gani? Ni maumivu makali au ya kupita? Na umekula nini leo?",
		followUp:   "Je, una dalili zingine kama vile kichefuchefu au kuharisha?",
		confidence: 89,
	},
	{
		symptom:    "kichwa",
		text:       "Maumivu ya kichwa yanaweza kuwa na sababu nyingi. Je, ni mara ya kwanza kusikia hivyo au ni tatizo la kawaida?",
		followUp:   "Je, maumivu yanaweza kuwa na sababu gani kwa ufikiriaji wako?",
		confidence: 91,
	},
	{
		symptom:    "mgongo",
		text:       "Maumivu ya mgongo yanaweza kuwa na sababu nyingi. Je, yamekuwa yakiendelea kwa muda gani? Na unafanya kazi gani?",
		followUp:   "Je, maumivu yanaweza kuwa na sababu gani kwa ufikiriaji wako?",
		confidence: 88,
	},
	{
		symptom:    "kikohozi",
		text:       "Kikohozi kinaweza kuwa na sababu nyingi. Je, kimekuwa kikiendelea kwa siku ngapi? Una dalili zingine?",
		followUp:   "Je, kuna dawa yoyote unayotumia kwa kikohozi?",
		confidence: 90,
	},
}

type culturalResponse struct {
	phrase string
	text   string
}

var culturalResponses = []culturalResponse{
	{phrase: "asante", text: "Karibu sana. Ni wajibu wangu kukusaidia."},
	{phrase: "pole", text: "Asante kwa kunielewa. Ninaamini tutapata suluhisho."},
	{phrase: "hujambo", text: "Sijambo, asante. Je, unaweza kuniambia zaidi?"},
	{phrase: "karibu", text: "Asante kwa kunikaribisha. Ninaamini tutafanya kazi pamoja."},
}

// Words after which the next word is taken as the user's name.
var nameMarkers = map[string]bool{"ni": true, "nina": true, "jina": true}

var (
	positiveWords = []string{"nzuri", "asante", "karibu", "pole", "ninaamini"}
	negativeWords = []string{"maumivu", "homa", "uchungu", "tatizo", "shida"}
	urgentPhrases = []string{"haraka", "sasa", "leo", "tatizo", "maumivu makali"}
)
