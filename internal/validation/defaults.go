package validation

// Codes of the languages with a dedicated validation pipeline and downstream
// NLU service. DefaultCode is the catch-all used for every other language.
const (
	CodeHindi   = "hi"
	CodeKannada = "kn"
	CodeTelugu  = "te"

	DefaultCode = CodeHindi
)

// SupportedCodes lists the directly supported languages. The first entry is
// the default.
var SupportedCodes = []string{CodeHindi, CodeKannada, CodeTelugu}

// DefaultBundles returns the built-in typo tables and lexicons. They are small
// fixed lookup tables covering common romanised spellings; deployments extend
// them through lexicon sources rather than editing this file.
func DefaultBundles() []Bundle {
	return []Bundle{
		NewBundle(CodeHindi,
			map[string]string{
				"mausm": "मौसम",
				"samay": "समय",
				"aaj":   "आज",
				"kl":    "कल",
				"kse":   "कैसे",
				"nmste": "नमस्ते",
				"ka":    "का",
				"ho":    "हो",
				"hai":   "है",
			},
			[]string{"नमस्ते", "कैसे", "आज", "मौसम", "कल", "है", "हो", "का", "मेरा", "आपका"},
		),
		NewBundle(CodeKannada,
			map[string]string{
				"havama": "ಹವಾಮಾನ",
				"samya":  "ಸಮಯ",
				"indu":   "ಇಂದು",
			},
			[]string{"ನಮಸ್ಕಾರ", "ಹೇಗಿದ್ದೀರಿ", "ಇಂದು", "ಹವಾಮಾನ", "ಇದು", "ನನ್ನ"},
		),
		NewBundle(CodeTelugu,
			map[string]string{
				"vatavra": "వాతావరణం",
				"samya":   "సమయం",
				"iroju":   "ఈరోజు",
			},
			[]string{"నమస్తే", "ఎలా", "ఈరోజు", "వాతావరణం", "ఇది", "నా"},
		),
	}
}

// DefaultRegistry returns a Registry holding [DefaultBundles].
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultBundles()...)
}
