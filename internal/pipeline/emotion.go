package pipeline

import "strings"

// EmotionLabel is one of the fixed, client-contract emotion labels.
type EmotionLabel string

const (
	EmotionNeutral     EmotionLabel = "neutral"
	EmotionHappy       EmotionLabel = "happy"
	EmotionLaughing    EmotionLabel = "laughing"
	EmotionFunny       EmotionLabel = "funny"
	EmotionSad         EmotionLabel = "sad"
	EmotionAngry       EmotionLabel = "angry"
	EmotionCrying      EmotionLabel = "crying"
	EmotionLoving      EmotionLabel = "loving"
	EmotionEmbarrassed EmotionLabel = "embarrassed"
	EmotionSurprised   EmotionLabel = "surprised"
	EmotionShocked     EmotionLabel = "shocked"
	EmotionThinking    EmotionLabel = "thinking"
	EmotionWinking     EmotionLabel = "winking"
	EmotionCool        EmotionLabel = "cool"
	EmotionRelaxed     EmotionLabel = "relaxed"
	EmotionDelicious   EmotionLabel = "delicious"
	EmotionKissy       EmotionLabel = "kissy"
	EmotionConfident   EmotionLabel = "confident"
	EmotionSleepy      EmotionLabel = "sleepy"
	EmotionSilly       EmotionLabel = "silly"
	EmotionConfused    EmotionLabel = "confused"
)

// EmotionStyle selects how a label is rendered to the client.
type EmotionStyle string

const (
	EmotionStyleGlyph EmotionStyle = "glyph"
	EmotionStyleLabel EmotionStyle = "label"
)

// emojiGlyphs maps each label to its pictographic rendering. Chosen to be
// the obvious, unambiguous glyph for the label rather than reaching for
// novelty combinations.
var emojiGlyphs = map[EmotionLabel]string{
	EmotionNeutral:     "🙂",
	EmotionHappy:       "😄",
	EmotionLaughing:    "😂",
	EmotionFunny:       "😆",
	EmotionSad:         "😔",
	EmotionAngry:       "😠",
	EmotionCrying:      "😭",
	EmotionLoving:      "😍",
	EmotionEmbarrassed: "😳",
	EmotionSurprised:   "😮",
	EmotionShocked:     "😱",
	EmotionThinking:    "🤔",
	EmotionWinking:     "😉",
	EmotionCool:        "😎",
	EmotionRelaxed:     "😌",
	EmotionDelicious:   "😋",
	EmotionKissy:       "😘",
	EmotionConfident:   "😏",
	EmotionSleepy:      "😴",
	EmotionSilly:       "🤪",
	EmotionConfused:    "😕",
}

// englishLabels maps each label to its deployment-time English rendering.
var englishLabels = map[EmotionLabel]string{
	EmotionNeutral:     "Neutral",
	EmotionHappy:       "Happy",
	EmotionLaughing:    "Laughing",
	EmotionFunny:       "Funny",
	EmotionSad:         "Sad",
	EmotionAngry:       "Angry",
	EmotionCrying:      "Crying",
	EmotionLoving:      "Loving",
	EmotionEmbarrassed: "Embarrassed",
	EmotionSurprised:   "Surprised",
	EmotionShocked:     "Shocked",
	EmotionThinking:    "Thinking",
	EmotionWinking:     "Winking",
	EmotionCool:        "Cool",
	EmotionRelaxed:     "Relaxed",
	EmotionDelicious:   "Delicious",
	EmotionKissy:       "Kissy",
	EmotionConfident:   "Confident",
	EmotionSleepy:      "Sleepy",
	EmotionSilly:       "Silly",
	EmotionConfused:    "Confused",
}

// keywordScores is a bag-of-phrases-per-label lexicon. Longer phrases win
// ties within a label; across labels the label with the longest single
// match wins. This is intentionally simple — a deployment that needs
// better emotion fidelity swaps in a real classifier behind the same
// AnalyzeEmotion signature.
var keywordScores = map[EmotionLabel][]string{
	EmotionHappy:       {"awesome", "great news", "so happy", "yay", "wonderful", "glad"},
	EmotionLaughing:    {"haha", "lol", "hilarious", "lmao"},
	EmotionFunny:       {"funny", "joke", "kidding"},
	EmotionSad:         {"sad", "sorry to hear", "unfortunately", "heartbroken", "depressed"},
	EmotionAngry:       {"angry", "furious", "pissed", "mad at", "outrageous"},
	EmotionCrying:      {"crying", "in tears", "sobbing"},
	EmotionLoving:      {"love you", "i love", "adore"},
	EmotionEmbarrassed: {"embarrassed", "so awkward", "blushing"},
	EmotionSurprised:   {"surprised", "no way", "really?", "whoa"},
	EmotionShocked:     {"shocked", "can't believe", "unbelievable"},
	EmotionThinking:    {"let me think", "hmm", "thinking about"},
	EmotionWinking:     {"just kidding", "wink"},
	EmotionCool:        {"cool", "nice one", "that's neat"},
	EmotionRelaxed:     {"relax", "take it easy", "no worries"},
	EmotionDelicious:   {"delicious", "tasty", "yummy"},
	EmotionKissy:       {"kiss", "mwah"},
	EmotionConfident:   {"i'm sure", "definitely", "no doubt"},
	EmotionSleepy:      {"sleepy", "tired", "yawning"},
	EmotionSilly:       {"silly", "goofy"},
	EmotionConfused:    {"confused", "not sure", "don't understand"},
}

// AnalyzeEmotion scores text against the keyword lexicon and returns the
// label whose longest matching phrase is longest overall; defaults to
// neutral when nothing matches.
func AnalyzeEmotion(text string) EmotionLabel {
	lower := strings.ToLower(text)
	best := EmotionNeutral
	bestLen := 0
	for label, phrases := range keywordScores {
		for _, phrase := range phrases {
			if strings.Contains(lower, phrase) && len(phrase) > bestLen {
				best = label
				bestLen = len(phrase)
			}
		}
	}
	return best
}

// EmotionSymbol renders a label per the configured style.
func EmotionSymbol(label EmotionLabel, style EmotionStyle) string {
	if style == EmotionStyleLabel {
		if s, ok := englishLabels[label]; ok {
			return s
		}
		return string(label)
	}
	if s, ok := emojiGlyphs[label]; ok {
		return s
	}
	return "🙂"
}
