package news

import (
	"maps"
	"math"
	"strings"
	"unicode"
)

// normalisation constant for the compound score, approaching ±1 as the raw
// valence sum grows.
const alpha = 15.0

// negated valences are damped as well as flipped.
const negationScale = -0.74

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "without": true,
	"isn't": true, "wasn't": true, "doesn't": true, "didn't": true, "won't": true, "can't": true,
}

var boosters = map[string]float64{
	"sharply": 0.3, "strongly": 0.3, "significantly": 0.3, "massive": 0.3, "huge": 0.3,
	"slightly": -0.3, "marginally": -0.3, "modestly": -0.2,
}

var baseLexicon = map[string]float64{
	"beat": 1.8, "beats": 1.8, "surge": 2.2, "surges": 2.2, "soar": 2.4, "soars": 2.4,
	"jump": 1.6, "jumps": 1.6, "rally": 1.9, "rallies": 1.9, "gain": 1.4, "gains": 1.4,
	"rise": 1.2, "rises": 1.2, "record": 1.3, "upgrade": 2.0, "upgraded": 2.0,
	"outperform": 1.8, "bullish": 2.3, "profit": 1.5, "profits": 1.5, "growth": 1.5,
	"strong": 1.4, "buy": 1.2, "positive": 1.6, "optimistic": 1.8, "win": 1.6, "wins": 1.6,
	"approval": 1.5, "approved": 1.5, "expands": 1.1, "dividend": 1.0, "recovery": 1.4,
	"miss": -1.8, "misses": -1.8, "plunge": -2.4, "plunges": -2.4, "slump": -2.1, "slumps": -2.1,
	"fall": -1.3, "falls": -1.3, "drop": -1.4, "drops": -1.4, "decline": -1.4, "declines": -1.4,
	"downgrade": -2.0, "downgraded": -2.0, "underperform": -1.8, "bearish": -2.3,
	"loss": -1.6, "losses": -1.6, "weak": -1.4, "sell": -1.2, "negative": -1.6,
	"lawsuit": -1.8, "probe": -1.6, "fraud": -2.8, "recall": -1.5, "layoffs": -1.7,
	"cut": -1.1, "cuts": -1.1, "warning": -1.6, "warns": -1.6, "crash": -2.7, "risk": -0.8,
	"bankruptcy": -3.0, "default": -2.2, "fined": -1.6, "concern": -1.1,
}

// extra vocabulary per asset class, layered over the base lexicon.
var classLexicon = map[string]map[string]float64{
	"stock": {
		"earnings": 0.4, "buyback": 1.5, "guidance": 0.3, "dilution": -1.5, "delisting": -2.6,
	},
	"etf": {
		"inflows": 1.5, "outflows": -1.5, "rebalance": 0.2,
	},
	"future": {
		"contango": -0.8, "backwardation": 0.8, "shortage": 1.2, "glut": -1.6, "oversupply": -1.6,
	},
	"forex": {
		"hawkish": 1.6, "dovish": -1.6, "hike": 1.2, "intervention": -0.8, "devaluation": -2.2,
		"strengthens": 1.6, "weakens": -1.6,
	},
	"crypto": {
		"halving": 1.2, "adoption": 1.6, "hack": -2.6, "hacked": -2.6, "ban": -2.2, "etf": 1.0,
		"exploit": -2.3,
	},
	"index": {
		"breadth": 0.5, "correction": -1.6, "selloff": -2.2, "sell-off": -2.2,
	},
}

// Lexicon scores free text with a valence-sum model.
type Lexicon struct {
	words map[string]float64
}

// NewLexicon builds the vocabulary for an asset class. Unknown classes get the
// base vocabulary only.
func NewLexicon(assetClass string) *Lexicon {
	words := maps.Clone(baseLexicon)
	maps.Copy(words, classLexicon[strings.ToLower(assetClass)])
	return &Lexicon{words: words}
}

// Score returns a compound score in (-1, 1). Text with no known words is 0.
func (l *Lexicon) Score(text string) float64 {
	tokens := tokenize(text)

	var sum float64
	for i, tok := range tokens {
		v, ok := l.words[tok]
		if !ok {
			continue
		}
		if i > 0 {
			if b, ok := boosters[tokens[i-1]]; ok {
				v += math.Copysign(b, v)
			}
		}
		for j := max(0, i-3); j < i; j++ {
			if negators[tokens[j]] {
				v *= negationScale
				break
			}
		}
		sum += v
	}
	return Compound(sum)
}

// Compound maps a raw valence sum into (-1, 1).
func Compound(sum float64) float64 {
	if sum == 0 {
		return 0
	}
	return sum / math.Sqrt(sum*sum+alpha)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
}
