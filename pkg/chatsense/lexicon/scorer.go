package lexicon

// Polarity classifies a sentiment score by its sign.
type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
	Neutral  Polarity = "neutral"
)

// Score is the aggregated sentiment of a feature vector.
type Score struct {
	Value    float64
	Polarity Polarity
}

// Scorer sums token scores across an ordered list of lexicons.
type Scorer struct {
	lexicons []*Lexicon
}

// NewScorer creates a scorer over lexicons, applied in the given order.
func NewScorer(lexicons ...*Lexicon) *Scorer {
	return &Scorer{lexicons: lexicons}
}

// Lexicons returns the lexicons the scorer sums over.
func (s *Scorer) Lexicons() []*Lexicon {
	out := make([]*Lexicon, len(s.lexicons))
	copy(out, s.lexicons)
	return out
}

// Score adds every lexicon's score for every token. Tokens missing from a
// lexicon contribute nothing.
func (s *Scorer) Score(tokens []string) Score {
	var total float64
	for _, lex := range s.lexicons {
		for _, tok := range tokens {
			if v, ok := lex.Lookup(tok); ok {
				total += v
			}
		}
	}
	return Score{Value: total, Polarity: PolarityOf(total)}
}

// PolarityOf returns the polarity of a score.
func PolarityOf(score float64) Polarity {
	switch {
	case score > 0:
		return Positive
	case score < 0:
		return Negative
	default:
		return Neutral
	}
}
