package sentiment

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

type Lexicon struct {
	Words        map[string]float64 `yaml:"words"`
	Intensifiers map[string]float64 `yaml:"intensifiers"`
	Negations    []string           `yaml:"negations"`

	negations map[string]struct{}
}

// DefaultLexicon returns the embedded lexicon.
func DefaultLexicon() (*Lexicon, error) {
	return ParseLexicon(defaultLexicon)
}

func LoadLexicon(path string) (*Lexicon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return ParseLexicon(raw)
}

func ParseLexicon(raw []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(raw, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon yaml: %w", err)
	}
	if len(lex.Words) == 0 {
		return nil, fmt.Errorf("parse lexicon yaml: no words defined")
	}
	for word, polarity := range lex.Words {
		if polarity < -1 || polarity > 1 {
			return nil, fmt.Errorf("parse lexicon yaml: polarity of %q out of range: %v", word, polarity)
		}
	}
	lex.negations = make(map[string]struct{}, len(lex.Negations))
	for _, n := range lex.Negations {
		lex.negations[n] = struct{}{}
	}
	return &lex, nil
}

func (l *Lexicon) isNegation(token string) bool {
	if _, ok := l.negations[token]; ok {
		return true
	}
	return len(token) > 3 && token[len(token)-3:] == "n't"
}
