// Package quotes loads the mascot's quote catalog and picks quotes from it.
package quotes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/jimbo/internal/model"
)

// SarcasmThreshold is the line total at which accepted-code quotes turn
// sarcastic.
const SarcasmThreshold = 5

// ErrEmpty is returned by Load when a catalog file holds no quotes at all.
var ErrEmpty = errors.New("quote catalog is empty")

// Accepted holds the quotes used after a suggestion is accepted.
type Accepted struct {
	Positive  []string `json:"positive" yaml:"positive"`
	Sarcastic []string `json:"sarcastic" yaml:"sarcastic"`
}

// Catalog is the full quote set, in the layout of media/quotes.json.
type Catalog struct {
	CopilotAccepted Accepted `json:"copilotAccepted" yaml:"copilotAccepted"`
	ClickQuotes     []string `json:"clickQuotes" yaml:"clickQuotes"`
}

// Picker chooses an index in [0, n). *math/rand/v2.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		CopilotAccepted: Accepted{
			Positive:  []string{"Nice work! That's some clean code."},
			Sarcastic: []string{"That code is so bad it makes me want to cry."},
		},
		ClickQuotes: []string{"Click me for wisdom! 🃏"},
	}
}

// Load reads a catalog from a .json, .yaml or .yml file. Lists missing from
// the file are filled from Default.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading quotes: %w", err)
	}

	var c Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &c)
	default:
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing quotes %s: %w", path, err)
	}

	if len(c.CopilotAccepted.Positive) == 0 && len(c.CopilotAccepted.Sarcastic) == 0 && len(c.ClickQuotes) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}

	def := Default()
	if len(c.CopilotAccepted.Positive) == 0 {
		c.CopilotAccepted.Positive = def.CopilotAccepted.Positive
	}
	if len(c.CopilotAccepted.Sarcastic) == 0 {
		c.CopilotAccepted.Sarcastic = def.CopilotAccepted.Sarcastic
	}
	if len(c.ClickQuotes) == 0 {
		c.ClickQuotes = def.ClickQuotes
	}
	return &c, nil
}

// Resolve returns Default for an empty path and Load(path) otherwise.
func Resolve(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Counts returns the number of positive, sarcastic and click quotes.
func (c *Catalog) Counts() (positive, sarcastic, click int) {
	return len(c.CopilotAccepted.Positive), len(c.CopilotAccepted.Sarcastic), len(c.ClickQuotes)
}

// LoadOrDefault loads path, falling back to Default when path is empty or
// cannot be loaded.
func LoadOrDefault(path string, logger *zap.Logger) *Catalog {
	c, err := Resolve(path)
	if err != nil {
		if logger != nil {
			logger.Warn("using built-in quotes", zap.String("path", path), zap.Error(err))
		}
		return Default()
	}
	return c
}

// ForAccepted picks a quote for totalLines of accepted code: positive below
// SarcasmThreshold, sarcastic otherwise.
func (c *Catalog) ForAccepted(totalLines int, p Picker) (string, model.Mood) {
	if totalLines < SarcasmThreshold {
		return pick(c.CopilotAccepted.Positive, p), model.Positive
	}
	return pick(c.CopilotAccepted.Sarcastic, p), model.Sarcastic
}

// ForClick picks a click quote.
func (c *Catalog) ForClick(p Picker) string {
	return pick(c.ClickQuotes, p)
}

func pick(list []string, p Picker) string {
	switch len(list) {
	case 0:
		return ""
	case 1:
		return list[0]
	}
	return list[p.IntN(len(list))]
}
