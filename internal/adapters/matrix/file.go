// Package matrix loads Step 3 target-setting results from YAML or JSON files
// and watches them for changes.
package matrix

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/evanschultz/scorecard/internal/domain"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFile reports a Step 3 file that does not decode.
var ErrInvalidFile = errors.New("invalid step 3 file")

// fileData is the on-disk shape of a Step 3 result.
type fileData struct {
	MatrixData        *matrixData        `json:"matrixData" yaml:"matrixData"`
	CalculatedTargets *calculatedTargets `json:"calculatedTargets" yaml:"calculatedTargets"`
	ConfidenceIndex   float64            `json:"confidenceIndex" yaml:"confidenceIndex"`
}

// matrixData is the on-disk client × product matrix.
type matrixData struct {
	OldClients  []string           `json:"oldClients" yaml:"oldClients"`
	NewClients  []string           `json:"newClients" yaml:"newClients"`
	OldProducts []string           `json:"oldProducts" yaml:"oldProducts"`
	NewProducts []string           `json:"newProducts" yaml:"newProducts"`
	Values      map[string]float64 `json:"values" yaml:"values"`
}

// calculatedTargets is the on-disk target tiers block.
type calculatedTargets struct {
	Base      float64 `json:"base" yaml:"base"`
	Standard  float64 `json:"standard" yaml:"standard"`
	Challenge float64 `json:"challenge" yaml:"challenge"`
}

// DefaultConfidenceIndex is the confidence percentage applied when a file omits one.
const DefaultConfidenceIndex = 120.0

// Load reads and parses a Step 3 file.
func Load(path string) (*domain.Step3Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read step 3 file %q: %w", path, err)
	}
	data, err := Parse(raw, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// Parse decodes Step 3 content. JSON is decoded with encoding/json when
// asJSON is set or the content starts with '{'; everything else is YAML.
func Parse(raw []byte, asJSON bool) (*domain.Step3Data, error) {
	var in fileData
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &domain.Step3Data{ConfidenceIndex: DefaultConfidenceIndex}, nil
	}
	if asJSON || trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &in); err != nil {
			return nil, fmt.Errorf("decode json: %w: %w", err, ErrInvalidFile)
		}
	} else if err := yaml.Unmarshal(trimmed, &in); err != nil {
		return nil, fmt.Errorf("decode yaml: %w: %w", err, ErrInvalidFile)
	}
	return in.toDomain()
}

// toDomain validates and converts decoded file data.
func (f fileData) toDomain() (*domain.Step3Data, error) {
	out := &domain.Step3Data{ConfidenceIndex: f.ConfidenceIndex}
	if out.ConfidenceIndex == 0 {
		out.ConfidenceIndex = DefaultConfidenceIndex
	}
	if out.ConfidenceIndex < 0 {
		return nil, fmt.Errorf("confidenceIndex must be positive: %w", ErrInvalidFile)
	}
	if f.MatrixData != nil {
		m := &domain.MatrixData{
			OldClients:  f.MatrixData.OldClients,
			NewClients:  f.MatrixData.NewClients,
			OldProducts: f.MatrixData.OldProducts,
			NewProducts: f.MatrixData.NewProducts,
			Values:      map[string]float64{},
		}
		for key, value := range f.MatrixData.Values {
			if strings.TrimSpace(key) == "" {
				return nil, fmt.Errorf("matrixData.values has a blank key: %w", ErrInvalidFile)
			}
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return nil, fmt.Errorf("matrixData.values[%q] is not a number: %w", key, ErrInvalidFile)
			}
			m.Values[key] = value
		}
		out.Matrix = m
	}
	if f.CalculatedTargets != nil {
		out.Targets = domain.CalculatedTargets(*f.CalculatedTargets)
	} else if out.Matrix != nil {
		out.Targets = ComputeTargets(*out.Matrix, out.ConfidenceIndex)
	}
	return out, nil
}

// ComputeTargets derives the target tiers from a matrix: base sums the
// existing clients × existing products region, standard sums every cell and
// challenge scales standard by the confidence percentage.
func ComputeTargets(m domain.MatrixData, confidence float64) domain.CalculatedTargets {
	var out domain.CalculatedTargets
	for _, cell := range m.Cells() {
		out.Standard += cell.Value
		if isOld(cell.ClientRef, m.OldClients) && isOld(cell.ProductRef, m.OldProducts) {
			out.Base += cell.Value
		}
	}
	out.Challenge = math.Round(out.Standard * confidence / 100)
	return out
}

// isOld reports whether ref names an existing entry by index or by name.
func isOld(ref string, names []string) bool {
	if idx, err := strconv.Atoi(ref); err == nil {
		return idx >= 0 && idx < len(names)
	}
	return slices.Contains(names, ref)
}
