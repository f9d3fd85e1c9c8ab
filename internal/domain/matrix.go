package domain

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// MatrixData is the client × product revenue matrix produced by the target-setting step.
type MatrixData struct {
	OldClients  []string
	NewClients  []string
	OldProducts []string
	NewProducts []string
	Values      map[string]float64
}

// CalculatedTargets holds the three revenue target tiers.
type CalculatedTargets struct {
	Base      float64
	Standard  float64
	Challenge float64
}

// Step3Data is the external target-setting result the board reads for export.
type Step3Data struct {
	Matrix          *MatrixData
	Targets         CalculatedTargets
	ConfidenceIndex float64
}

// MatrixCell is one "client_product" value in the matrix.
type MatrixCell struct {
	Key        string
	ClientRef  string
	ProductRef string
	Value      float64
}

// HasMatrix reports whether the data carries a matrix.
func (d *Step3Data) HasMatrix() bool {
	return d != nil && d.Matrix != nil
}

// Cells splits every value key on underscores, taking the first segment as the
// client reference and the second as the product reference, and orders cells
// by numeric client then product reference, falling back to the raw key.
func (m MatrixData) Cells() []MatrixCell {
	cells := make([]MatrixCell, 0, len(m.Values))
	for key, value := range m.Values {
		parts := strings.Split(key, "_")
		client, product := parts[0], ""
		if len(parts) > 1 {
			product = parts[1]
		}
		cells = append(cells, MatrixCell{
			Key:        key,
			ClientRef:  client,
			ProductRef: product,
			Value:      value,
		})
	}
	slices.SortFunc(cells, func(a, b MatrixCell) int {
		if c := compareRef(a.ClientRef, b.ClientRef); c != 0 {
			return c
		}
		if c := compareRef(a.ProductRef, b.ProductRef); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return cells
}

// ClientName resolves a client reference against old then new clients.
func (m MatrixData) ClientName(ref string) string {
	return lookupName(ref, "客户", m.OldClients, m.NewClients)
}

// ProductName resolves a product reference against old then new products.
func (m MatrixData) ProductName(ref string) string {
	return lookupName(ref, "产品", m.OldProducts, m.NewProducts)
}

// lookupName returns the first non-empty entry at the index, else the prefixed reference.
func lookupName(ref, prefix string, lists ...[]string) string {
	if idx, err := strconv.Atoi(ref); err == nil && idx >= 0 {
		for _, list := range lists {
			if idx < len(list) && list[idx] != "" {
				return list[idx]
			}
		}
	}
	return prefix + ref
}

// compareRef orders numeric references numerically and everything else lexically after them.
func compareRef(a, b string) int {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return cmp.Compare(ai, bi)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}
