package parse

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func parseOne(t *testing.T, raw string) CandidateLine {
	t.Helper()
	lines, err := Local{}.Parse(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	return lines[0]
}

func TestParseQuantityUnitNamePrice(t *testing.T) {
	line := parseOne(t, "10 cases of watermelon adalya $250")

	assert.True(t, line.Quantity.Equal(d("10")))
	assert.Equal(t, "case", line.Unit)
	assert.Equal(t, "watermelon adalya", line.Name)
	require.NotNil(t, line.PriceHint)
	assert.True(t, line.PriceHint.Equal(d("250")))
}

func TestParsePriceHintForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "dollar sign", raw: "2 boxes mint $12.50", want: "12.5"},
		{name: "at keyword", raw: "2 boxes mint at 18", want: "18"},
		{name: "at sign", raw: "2 boxes mint @ 18.5", want: "18.5"},
		{name: "at sign with dollar", raw: "2 boxes mint @ $9", want: "9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := parseOne(t, tt.raw)
			require.NotNil(t, line.PriceHint)
			assert.True(t, line.PriceHint.Equal(d(tt.want)), "got %s", line.PriceHint)
			assert.Equal(t, "mint", line.Name, "price must be stripped from the name")
		})
	}
}

func TestParseDefaults(t *testing.T) {
	line := parseOne(t, "double apple")

	assert.True(t, line.Quantity.Equal(d("1")))
	assert.Equal(t, DefaultUnit, line.Unit)
	assert.Equal(t, "double apple", line.Name)
	assert.Nil(t, line.PriceHint)
}

func TestParseUnrecognizedUnitKeptInName(t *testing.T) {
	line := parseOne(t, "5 apples")

	assert.True(t, line.Quantity.Equal(d("5")))
	assert.Equal(t, DefaultUnit, line.Unit)
	assert.Equal(t, "apples", line.Name)
}

func TestParseTrailingQuantityUnit(t *testing.T) {
	line := parseOne(t, "xyz-unknown-item 3 pieces")

	assert.True(t, line.Quantity.Equal(d("3")))
	assert.Equal(t, "piece", line.Unit)
	assert.Equal(t, "xyz-unknown-item", line.Name)
}

func TestParseDecimalQuantity(t *testing.T) {
	line := parseOne(t, "2,5 kg charcoal")

	assert.True(t, line.Quantity.Equal(d("2.5")))
	assert.Equal(t, "kg", line.Unit)
	assert.Equal(t, "charcoal", line.Name)
}

func TestParseSplitsSegments(t *testing.T) {
	lines, err := Local{}.Parse(context.Background(), "2 cases mint; 1 box double apple\n3 bottles cola, grape")
	require.NoError(t, err)
	require.Len(t, lines, 4)

	assert.Equal(t, "mint", lines[0].Name)
	assert.Equal(t, "double apple", lines[1].Name)
	assert.Equal(t, "cola", lines[2].Name)
	assert.Equal(t, "grape", lines[3].Name)
}

func TestParseDropsEmptySegments(t *testing.T) {
	lines, err := Local{}.Parse(context.Background(), " ; , \n  ,mint")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "mint", lines[0].Name)
}

func TestParseNeverErrors(t *testing.T) {
	for _, raw := range []string{"", "$$$", "@@@", "-5 ???", "10", "at 18"} {
		_, err := Local{}.Parse(context.Background(), raw)
		assert.NoError(t, err, "input %q", raw)
	}
}

func TestParsePluralUnits(t *testing.T) {
	tests := []struct {
		raw  string
		unit string
	}{
		{raw: "3 boxes mint", unit: "box"},
		{raw: "1 bottle cola", unit: "bottle"},
		{raw: "4 cartons grape", unit: "carton"},
		{raw: "2 packs coal", unit: "pack"},
		{raw: "6 pcs hose", unit: "piece"},
	}
	for _, tt := range tests {
		line := parseOne(t, tt.raw)
		assert.Equal(t, tt.unit, line.Unit, "input %q", tt.raw)
	}
}

func TestNameVariations(t *testing.T) {
	line := parseOne(t, "2 packs af double apple")

	assert.Contains(t, line.Variations, "al fakher double apple")
	assert.Contains(t, line.Variations, "double apple")
	assert.LessOrEqual(t, len(line.Variations), 10)
}

func TestNameVariationsNoAlias(t *testing.T) {
	line := parseOne(t, "watermelon")
	assert.Empty(t, line.Variations)
}
