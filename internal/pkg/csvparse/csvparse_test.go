package csvparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Product Id", want: "product_id"},
		{in: `"Purchase Price DKK"`, want: "purchase_price_dkk"},
		{in: " Country of Origin ", want: "country_of_origin"},
		{in: "RRP", want: "rrp"},
		{in: `Tariff\Code`, want: "tariffcode"},
		{in: "Size (EU)", want: "size_eu"},
		{in: "Amount\t In  Stock", want: "amount_in_stock"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKey(tt.in), "NormalizeKey(%q)", tt.in)
	}
}

func TestParse_QuotedRow(t *testing.T) {
	t.Parallel()

	raw := "Product Id;Style;Name;Size;Amount;Locations;Purchase Price DKK;RRP;Tariff Code;Country of Origin\n" +
		`"P1";"S1";"Widget";"M";"10";"A-B";"100,00";"150,00";"8471";"DK"` + "\n"

	records, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "P1", rec["product_id"])
	assert.Equal(t, "S1", rec["style"])
	assert.Equal(t, "Widget", rec["name"])
	assert.Equal(t, "M", rec["size"])
	assert.Equal(t, "10", rec["amount"])
	assert.Equal(t, "A-B", rec["locations"])
	assert.Equal(t, "100,00", rec["purchase_price_dkk"])
	assert.Equal(t, "150,00", rec["rrp"])
	assert.Equal(t, "8471", rec["tariff_code"])
	assert.Equal(t, "DK", rec["country_of_origin"])
}

func TestParse_WholeLineQuoted(t *testing.T) {
	t.Parallel()

	raw := "\"Product Id;Style\"\n\"P1;S1\"\n"

	records, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "P1", records[0]["product_id"])
	assert.Equal(t, "S1", records[0]["style"])
}

func TestParse_ShortRow(t *testing.T) {
	t.Parallel()

	raw := "Product Id;Style;Amount\nP1;S1\n"

	records, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "P1", rec["product_id"])
	assert.Equal(t, "S1", rec["style"])
	_, present := rec["amount"]
	assert.False(t, present, "missing trailing column must yield an absent key")
}

func TestParse_EmptyInput(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "\n", "   \n  \n"} {
		records, err := Parse(raw)
		require.NoError(t, err)
		assert.Empty(t, records)
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	t.Parallel()

	records, err := Parse("Product Id;Style\n")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParse_Idempotent(t *testing.T) {
	t.Parallel()

	raw := "A;B\n1;2\n3;4\n\"5\";\"6\"\n"

	first, err := Parse(raw)
	require.NoError(t, err)
	second, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	assert.Equal(t, "5", first[2]["a"])
}

func TestParse_BlankLinesSkipped(t *testing.T) {
	t.Parallel()

	raw := "A;B\n\n1;2\n\n"
	records, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Record{"a": "1", "b": "2"}, records[0])
}
