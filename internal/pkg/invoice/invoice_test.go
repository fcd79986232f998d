package invoice

import (
	"bytes"
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nordstock/invoicepipe/internal/pkg/filestore"
	"github.com/nordstock/invoicepipe/internal/pkg/product"
)

func templateBytes(t *testing.T) []byte {
	t.Helper()

	tpl := excelize.NewFile()
	defer tpl.Close()

	buf, err := tpl.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestCustomerName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Customer_Order", CustomerName("Customer_Order.csv"))
	assert.Equal(t, "report", CustomerName("report.csv"))
	// exact-case suffix match only
	assert.Equal(t, "report.CSV", CustomerName("report.CSV"))
	assert.Equal(t, "noext", CustomerName("noext"))
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	store := filestore.NewMemory()
	asm := NewAssembler(store, "/invoices")
	asm.Now = func() time.Time {
		return time.Date(2026, 8, 26, 12, 30, 45, 0, time.UTC)
	}

	products := []product.Record{
		{
			FileName:    "Customer_Order.csv",
			ProductID:   "P1",
			Style:       "S1",
			ProductName: "Widget",
			Amount:      10,
			RRP:         decimal.RequireFromString("150.00"),
		},
		{
			FileName:    "Customer_Order.csv",
			ProductID:   "P2",
			Style:       "S2",
			ProductName: "Gadget",
			Amount:      3,
			RRP:         decimal.RequireFromString("99.95"),
		},
	}

	name, err := asm.Generate(context.Background(), templateBytes(t), products)
	require.NoError(t, err)
	assert.Equal(t, "Customer_Order_20260826T123045Z.xlsx", name)

	data, ok := store.Get("/invoices/" + name)
	require.True(t, ok, "invoice must be uploaded to the output folder")

	out, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer out.Close()

	sheet := out.GetSheetName(0)

	customer, err := out.GetCellValue(sheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, "Customer_Order", customer)

	for _, tc := range []struct {
		cell string
		want string
	}{
		{cell: "A13", want: "P1"},
		{cell: "B13", want: "S1"},
		{cell: "C13", want: "Widget"},
		{cell: "D13", want: ""},
		{cell: "E13", want: "10"},
		{cell: "F13", want: "150"},
		{cell: "A14", want: "P2"},
		{cell: "B14", want: "S2"},
		{cell: "C14", want: "Gadget"},
		{cell: "D14", want: ""},
		{cell: "E14", want: "3"},
		{cell: "F14", want: "99.95"},
	} {
		got, err := out.GetCellValue(sheet, tc.cell)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "cell %s", tc.cell)
	}
}

func TestGenerate_FileNamePattern(t *testing.T) {
	t.Parallel()

	store := filestore.NewMemory()
	asm := NewAssembler(store, "/invoices")

	products := []product.Record{{FileName: "Customer_Order.csv", ProductID: "P1"}}

	name, err := asm.Generate(context.Background(), templateBytes(t), products)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^Customer_Order_\d{8}T\d{6}Z\.xlsx$`), name)
}

func TestGenerate_EmptyBatch(t *testing.T) {
	t.Parallel()

	store := filestore.NewMemory()
	asm := NewAssembler(store, "/invoices")

	_, err := asm.Generate(context.Background(), templateBytes(t), nil)
	assert.Error(t, err)
	assert.Zero(t, store.TotalCalls(), "no upload may happen for an empty batch")
}

func TestGenerate_BadTemplate(t *testing.T) {
	t.Parallel()

	store := filestore.NewMemory()
	asm := NewAssembler(store, "/invoices")

	_, err := asm.Generate(context.Background(), []byte("not a workbook"), []product.Record{{FileName: "x.csv"}})
	assert.Error(t, err)
	assert.Zero(t, store.TotalCalls(), "a broken template must not leave a partial invoice behind")
}
