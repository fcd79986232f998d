// Package invoice fills the customer invoice template with product rows and
// publishes the result to the invoice output folder.
package invoice

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/xuri/excelize/v2"

	"github.com/nordstock/invoicepipe/internal/pkg/filestore"
	"github.com/nordstock/invoicepipe/internal/pkg/product"
)

const (
	// Template layout: customer name in B5, products from row 13 onward in
	// columns A,B,C,E,F. Column D is a deliberate gap in the template.
	customerNameCell = "B5"
	firstProductRow  = 13

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// sortable, collision-resistant suffix for output file names
	timestampLayout = "20060102T150405Z"
)

// Assembler generates invoice workbooks from a template and uploads them.
type Assembler struct {
	store        filestore.Store
	outputFolder string

	// Now supplies the timestamp for output file names; tests pin it.
	Now func() time.Time
}

// NewAssembler creates an Assembler publishing into outputFolder.
func NewAssembler(store filestore.Store, outputFolder string) *Assembler {
	return &Assembler{
		store:        store,
		outputFolder: outputFolder,
		Now:          time.Now,
	}
}

// Generate fills the template with the given products, serializes the
// workbook and uploads it. All products must share one source file name; the
// customer name is that name minus its trailing ".csv". The template bytes
// are only modified in memory, never at their source. Returns the uploaded
// file name.
func (a *Assembler) Generate(ctx context.Context, templateData []byte, products []product.Record) (string, error) {
	if len(products) == 0 {
		return "", fmt.Errorf("no products to invoice")
	}

	workbook, err := excelize.OpenReader(bytes.NewReader(templateData))
	if err != nil {
		return "", fmt.Errorf("failed to open invoice template: %w", err)
	}
	defer workbook.Close()

	sheet := workbook.GetSheetName(0)
	if sheet == "" {
		return "", fmt.Errorf("invoice template has no sheets")
	}

	customer := CustomerName(products[0].FileName)
	if err := workbook.SetCellValue(sheet, customerNameCell, customer); err != nil {
		return "", fmt.Errorf("failed to write customer name: %w", err)
	}

	for i, p := range products {
		row := firstProductRow + i
		cells := []struct {
			col   string
			value interface{}
		}{
			{col: "A", value: p.ProductID},
			{col: "B", value: p.Style},
			{col: "C", value: p.ProductName},
			// column D stays blank
			{col: "E", value: p.Amount},
			{col: "F", value: p.RRP.InexactFloat64()},
		}
		for _, c := range cells {
			if err := workbook.SetCellValue(sheet, fmt.Sprintf("%s%d", c.col, row), c.value); err != nil {
				return "", fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("failed to serialize invoice: %w", err)
	}

	fileName := fmt.Sprintf("%s_%s.xlsx", customer, a.Now().UTC().Format(timestampLayout))
	target := strings.TrimSuffix(a.outputFolder, "/") + "/" + fileName

	if err := a.store.UploadBuffer(ctx, target, buf.Bytes(), xlsxContentType); err != nil {
		return "", fmt.Errorf("failed to upload invoice: %w", err)
	}

	log.Infof("[Invoice] generated %s with %d product(s)", fileName, len(products))
	return fileName, nil
}

// CustomerName derives the invoice customer from the source CSV file name by
// stripping a trailing ".csv" (exact case).
func CustomerName(fileName string) string {
	return strings.TrimSuffix(fileName, ".csv")
}
