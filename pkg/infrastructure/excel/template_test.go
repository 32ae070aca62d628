package excel

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/domain/services"
)

func buildTemplate(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Clinet Orders"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Production Plan"))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Item No.", "Item Name", "Qty"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"00012345", "Bottle 1L", ""}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"67890", "Cap 28mm", 999}))
	require.NoError(t, f.SetSheetRow(sheet, "A5", &[]interface{}{"55555", "Preform", ""}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func numericNormalizer() *services.CodeNormalizer {
	return services.NewCodeNormalizer(entities.CodePolicy{Mode: entities.CodeModeNumeric, Width: 11, KeyDigits: 10})
}

func TestFillTemplate(t *testing.T) {
	final := []entities.FinalPlanLine{
		{ProductCode: "00000012345", MachineID: "M1", FinalQty: decimal.NewFromInt(120), Source: entities.SourceAuto},
		{ProductCode: "00000012345", MachineID: "M2", FinalQty: decimal.NewFromInt(30), Source: entities.SourcePlannerAdded},
		{ProductCode: "00000067890", MachineID: "M1", FinalQty: decimal.Zero, Source: entities.SourcePlannerOverride},
	}

	var out bytes.Buffer
	result, err := FillTemplate(buildTemplate(t), &out, final, numericNormalizer(), DefaultTemplateOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Filled)
	assert.Equal(t, 1, result.Unmatched)
	assert.Equal(t, []string{"55555"}, result.UnmatchedCodes)

	f, err := excelize.OpenReader(&out)
	require.NoError(t, err)
	defer f.Close()

	qty, err := f.GetCellValue("Clinet Orders", "C3")
	require.NoError(t, err)
	assert.Equal(t, "150", qty)

	// zero quantities overwrite what the template held
	qty, err = f.GetCellValue("Clinet Orders", "C4")
	require.NoError(t, err)
	assert.Equal(t, "0", qty)

	qty, err = f.GetCellValue("Clinet Orders", "C5")
	require.NoError(t, err)
	assert.Equal(t, "", qty)
}

func TestFillTemplate_Errors(t *testing.T) {
	opts := DefaultTemplateOptions()
	opts.Sheet = "Orders"
	_, err := FillTemplate(buildTemplate(t), &bytes.Buffer{}, nil, numericNormalizer(), opts)
	assert.EqualError(t, err, "sheet not found: Orders")

	opts = DefaultTemplateOptions()
	opts.QtyHeader = "Quantity"
	_, err = FillTemplate(buildTemplate(t), &bytes.Buffer{}, nil, numericNormalizer(), opts)
	assert.EqualError(t, err, `header "Quantity" not found in row 2`)

	_, err = FillTemplate(bytes.NewBufferString("not a workbook"), &bytes.Buffer{}, nil, numericNormalizer(), DefaultTemplateOptions())
	assert.Error(t, err)
}
