package tabular

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/domain/entities"
)

func table(t *testing.T, csv string) *Table {
	t.Helper()
	tbl, err := ParseCSV(strings.NewReader(csv), "input.csv")
	require.NoError(t, err)
	return tbl
}

func TestLoader_StockRows(t *testing.T) {
	csv := "Item No.,Item Name,MPI Stock,Open Orders,Production Line (Stage1-Stage2-Stage3)\n" +
		"12345,Bottle 1L,\"1,200\",,INJ2-BLW1\n" +
		"67890,,5,3,\n"

	rows, err := NewLoader(nil).StockRows(table(t, csv))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "12345", dto.Value(first.Code))
	assert.Equal(t, "Bottle 1L", dto.Value(first.Description))
	assert.Equal(t, "1,200", dto.Value(first.OnHandQty))
	assert.Nil(t, first.OpenOrdersQty)
	assert.Equal(t, "INJ2", dto.Value(first.AssignedMachine))
	assert.Equal(t, []string{"BLW1"}, first.LaterStages)

	assert.Nil(t, rows[1].Description)
	assert.Nil(t, rows[1].AssignedMachine)
	assert.Empty(t, rows[1].LaterStages)
	assert.Equal(t, "3", dto.Value(rows[1].OpenOrdersQty))
}

func TestLoader_StockRowsMissingColumns(t *testing.T) {
	_, err := NewLoader(nil).StockRows(table(t, "Item No.,Item Name\n1,x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "on_hand_qty")
}

func TestLoader_ItemRows(t *testing.T) {
	rows, err := NewLoader(nil).ItemRows(table(t, "ID,Description\n00012345,Bottle 1L\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "00012345", dto.Value(rows[0].Code))
	assert.Equal(t, "Bottle 1L", dto.Value(rows[0].Description))
}

func TestLoader_HistoryRecords(t *testing.T) {
	loader := NewLoader(nil)

	records, err := loader.HistoryRecords(table(t, "code,date,qty\nA001,2026-03-01,5\nA001,2026-03-02,\"1,000.5\"\n"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
	assert.True(t, records[1].Qty.Equal(decimal.RequireFromString("1000.5")))

	_, err = loader.HistoryRecords(table(t, "code,date,qty\nA001,yesterday,5\n"))
	assert.EqualError(t, err, `input.csv row 2: invalid date "yesterday" (expected YYYY-MM-DD)`)

	_, err = loader.HistoryRecords(table(t, "code,date,qty\n,2026-03-01,5\n"))
	require.Error(t, err)
	assert.True(t, entities.IsMissingRequiredFieldError(err))
}

func TestLoader_PeriodDemand(t *testing.T) {
	demand, err := NewLoader(nil).PeriodDemand(table(t, "Item No.,Min Stock / M.D.\nA001,260\nB002,\nA001,26\n"))
	require.NoError(t, err)

	assert.True(t, demand["A001"].Equal(decimal.NewFromInt(286)))
	_, ok := demand["B002"]
	assert.False(t, ok, "blank period demand falls back to history")

	_, err = NewLoader(nil).PeriodDemand(table(t, "Item No.,Min Stock / M.D.\nA001,260\nB002,n/a\n"))
	var missing *entities.MissingRequiredFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, FieldPeriodDemand.Name, missing.Field)
	assert.Equal(t, 3, missing.Row)
}

func TestLoader_Orders(t *testing.T) {
	orders, err := NewLoader(nil).Orders(table(t, "code,customer,qty,due date\nB002,C1,50,2026-03-09\n"))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "C1", orders[0].CustomerID)
	assert.True(t, orders[0].Qty.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), orders[0].RequiredDate)

	_, err = NewLoader(nil).Orders(table(t, "code,customer,qty,due date\nB002,,50,2026-03-09\n"))
	var missing *entities.MissingRequiredFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, FieldCustomer.Name, missing.Field)
	assert.Equal(t, 2, missing.Row)
}

func TestLoader_Machines(t *testing.T) {
	machines, err := NewLoader(nil).Machines(table(t, "machine_id,daily_capacity,eligible_products\nM1,100,\"A001;B002\"\nM2,50,C003 D004\n"))
	require.NoError(t, err)
	require.Len(t, machines, 2)
	assert.True(t, machines[0].CanProduce("B002"))
	assert.True(t, machines[1].CanProduce("D004"))

	_, err = NewLoader(nil).Machines(table(t, "machine_id,daily_capacity\nM1,0\n"))
	assert.EqualError(t, err, "input.csv row 2: daily capacity must be positive, got 0")
}

func TestLoader_Overrides(t *testing.T) {
	overrides, err := NewLoader(nil).Overrides(table(t, "code,machine,final qty\nY,M1,8\nX,M1,-1\n"))
	require.NoError(t, err)
	require.Len(t, overrides, 2)
	assert.Equal(t, entities.Override{ProductCode: "Y", MachineID: "M1", Qty: decimal.NewFromInt(8)}.Key(), overrides[0].Key())
	assert.True(t, overrides[1].Qty.IsNegative())

	_, err = NewLoader(nil).Overrides(table(t, "code,machine,qty\nY,M1,lots\n"))
	assert.EqualError(t, err, `input.csv row 2: invalid quantity "lots"`)
}

func TestParseDate_Layouts(t *testing.T) {
	for _, s := range []string{"2026-03-02", "2026/03/02", "03-02-26", "3/2/2026"} {
		d, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), d, s)
	}
}

func TestSplitStages(t *testing.T) {
	testCases := []struct {
		line  string
		first string
		later []string
	}{
		{"INJ2-BLW1-PK3", "INJ2", []string{"BLW1", "PK3"}},
		{" -BLW1", "BLW1", []string{}},
		{"INJ2", "INJ2", []string{}},
		{"", "", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.line, func(t *testing.T) {
			first, later := splitStages(tc.line)
			assert.Equal(t, tc.first, first)
			assert.Equal(t, len(tc.later), len(later))
			for i := range tc.later {
				assert.Equal(t, tc.later[i], later[i])
			}
		})
	}
}
