package fipe

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceVersionJSONKeepsTwoDecimals(t *testing.T) {
	pv := PriceVersion{
		ModelCode:      "honda-civic",
		Version:        "EXL 2.0",
		Year:           2017,
		PriceCode:      "014071-4",
		ReferenceMonth: "2024-05",
		Price:          decimal.RequireFromString("85432.1"),
	}

	data, err := json.Marshal(pv)
	require.NoError(t, err)
	assert.JSONEq(t, `{"modelCode":"honda-civic","version":"EXL 2.0","year":2017,"priceCode":"014071-4","referenceMonth":"2024-05","price":85432.10}`, string(data))
	assert.Contains(t, string(data), `"price":85432.10`)

	whole, err := json.Marshal(PriceVersion{Price: decimal.NewFromInt(78500)})
	require.NoError(t, err)
	assert.Contains(t, string(whole), `"price":78500.00`)

	var back PriceVersion
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, pv.Price.Equal(back.Price))
	assert.Equal(t, pv.PriceCode, back.PriceCode)
}

func TestPriceVersionSliceJSON(t *testing.T) {
	data, err := json.Marshal([]PriceVersion{{Price: decimal.RequireFromString("9000")}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price":9000.00`)
}
