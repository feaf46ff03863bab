package screener

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveSymbol(t *testing.T) {
	table := []struct {
		nse      string
		bse      string
		expected string
	}{
		{nse: "TCS", bse: "532540", expected: "TCS"},
		{nse: "", bse: "532540", expected: "532540"},
		{nse: "  ", bse: "532540", expected: "532540"},
		{nse: "", bse: "", expected: UnknownSymbol},
	}

	for _, row := range table {
		require.Equal(t, row.expected, ResolveSymbol(row.nse, row.bse))
	}
}

func TestDecodeProcessResponse(t *testing.T) {
	body := `{"data":[
		{"nsecode":"TCS","bsecode":"532540","name":"Tata Consultancy","close":3500.5,"volume":120000},
		{"bsecode":500325,"name":"Reliance","close":"2,900.10","volume":"5000"},
		{"name":"Mystery","close":null},
		{}
	]}`

	var res processResponse
	require.Nil(t, json.Unmarshal([]byte(body), &res))
	require.Len(t, res.Data, 4)

	rows := make([]ResultRow, len(res.Data))
	for i, r := range res.Data {
		rows[i] = r.resultRow()
	}

	// every row survives, including the ones without any exchange code
	require.Equal(t, "TCS", rows[0].Symbol)
	require.Equal(t, 120000.0, rows[0].Volume)
	require.Equal(t, "500325", rows[1].Symbol)
	require.Equal(t, 2900.10, rows[1].ClosePrice)
	require.Equal(t, 5000.0, rows[1].Volume)
	require.Equal(t, UnknownSymbol, rows[2].Symbol)
	require.Equal(t, "Mystery", rows[2].Name)
	require.Equal(t, UnknownSymbol, rows[3].Symbol)
}
