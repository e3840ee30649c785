package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddress_Defaults(t *testing.T) {
	for _, raw := range []string{"", "null", "{}", "not json", "[1,2]"} {
		a := ParseAddress([]byte(raw))
		require.Equal(t, Address{}, a, raw)
	}
}

func TestParseAddress_NumericPostalCode(t *testing.T) {
	a := ParseAddress([]byte(`{"name":"Asha","postal_code":560001,"phone":null,"city":"Bengaluru"}`))
	require.Equal(t, "Asha", a.Name.String())
	require.Equal(t, "560001", a.PostalCode.String())
	require.True(t, a.Phone.Blank())
	require.Equal(t, "Bengaluru", a.City.String())
}

func TestFlexString_Int64(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"42","b":17.0,"c":"x"}`), &v))

	n, ok := v.A.Int64()
	require.True(t, ok)
	require.Equal(t, int64(42), n)

	n, ok = v.B.Int64()
	require.True(t, ok)
	require.Equal(t, int64(17), n)

	_, ok = v.C.Int64()
	require.False(t, ok)
}
