package controller

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePageSpecDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/pairs", nil)
	page, err := parsePageSpec(r)
	require.NoError(t, err)
	require.Equal(t, defaultLimit, page.Limit)
	require.Empty(t, page.Cursor)
}

func TestParsePageSpecClampsLimit(t *testing.T) {
	r := httptest.NewRequest("GET", "/pairs?limit=9999", nil)
	page, err := parsePageSpec(r)
	require.NoError(t, err)
	require.Equal(t, maxLimit, page.Limit)
}

func TestParsePageSpecRejectsBadLimit(t *testing.T) {
	for _, v := range []string{"0", "-1", "abc"} {
		r := httptest.NewRequest("GET", "/pairs?limit="+v, nil)
		_, err := parsePageSpec(r)
		require.Error(t, err, "limit=%s", v)
	}
}

func TestParsePageSpecPassesCursorThrough(t *testing.T) {
	r := httptest.NewRequest("GET", "/pairs?cursor=0xabc&limit=10", nil)
	page, err := parsePageSpec(r)
	require.NoError(t, err)
	require.Equal(t, 10, page.Limit)
	require.Equal(t, "0xabc", page.Cursor)
}
