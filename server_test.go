package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Priyanshu23/TieredIndexGo/partition"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	partitions := partition.New(t.TempDir())
	srv := httptest.NewServer(newServer(partitions, zap.NewNop()).handler())
	t.Cleanup(srv.Close)

	return srv
}

func postIndex(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(srv.URL+"/index", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func getSearch(t *testing.T, srv *httptest.Server, body string) searchResponse {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/search", strings.NewReader(body))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out searchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func TestIndexThenSearch(t *testing.T) {
	srv := newTestServer(t)

	resp := postIndex(t, srv, `[["p1","k1","v1"],["p1","k1","v2"]]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))

	out := getSearch(t, srv, `{"query":{"p1":["k1"]}}`)
	require.Equal(t, []string{"v1", "v2"}, out.Values)
}

func TestSearchHonorsLimit(t *testing.T) {
	srv := newTestServer(t)

	resp := postIndex(t, srv, `[["p1","k","a"],["p1","k","b"],["p1","k","c"]]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := getSearch(t, srv, `{"query":{"p1":["k"]},"limit":2}`)
	require.Len(t, out.Values, 2)
}

func TestSearchMissingKeyReturnsEmptyList(t *testing.T) {
	srv := newTestServer(t)

	out := getSearch(t, srv, `{"query":{"p1":["nope"]}}`)
	require.NotNil(t, out.Values)
	require.Empty(t, out.Values)
}

func TestIndexRejectsMalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not a list", `{"not":"a list of triples"}`},
		{"missing value", `[["p1","k1"]]`},
		{"extra element", `[["p1","k1","v1","x"]]`},
		{"empty triple", `[[]]`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			srv := newTestServer(t)

			resp := postIndex(t, srv, test.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestIndexRejectsWrongMethod(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/index")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
