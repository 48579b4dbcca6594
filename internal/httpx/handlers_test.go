package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter() http.Handler {
	r := NewRouter()
	h := &Handler{StaffGroupID: "admins"}
	h.Register(r)
	return r
}

func doRequest(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)
	return rec
}

func TestShippingFeeEndpoint(t *testing.T) {
	rec := doRequest(t, http.MethodGet, "/shipping/fee?region=Hanoi", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var quote struct {
		Fee    int64 `json:"fee"`
		IsFree bool  `json:"is_free"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, int64(30000), quote.Fee)
	assert.False(t, quote.IsFree)

	// no region at all gets the default fee
	rec = doRequest(t, http.MethodGet, "/shipping/fee", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// unknown region is a client error, not a silent default
	rec = doRequest(t, http.MethodGet, "/shipping/fee?region=Atlantis", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "INVALID_INPUT", e.Error.Code)
	assert.Equal(t, "invalid region", e.Error.Message)
}

func TestCreateOrderRejectsMalformedBody(t *testing.T) {
	rec := doRequest(t, http.MethodPost, "/orders", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, http.MethodPost, "/orders", `{"buyer_id":"b","address_id":"a","payment_method":"carrier-pigeon","items":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown payment method")
}

func TestTransitionRejectsUnknownRoleAndStatus(t *testing.T) {
	rec := doRequest(t, http.MethodPost, "/orders/o-1/status", `{"actor_role":"janitor","status":"preparing"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown actor role")

	rec = doRequest(t, http.MethodPost, "/orders/o-1/status", `{"actor_role":"staff","status":"teleported"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown status")
}

func TestEventsRequiresUser(t *testing.T) {
	rec := doRequest(t, http.MethodGet, "/events", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := doRequest(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
