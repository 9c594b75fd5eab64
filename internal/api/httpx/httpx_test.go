package httpx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/api/httpx"
	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

func TestIntParam(t *testing.T) {
	q := url.Values{"page": {"3"}, "bad": {"x1"}, "blank": {"  "}}

	n, err := httpx.IntParam(q, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = httpx.IntParam(q, "missing", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = httpx.IntParam(q, "blank", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = httpx.IntParam(q, "bad", 1)
	_, category, _ := apperror.MapToHTTPStatus(err)
	assert.Equal(t, "NUMBER_FORMAT_ERROR", category)
}

func TestRestockFilter(t *testing.T) {
	q := url.Values{
		"product":      {"p1"},
		"date_from":    {"2024-05-01"},
		"date_to":      {"2024-05-02"},
		"min_quantity": {"2"},
	}

	filter, err := httpx.RestockFilter(q)
	require.NoError(t, err)
	assert.Equal(t, "p1", filter.ProductID)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *filter.From)
	assert.Equal(t, time.Date(2024, 5, 2, 23, 59, 59, 999999999, time.UTC), *filter.To)
	assert.Equal(t, 2, *filter.MinQuantity)
	assert.Nil(t, filter.MaxQuantity)
}

func TestRestockFilter_RFC3339AndErrors(t *testing.T) {
	filter, err := httpx.RestockFilter(url.Values{"date_from": {"2024-05-01T10:00:00+02:00"}})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), *filter.From)

	_, err = httpx.RestockFilter(url.Values{"date_to": {"yesterday"}})
	_, category, _ := apperror.MapToHTTPStatus(err)
	assert.Equal(t, "VALIDATION_ERROR", category)

	_, err = httpx.RestockFilter(url.Values{"max_quantity": {"many"}})
	_, category, _ = apperror.MapToHTTPStatus(err)
	assert.Equal(t, "NUMBER_FORMAT_ERROR", category)
}

func TestError_WritesEnvelopeWithoutInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/restocks", nil)

	httpx.Error(rec, req, logger.NewLogger("error"), apperror.NewDBError("failed to count restocks", errors.New("pq: password authentication failed")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body domain.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, 500, body.Code)
	assert.Equal(t, "STORE_ERROR", body.Category)
	assert.NotContains(t, body.Message, "pq:")
}

func TestDecodeJSON(t *testing.T) {
	var payload map[string]interface{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"stock": 5}`))
	require.NoError(t, httpx.DecodeJSON(req, &payload))
	assert.Equal(t, json.Number("5"), payload["stock"])

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	assert.Error(t, httpx.DecodeJSON(req, &payload))
}
