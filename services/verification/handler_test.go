package verification

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"licensure-verifier/pkg/errutil"
	"licensure-verifier/pkg/middleware"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	svc, db := newTestService(t)
	r := gin.New()
	r.Use(middleware.Error())
	registerRoutes(r, svc)

	return r, db
}

func postRun(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getLicenses(t *testing.T, r *gin.Engine, query string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/licenses"+query, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleRun(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postRun(t, r, `{"providers":["Utah"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Equal(t, 1, resp.Summary.Requested)
	require.Equal(t, 1, resp.Summary.Processed)

	w = getLicenses(t, r, "")
	require.Equal(t, http.StatusOK, w.Code)

	var list ListLicensesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	require.Equal(t, "UT", list.Items[0].State)
	require.Equal(t, "Utah", list.Items[0].Provider)
	require.Equal(t, "Jane A. Smith", list.Items[0].FullName)
	require.NotNil(t, list.Items[0].IssueDate)
	require.Equal(t, "2019-06-17", *list.Items[0].IssueDate)
	require.NotNil(t, list.Items[0].ExpiryDate)
	require.Equal(t, "2026-01-31", *list.Items[0].ExpiryDate)
}

func TestHandleRunEmptyList(t *testing.T) {
	r, db := newTestRouter(t)

	w := postRun(t, r, `{"providers":[]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Equal(t, 0, resp.Summary.Processed)
	require.Equal(t, int64(0), countLicenses(t, db))
}

func TestHandleRunMissingProviders(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, body := range []string{`{}`, `{"providers":null}`} {
		w := postRun(t, r, body)
		require.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)

		var be errutil.BaseError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &be))
		require.Equal(t, errutil.StatusBadRequest, be.Code)
	}
}

func TestHandleRunMalformedBody(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postRun(t, r, `{"providers": [`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRunUnknownProvider(t *testing.T) {
	r, db := newTestRouter(t)

	w := postRun(t, r, `{"providers":["Atlantis"]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var be errutil.BaseError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &be))
	require.Equal(t, errutil.StatusBadRequest, be.Code)
	require.NotEmpty(t, be.Details)
	require.Equal(t, "Atlantis", be.Details[0].Field)
	require.Equal(t, int64(0), countLicenses(t, db))

	// the service keeps serving afterwards
	w = getLicenses(t, r, "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleListLicensesEmpty(t *testing.T) {
	r, _ := newTestRouter(t)

	w := getLicenses(t, r, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"items":[]}`, w.Body.String())
}

func TestHandleListLicensesFilters(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postRun(t, r, `{"providers":["Utah"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = getLicenses(t, r, "?state=ut")
	require.Equal(t, http.StatusOK, w.Code)
	var list ListLicensesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)

	w = getLicenses(t, r, "?provider=jane")
	require.Equal(t, http.StatusOK, w.Code)
	list = ListLicensesResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)

	w = getLicenses(t, r, "?state=CA")
	require.Equal(t, http.StatusOK, w.Code)
	list = ListLicensesResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Empty(t, list.Items)
}
