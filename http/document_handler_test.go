package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deal-underwriter/domain"
)

func uploadRequest(t *testing.T, path, fileType, fileName string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("fileType", fileType))
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadHandler_T12(t *testing.T) {
	h := newTestRouter(t)
	deal := createDeal(t, h)

	req := uploadRequest(t, "/api/deals/"+deal.ID+"/upload", "t12", "t12.csv",
		[]byte("Gross Rental Income,468000\nTotal Operating Expenses,203400\n"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var doc domain.DocumentUpload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, domain.DocumentTypeT12, doc.FileType)
	require.NotNil(t, doc.ExtractedData.GrossRentalIncome)
	assert.Equal(t, 468_000.0, *doc.ExtractedData.GrossRentalIncome)
}

func TestUploadHandler_UnsupportedMedia(t *testing.T) {
	h := newTestRouter(t)
	deal := createDeal(t, h)

	req := uploadRequest(t, "/api/deals/"+deal.ID+"/upload", "t12", "scan.png",
		[]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestUploadHandler_MissingFile(t *testing.T) {
	h := newTestRouter(t)
	deal := createDeal(t, h)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("fileType", "t12"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/deals/"+deal.ID+"/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadHandler_NotMultipart(t *testing.T) {
	h := newTestRouter(t)
	deal := createDeal(t, h)

	w := doJSON(t, h, http.MethodPost, "/api/deals/"+deal.ID+"/upload", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
