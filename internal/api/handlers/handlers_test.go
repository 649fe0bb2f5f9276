package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/datapeek/datapeek/internal/sessions"
	"github.com/datapeek/datapeek/internal/summarizer"
	"github.com/datapeek/datapeek/pkg/models"
)

type stubSuggester struct {
	suggestions []models.Suggestion
	err         error
}

func (s *stubSuggester) Suggest(ctx context.Context, p models.Profile, filename string) ([]models.Suggestion, error) {
	return s.suggestions, s.err
}

func testHandlers(s Suggester) *Handlers {
	return New(sessions.NewCache(time.Hour), s, "0.1.0", 50<<20)
}

func multipartCSV(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

const csvBody = "region,amount\neast,10\neast,20\nwest,5\n"

func doUpload(t *testing.T, h *Handlers, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartCSV(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	return rec
}

func TestUploadHappyPath(t *testing.T) {
	stub := &stubSuggester{suggestions: []models.Suggestion{
		{Title: "Sales by region", ChartType: "bar",
			Parameters: map[string]string{"x_axis": "region", "y_axis": "amount"},
			Insight:    "east dominates"},
	}}
	h := testHandlers(stub)

	rec := doUpload(t, h, "sales.csv", csvBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("session_id is empty")
	}
	if resp.Filename != "sales.csv" || resp.FileType != "csv" {
		t.Errorf("filename = %q, file_type = %q", resp.Filename, resp.FileType)
	}
	if resp.Dataframe.Shape != (shapeInfo{Rows: 3, Columns: 2}) {
		t.Errorf("shape = %+v, want rows 3 columns 2", resp.Dataframe.Shape)
	}
	if resp.Dataframe.Dtypes["amount"] != "numeric" {
		t.Errorf("amount dtype = %q, want numeric", resp.Dataframe.Dtypes["amount"])
	}
	if len(resp.Dataframe.SampleData) != 3 {
		t.Errorf("sample rows = %d, want 3", len(resp.Dataframe.SampleData))
	}
	if len(resp.AIAnalysis.VisualizationSuggestions) != 1 {
		t.Errorf("suggestions = %d, want 1", len(resp.AIAnalysis.VisualizationSuggestions))
	}

	// The upload must be retrievable for chart requests.
	if _, err := h.cache.Get(resp.SessionID); err != nil {
		t.Errorf("session lookup after upload: %v", err)
	}
}

func TestUploadSampleCapped(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i < 25; i++ {
		sb.WriteString("1\n")
	}
	h := testHandlers(&stubSuggester{})

	rec := doUpload(t, h, "big.csv", sb.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Dataframe.SampleData) != sampleRows {
		t.Errorf("sample rows = %d, want %d", len(resp.Dataframe.SampleData), sampleRows)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	h := testHandlers(&stubSuggester{})
	rec := doUpload(t, h, "data.txt", "a,b\n1,2\n")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	h := testHandlers(&stubSuggester{})
	rec := doUpload(t, h, "empty.csv", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadMissingFileField(t *testing.T) {
	h := testHandlers(&stubSuggester{})
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadSuggestionFailureStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"analysis failed", &summarizer.ErrAnalysisFailed{Err: errors.New("bad json")}, http.StatusInternalServerError},
		{"rate limited", &summarizer.ErrRateLimited{Err: errors.New("429")}, http.StatusTooManyRequests},
		{"auth failed", &summarizer.ErrAuthFailed{Err: errors.New("401")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := testHandlers(&stubSuggester{err: tc.err})
			rec := doUpload(t, h, "sales.csv", csvBody)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func doChartData(t *testing.T, h *Handlers, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/chart-data", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ChartData(rec, req)
	return rec
}

func uploadSession(t *testing.T, h *Handlers) string {
	t.Helper()
	rec := doUpload(t, h, "sales.csv", csvBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d", rec.Code)
	}
	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal upload: %v", err)
	}
	return resp.SessionID
}

func TestChartDataBar(t *testing.T) {
	h := testHandlers(&stubSuggester{})
	id := uploadSession(t, h)

	rec := doChartData(t, h, chartDataRequest{
		SessionID:  id,
		ChartType:  "bar",
		Parameters: map[string]string{"x_axis": "region", "y_axis": "amount"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ChartType string `json:"chart_type"`
		Data      struct {
			Labels []string  `json:"labels"`
			Values []float64 `json:"values"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ChartType != "bar" {
		t.Errorf("chart_type = %q", resp.ChartType)
	}
	if len(resp.Data.Labels) != 2 || resp.Data.Labels[0] != "east" {
		t.Errorf("labels = %v", resp.Data.Labels)
	}
	if resp.Data.Values[0] != 30 || resp.Data.Values[1] != 5 {
		t.Errorf("values = %v, want [30 5]", resp.Data.Values)
	}
}

func TestChartDataUnknownSession(t *testing.T) {
	h := testHandlers(&stubSuggester{})
	rec := doChartData(t, h, chartDataRequest{
		SessionID:  "missing",
		ChartType:  "bar",
		Parameters: map[string]string{"x_axis": "a", "y_axis": "b"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "upload the file again") {
		t.Errorf("body = %s, want re-upload instruction", rec.Body.String())
	}
}

func TestChartDataValidation(t *testing.T) {
	h := testHandlers(&stubSuggester{})
	id := uploadSession(t, h)

	cases := []struct {
		name string
		req  chartDataRequest
		want int
	}{
		{"missing session", chartDataRequest{ChartType: "bar"}, http.StatusBadRequest},
		{"unknown chart type", chartDataRequest{SessionID: id, ChartType: "donut"}, http.StatusBadRequest},
		{"missing parameters", chartDataRequest{SessionID: id, ChartType: "bar"}, http.StatusBadRequest},
		{"unknown column", chartDataRequest{
			SessionID: id, ChartType: "bar",
			Parameters: map[string]string{"x_axis": "region", "y_axis": "nope"},
		}, http.StatusBadRequest},
		{"wrong dtype", chartDataRequest{
			SessionID: id, ChartType: "histogram",
			Parameters: map[string]string{"column": "region"},
		}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doChartData(t, h, tc.req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestChartDataInvalidJSON(t *testing.T) {
	h := testHandlers(&stubSuggester{})
	req := httptest.NewRequest(http.MethodPost, "/chart-data", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ChartData(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServiceEndpoints(t *testing.T) {
	h := testHandlers(&stubSuggester{})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Version(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	if !strings.Contains(rec.Body.String(), "0.1.0") {
		t.Errorf("version body = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("root status = %d", rec.Code)
	}
}
