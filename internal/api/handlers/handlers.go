// Package handlers implements the HTTP handlers for the DataPeek API:
// file upload (parse, clean, profile, AI visualization suggestions) and
// chart-data aggregation against a cached session.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/datapeek/datapeek/internal/charts"
	"github.com/datapeek/datapeek/internal/dataset"
	"github.com/datapeek/datapeek/internal/profile"
	"github.com/datapeek/datapeek/internal/sessions"
	"github.com/datapeek/datapeek/internal/summarizer"
	"github.com/datapeek/datapeek/pkg/models"
)

// sampleRows is how many rows of cleaned data the upload response echoes back.
const sampleRows = 10

// Suggester produces visualization suggestions for a profiled table.
type Suggester interface {
	Suggest(ctx context.Context, p models.Profile, filename string) ([]models.Suggestion, error)
}

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	cache          *sessions.Cache
	suggester      Suggester
	version        string
	maxUploadBytes int64
}

// New creates a Handlers with the given dependencies.
func New(cache *sessions.Cache, suggester Suggester, version string, maxUploadBytes int64) *Handlers {
	return &Handlers{
		cache:          cache,
		suggester:      suggester,
		version:        version,
		maxUploadBytes: maxUploadBytes,
	}
}

// ── Service handlers ─────────────────────────────────────────

// Root handles GET / with a small identification payload.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "DataPeek API is running",
		"status":  "ok",
	})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Version handles GET /version.
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

// ── Upload ───────────────────────────────────────────────────

// uploadResponse is the full payload returned after a successful upload.
type uploadResponse struct {
	Message    string        `json:"message"`
	SessionID  string        `json:"session_id"`
	Filename   string        `json:"filename"`
	FileType   string        `json:"file_type"`
	Dataframe  dataframeInfo `json:"dataframe_info"`
	AIAnalysis aiAnalysis    `json:"ai_analysis"`
}

// shapeInfo reports table dimensions as named fields.
type shapeInfo struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

type dataframeInfo struct {
	Shape              shapeInfo                            `json:"shape"`
	Columns            []string                             `json:"columns"`
	ColumnsInfo        []models.ColumnProfile               `json:"columns_info"`
	Dtypes             map[string]string                    `json:"dtypes"`
	StatisticalSummary map[string]models.NumericSummary     `json:"statistical_summary"`
	CategoricalSummary map[string]models.CategoricalSummary `json:"categorical_summary"`
	InfoSummary        models.InfoSummary                   `json:"info_summary"`
	NullCounts         map[string]int                       `json:"null_counts"`
	SampleData         []map[string]models.Value            `json:"sample_data"`
}

type aiAnalysis struct {
	VisualizationSuggestions []models.Suggestion `json:"visualization_suggestions"`
}

// Upload handles POST /upload. The multipart field "file" must carry a
// CSV or XLSX file; the handler parses and cleans it, profiles the
// result, asks the summarizer for visualization suggestions, caches the
// table under a fresh session ID, and returns the combined payload.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read uploaded file: "+err.Error())
		return
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	table, err := dataset.Load(data, ext)
	if err != nil {
		respondError(w, loadErrorStatus(err), "error processing file: "+err.Error())
		return
	}
	table = dataset.Clean(table)

	p := profile.Build(table)

	suggestions, err := h.suggester.Suggest(r.Context(), p, header.Filename)
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("suggestion failed")
		respondError(w, suggestErrorStatus(err), "error processing file: "+err.Error())
		return
	}

	id := h.cache.Put(table, header.Filename)
	log.Info().
		Str("session_id", id).
		Str("filename", header.Filename).
		Int("rows", table.Rows()).
		Int("columns", len(table.Columns)).
		Msg("upload processed")

	respondJSON(w, http.StatusOK, uploadResponse{
		Message:    "File processed successfully",
		SessionID:  id,
		Filename:   header.Filename,
		FileType:   ext,
		Dataframe:  buildDataframeInfo(table, p),
		AIAnalysis: aiAnalysis{VisualizationSuggestions: suggestions},
	})
}

func buildDataframeInfo(t *models.Table, p models.Profile) dataframeInfo {
	dtypes := make(map[string]string, len(t.Columns))
	nullCounts := make(map[string]int, len(t.Columns))
	for _, ci := range p.ColumnsInfo {
		dtypes[ci.Name] = ci.Dtype
		nullCounts[ci.Name] = ci.NullCount
	}

	n := t.Rows()
	if n > sampleRows {
		n = sampleRows
	}
	sample := make([]map[string]models.Value, 0, n)
	for i := 0; i < n; i++ {
		sample = append(sample, t.Row(i))
	}

	return dataframeInfo{
		Shape:              shapeInfo{Rows: t.Rows(), Columns: len(t.Columns)},
		Columns:            t.ColumnNames(),
		ColumnsInfo:        p.ColumnsInfo,
		Dtypes:             dtypes,
		StatisticalSummary: p.NumericSummary,
		CategoricalSummary: p.CategoricalSummary,
		InfoSummary:        p.Info,
		NullCounts:         nullCounts,
		SampleData:         sample,
	}
}

// loadErrorStatus maps a dataset load failure to an HTTP status.
func loadErrorStatus(err error) int {
	var unsupported *dataset.ErrUnsupportedFormat
	var empty *dataset.ErrEmptyInput
	var parse *dataset.ErrParse
	if errors.As(err, &unsupported) || errors.As(err, &empty) || errors.As(err, &parse) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// suggestErrorStatus maps a summarizer failure to an HTTP status.
func suggestErrorStatus(err error) int {
	var rateLimited *summarizer.ErrRateLimited
	if errors.As(err, &rateLimited) {
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// ── Chart data ───────────────────────────────────────────────

// chartDataRequest is the body of POST /chart-data.
type chartDataRequest struct {
	SessionID  string            `json:"session_id"`
	ChartType  string            `json:"chart_type"`
	Parameters map[string]string `json:"parameters"`
}

// chartDataResponse wraps the aggregated payload for one chart, echoing
// the request back so renderers can match responses to pending charts.
type chartDataResponse struct {
	ChartType  string            `json:"chart_type"`
	Data       any               `json:"data"`
	Parameters map[string]string `json:"parameters"`
}

// ChartData handles POST /chart-data: it looks up the cached session and
// aggregates the table into the requested chart payload.
func (h *Handlers) ChartData(w http.ResponseWriter, r *http.Request) {
	var req chartDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.SessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if !models.ValidChartType(req.ChartType) {
		respondError(w, http.StatusBadRequest, "unsupported chart type: "+req.ChartType)
		return
	}

	sess, err := h.cache.Get(req.SessionID)
	if err != nil {
		var notFound *sessions.ErrNotFound
		var expired *sessions.ErrExpired
		if errors.As(err, &notFound) || errors.As(err, &expired) {
			respondError(w, http.StatusNotFound, "session not found or expired, please upload the file again")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	data, err := charts.Aggregate(sess.Table, req.ChartType, req.Parameters)
	if err != nil {
		var badParams *charts.ErrInvalidParameters
		var badType *charts.ErrInvalidColumnType
		if errors.As(err, &badParams) || errors.As(err, &badType) {
			respondError(w, http.StatusBadRequest, "error generating chart data: "+err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "error generating chart data: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, chartDataResponse{
		ChartType:  req.ChartType,
		Data:       data,
		Parameters: req.Parameters,
	})
}

// ── Response helpers ─────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"detail": message})
}
