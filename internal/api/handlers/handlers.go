package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yhzhou/merchant-query/internal/api/middleware"
	"github.com/yhzhou/merchant-query/internal/domain"
	"github.com/yhzhou/merchant-query/internal/filestore"
	"github.com/yhzhou/merchant-query/internal/jobs"
	"github.com/yhzhou/merchant-query/internal/pipeline"
	"github.com/yhzhou/merchant-query/internal/query"
	"github.com/yhzhou/merchant-query/internal/tabular"
)

// maxUploadBytes bounds in-memory buffering of one uploaded workbook.
const maxUploadBytes = 64 << 20

// dataDateUnchanged is returned by the upload endpoint when the filename
// carried no parseable date, matching the source system's response.
const dataDateUnchanged = "未更新"

// MerchantsHandler handles merchant query endpoints.
type MerchantsHandler struct {
	engine *query.Engine
	log    zerolog.Logger
}

// NewMerchantsHandler creates a new merchants handler.
func NewMerchantsHandler(engine *query.Engine, log zerolog.Logger) *MerchantsHandler {
	return &MerchantsHandler{
		engine: engine,
		log:    log,
	}
}

// ListMerchants handles GET /api/merchants/
func (h *MerchantsHandler) ListMerchants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	criteria := query.Criteria{
		InstitutionID: params.Get("institution_id"),
		Institution:   params.Get("institution"),
		MerchantID:    params.Get("merchant_id"),
		MerchantName:  params.Get("merchant_name"),
	}

	var err error
	if criteria.MinTransactions, err = optionalInt(params.Get("min_transactions")); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid min_transactions")
		return
	}
	if criteria.MaxTransactions, err = optionalInt(params.Get("max_transactions")); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid max_transactions")
		return
	}

	page := intOrDefault(params.Get("page"), 1)
	pageSize := intOrDefault(params.Get("page_size"), query.DefaultPageSize)

	result, err := h.engine.Search(ctx, criteria, page, pageSize)
	if err != nil {
		h.log.Error().Err(err).Msg("Merchant search failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query merchants")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// GetMerchant handles GET /api/merchants/{merchant_id}
func (h *MerchantsHandler) GetMerchant(w http.ResponseWriter, r *http.Request, merchantID string) {
	merchant, err := h.engine.Get(r.Context(), merchantID)
	if errors.Is(err, domain.ErrMerchantNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Merchant not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("merchant_id", merchantID).Msg("Merchant lookup failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query merchant")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, merchant)
}

// GetDataDate handles GET /api/data-date
func (h *MerchantsHandler) GetDataDate(w http.ResponseWriter, r *http.Request) {
	date, err := h.engine.DataDate(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Data date lookup failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read data date")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"date": date})
}

// UploadsHandler handles spreadsheet uploads and background ingestion
// requests.
type UploadsHandler struct {
	ingestor  *pipeline.Ingestor
	files     filestore.Storage
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewUploadsHandler creates a new uploads handler.
func NewUploadsHandler(ingestor *pipeline.Ingestor, files filestore.Storage, publisher jobs.Publisher, log zerolog.Logger) *UploadsHandler {
	return &UploadsHandler{
		ingestor:  ingestor,
		files:     files,
		publisher: publisher,
		log:       log,
	}
}

// UploadFile handles POST /api/upload/ (multipart, synchronous ingestion).
// The raw file is retained in the upload store before ingestion so failed
// uploads can be inspected and replayed.
func (h *UploadsHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	filename := header.Filename
	if !strings.HasSuffix(filename, ".xlsx") {
		middleware.WriteError(w, http.StatusBadRequest, "Only Excel files are allowed")
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.log.Error().Err(err).Str("filename", filename).Msg("Failed to read upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	if _, err := h.files.Save(filename, bytes.NewReader(content)); err != nil {
		// Retention is an audit aid, not a precondition for ingesting.
		h.log.Error().Err(err).Str("filename", filename).Msg("Failed to retain upload")
	}

	result, ok := h.ingest(ctx, w, bytes.NewReader(content), filename)
	if !ok {
		return
	}

	dataDate := result.DataDate
	if dataDate == "" {
		dataDate = dataDateUnchanged
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Data uploaded successfully",
		"records":   result.RecordsWritten,
		"data_date": dataDate,
	})
}

// EnqueueIngest handles POST /api/ingest: queues background ingestion of an
// already-retained file.
func (h *UploadsHandler) EnqueueIngest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Filename == "" {
		middleware.WriteError(w, http.StatusBadRequest, "filename is required")
		return
	}
	if !h.files.Exists(req.Filename) {
		middleware.WriteError(w, http.StatusNotFound, "No retained file with that name")
		return
	}

	job := &jobs.IngestFileJob{Filename: req.Filename}
	if err := h.publisher.PublishIngestFile(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("filename", req.Filename).Msg("Failed to enqueue ingestion")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue ingestion")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("filename", req.Filename).Msg("Ingestion job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":   job.JobID,
		"filename": req.Filename,
		"status":   string(job.Status),
	})
}

// ingest decodes and ingests one workbook, writing the error response itself
// when something fails. The bool reports success.
func (h *UploadsHandler) ingest(ctx context.Context, w http.ResponseWriter, content io.Reader, filename string) (*pipeline.Result, bool) {
	table, err := tabular.DecodeXLSX(content)
	if err != nil {
		h.log.Warn().Err(err).Str("filename", filename).Msg("Upload is not a readable workbook")
		middleware.WriteError(w, http.StatusBadRequest, "File is not a readable Excel workbook")
		return nil, false
	}

	result, err := h.ingestor.Ingest(ctx, table, filename)
	if err != nil {
		var schemaErr *pipeline.SchemaError
		var rowErr *pipeline.RowError
		switch {
		case errors.As(err, &schemaErr):
			middleware.WriteError(w, http.StatusBadRequest, schemaErr.Error())
		case errors.As(err, &rowErr):
			middleware.WriteError(w, http.StatusBadRequest, rowErr.Error())
		default:
			h.log.Error().Err(err).Str("filename", filename).Msg("Ingestion failed")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to ingest file")
		}
		return nil, false
	}

	return result, true
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	filter := jobs.JobFilter{
		Filename: params.Get("filename"),
		Status:   jobs.JobStatus(params.Get("status")),
		Limit:    intOrDefault(params.Get("limit"), 0),
		Offset:   intOrDefault(params.Get("offset"), 0),
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// IngestionRunLister is the slice of the store the ingestion-audit endpoint
// needs.
type IngestionRunLister interface {
	ListIngestionRuns(ctx context.Context, limit int) ([]domain.IngestionRun, error)
}

// IngestionsHandler serves the ingestion-run audit trail.
type IngestionsHandler struct {
	runs IngestionRunLister
	log  zerolog.Logger
}

// NewIngestionsHandler creates a new ingestions handler.
func NewIngestionsHandler(runs IngestionRunLister, log zerolog.Logger) *IngestionsHandler {
	return &IngestionsHandler{
		runs: runs,
		log:  log,
	}
}

// ListIngestions handles GET /api/ingestions
func (h *IngestionsHandler) ListIngestions(w http.ResponseWriter, r *http.Request) {
	limit := intOrDefault(r.URL.Query().Get("limit"), 50)

	runs, err := h.runs.ListIngestionRuns(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list ingestion runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list ingestion runs")
		return
	}
	if runs == nil {
		runs = []domain.IngestionRun{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ingestions": runs,
		"count":      len(runs),
	})
}

// optionalInt parses an optional numeric query parameter; empty means unset.
func optionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// intOrDefault parses a numeric query parameter, falling back on any problem.
func intOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
