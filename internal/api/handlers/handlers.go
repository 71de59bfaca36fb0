package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tuanngo/cashbook/internal/api/middleware"
	"github.com/tuanngo/cashbook/internal/domain"
	"github.com/tuanngo/cashbook/internal/jobs"
	"github.com/tuanngo/cashbook/internal/pipeline"
	"github.com/tuanngo/cashbook/internal/store"
)

// maxUploadBytes bounds multipart uploads (sheets and image batches).
const maxUploadBytes = 32 << 20

// TransactionsHandler serves the transaction CRUD endpoints.
type TransactionsHandler struct {
	store store.TransactionStore
	pipe  *pipeline.Pipeline
	log   zerolog.Logger
}

// NewTransactionsHandler creates a transactions handler.
func NewTransactionsHandler(txStore store.TransactionStore, pipe *pipeline.Pipeline, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{store: txStore, pipe: pipe, log: log}
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txs, err := h.store.ListAll(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// createRequest is the manual-entry body. Amount stays raw so the parser
// can handle both JSON numbers and formatted strings.
type createRequest struct {
	Date      string          `json:"date"`
	Type      string          `json:"type"`
	Subject   string          `json:"subject"`
	Amount    json.RawMessage `json:"amount"`
	Currency  string          `json:"currency"`
	Note      string          `json:"note"`
	CreatedBy string          `json:"created_by"`
}

func (req createRequest) rawFields() domain.RawFields {
	raw := domain.RawFields{
		Type:      req.Type,
		Subject:   req.Subject,
		Currency:  req.Currency,
		Note:      req.Note,
		CreatedBy: req.CreatedBy,
	}
	if req.Date != "" {
		raw.Date = req.Date
	}
	if len(req.Amount) > 0 {
		var s string
		if err := json.Unmarshal(req.Amount, &s); err == nil {
			raw.Amount = s
		} else {
			var f float64
			if err := json.Unmarshal(req.Amount, &f); err == nil {
				raw.Amount = f
			}
		}
	}
	return raw
}

// Create handles POST /api/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.pipe.CreateManual(ctx, req.rawFields())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// Update handles PUT /api/transactions/{id}
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request, idStr string) {
	ctx := r.Context()

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.pipe.BuildUpdate(id, req.rawFields())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Update(ctx, tx); err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to update transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Delete handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request, idStr string) {
	ctx := r.Context()

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	deleted, err := h.store.DeleteByIDs(ctx, []int64{id})
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}
	if deleted == 0 {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// IngestHandler serves the bulk ingestion endpoints: image batches, sheet
// imports and rollback.
type IngestHandler struct {
	pipe      *pipeline.Pipeline
	publisher jobs.Publisher
	bucket    string
	log       zerolog.Logger
}

// NewIngestHandler creates an ingestion handler.
func NewIngestHandler(pipe *pipeline.Pipeline, publisher jobs.Publisher, bucket string, log zerolog.Logger) *IngestHandler {
	return &IngestHandler{pipe: pipe, publisher: publisher, bucket: bucket, log: log}
}

// readImages pulls every uploaded image out of the multipart form.
func readImages(r *http.Request) ([]pipeline.ScanItem, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}

	var items []pipeline.ScanItem
	for _, fh := range r.MultipartForm.File["images"] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}

		mimeType := fh.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		items = append(items, pipeline.ScanItem{
			Filename: fh.Filename,
			MimeType: mimeType,
			Data:     data,
		})
	}
	return items, nil
}

// UploadBulk handles POST /api/upload-bulk: extract a batch of receipt
// images synchronously. Per-image failures come back keyed by filename.
func (h *IngestHandler) UploadBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := readImages(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	if len(items) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "No images uploaded")
		return
	}

	result, err := h.pipe.ScanBatch(ctx, items, r.FormValue("created_by"))
	if err != nil {
		h.log.Error().Err(err).Msg("Image batch failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Image batch failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, batchResponse(result))
}

// EnqueueScans handles POST /api/scan-jobs: stage images to GCS and let the
// worker extract them asynchronously. Returns the batch id and job ids.
func (h *IngestHandler) EnqueueScans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.bucket == "" {
		middleware.WriteError(w, http.StatusServiceUnavailable, "No scan bucket configured")
		return
	}

	items, err := readImages(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	if len(items) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "No images uploaded")
		return
	}

	batchID := uuid.NewString()
	jobIDs := make([]string, 0, len(items))
	for _, item := range items {
		job, err := h.pipe.StageImage(ctx, h.bucket, item, h.publisher, batchID)
		if err != nil {
			h.log.Error().Err(err).Str("filename", item.Filename).Msg("Failed to stage image")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to stage "+item.Filename)
			return
		}
		jobIDs = append(jobIDs, job.JobID)
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"batch_id": batchID,
		"job_ids":  jobIDs,
	})
}

// ImportSheet handles POST /api/import-sheet: ingest one spreadsheet.
func (h *IngestHandler) ImportSheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Missing sheet file")
		return
	}
	defer f.Close()

	result, err := h.pipe.ImportSheet(ctx, f, fh.Filename, r.FormValue("created_by"))
	if err != nil {
		h.log.Error().Err(err).Str("filename", fh.Filename).Msg("Sheet import failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Sheet import failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, batchResponse(result))
}

// Rollback handles POST /api/rollback: delete previously imported
// transactions by id.
func (h *IngestHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "No ids given")
		return
	}

	deleted, err := h.pipe.Rollback(ctx, req.IDs)
	if err != nil {
		h.log.Error().Err(err).Msg("Rollback failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Rollback failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// batchResponse shapes a batch result for clients: accepted transactions
// plus rejections keyed by row or filename.
func batchResponse(result *pipeline.BatchResult) map[string]interface{} {
	txs := make([]domain.Transaction, 0, len(result.Accepted))
	personnel := make([]int64, 0)
	for _, a := range result.Accepted {
		txs = append(txs, a.Tx)
		if a.Personnel {
			personnel = append(personnel, a.Tx.ID)
		}
	}

	errs := make([]map[string]interface{}, 0, len(result.Rejected))
	for _, rej := range result.Rejected {
		e := map[string]interface{}{"error": rej.Reason}
		if rej.Item != "" {
			e["filename"] = rej.Item
		}
		if rej.Row != 0 {
			e["row"] = rej.Row
		}
		errs = append(errs, e)
	}

	return map[string]interface{}{
		"transactions":  txs,
		"errors":        errs,
		"personnel_ids": personnel,
	}
}

// JobsHandler serves scan job status lookups.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(jobStore jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: jobStore, log: log}
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

// ListJobs handles GET /api/jobs?batch_id=...&status=...
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.JobFilter{
		RunID:  r.URL.Query().Get("batch_id"),
		Status: jobs.JobStatus(r.URL.Query().Get("status")),
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}
