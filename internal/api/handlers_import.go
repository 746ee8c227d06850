// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/listenkeep/listenkeep/internal/importer"
	"github.com/listenkeep/listenkeep/internal/logging"
	"github.com/listenkeep/listenkeep/internal/metrics"
	"github.com/listenkeep/listenkeep/internal/models"
)

// importRequest carries the per-request import options.
type importRequest struct {
	ImportMode     string `validate:"omitempty,oneof=skip merge replace"`
	MetadataSource string `validate:"omitempty,oneof=original navidrome musicbrainz"`
}

// ImportFile handles POST /api/v1/listens/import. The file arrives
// either as a multipart "file" field or as the raw request body with a
// filename query parameter. Options come from query or form values:
// import_mode (skip), metadata_source (original), deduplicate (true).
func (h *Handler) ImportFile(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	filename, data, ok := h.readImportFile(w, r)
	if !ok {
		return
	}

	req := importRequest{
		ImportMode:     r.FormValue("import_mode"),
		MetadataSource: r.FormValue("metadata_source"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	validation := importer.ValidateFile(filename, data)
	if !validation.Valid {
		metrics.RecordImportBatch("rejected")
		respondError(w, http.StatusBadRequest, "VALIDATION_FAILED", validation.Message, nil)
		return
	}

	records, format, apiErr := extractRecords(filename, data)
	if apiErr != nil {
		metrics.RecordImportBatch("rejected")
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	batch := &models.ImportBatch{
		RawRecords:     records,
		ImportMode:     models.ImportMode(defaultString(req.ImportMode, string(models.ImportModeSkip))),
		MetadataSource: models.MetadataSource(defaultString(req.MetadataSource, string(models.MetadataSourceOriginal))),
		Deduplicate:    getBoolParam(r, "deduplicate", true),
	}

	h.runImport(w, r, format, batch, started)
}

// submitListensRequest is the live submission payload, shaped after the
// ListenBrainz submission API plus the same import options the file
// endpoint takes. Absent options fall back to skip/original/dedup-on.
type submitListensRequest struct {
	ListenType     string        `json:"listen_type" validate:"omitempty,oneof=single import playing_now"`
	ImportMode     string        `json:"import_mode" validate:"omitempty,oneof=skip merge replace"`
	MetadataSource string        `json:"metadata_source" validate:"omitempty,oneof=original navidrome musicbrainz"`
	Deduplicate    *bool         `json:"deduplicate"`
	Payload        []interface{} `json:"payload" validate:"required,min=1"`
}

// SubmitListens handles POST /api/v1/submit-listens: small live batches
// from scrobblers, routed through the import pipeline with the
// caller's options.
func (h *Handler) SubmitListens(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	body := http.MaxBytesReader(w, r.Body, h.cfg.Import.MaxFileSizeBytes)
	decoder := json.NewDecoder(body)
	decoder.UseNumber()

	var req submitListensRequest
	if err := decoder.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	// playing_now notifications are transient; acknowledge without storing.
	if req.ListenType == "playing_now" {
		respondSuccess(w, http.StatusOK, &models.ImportResult{Total: len(req.Payload)}, started)
		return
	}

	batch := &models.ImportBatch{
		RawRecords:     req.Payload,
		ImportMode:     models.ImportMode(defaultString(req.ImportMode, string(models.ImportModeSkip))),
		MetadataSource: models.MetadataSource(defaultString(req.MetadataSource, string(models.MetadataSourceOriginal))),
		Deduplicate:    req.Deduplicate == nil || *req.Deduplicate,
	}

	h.runImport(w, r, importer.FormatListenBrainzPayload, batch, started)
}

// runImport executes a batch and writes the shared response shape.
func (h *Handler) runImport(w http.ResponseWriter, r *http.Request, format importer.Format, batch *models.ImportBatch, started time.Time) {
	result, err := h.orch.Run(r.Context(), format, batch)
	if err != nil {
		metrics.RecordImportBatch("error")
		respondError(w, http.StatusInternalServerError, "IMPORT_FAILED",
			"import aborted: "+err.Error(), err)
		return
	}

	metrics.RecordImportBatch("ok")
	metrics.RecordImportRecords("imported", result.Imported)
	metrics.RecordImportRecords("duplicate", result.DuplicatesSkipped)
	metrics.RecordImportRecords("failed", result.Failed)
	metrics.RecordImportRecords("enriched", result.Enriched)

	logging.Info().
		Str("format", string(format)).
		Int("imported", result.Imported).
		Int("duplicates", result.DuplicatesSkipped).
		Int("failed", result.Failed).
		Msg("import batch finished")

	if result.Imported > 0 && h.refresher != nil {
		h.refresher.Notify()
	}

	respondSuccess(w, http.StatusOK, result, started)
}

// readImportFile pulls the upload out of the request, enforcing the
// configured size limit. It writes the error response itself on failure.
func (h *Handler) readImportFile(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	maxSize := h.cfg.Import.MaxFileSizeBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxSize); err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"failed to parse multipart form", err)
			return "", nil, false
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"multipart form is missing the file field", err)
			return "", nil, false
		}
		defer closeQuietly(file)

		data, err := io.ReadAll(file)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"failed to read uploaded file", err)
			return "", nil, false
		}
		return header.Filename, data, true
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR",
				"file exceeds the maximum import size", nil)
			return "", nil, false
		}
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"failed to read request body", err)
		return "", nil, false
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "upload.json"
	}
	return filename, data, true
}

// extractRecords parses the validated upload into raw records and its
// detected format.
func extractRecords(filename string, data []byte) ([]interface{}, importer.Format, *models.APIError) {
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		records, err := importer.ParseCSVRecords(data)
		if err != nil {
			return nil, "", &models.APIError{Code: "VALIDATION_FAILED", Message: err.Error()}
		}
		return records, importer.FormatCSV, nil
	}

	doc, err := importer.ParseJSONDocument(data)
	if err != nil {
		return nil, "", &models.APIError{Code: "VALIDATION_FAILED", Message: "file is not valid JSON"}
	}

	format, err := importer.DetectSchema(doc)
	if err != nil {
		return nil, "", &models.APIError{Code: "UNSUPPORTED_FORMAT", Message: err.Error()}
	}

	return importer.Records(doc, format), format, nil
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func closeQuietly(f multipart.File) {
	if err := f.Close(); err != nil {
		logging.Warn().Err(err).Msg("closing uploaded file")
	}
}
