package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/docbuilder/internal/config"
	"github.com/iwvelando/docbuilder/internal/docbuilder"
	"github.com/iwvelando/docbuilder/internal/document"
	"github.com/iwvelando/docbuilder/internal/processor"
	"github.com/iwvelando/docbuilder/internal/validator"
	"github.com/iwvelando/docbuilder/pkg/constants"
	"github.com/iwvelando/docbuilder/pkg/validation"
	"go.uber.org/zap"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	evaluator     *document.Evaluator
	processor     *processor.Processor
}

// NewHandler constructs the HTTP handler that serves the status API.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string, workers int) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		evaluator:     document.NewEvaluator(logger, document.WithWorkers(workers)),
		processor:     processor.NewProcessor(logger),
	}

	mux := http.NewServeMux()

	// Single answer validation
	mux.HandleFunc("/api/questions/validate", h.handleValidateAnswer)

	// Status of one subsection
	mux.HandleFunc("/api/subsections/status", h.handleSubsectionStatus)

	// Status of every subsection of a document, as JSON body or file upload
	mux.HandleFunc("/api/documents/status", h.handleDocumentStatus)
	mux.HandleFunc("/api/documents/upload", h.handleDocumentUpload)

	// Version endpoint for client metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	return h.withRequestID(mux)
}

type requestIDKey struct{}

func (h *handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(constants.RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(constants.RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID)))
	})
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

type validateRequest struct {
	Question    docbuilder.Question     `json:"question"`
	AnswerValue *docbuilder.AnswerValue `json:"answerValue"`
}

type validateResponse struct {
	QuestionID int64 `json:"questionId"`
	Valid      bool  `json:"valid"`
}

type subsectionRequest struct {
	Subsection   docbuilder.Subsection `json:"subsection"`
	Answers      []docbuilder.Answer   `json:"answers"`
	ReturnCopies bool                  `json:"returnCopies,omitempty"`
}

type subsectionResponse struct {
	processor.Result
	StatusName string   `json:"statusName"`
	Warnings   []string `json:"warnings,omitempty"`
}

type documentResponse struct {
	*document.Report
	Warnings []string `json:"warnings,omitempty"`
	Duration string   `json:"duration"`
}

func (h *handler) handleValidateAnswer(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleValidateAnswer"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var payload validateRequest
	if status, err := h.decodeJSON(w, r, &payload); err != nil {
		h.respondErrorWithOp(w, r, status, err.Error(), op)
		return
	}

	valid, err := validator.IsValid(payload.Question, payload.AnswerValue)
	if err != nil {
		h.respondErrorWithOp(w, r, statusForError(err), err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, validateResponse{QuestionID: payload.Question.ID, Valid: valid})
}

func (h *handler) handleSubsectionStatus(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSubsectionStatus"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var payload subsectionRequest
	if status, err := h.decodeJSON(w, r, &payload); err != nil {
		h.respondErrorWithOp(w, r, status, err.Error(), op)
		return
	}

	answers := processor.AnswersForSubsection(payload.Subsection, payload.Answers, payload.ReturnCopies)
	result, err := h.processor.Evaluate(payload.Subsection, answers)
	if err != nil {
		h.respondErrorWithOp(w, r, statusForError(err), err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, subsectionResponse{
		Result:     result,
		StatusName: result.Status.String(),
		Warnings:   validation.LintSubsection(payload.Subsection),
	})
}

func (h *handler) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDocumentStatus"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	var doc document.Document
	if status, err := h.decodeJSON(w, r, &doc); err != nil {
		h.respondErrorWithOp(w, r, status, err.Error(), op)
		return
	}

	h.runEvaluation(w, r, doc, start, op)
}

func (h *handler) handleDocumentUpload(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDocumentUpload"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "missing document file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to read document: %v", err), op)
		return
	}

	doc, err := config.DecodeDocument(buf.Bytes())
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	h.runEvaluation(w, r, *doc, start, op)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) runEvaluation(w http.ResponseWriter, r *http.Request, doc document.Document, start time.Time, op string) {
	warnings := validation.LintDocument(doc)

	report, err := h.evaluator.Evaluate(r.Context(), doc)
	if err != nil {
		h.respondErrorWithOp(w, r, statusForError(err), err.Error(), op)
		return
	}

	elapsed := time.Since(start)
	h.logger.Info("document status computed",
		zap.String("op", op),
		zap.String("requestId", requestID(r)),
		zap.Int64("document", doc.ID),
		zap.Int("subsections", report.Summary.Total),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, documentResponse{
		Report:   report,
		Warnings: warnings,
		Duration: elapsed.String(),
	})
}

// decodeJSON decodes the request body into target and returns the HTTP
// status to answer with when decoding fails.
func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) (int, error) {
	body := http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return http.StatusRequestEntityTooLarge, fmt.Errorf("request exceeds limit of %d bytes", h.maxUploadSize)
		}
		return http.StatusBadRequest, fmt.Errorf("failed to decode request: %v", err)
	}
	return http.StatusOK, nil
}

// statusForError maps configuration errors of the question definitions to
// 422 and everything else to 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, docbuilder.ErrUnknownQuestionType),
		errors.Is(err, docbuilder.ErrUnsupportedStageType),
		errors.Is(err, docbuilder.ErrUnknownStage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.logger.Error("status request failed",
		zap.String("op", op),
		zap.String("requestId", requestID(r)),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
