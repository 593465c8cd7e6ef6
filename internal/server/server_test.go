package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iwvelando/docbuilder/internal/docbuilder"
	"github.com/iwvelando/docbuilder/pkg/constants"
	"go.uber.org/zap"
)

const sampleDocumentYAML = `id: 3
name: Site survey
subsections:
  - id: 1
    name: Scope
    docbuilder_questions:
      - id: 10
        required: true
        docbuilder_question_type_machine_name: subsection_exclusion_radios_v1
        value:
          subsectionProcessingStage: pre
      - id: 11
        required: true
        docbuilder_question_type_machine_name: text_manual_short_v1
        value:
          subsectionProcessingStage: normal
  - id: 2
    name: Evidence
    docbuilder_questions:
      - id: 20
        required: true
        docbuilder_question_type_machine_name: file_uploads_v1
        value:
          subsectionProcessingStage: normal
          minFiles: 1
          maxFiles: 2
  - id: 3
    name: Appendix
    docbuilder_questions: []
answers:
  - id: 100
    docbuilder_question_id: 10
    value:
      response: exclude
  - id: 200
    docbuilder_question_id: 20
    value:
      response:
        41:
          name: plan.pdf
`

func performJSON(t *testing.T, handler http.Handler, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func performUpload(t *testing.T, handler http.Handler, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func newTestHandler() http.Handler {
	return NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test", 2)
}

func TestHandleValidateAnswer(t *testing.T) {
	handler := newTestHandler()

	tests := []struct {
		name       string
		payload    map[string]interface{}
		wantStatus int
		wantValid  bool
	}{
		{
			name: "Required text answered",
			payload: map[string]interface{}{
				"question": map[string]interface{}{
					"id":                                    5,
					"required":                              true,
					"docbuilder_question_type_machine_name": "text_manual_long_v1",
					"value":                                 map[string]interface{}{"subsectionProcessingStage": "normal"},
				},
				"answerValue": map[string]interface{}{"response": "hello"},
			},
			wantStatus: http.StatusOK,
			wantValid:  true,
		},
		{
			name: "Required text empty",
			payload: map[string]interface{}{
				"question": map[string]interface{}{
					"id":                                    5,
					"required":                              true,
					"docbuilder_question_type_machine_name": "text_manual_long_v1",
					"value":                                 map[string]interface{}{"subsectionProcessingStage": "normal"},
				},
				"answerValue": map[string]interface{}{"response": ""},
			},
			wantStatus: http.StatusOK,
			wantValid:  false,
		},
		{
			name: "Checkbox with other text",
			payload: map[string]interface{}{
				"question": map[string]interface{}{
					"id":                                    6,
					"docbuilder_question_type_machine_name": "text_checkboxes_v1",
					"value": map[string]interface{}{
						"subsectionProcessingStage": "normal",
						"options":                   []interface{}{map[string]interface{}{"key": "a"}},
						"otherOption":               map[string]interface{}{"key": "other"},
					},
				},
				"answerValue": map[string]interface{}{"response": []interface{}{"a", "other"}, "otherResponse": "mine"},
			},
			wantStatus: http.StatusOK,
			wantValid:  true,
		},
		{
			name: "Optional question without answer",
			payload: map[string]interface{}{
				"question": map[string]interface{}{
					"id":                                    7,
					"docbuilder_question_type_machine_name": "file_uploads_v1",
					"value":                                 map[string]interface{}{"subsectionProcessingStage": "normal"},
				},
			},
			wantStatus: http.StatusOK,
			wantValid:  true,
		},
		{
			name: "Unknown question type",
			payload: map[string]interface{}{
				"question": map[string]interface{}{
					"id":                                    8,
					"docbuilder_question_type_machine_name": "text_matrix_v1",
				},
				"answerValue": map[string]interface{}{"response": "x"},
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performJSON(t, handler, "/api/questions/validate", tt.payload)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				var resp map[string]string
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to decode error response: %v", err)
				}
				if !strings.Contains(resp["error"], "unknown question type") {
					t.Errorf("unexpected error message %q", resp["error"])
				}
				return
			}

			var resp validateResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Valid != tt.wantValid {
				t.Errorf("expected valid=%v, got %v", tt.wantValid, resp.Valid)
			}
		})
	}
}

func TestHandleSubsectionStatus(t *testing.T) {
	handler := newTestHandler()

	subsection := docbuilder.Subsection{
		ID: 4,
		Questions: []docbuilder.Question{
			{
				ID:       40,
				Required: true,
				Type:     docbuilder.TypeRadios,
				Value: docbuilder.QuestionValue{
					SubsectionProcessingStage: docbuilder.StageNormal,
					Options:                   []docbuilder.Option{{Key: "yes"}, {Key: "no"}},
				},
			},
			{
				ID:       41,
				Required: true,
				Type:     docbuilder.TypeConfirmationCheckbox,
				Value:    docbuilder.QuestionValue{SubsectionProcessingStage: docbuilder.StagePost},
			},
		},
	}

	tests := []struct {
		name        string
		answers     []docbuilder.Answer
		wantStatus  docbuilder.Status
		wantInvalid []int64
	}{
		{
			name: "Confirmed",
			answers: []docbuilder.Answer{
				{QuestionID: 40, Value: &docbuilder.AnswerValue{Response: "yes"}},
				{QuestionID: 41, Value: &docbuilder.AnswerValue{Response: "confirmed"}},
			},
			wantStatus:  docbuilder.StatusReady,
			wantInvalid: []int64{},
		},
		{
			name: "Awaiting confirmation",
			answers: []docbuilder.Answer{
				{QuestionID: 40, Value: &docbuilder.AnswerValue{Response: "no"}},
			},
			wantStatus:  docbuilder.StatusPending,
			wantInvalid: []int64{41},
		},
		{
			name:        "Unanswered",
			wantStatus:  docbuilder.StatusPending,
			wantInvalid: []int64{40, 41},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performJSON(t, handler, "/api/subsections/status", subsectionRequest{
				Subsection:   subsection,
				Answers:      tt.answers,
				ReturnCopies: true,
			})
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}

			var resp subsectionResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.SubsectionID != 4 {
				t.Errorf("expected subsection 4, got %d", resp.SubsectionID)
			}
			if resp.Status != tt.wantStatus || resp.StatusName != tt.wantStatus.String() {
				t.Errorf("expected status %s, got %d (%s)", tt.wantStatus, int(resp.Status), resp.StatusName)
			}
			if fmt.Sprint(resp.InvalidQuestionIDs) != fmt.Sprint(tt.wantInvalid) {
				t.Errorf("expected invalid questions %v, got %v", tt.wantInvalid, resp.InvalidQuestionIDs)
			}
			if len(resp.Warnings) != 0 {
				t.Errorf("expected no warnings, got %v", resp.Warnings)
			}
		})
	}
}

func TestHandleSubsectionStatusConfigurationError(t *testing.T) {
	handler := newTestHandler()

	payload := subsectionRequest{Subsection: docbuilder.Subsection{
		ID: 9,
		Questions: []docbuilder.Question{{
			ID:    90,
			Type:  docbuilder.TypeManualShort,
			Value: docbuilder.QuestionValue{SubsectionProcessingStage: docbuilder.StagePost},
		}},
	}}

	rr := performJSON(t, handler, "/api/subsections/status", payload)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "not supported in processing stage") {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
}

func TestHandleDocumentUpload(t *testing.T) {
	handler := newTestHandler()

	rr := performUpload(t, handler, "survey.yaml", []byte(sampleDocumentYAML))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp documentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Report == nil {
		t.Fatal("expected report in response")
	}
	if resp.DocumentID != 3 || resp.Name != "Site survey" {
		t.Errorf("unexpected document %d %q", resp.DocumentID, resp.Name)
	}
	if resp.Duration == "" {
		t.Error("expected duration in response")
	}

	want := []docbuilder.Status{docbuilder.StatusExcluding, docbuilder.StatusReady, docbuilder.StatusNotApplicable}
	if len(resp.Subsections) != len(want) {
		t.Fatalf("expected %d subsections, got %d", len(want), len(resp.Subsections))
	}
	for i, status := range want {
		if resp.Subsections[i].Status != status {
			t.Errorf("subsection %d: expected %s, got %s", resp.Subsections[i].SubsectionID, status, resp.Subsections[i].Status)
		}
	}
	if resp.Summary.Resolved != 3 || !resp.Summary.Complete {
		t.Errorf("unexpected summary %+v", resp.Summary)
	}
}

func TestHandleDocumentStatusJSON(t *testing.T) {
	handler := newTestHandler()

	payload := map[string]interface{}{
		"id": 12,
		"subsections": []interface{}{
			map[string]interface{}{
				"id": 1,
				"docbuilder_questions": []interface{}{
					map[string]interface{}{
						"id":                                    1,
						"required":                              true,
						"docbuilder_question_type_machine_name": "text_manual_short_v1",
						"value":                                 map[string]interface{}{"subsectionProcessingStage": "normal"},
					},
				},
			},
		},
		"answers": []interface{}{
			map[string]interface{}{"docbuilder_question_id": 99, "value": map[string]interface{}{"response": "orphan"}},
		},
	}

	rr := performJSON(t, handler, "/api/documents/status", payload)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp documentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Subsections) != 1 || resp.Subsections[0].Status != docbuilder.StatusPending {
		t.Fatalf("unexpected subsections %+v", resp.Subsections)
	}
	if len(resp.Warnings) != 1 || !strings.Contains(resp.Warnings[0], "unknown question 99") {
		t.Errorf("expected orphan answer warning, got %v", resp.Warnings)
	}
}

func TestHandleDocumentUploadErrors(t *testing.T) {
	handler := newTestHandler()

	rr := performUpload(t, handler, "broken.yaml", []byte("subsections: [unterminated"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for invalid YAML, got %d", rr.Code)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	missing := httptest.NewRecorder()
	handler.ServeHTTP(missing, req)
	if missing.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without a file, got %d", missing.Code)
	}
	if !strings.Contains(missing.Body.String(), "missing document file") {
		t.Errorf("unexpected body %s", missing.Body.String())
	}
}

func TestHandleRequestTooLarge(t *testing.T) {
	handler := NewHandler(zap.NewNop(), 64, "test", 1)

	payload := map[string]interface{}{"id": 1, "name": strings.Repeat("x", 256)}
	rr := performJSON(t, handler, "/api/documents/status", payload)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
	}

	upload := performUpload(t, handler, "big.yaml", []byte(sampleDocumentYAML))
	if upload.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413 for upload, got %d: %s", upload.Code, upload.Body.String())
	}
}

func TestHandleBadJSON(t *testing.T) {
	handler := newTestHandler()

	for _, path := range []string{"/api/questions/validate", "/api/subsections/status", "/api/documents/status"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{not json"))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", path, rr.Code)
		}
	}
}

func TestHandleMethodNotAllowed(t *testing.T) {
	handler := newTestHandler()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/questions/validate"},
		{http.MethodGet, "/api/subsections/status"},
		{http.MethodGet, "/api/documents/status"},
		{http.MethodGet, "/api/documents/upload"},
		{http.MethodPost, "/api/version"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status 405, got %d", tt.method, tt.path, rr.Code)
		}
	}
}

func TestHandleVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{name: "Configured", version: " 1.2.3 ", want: "1.2.3"},
		{name: "Default", version: "", want: "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(nil, 0, tt.version, 0)
			req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}
			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["version"] != tt.want {
				t.Errorf("expected version %q, got %q", tt.want, resp["version"])
			}
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set(constants.RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get(constants.RequestIDHeader); got != "abc-123" {
		t.Errorf("expected request id to be echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get(constants.RequestIDHeader); len(got) != 36 {
		t.Errorf("expected generated uuid request id, got %q", got)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", docbuilder.ErrUnknownQuestionType), http.StatusUnprocessableEntity},
		{docbuilder.ErrUnsupportedStageType, http.StatusUnprocessableEntity},
		{docbuilder.ErrUnknownStage, http.StatusUnprocessableEntity},
		{context.Canceled, http.StatusServiceUnavailable},
		{fmt.Errorf("slow: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.want {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
