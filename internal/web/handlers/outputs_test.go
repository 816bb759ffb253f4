package handlers

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/backdrop/internal/constants"
)

func TestOutputs_Get(t *testing.T) {
	p := testPipeline(t, nil)
	data := createTestPNG(t, 12, 9)
	if err := p.Storage().WriteProcessed(data); err != nil {
		t.Fatalf("failed to write processed: %v", err)
	}
	handler := NewOutputsHandler(p.Storage())

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/outputs/processed.png", nil),
		map[string]string{"name": constants.ProcessedFileName})
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "image/png")
	if cc := recorder.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected Cache-Control no-store, got %q", cc)
	}
	if !bytes.Equal(recorder.Body.Bytes(), data) {
		t.Error("expected the stored bytes to be served unchanged")
	}
}

func TestOutputs_WebP(t *testing.T) {
	p := testPipeline(t, nil)
	if err := p.Storage().WriteFinal(createTestPNG(t, 12, 9)); err != nil {
		t.Fatalf("failed to write final: %v", err)
	}
	handler := NewOutputsHandler(p.Storage())

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/outputs/final_output.png?format=webp", nil),
		map[string]string{"name": constants.FinalFileName})
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "image/webp")
	if _, err := png.Decode(bytes.NewReader(recorder.Body.Bytes())); err == nil {
		t.Error("expected a webp body, got png")
	}
}

func TestOutputs_Errors(t *testing.T) {
	p := testPipeline(t, nil)
	if err := p.Storage().WriteProcessed(createTestPNG(t, 4, 4)); err != nil {
		t.Fatalf("failed to write processed: %v", err)
	}
	handler := NewOutputsHandler(p.Storage())

	tests := []struct {
		name    string
		file    string
		query   string
		status  int
		message string
	}{
		{"unknown name", "secrets.txt", "", http.StatusNotFound, "output not found"},
		{"path traversal", "../processed.png", "", http.StatusNotFound, "output not found"},
		{"not written yet", constants.FinalFileName, "", http.StatusNotFound, "output not found"},
		{"bad format", constants.ProcessedFileName, "?format=tiff", http.StatusBadRequest, "unsupported output format: tiff"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/outputs/x"+tc.query, nil),
				map[string]string{"name": tc.file})
			recorder := httptest.NewRecorder()
			handler.Get(recorder, req)

			assertStatusCode(t, recorder, tc.status)
			assertJSONError(t, recorder, tc.message)
		})
	}
}
