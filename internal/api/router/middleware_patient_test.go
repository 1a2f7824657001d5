package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequirePatientIDPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := patientIDFromRequest(r)
		if !ok || patientID != "PAC1" {
			t.Fatalf("expected patient id propagated, got %s / %v", patientID, ok)
		}
		w.WriteHeader(http.StatusTeapot)
	})

	handler := requirePatientID(next)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(patientHeader, " PAC1 ")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected downstream status, got %d", rr.Code)
	}
}

func TestRequirePatientIDMissingHeader(t *testing.T) {
	handler := requirePatientID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("downstream handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing patient, got %d", rr.Code)
	}
}
