package responses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]int{"n": 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", w.Code)
	}
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInsufficientStock, "only 2 left").
		WithDetails(map[string]string{"product_id": "p1"})
	WriteError(context.Background(), nil, w, err)

	if got := w.Code; got != http.StatusConflict {
		t.Fatalf("expected status 409 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Message != "only 2 left" {
		t.Fatalf("expected typed message, got %q", body.Error.Message)
	}
	if body.Error.Details == nil {
		t.Fatalf("expected details in public payload")
	}
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	cases := []error{
		errors.New("boom"),
		pkgerrors.Wrap(pkgerrors.CodeInternal, errors.New("sql: connection reset"), "load order"),
		pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp"), "redis unavailable"),
	}
	for _, err := range cases {
		w := httptest.NewRecorder()
		WriteError(context.Background(), nil, w, err)

		var body types.ErrorEnvelope
		if decodeErr := json.NewDecoder(w.Body).Decode(&body); decodeErr != nil {
			t.Fatalf("failed to decode error envelope: %v", decodeErr)
		}
		meta := pkgerrors.MetadataFor(pkgerrors.Code(body.Error.Code))
		if body.Error.Message != meta.PublicMessage {
			t.Fatalf("%v: expected public message %q, got %q", err, meta.PublicMessage, body.Error.Message)
		}
		if body.Error.Details != nil {
			t.Fatalf("details should be omitted for %s", body.Error.Code)
		}
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
}

func TestWriteErrorMapsDeadlineToDependency(t *testing.T) {
	cases := map[string]error{
		"untyped":  fmt.Errorf("commit: %w", context.DeadlineExceeded),
		"internal": pkgerrors.Wrap(pkgerrors.CodeInternal, context.DeadlineExceeded, "load cart"),
	}
	for name, err := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, err)

			if w.Code != http.StatusServiceUnavailable {
				t.Fatalf("expected 503 got %d", w.Code)
			}
			var body types.ErrorEnvelope
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error envelope: %v", err)
			}
			if body.Error.Code != string(pkgerrors.CodeDependency) {
				t.Fatalf("unexpected code %s", body.Error.Code)
			}
			if !pkgerrors.MetadataFor(pkgerrors.CodeDependency).Retryable {
				t.Fatal("dependency errors must be retryable")
			}
		})
	}

	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.Wrap(pkgerrors.CodeConflict, context.DeadlineExceeded, "stale"))
	if w.Code != http.StatusConflict {
		t.Fatalf("typed non-internal errors keep their code, got %d", w.Code)
	}
}
