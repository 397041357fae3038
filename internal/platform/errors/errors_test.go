package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeTable(t *testing.T) {
	cases := []struct {
		code   ErrorCode
		name   string
		status int
	}{
		{ErrorCodeNotFound, "not_found", http.StatusNotFound},
		{ErrorCodeInvalidArgument, "invalid_argument", http.StatusUnprocessableEntity},
		{ErrorCodeReferenceData, "reference_data", http.StatusUnprocessableEntity},
		{ErrorCodeInconsistent, "arithmetic_inconsistency", http.StatusUnprocessableEntity},
		{ErrorCodeConflict, "conflict", http.StatusConflict},
		{ErrorCodeDuplicateKey, "duplicate_key", http.StatusConflict},
		{ErrorCodeValidation, "validation", http.StatusBadRequest},
		{ErrorCodeJSON, "json", http.StatusBadRequest},
		{ErrorCodeUnavailable, "unavailable", http.StatusServiceUnavailable},
		{ErrorCodeDB, "db", http.StatusInternalServerError},
		{ErrorCode(999), "code_999", http.StatusInternalServerError},
	}
	for _, c := range cases {
		if c.code.String() != c.name || c.code.Status() != c.status {
			t.Errorf("%d: %q/%d, want %q/%d", c.code, c.code.String(), c.code.Status(), c.name, c.status)
		}
	}
}

func TestWrapAndInspect(t *testing.T) {
	var nilErr *Error
	if nilErr.Error() != "<nil>" {
		t.Fatalf("nil render %q", nilErr.Error())
	}

	cause := stderrs.New("no rows")
	e := Wrapf(cause, ErrorCodeReferenceData, "no rule for %s %d", "CA", 2019)
	if e.Error() != "no rule for CA 2019: no rows" || !stderrs.Is(e, cause) {
		t.Fatalf("wrap: %v", e)
	}
	wrapped := fmt.Errorf("evaluate: %w", e)
	if got, ok := As(wrapped); !ok || got.Code() != ErrorCodeReferenceData {
		t.Fatal("As through fmt wrap")
	}
	if HTTPStatus(wrapped) != http.StatusUnprocessableEntity || CodeOf(cause) != ErrorCodeUnknown {
		t.Fatal("status mapping through wrap")
	}
	if Root(wrapped) != cause {
		t.Fatalf("Root = %v", Root(wrapped))
	}
}

func TestWithFieldCopies(t *testing.T) {
	base := InvalidArgf("as-of date is required")
	withField := WithField(base, "as_of")
	if fe, _ := As(withField); fe.Field() != "as_of" {
		t.Fatal("field not set")
	}
	if be, _ := As(base); be.Field() != "" {
		t.Fatal("original mutated")
	}
	foreign := stderrs.New("x")
	if WithField(foreign, "x") != foreign {
		t.Fatal("foreign error should pass through")
	}
}

func TestWire(t *testing.T) {
	if WireFrom(nil) != (Wire{}) || WirePtr(nil) != nil {
		t.Fatal("nil error should give empty wire")
	}
	if w := WireFrom(stderrs.New("boom")); w.Kind != "unknown" || w.Message != "boom" {
		t.Fatalf("foreign %+v", w)
	}
	w := WirePtr(WithField(Wrap(stderrs.New("root"), ErrorCodeReferenceData, "no rule"), "year"))
	if w.Code != ErrorCodeReferenceData || w.Kind != "reference_data" || w.Message != "no rule: root" || w.Field != "year" {
		t.Fatalf("ours %+v", w)
	}
}

func TestConstructors(t *testing.T) {
	for code, err := range map[ErrorCode]error{
		ErrorCodeNotFound:        NotFoundf("run %s", "r1"),
		ErrorCodeInvalidArgument: InvalidArgf("x"),
		ErrorCodeValidation:      Validationf("x"),
		ErrorCodeReferenceData:   ReferenceDataf("x"),
		ErrorCodeInconsistent:    Inconsistentf("x"),
		ErrorCodeDB:              DBf("x"),
		ErrorCodeJSON:            JSONErrf("x"),
		ErrorCodePanic:           PanicErrf("x"),
		ErrorCodeUnavailable:     Unavailablef("x"),
	} {
		if !IsCode(err, code) {
			t.Errorf("%v produced %v", code, CodeOf(err))
		}
	}
	if !IsCode(ErrNotFound, ErrorCodeNotFound) {
		t.Error("ErrNotFound")
	}
}
