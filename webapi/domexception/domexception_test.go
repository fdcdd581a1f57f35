package domexception

import "testing"

func TestLegacyCodeLookup(t *testing.T) {
	e := New("NotFoundError", "missing")
	if e.Code != NotFoundErr {
		t.Fatalf("expected code %d, got %d", NotFoundErr, e.Code)
	}
}

func TestModernNameHasZeroCode(t *testing.T) {
	e := New("EncodingError", "bad bytes")
	if e.Code != 0 {
		t.Fatalf("expected code 0 for modern name, got %d", e.Code)
	}
}

func TestErrorString(t *testing.T) {
	e := New("AbortError", "cancelled")
	if e.Error() != "AbortError: cancelled" {
		t.Fatalf("unexpected error string: %q", e.Error())
	}
}
