package core

import "testing"

func TestProtocolErrorClassify(t *testing.T) {
	err := NewChunkDoesNotExist(ChunkAddress([]byte("x")))
	kind, ok := Classify(err)
	if !ok || kind != KindChunkDoesNotExist {
		t.Fatalf("expected KindChunkDoesNotExist, got %v ok=%v", kind, ok)
	}

	if _, ok := Classify(nil); ok {
		t.Fatalf("Classify(nil) should report ok=false")
	}
}

func TestProtocolErrorMessage(t *testing.T) {
	err := NewConnectionTimeout(0)
	if err.Error() == "" {
		t.Fatalf("expected non-empty error message")
	}
	if err.Kind() != KindConnectionTimeout {
		t.Fatalf("unexpected kind: %v", err.Kind())
	}
}

func TestProtocolErrorAsJSON(t *testing.T) {
	err := NewRecordNotFound(ChunkAddress([]byte("y")))
	b, jerr := err.AsJSON()
	if jerr != nil {
		t.Fatalf("unexpected json error: %v", jerr)
	}
	if len(b) == 0 {
		t.Fatalf("expected non-empty json")
	}
}
