package auth0

import (
	"encoding/json"
	"testing"
)

func TestErrorCodeKnown(t *testing.T) {
	if !CodeInvalidGrant.Known() {
		t.Fatal("expected invalid_grant to be a known code")
	}
	if ErrorCode("weird_error").Known() {
		t.Fatal("expected weird_error to be unknown")
	}
}

func TestErrorCodeRoundTripPreservesUnknownCodes(t *testing.T) {
	var code ErrorCode
	if err := json.Unmarshal([]byte(`"weird_error"`), &code); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if code != "weird_error" {
		t.Fatalf("expected weird_error, got %q", code)
	}

	out, err := json.Marshal(code)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"weird_error"` {
		t.Fatalf("round trip changed the code: %s", out)
	}
}

func TestProviderErrorDecodesFromResponseBody(t *testing.T) {
	body := []byte(`{"error":"access_denied","error_description":"user said no","error_uri":"https://tenant/errors/1"}`)

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if payload.Code != CodeAccessDenied {
		t.Fatalf("expected access_denied, got %q", payload.Code)
	}
	if payload.Description != "user said no" {
		t.Fatalf("unexpected description %q", payload.Description)
	}
	if payload.URI != "https://tenant/errors/1" {
		t.Fatalf("unexpected uri %q", payload.URI)
	}
}
