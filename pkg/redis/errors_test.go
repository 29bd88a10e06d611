package redis

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/yndnr/redwire-go/pkg/resp"
)

func TestErrorKindMatching(t *testing.T) {
	base := &Error{Kind: KindTimeout, Op: "read", Message: "reply read timed out"}
	wrapped := fmt.Errorf("fetch session: %w", base)

	if ErrorKind(wrapped) != KindTimeout {
		t.Fatalf("ErrorKind through wrap = %v, want KindTimeout", ErrorKind(wrapped))
	}
	if !errors.Is(wrapped, &Error{Kind: KindTimeout}) {
		t.Fatal("errors.Is did not match on Kind")
	}
	if errors.Is(wrapped, &Error{Kind: KindIO}) {
		t.Fatal("errors.Is matched the wrong Kind")
	}

	var e *Error
	if !errors.As(wrapped, &e) || e.Op != "read" {
		t.Fatalf("errors.As = %+v", e)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := wireErr(KindIO, "read", "connection closed by server", cause)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("cause not reachable through Unwrap")
	}
}

func TestServerErrorCode(t *testing.T) {
	v := resp.Error("WRONGTYPE Operation against a key holding the wrong kind of value")
	err := serverError("GET", v)

	if err.Kind != KindServer || err.Code != "WRONGTYPE" {
		t.Fatalf("serverError = %+v", err)
	}
	if !HasCode(err, "WRONGTYPE") {
		t.Fatal("HasCode missed the code token")
	}
	if HasCode(err, "ERR") {
		t.Fatal("HasCode matched the wrong token")
	}
	if !errors.Is(err, &Error{Kind: KindServer, Code: "WRONGTYPE"}) {
		t.Fatal("errors.Is did not match Kind plus Code")
	}
}

func TestSentinels(t *testing.T) {
	if !errors.Is(ErrPoolExhausted, &Error{Kind: KindPoolExhausted}) {
		t.Fatal("ErrPoolExhausted does not carry its Kind")
	}
	if !errors.Is(ErrClosed, &Error{Kind: KindClosed}) {
		t.Fatal("ErrClosed does not carry its Kind")
	}
	if ErrorKind(ErrNil) != KindUnknown {
		t.Fatal("ErrNil is a value-absence signal, not a failure Kind")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrPoolExhausted, true},
		{wireErr(KindTimeout, "read", "timeout", nil), true},
		{wireErr(KindIO, "write", "broken pipe", nil), true},
		{wireErr(KindConnect, "dial", "refused", nil), true},
		{wireErr(KindProtocol, "read", "malformed", nil), false},
		{serverError("GET", resp.Error("ERR oops")), false},
		{&Error{Kind: KindConfig, Message: "bad scheme"}, false},
		{ErrNil, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	kinds := []Kind{KindUnknown, KindConfig, KindConnect, KindIO, KindProtocol,
		KindTimeout, KindServer, KindPoolExhausted, KindClosed}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		if s == "" || seen[s] {
			t.Fatalf("Kind %d has empty or duplicate name %q", k, s)
		}
		seen[s] = true
	}
}
