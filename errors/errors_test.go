package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:      PhaseBoard,
				Kind:       KindInvalidID,
				Capability: "button",
				Detail:     "index 9 out of range (count 4)",
			},
			contains: []string{"[board]", "invalid_id", "(button)", "index 9"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseSchedule,
				Kind:  KindNotFound,
			},
			contains: []string{"[schedule]", "not_found"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseExecute,
				Kind:   KindTrap,
				Detail: "applet 1 trapped in cb0",
				Cause:  errors.New("unreachable"),
			},
			contains: []string{"[execute]", "trap", "cb0", "caused by", "unreachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Trap(3, "cb1", cause)

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause in the chain")
	}
}

func TestError_Is(t *testing.T) {
	err := InvalidID("timer", 5, 4)

	if !errors.Is(err, &Error{Phase: PhaseBoard, Kind: KindInvalidID}) {
		t.Error("Is should match same phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseApplet, Kind: KindInvalidID}) {
		t.Error("Is should not match different phase")
	}
	if errors.Is(err, &Error{Phase: PhaseBoard, Kind: KindUnsupported}) {
		t.Error("Is should not match different kind")
	}
}

func TestErrCrypto_Opaque(t *testing.T) {
	var wrapped error = ErrCrypto
	if !errors.Is(wrapped, &Error{Phase: PhaseCrypto, Kind: KindCrypto}) {
		t.Error("ErrCrypto should match crypto phase and kind")
	}
	if ErrCrypto.Cause != nil {
		t.Error("ErrCrypto must not expose a cause")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseApplet, KindInvalidInput).
		Capability("radio").
		Value(42).
		Cause(cause).
		Detail("buffer %d too small", 42).
		Build()

	if err.Phase != PhaseApplet {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseApplet)
	}
	if err.Kind != KindInvalidInput {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidInput)
	}
	if err.Capability != "radio" {
		t.Errorf("Capability = %v, want radio", err.Capability)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "buffer 42 too small" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"InvalidID", InvalidID("button", 4, 4), PhaseBoard, KindInvalidID},
		{"InvalidInput", InvalidInput(PhaseApplet, "bad"), PhaseApplet, KindInvalidInput},
		{"OutOfBounds", OutOfBounds(PhaseApplet, 10, 5), PhaseApplet, KindOutOfBounds},
		{"Unsupported", Unsupported(PhaseApplet, "radio"), PhaseApplet, KindUnsupported},
		{"NotFound", NotFound(PhaseStorage, "key", "7"), PhaseStorage, KindNotFound},
		{"Busy", Busy(PhaseApplet, "timer"), PhaseApplet, KindBusy},
		{"Trap", Trap(1, "main", nil), PhaseExecute, KindTrap},
		{"MissingExport", MissingExport(1, "cb0"), PhaseExecute, KindMissingExport},
		{"NotInitialized", NotInitialized(PhaseSchedule, "executor"), PhaseSchedule, KindNotInitialized},
		{"Instantiation", Instantiation(nil), PhaseLoad, KindInstantiation},
		{"Load", Load("compile", nil), PhaseLoad, KindInvalidData},
		{"Config", Config("parse", nil), PhaseConfig, KindInvalidInput},
		{"Storage", Storage("open", nil), PhaseStorage, KindIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
		})
	}
}

func TestInvalidID_Detail(t *testing.T) {
	err := InvalidID("led", 7, 2)
	if err.Value != 7 {
		t.Errorf("Value = %v, want 7", err.Value)
	}
	if !strings.Contains(err.Detail, "count 2") {
		t.Errorf("Detail = %q, should mention count", err.Detail)
	}
}
