// Package errors provides structured error types for firmlet.
//
// Errors are categorized by Phase (which layer reported the error) and Kind
// (error category). The Error type carries a human-readable detail, the
// offending value and an optional cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseBoard, errors.KindInvalidID).
//		Capability("button").
//		Value(7).
//		Detail("index 7 out of range (count 4)").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidID("button", 7, 4)
//	err := errors.Trap(inst, "cb1", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// Two *Error values match under errors.Is when Phase and Kind are equal.
package errors
