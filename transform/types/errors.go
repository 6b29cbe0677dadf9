package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for error type checking
var (
	// ErrUnsupportedPlacement indicates a template sits where no rewrite rule applies
	ErrUnsupportedPlacement = errors.New("unsupported template placement")

	// ErrScopeResolution indicates the locals resolver rejected template content
	ErrScopeResolution = errors.New("template scope resolution failed")

	// ErrOverlappingMatches indicates two template regions share bytes
	ErrOverlappingMatches = errors.New("overlapping template regions")

	// ErrInvalidRange indicates a match whose sub-ranges violate containment
	ErrInvalidRange = errors.New("invalid template range")

	// ErrInvalidOptions indicates unusable transform options
	ErrInvalidOptions = errors.New("invalid transform options")

	// ErrHostParse indicates the host source has syntax errors outside any template
	ErrHostParse = errors.New("host parse error")
)

// UnsupportedPlacementError represents a template whose syntactic parent has no rewrite rule
type UnsupportedPlacementError struct {
	FilePath   string
	Range      Range
	ParentKind string
}

func (e *UnsupportedPlacementError) Error() string {
	return fmt.Sprintf("%s [%d, %d]: cannot rewrite embedded template inside %s\nSuggestion: move the template into a class body, a top-level statement, or an expression position",
		e.FilePath, e.Range.Start(), e.Range.End(), e.ParentKind)
}

func (e *UnsupportedPlacementError) Unwrap() error {
	return ErrUnsupportedPlacement
}

// NewUnsupportedPlacementError creates a new unsupported placement error
func NewUnsupportedPlacementError(filePath string, r Range, parentKind string) error {
	return &UnsupportedPlacementError{
		FilePath:   filePath,
		Range:      r,
		ParentKind: parentKind,
	}
}

// ScopeResolutionError represents a locals resolver failure for one template
type ScopeResolutionError struct {
	FilePath string
	Range    Range
	Err      error
}

func (e *ScopeResolutionError) Error() string {
	return fmt.Sprintf("%s [%d, %d]: failed to resolve template scope: %v", e.FilePath, e.Range.Start(), e.Range.End(), e.Err)
}

// Is matches the sentinel so both the sentinel and the resolver's own error
// are reachable through errors.Is
func (e *ScopeResolutionError) Is(target error) bool {
	return target == ErrScopeResolution
}

func (e *ScopeResolutionError) Unwrap() error {
	return e.Err
}

// NewScopeResolutionError creates a new scope resolution error
func NewScopeResolutionError(filePath string, r Range, err error) error {
	return &ScopeResolutionError{
		FilePath: filePath,
		Range:    r,
		Err:      err,
	}
}

// OverlappingMatchError represents two template regions that share bytes
type OverlappingMatchError struct {
	FilePath string
	First    Range
	Second   Range
}

func (e *OverlappingMatchError) Error() string {
	return fmt.Sprintf("%s: template regions [%d, %d] and [%d, %d] overlap\nSuggestion: check for unbalanced template delimiters",
		e.FilePath, e.First.Start(), e.First.End(), e.Second.Start(), e.Second.End())
}

func (e *OverlappingMatchError) Unwrap() error {
	return ErrOverlappingMatches
}

// NewOverlappingMatchError creates a new overlapping match error
func NewOverlappingMatchError(filePath string, first, second Range) error {
	return &OverlappingMatchError{
		FilePath: filePath,
		First:    first,
		Second:   second,
	}
}

// InvalidRangeError represents a match whose ranges are not properly nested
type InvalidRangeError struct {
	FilePath string
	Range    Range
	Reason   string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("%s [%d, %d]: invalid template range: %s", e.FilePath, e.Range.Start(), e.Range.End(), e.Reason)
}

func (e *InvalidRangeError) Unwrap() error {
	return ErrInvalidRange
}

// NewInvalidRangeError creates a new invalid range error
func NewInvalidRangeError(filePath string, r Range, reason string) error {
	return &InvalidRangeError{
		FilePath: filePath,
		Range:    r,
		Reason:   reason,
	}
}

// HostParseError is a recovered syntax error in the host source. The parser
// keeps going after one, so these are attached to results rather than returned.
type HostParseError struct {
	FilePath string
	Range    Range
	Start    Location
	Message  string
}

func (e *HostParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Start.Line+1, e.Start.Column+1, e.Message)
}

func (e *HostParseError) Unwrap() error {
	return ErrHostParse
}

// JoinDiagnostics folds recovered parse errors into a single error, or nil
func JoinDiagnostics(diags []*HostParseError) error {
	if len(diags) == 0 {
		return nil
	}
	errs := make([]error, len(diags))
	for i, d := range diags {
		errs[i] = d
	}
	return errors.Join(errs...)
}
