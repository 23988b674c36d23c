package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Sentinel kinds for the fatal training errors. Every structured error below
// unwraps to exactly one of them, so callers can branch with Is.
var (
	ErrDatasetNotFound      = New("dataset not found")
	ErrDatasetEmpty         = New("dataset empty")
	ErrInvalidHorizon       = New("invalid horizon")
	ErrMissingTargetColumns = New("missing target columns")
	ErrInsufficientData     = New("insufficient data")
	ErrQualityGateFailed    = New("quality gate failed")
	ErrNoViableModel        = New("no viable model")
)

// DatasetNotFoundError is returned when the dataset path does not exist.
type DatasetNotFoundError struct {
	Path string
}

func (e *DatasetNotFoundError) Error() string {
	return fmt.Sprintf("greenforecast: dataset not found: %s", e.Path)
}

func (e *DatasetNotFoundError) Unwrap() error { return ErrDatasetNotFound }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DatasetNotFoundError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).Str("type", "DatasetNotFound")
}

// NewDatasetNotFoundError creates a DatasetNotFoundError with a stack trace.
func NewDatasetNotFoundError(path string) error {
	return errors.WithStack(&DatasetNotFoundError{Path: path})
}

// DatasetEmptyError is returned when the dataset has no data rows.
type DatasetEmptyError struct {
	Path string
	Rows int
}

func (e *DatasetEmptyError) Error() string {
	return fmt.Sprintf("greenforecast: dataset %s is empty (found %d rows, need >= 1). Collect more sensor data before training", e.Path, e.Rows)
}

func (e *DatasetEmptyError) Unwrap() error { return ErrDatasetEmpty }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DatasetEmptyError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).Int("rows", e.Rows).Str("type", "DatasetEmpty")
}

// NewDatasetEmptyError creates a DatasetEmptyError with a stack trace.
func NewDatasetEmptyError(path string, rows int) error {
	return errors.WithStack(&DatasetEmptyError{Path: path, Rows: rows})
}

// InvalidHorizonError is returned for a forecast horizon below one step.
type InvalidHorizonError struct {
	Horizon int
}

func (e *InvalidHorizonError) Error() string {
	return fmt.Sprintf("greenforecast: horizon_steps must be >= 1, got %d", e.Horizon)
}

func (e *InvalidHorizonError) Unwrap() error { return ErrInvalidHorizon }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidHorizonError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("horizon_steps", e.Horizon).Str("type", "InvalidHorizon")
}

// NewInvalidHorizonError creates an InvalidHorizonError with a stack trace.
func NewInvalidHorizonError(horizon int) error {
	return errors.WithStack(&InvalidHorizonError{Horizon: horizon})
}

// MissingTargetColumnsError is returned when the target columns are absent.
type MissingTargetColumnsError struct {
	Missing []string
}

func (e *MissingTargetColumnsError) Error() string {
	return fmt.Sprintf("greenforecast: dataset requires target columns [%s] but they are missing", strings.Join(e.Missing, ", "))
}

func (e *MissingTargetColumnsError) Unwrap() error { return ErrMissingTargetColumns }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MissingTargetColumnsError) MarshalZerologObject(event *zerolog.Event) {
	event.Strs("missing", e.Missing).Str("type", "MissingTargetColumns")
}

// NewMissingTargetColumnsError creates a MissingTargetColumnsError with a stack trace.
func NewMissingTargetColumnsError(missing ...string) error {
	return errors.WithStack(&MissingTargetColumnsError{Missing: missing})
}

// InsufficientDataError is returned when too few supervised rows remain.
type InsufficientDataError struct {
	Rows     int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("greenforecast: not enough usable rows for stable training: found %d rows, need >= %d", e.Rows, e.Required)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InsufficientDataError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("rows", e.Rows).Int("required", e.Required).Str("type", "InsufficientData")
}

// NewInsufficientDataError creates an InsufficientDataError with a stack trace.
func NewInsufficientDataError(rows, required int) error {
	return errors.WithStack(&InsufficientDataError{Rows: rows, Required: required})
}

// QualityGateFailedError is returned in strict mode when the relay gate fails.
type QualityGateFailedError struct {
	Issues        []string
	MinClassCount int
}

func (e *QualityGateFailedError) Error() string {
	return fmt.Sprintf("greenforecast: relay classifier quality gate failed: %s. Collect more ON/OFF transitions or lower min_relay_class_count (currently %d)",
		strings.Join(e.Issues, "; "), e.MinClassCount)
}

func (e *QualityGateFailedError) Unwrap() error { return ErrQualityGateFailed }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *QualityGateFailedError) MarshalZerologObject(event *zerolog.Event) {
	event.Strs("issues", e.Issues).Int("min_class_count", e.MinClassCount).Str("type", "QualityGateFailed")
}

// NewQualityGateFailedError creates a QualityGateFailedError with a stack trace.
func NewQualityGateFailedError(issues []string, minClassCount int) error {
	return errors.WithStack(&QualityGateFailedError{Issues: issues, MinClassCount: minClassCount})
}

// NoViableModelError is returned when every candidate failed to fit.
type NoViableModelError struct {
	Task       string
	Candidates int
	Failures   []string
}

func (e *NoViableModelError) Error() string {
	msg := fmt.Sprintf("greenforecast: no %s model could be trained: 0 of %d candidates fitted", e.Task, e.Candidates)
	if len(e.Failures) > 0 {
		msg += " (" + strings.Join(e.Failures, "; ") + ")"
	}
	return msg
}

func (e *NoViableModelError) Unwrap() error { return ErrNoViableModel }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NoViableModelError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("task", e.Task).
		Int("candidates", e.Candidates).
		Strs("failures", e.Failures).
		Str("type", "NoViableModel")
}

// NewNoViableModelError creates a NoViableModelError with a stack trace.
func NewNoViableModelError(task string, candidates int, failures []string) error {
	return errors.WithStack(&NoViableModelError{Task: task, Candidates: candidates, Failures: failures})
}
