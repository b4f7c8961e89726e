package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"ledgerlens/internal/report"
)

// ErrMissingReportID is returned for a request that names no report.
var ErrMissingReportID = errors.New("report request has no report_id")

// ReportRequestMessage asks the worker to evaluate a saved report.
// The worker loads the definition itself, so only the id travels.
type ReportRequestMessage struct {
	RequestID string    `json:"request_id"`
	ReportID  string    `json:"report_id"`
	Export    bool      `json:"export,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReportRequestMessage creates a request with a fresh request id.
func NewReportRequestMessage(reportID string, export bool) *ReportRequestMessage {
	return &ReportRequestMessage{
		RequestID: uuid.NewString(),
		ReportID:  reportID,
		Export:    export,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportRequestMessageFromJSON decodes a request. A request without a request
// id is given one so its result can still be correlated in logs.
func ReportRequestMessageFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ReportID == "" {
		return nil, ErrMissingReportID
	}
	if msg.RequestID == "" {
		msg.RequestID = uuid.NewString()
	}
	return &msg, nil
}

// ReportResultMessage carries an evaluated report back to the requester.
// Error is set when the report could not be evaluated at all; element level
// failures travel inside Elements.
type ReportResultMessage struct {
	RequestID   string                 `json:"request_id"`
	ReportID    string                 `json:"report_id"`
	Title       string                 `json:"title,omitempty"`
	Range       report.DateRange       `json:"range"`
	Elements    []report.ElementOutput `json:"elements"`
	Error       string                 `json:"error,omitempty"`
	EvaluatedAt time.Time              `json:"evaluated_at"`
}

// NewReportResultMessage wraps an evaluation for req.
func NewReportResultMessage(req *ReportRequestMessage, ev report.Evaluation, at time.Time) *ReportResultMessage {
	return &ReportResultMessage{
		RequestID:   req.RequestID,
		ReportID:    req.ReportID,
		Title:       ev.Title,
		Range:       ev.Range,
		Elements:    ev.Elements,
		EvaluatedAt: at,
	}
}

// NewReportFailureMessage reports that req could not be evaluated.
func NewReportFailureMessage(req *ReportRequestMessage, err error, at time.Time) *ReportResultMessage {
	return &ReportResultMessage{
		RequestID:   req.RequestID,
		ReportID:    req.ReportID,
		Elements:    []report.ElementOutput{},
		Error:       err.Error(),
		EvaluatedAt: at,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportResultMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportResultMessageFromJSON decodes a result message.
func ReportResultMessageFromJSON(data []byte) (*ReportResultMessage, error) {
	var msg ReportResultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
