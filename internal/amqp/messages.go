package amqp

import (
	"encoding/json"
	"time"

	"mauzo/internal/core"
)

// AnalyzeRequestMessage asks the worker to run the pipeline against a
// configured or message-supplied source.
type AnalyzeRequestMessage struct {
	SourceType string    `json:"source_type,omitempty"` // empty means worker default
	SourcePath string    `json:"source_path,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// AnalysisCompletedMessage announces a stored run to downstream consumers.
type AnalysisCompletedMessage struct {
	RunID     int64              `json:"run_id"`
	Rows      int                `json:"rows"`
	Discarded core.DiscardReport `json:"discarded"`
	Findings  int                `json:"findings"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewAnalyzeRequestMessage creates a request for the given source override.
func NewAnalyzeRequestMessage(sourceType, sourcePath string) *AnalyzeRequestMessage {
	return &AnalyzeRequestMessage{
		SourceType: sourceType,
		SourcePath: sourcePath,
		Timestamp:  time.Now(),
	}
}

// NewAnalysisCompletedMessage creates a completion event for a stored run.
func NewAnalysisCompletedMessage(runID int64, rows int, discarded core.DiscardReport, findings int) *AnalysisCompletedMessage {
	return &AnalysisCompletedMessage{
		RunID:     runID,
		Rows:      rows,
		Discarded: discarded,
		Findings:  findings,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *AnalyzeRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AnalyzeRequestMessageFromJSON creates a message from JSON bytes
func AnalyzeRequestMessageFromJSON(data []byte) (*AnalyzeRequestMessage, error) {
	var msg AnalyzeRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ToJSON converts the message to JSON bytes
func (m *AnalysisCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AnalysisCompletedMessageFromJSON creates a message from JSON bytes
func AnalysisCompletedMessageFromJSON(data []byte) (*AnalysisCompletedMessage, error) {
	var msg AnalysisCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
