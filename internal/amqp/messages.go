package amqp

import (
	"encoding/json"
	"time"
)

// Insight kinds, also used as routing metadata in the message type header.
const (
	KindForecastCompleted = "forecast.completed"
	KindAnomaliesDetected = "anomalies.detected"
)

// InsightMessage is a small summary of a finished analysis. It carries
// aggregates only; no transaction rows leave the service.
type InsightMessage struct {
	Kind           string    `json:"kind"`
	UserID         string    `json:"user_id"`
	Months         int       `json:"months,omitempty"`
	PredictedTotal float64   `json:"predicted_total,omitempty"`
	Fallback       bool      `json:"fallback,omitempty"`
	Evaluated      int       `json:"evaluated,omitempty"`
	AnomalyCount   int       `json:"anomaly_count"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewForecastCompleted summarises a forecast for userID.
func NewForecastCompleted(userID string, months int, predictedTotal float64, fallback bool) *InsightMessage {
	return &InsightMessage{
		Kind:           KindForecastCompleted,
		UserID:         userID,
		Months:         months,
		PredictedTotal: predictedTotal,
		Fallback:       fallback,
		Timestamp:      time.Now(),
	}
}

// NewAnomaliesDetected summarises an anomaly scan for userID.
func NewAnomaliesDetected(userID string, evaluated, found int) *InsightMessage {
	return &InsightMessage{
		Kind:         KindAnomaliesDetected,
		UserID:       userID,
		Evaluated:    evaluated,
		AnomalyCount: found,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *InsightMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InsightMessageFromJSON creates a message from JSON bytes
func InsightMessageFromJSON(data []byte) (*InsightMessage, error) {
	var msg InsightMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
