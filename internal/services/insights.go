package services

import (
	"context"
	"fmt"
	"log/slog"

	"finml/internal/amqp"
	"finml/internal/anomaly"
	"finml/internal/core"
	"finml/internal/forecast"
	"finml/internal/ledger"
	applog "finml/internal/log"
)

// Publisher announces finished analyses. *amqp.Client implements it.
type Publisher interface {
	PublishInsight(ctx context.Context, msg *amqp.InsightMessage) error
}

// InsightsService runs the forecast and anomaly pipelines for one user:
// fetch, validate, compute, then announce the result.
type InsightsService struct {
	reader     ledger.TransactionReader
	forecaster *forecast.Forecaster
	detector   *anomaly.Detector
	publisher  Publisher
}

// NewInsightsService wires the pipelines. publisher may be nil.
func NewInsightsService(reader ledger.TransactionReader, forecaster *forecast.Forecaster, detector *anomaly.Detector, publisher Publisher) *InsightsService {
	if forecaster == nil {
		forecaster = forecast.New(forecast.DefaultConfig())
	}
	if detector == nil {
		detector = anomaly.New(anomaly.DefaultConfig())
	}
	return &InsightsService{
		reader:     reader,
		forecaster: forecaster,
		detector:   detector,
		publisher:  publisher,
	}
}

// ForecastExpenses predicts the next three monthly expense totals.
func (s *InsightsService) ForecastExpenses(ctx context.Context, userID, token string) (forecast.Result, error) {
	txs, err := s.fetch(ctx, userID, token)
	if err != nil {
		return forecast.Result{}, err
	}

	buckets := core.AggregateMonthly(txs)
	result, err := s.forecaster.Forecast(buckets)
	if err != nil {
		return forecast.Result{}, err
	}

	var predictedTotal float64
	for _, p := range result.Predicted {
		predictedTotal += p.Amount
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogForecastCompleted(ctx, userID, len(buckets), predictedTotal, result.Fallback)

	s.publish(ctx, amqp.NewForecastCompleted(userID, len(buckets), predictedTotal, result.Fallback))

	return result, nil
}

// DetectAnomalies flags unusual expense transactions.
func (s *InsightsService) DetectAnomalies(ctx context.Context, userID, token string) (anomaly.Result, error) {
	txs, err := s.fetch(ctx, userID, token)
	if err != nil {
		return anomaly.Result{}, err
	}

	result, err := s.detector.Detect(core.EligibleForDetection(txs))
	if err != nil {
		return anomaly.Result{}, err
	}
	if !result.Sufficient {
		slog.InfoContext(ctx, "Not enough transactions for anomaly detection",
			applog.FieldUserID, userID,
			applog.FieldEvaluated, result.Evaluated)
		return result, nil
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogAnomaliesDetected(ctx, userID, result.Evaluated, len(result.Anomalies))

	s.publish(ctx, amqp.NewAnomaliesDetected(userID, result.Evaluated, len(result.Anomalies)))

	return result, nil
}

func (s *InsightsService) fetch(ctx context.Context, userID, token string) ([]core.Transaction, error) {
	txs, err := s.reader.ListTransactions(ctx, userID, token)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	if err := core.ValidateTransactions(txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// publish never fails the request; the analysis is already computed.
func (s *InsightsService) publish(ctx context.Context, msg *amqp.InsightMessage) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping insight message", "kind", msg.Kind)
		return
	}
	if err := s.publisher.PublishInsight(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish insight message",
			"kind", msg.Kind,
			applog.FieldUserID, msg.UserID,
			applog.FieldError, err)
	}
}
