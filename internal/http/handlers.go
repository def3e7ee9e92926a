package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"finml/internal/anomaly"
	applog "finml/internal/log"
)

// ChatResponse is the body of a successful /chat call.
type ChatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handlePredictExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	var req AnalysisRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	result, err := s.insights.ForecastExpenses(r.Context(), string(req.UserID), req.Token)
	if err != nil {
		s.logFailure(r, "Expense forecast failed", applog.OpForecast, string(req.UserID), err)
		InternalServerError(err.Error()).Write(w)
		return
	}

	NewJSONResponse().Body(result).Write(w)
}

func (s *Server) handleDetectAnomalies(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	var req AnalysisRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	result, err := s.insights.DetectAnomalies(r.Context(), string(req.UserID), req.Token)
	if err != nil {
		s.logFailure(r, "Anomaly detection failed", applog.OpDetect, string(req.UserID), err)
		InternalServerError(err.Error()).Write(w)
		return
	}

	// Insufficient data is a normal outcome, not a request failure
	if !result.Sufficient {
		NewJSONResponse().Body(ErrorBody{Error: anomaly.InsufficientDataMessage}).Write(w)
		return
	}

	records := result.Anomalies
	if records == nil {
		records = []anomaly.Record{}
	}
	NewJSONResponse().Body(records).Write(w)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	var req ChatRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	reply, err := s.advisor.Reply(r.Context(), string(req.UserID), req.Token, req.Message)
	if err != nil {
		s.logFailure(r, "Chat reply failed", applog.OpChat, string(req.UserID), err)
		InternalServerError(err.Error()).Write(w)
		return
	}

	NewJSONResponse().Body(ChatResponse{Response: reply}).Write(w)
}

func (s *Server) logFailure(r *http.Request, msg, op, userID string, err error) {
	fields := applog.NewFields().WithUser(userID)
	if errors.Is(err, context.DeadlineExceeded) {
		fields["error_type"] = applog.ErrorTypeTimeout
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogError(r.Context(), msg, err, applog.ComponentHTTP, op, fields)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, err.Error()).Write(w)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics renders plain-text counters in the Prometheus exposition style.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	t := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	sec := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "finml_http_requests_total %d\n", t.TotalRequests)
	fmt.Fprintf(w, "finml_http_requests_in_flight %d\n", t.InFlight)
	fmt.Fprintf(w, "finml_http_client_errors_total %d\n", t.ClientErrors)
	fmt.Fprintf(w, "finml_http_server_errors_total %d\n", t.ServerErrors)
	fmt.Fprintf(w, "finml_http_request_duration_avg_us %d\n", t.AverageResponseTime())
	fmt.Fprintf(w, "finml_rate_limit_rejections_total %d\n", rl.TotalHits)
	fmt.Fprintf(w, "finml_rate_limit_clients %d\n", rl.ClientCount)
	fmt.Fprintf(w, "finml_security_suspicious_requests_total %d\n", sec.SuspiciousRequests)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("not found").Write(w)
}
