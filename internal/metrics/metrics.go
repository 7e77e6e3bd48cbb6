package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// User Activity Metrics
	NewUsersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_new_users_total",
		Help: "Total number of new user registrations.",
	})
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_login_attempts_total",
		Help: "Total number of login attempts (successful and failed).",
	}, []string{"method", "status"}) // method: password, otp, oauth

	// OTP Metrics
	OTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_otp_requests_total",
		Help: "Total number of OTP issuance requests by outcome.",
	}, []string{"purpose", "status"}) // status: sent, not_registered, rate_limited, error
	OTPVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_otp_verifications_total",
		Help: "Total number of OTP verifications by outcome.",
	}, []string{"purpose", "status"}) // status: success, invalid, too_many_attempts, error

	// Chatbot Metrics
	ChatTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_chat_turns_total",
		Help: "Total number of chatbot turns by outcome.",
	}, []string{"status"}) // status: direct, tool, fallback
	ChatToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_chat_tool_calls_total",
		Help: "Total number of tool calls requested by the model.",
	}, []string{"tool"})
	LLMRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "app_llm_request_duration_seconds",
		Help:    "Duration of completion API calls in seconds.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"stage", "status"}) // stage: initial, followup

	// Hospital Metrics
	HospitalChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_hospital_changes_total",
		Help: "Total number of hospital records created, updated or deleted.",
	}, []string{"action"})
)
