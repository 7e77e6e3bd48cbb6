package handlers

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"hospitaldesk/internal/database"
	"hospitaldesk/internal/utils"
)

type CommonHandler struct {
	db      database.Service
	doctors *pgxpool.Pool
}

func NewCommonHandler(db database.Service, doctors *pgxpool.Pool) *CommonHandler {
	return &CommonHandler{db: db, doctors: doctors}
}

// HealthHandler reports 503 only when the primary store is down; the doctor
// directory degrades the chatbot but not the API.
func (h *CommonHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	mongoHealth := h.db.Health()
	report := map[string]interface{}{
		"mongo":   mongoHealth,
		"doctors": database.DoctorHealth(h.doctors),
	}

	code := http.StatusOK
	if _, down := mongoHealth["error"]; down {
		code = http.StatusServiceUnavailable
	}
	utils.RespondWithJSON(w, code, report)
}
