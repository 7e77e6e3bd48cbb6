package handlers

import (
	"net/http"

	"hospitaldesk/internal/models"
	"hospitaldesk/internal/services"
	"hospitaldesk/internal/utils"
)

type HospitalHandler struct {
	hospitalService services.HospitalService
}

func NewHospitalHandler(hospitalService services.HospitalService) *HospitalHandler {
	return &HospitalHandler{hospitalService: hospitalService}
}

func (h *HospitalHandler) CreateHospital(w http.ResponseWriter, r *http.Request) {
	var req models.CreateHospitalRequest
	if !utils.DecodeAndValidate(w, r, &req) {
		return
	}

	hospital, err := h.hospitalService.CreateHospital(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, err, "create_hospital")
		return
	}

	utils.RespondWithMessage(w, http.StatusCreated, "Hospital created successfully", hospital)
}

func (h *HospitalHandler) GetHospitals(w http.ResponseWriter, r *http.Request) {
	hospitals, err := h.hospitalService.GetHospitals(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "list_hospitals")
		return
	}
	if hospitals == nil {
		hospitals = []models.Hospital{}
	}

	utils.RespondWithJSON(w, http.StatusOK, hospitals)
}

func (h *HospitalHandler) GetHospitalByID(w http.ResponseWriter, r *http.Request) {
	id, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	hospital, err := h.hospitalService.GetHospitalByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "get_hospital")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, hospital)
}

func (h *HospitalHandler) UpdateHospital(w http.ResponseWriter, r *http.Request) {
	id, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	var req models.UpdateHospitalRequest
	if !utils.DecodeAndValidate(w, r, &req) {
		return
	}

	hospital, err := h.hospitalService.UpdateHospital(r.Context(), id, &req)
	if err != nil {
		respondWithServiceError(w, err, "update_hospital")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Hospital updated successfully", hospital)
}

func (h *HospitalHandler) DeleteHospital(w http.ResponseWriter, r *http.Request) {
	id, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	if err := h.hospitalService.DeleteHospital(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "delete_hospital")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Hospital deleted successfully", nil)
}
