package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hospitaldesk/internal/metrics"
	"hospitaldesk/internal/models"
	"hospitaldesk/internal/repositories"
)

type HospitalService interface {
	CreateHospital(ctx context.Context, req *models.CreateHospitalRequest) (*models.Hospital, error)
	GetHospitals(ctx context.Context) ([]models.Hospital, error)
	GetHospitalByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error)
	UpdateHospital(ctx context.Context, id primitive.ObjectID, req *models.UpdateHospitalRequest) (*models.Hospital, error)
	DeleteHospital(ctx context.Context, id primitive.ObjectID) error
}

type hospitalService struct {
	hospitalRepo repositories.HospitalRepository
}

func NewHospitalService(hospitalRepo repositories.HospitalRepository) HospitalService {
	return &hospitalService{hospitalRepo: hospitalRepo}
}

func (s *hospitalService) CreateHospital(ctx context.Context, req *models.CreateHospitalRequest) (*models.Hospital, error) {
	hospital, err := s.hospitalRepo.Create(ctx, &models.Hospital{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		Phone:       req.Phone,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Email:       req.Email,
		Website:     req.Website,
	})
	if err != nil {
		return nil, err
	}

	metrics.HospitalChangesTotal.WithLabelValues("create").Inc()
	log.Info().Str("hospital_id", hospital.ID.Hex()).Str("name", hospital.Name).Msg("Hospital created")
	return hospital, nil
}

func (s *hospitalService) GetHospitals(ctx context.Context) ([]models.Hospital, error) {
	return s.hospitalRepo.FindAll(ctx, repositories.SortByNewest)
}

func (s *hospitalService) GetHospitalByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error) {
	hospital, err := s.hospitalRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if hospital == nil {
		return nil, ErrHospitalNotFound
	}
	return hospital, nil
}

func (s *hospitalService) UpdateHospital(ctx context.Context, id primitive.ObjectID, req *models.UpdateHospitalRequest) (*models.Hospital, error) {
	fields := bson.M{}
	setIf := func(key string, v interface{}, present bool) {
		if present {
			fields[key] = v
		}
	}
	setIf("name", deref(req.Name), req.Name != nil)
	setIf("description", deref(req.Description), req.Description != nil)
	setIf("image", deref(req.Image), req.Image != nil)
	setIf("phone", deref(req.Phone), req.Phone != nil)
	setIf("address", deref(req.Address), req.Address != nil)
	setIf("email", deref(req.Email), req.Email != nil)
	setIf("website", deref(req.Website), req.Website != nil)
	if req.Latitude != nil {
		fields["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		fields["longitude"] = *req.Longitude
	}
	if len(fields) == 0 {
		return nil, ErrNoUpdateFields
	}

	hospital, err := s.hospitalRepo.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrHospitalNotFound
		}
		return nil, err
	}

	metrics.HospitalChangesTotal.WithLabelValues("update").Inc()
	return hospital, nil
}

func (s *hospitalService) DeleteHospital(ctx context.Context, id primitive.ObjectID) error {
	if err := s.hospitalRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrHospitalNotFound
		}
		return err
	}

	metrics.HospitalChangesTotal.WithLabelValues("delete").Inc()
	log.Info().Str("hospital_id", id.Hex()).Msg("Hospital deleted")
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
