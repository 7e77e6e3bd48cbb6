package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hospitaldesk/internal/database"
	"hospitaldesk/internal/models"
	"hospitaldesk/internal/utils"
)

type HospitalSort int

const (
	SortByNewest HospitalSort = iota
	SortByName
)

type HospitalRepository interface {
	Create(ctx context.Context, hospital *models.Hospital) (*models.Hospital, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error)
	FindAll(ctx context.Context, sort HospitalSort) ([]models.Hospital, error)
	FindFirstByNameOrAddress(ctx context.Context, term string) (*models.Hospital, error)
	FindFirstByName(ctx context.Context, term string) (*models.Hospital, error)
	Update(ctx context.Context, id primitive.ObjectID, updateFields bson.M) (*models.Hospital, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
}

type hospitalRepository struct {
	db database.Service
}

func NewHospitalRepository(db database.Service) HospitalRepository {
	return &hospitalRepository{db: db}
}

func (r *hospitalRepository) collection() *mongo.Collection {
	return r.db.Database().Collection("hospitals")
}

func (r *hospitalRepository) Create(ctx context.Context, hospital *models.Hospital) (*models.Hospital, error) {
	queryType := "create"
	repository := "hospital"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	hospital.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	hospital.CreatedAt = now
	hospital.UpdatedAt = now

	_, err := r.collection().InsertOne(ctx, hospital)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("name", hospital.Name).Msg("Failed to insert hospital")
		return nil, fmt.Errorf("failed to create hospital: %w", err)
	}
	return hospital, nil
}

func (r *hospitalRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error) {
	queryType := "findById"
	repository := "hospital"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	var hospital models.Hospital
	err := r.collection().FindOne(ctx, bson.M{"_id": id, "deleted_at": nil}).Decode(&hospital)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to find hospital: %w", err)
	}
	return &hospital, nil
}

func (r *hospitalRepository) FindAll(ctx context.Context, sort HospitalSort) ([]models.Hospital, error) {
	queryType := "findAll"
	repository := "hospital"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	order := bson.D{{Key: "created_at", Value: -1}}
	if sort == SortByName {
		order = bson.D{{Key: "name", Value: 1}}
	}

	cursor, err := r.collection().Find(ctx, bson.M{"deleted_at": nil}, options.Find().SetSort(order))
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to list hospitals: %w", err)
	}
	defer cursor.Close(ctx)

	hospitals := []models.Hospital{}
	if err := cursor.All(ctx, &hospitals); err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to decode hospitals: %w", err)
	}
	return hospitals, nil
}

// FindFirstByNameOrAddress does a case-insensitive substring match on name
// or address. term is matched literally.
func (r *hospitalRepository) FindFirstByNameOrAddress(ctx context.Context, term string) (*models.Hospital, error) {
	return r.findFirstMatching(ctx, "findByNameOrAddress", term, "name", "address")
}

func (r *hospitalRepository) FindFirstByName(ctx context.Context, term string) (*models.Hospital, error) {
	return r.findFirstMatching(ctx, "findByName", term, "name")
}

// findFirstMatching returns the first live hospital, by name, where any of
// fields contains term case-insensitively.
func (r *hospitalRepository) findFirstMatching(ctx context.Context, queryType, term string, fields ...string) (*models.Hospital, error) {
	repository := "hospital"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	or := bson.A{}
	for _, field := range fields {
		or = append(or, bson.M{field: pattern})
	}
	filter := bson.M{"deleted_at": nil, "$or": or}

	var hospital models.Hospital
	err := r.collection().FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "name", Value: 1}})).Decode(&hospital)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to search hospitals: %w", err)
	}
	return &hospital, nil
}

func (r *hospitalRepository) Update(ctx context.Context, id primitive.ObjectID, updateFields bson.M) (*models.Hospital, error) {
	queryType := "update"
	repository := "hospital"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	updateFields["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var hospital models.Hospital
	err := r.collection().FindOneAndUpdate(ctx, bson.M{"_id": id, "deleted_at": nil}, bson.M{"$set": updateFields}, opts).Decode(&hospital)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("hospital_id", id.Hex()).Msg("Error updating hospital")
		return nil, fmt.Errorf("failed to update hospital: %w", err)
	}
	return &hospital, nil
}

func (r *hospitalRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	queryType := "softDelete"
	repository := "hospital"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	now := time.Now().UTC()
	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": id, "deleted_at": nil}, bson.M{"$set": bson.M{"deleted_at": now, "updated_at": now}})
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("hospital_id", id.Hex()).Msg("Error deleting hospital")
		return fmt.Errorf("failed to delete hospital: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
