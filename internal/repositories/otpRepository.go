package repositories

import (
	"context"
	"errors"
	"fmt"
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

// OTPRepository takes "now" from the caller so that every expiry decision in
// a single request is made against the same instant.
type OTPRepository interface {
	Create(ctx context.Context, otp *models.OTP) (*models.OTP, error)
	CountSince(ctx context.Context, subject models.OTPSubject, since time.Time) (int64, error)
	InvalidateActive(ctx context.Context, subject models.OTPSubject, now time.Time) (int64, error)
	IncrementActiveAttempts(ctx context.Context, subject models.OTPSubject, now time.Time) (int64, error)
	ConsumeActive(ctx context.Context, subject models.OTPSubject, code string, now time.Time) (*models.OTP, error)
	EnsureIndexes(ctx context.Context) error
}

type otpRepository struct {
	db database.Service
}

func NewOTPRepository(db database.Service) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) collection() *mongo.Collection {
	return r.db.Database().Collection("otps")
}

func subjectFilter(subject models.OTPSubject) bson.M {
	filter := bson.M{"purpose": subject.Purpose}
	if subject.PhoneNumber != "" {
		filter["phone_number"] = subject.PhoneNumber
	} else {
		filter["email"] = subject.Email
	}
	return filter
}

func activeFilter(subject models.OTPSubject, now time.Time) bson.M {
	filter := subjectFilter(subject)
	filter["is_used"] = false
	filter["expires_at"] = bson.M{"$gte": now}
	return filter
}

func (r *otpRepository) Create(ctx context.Context, otp *models.OTP) (*models.OTP, error) {
	queryType := "create"
	repository := "otp"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	otp.ID = primitive.NewObjectID()
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection().InsertOne(ctx, otp)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("purpose", string(otp.Purpose)).Msg("Failed to insert OTP")
		return nil, fmt.Errorf("failed to create otp: %w", err)
	}
	return otp, nil
}

func (r *otpRepository) CountSince(ctx context.Context, subject models.OTPSubject, since time.Time) (int64, error) {
	queryType := "countSince"
	repository := "otp"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	filter := subjectFilter(subject)
	filter["created_at"] = bson.M{"$gte": since}

	count, err := r.collection().CountDocuments(ctx, filter)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return 0, fmt.Errorf("failed to count otps: %w", err)
	}
	return count, nil
}

func (r *otpRepository) InvalidateActive(ctx context.Context, subject models.OTPSubject, now time.Time) (int64, error) {
	queryType := "invalidateActive"
	repository := "otp"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	result, err := r.collection().UpdateMany(ctx, activeFilter(subject, now), bson.M{"$set": bson.M{"is_used": true}})
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return 0, fmt.Errorf("failed to invalidate otps: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *otpRepository) IncrementActiveAttempts(ctx context.Context, subject models.OTPSubject, now time.Time) (int64, error) {
	queryType := "incrementAttempts"
	repository := "otp"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	result, err := r.collection().UpdateMany(ctx, activeFilter(subject, now), bson.M{"$inc": bson.M{"attempts": 1}})
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return 0, fmt.Errorf("failed to increment otp attempts: %w", err)
	}
	return result.ModifiedCount, nil
}

// ConsumeActive marks the most recent active record matching code as used
// and returns it as it was before the update. The match and the write are a
// single FindOneAndUpdate, so a code can be consumed at most once even under
// concurrent verification. It returns (nil, nil) when nothing matched.
func (r *otpRepository) ConsumeActive(ctx context.Context, subject models.OTPSubject, code string, now time.Time) (*models.OTP, error) {
	queryType := "consumeActive"
	repository := "otp"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	filter := activeFilter(subject, now)
	filter["code"] = code

	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetReturnDocument(options.Before)

	var otp models.OTP
	err := r.collection().FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"is_used": true}}, opts).Decode(&otp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to consume otp: %w", err)
	}
	return &otp, nil
}

func (r *otpRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "phone_number", Value: 1}, {Key: "purpose", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "purpose", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create otp indexes: %w", err)
	}
	return nil
}
