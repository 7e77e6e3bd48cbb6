package repositories

import (
	"context"
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

// ChatRepository scopes every read to one owner. A nil owner selects guest
// messages.
type ChatRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)
	FindRecent(ctx context.Context, userID *primitive.ObjectID, limit, offset int) ([]models.ChatMessage, error)
	CountByUser(ctx context.Context, userID *primitive.ObjectID) (int64, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type chatRepository struct {
	db database.Service
}

func NewChatRepository(db database.Service) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) collection() *mongo.Collection {
	return r.db.Database().Collection("chat_messages")
}

func ownerFilter(userID *primitive.ObjectID) bson.M {
	if userID == nil {
		return bson.M{"user_id": nil}
	}
	return bson.M{"user_id": *userID}
}

func (r *chatRepository) Create(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	queryType := "create"
	repository := "chat"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	msg.ID = primitive.NewObjectID()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection().InsertOne(ctx, msg)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("role", string(msg.Role)).Msg("Failed to insert chat message")
		return nil, fmt.Errorf("failed to create chat message: %w", err)
	}
	return msg, nil
}

// FindRecent returns messages newest first.
func (r *chatRepository) FindRecent(ctx context.Context, userID *primitive.ObjectID, limit, offset int) ([]models.ChatMessage, error) {
	queryType := "findRecent"
	repository := "chat"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	// _id breaks ties between messages stored within the same millisecond.
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.collection().Find(ctx, ownerFilter(userID), opts)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to find chat messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := []models.ChatMessage{}
	if err := cursor.All(ctx, &messages); err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to decode chat messages: %w", err)
	}
	return messages, nil
}

func (r *chatRepository) CountByUser(ctx context.Context, userID *primitive.ObjectID) (int64, error) {
	queryType := "countByUser"
	repository := "chat"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	count, err := r.collection().CountDocuments(ctx, ownerFilter(userID))
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return 0, fmt.Errorf("failed to count chat messages: %w", err)
	}
	return count, nil
}

func (r *chatRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	queryType := "deleteByUser"
	repository := "chat"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	result, err := r.collection().DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Error clearing chat history")
		return 0, fmt.Errorf("failed to delete chat messages: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *chatRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create chat indexes: %w", err)
	}
	return nil
}
