package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hospitaldesk/internal/utils"
)

// ErrDoctorDirectoryDisabled is returned by the doctor directory when no
// DOCTOR_DATABASE_URL was configured.
var ErrDoctorDirectoryDisabled = errors.New("doctor directory is not configured")

type Service interface {
	Health() map[string]string
	Client() *mongo.Client
	Database() *mongo.Database
	Close(ctx context.Context) error
}

type service struct {
	db     *mongo.Client
	dbName string
}

func New(ctx context.Context, mongoURI, dbName string) (Service, error) {
	if mongoURI == "" {
		return nil, errors.New("mongo uri is empty")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	return &service{
		db:     client,
		dbName: dbName,
	}, nil
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := s.db.Ping(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Database health check failed")
		return map[string]string{
			"message": "db down",
			"error":   err.Error(),
		}
	}

	return map[string]string{
		"message": "It's healthy",
	}
}

func (s *service) Client() *mongo.Client {
	return s.db
}

func (s *service) Database() *mongo.Database {
	return s.db.Database(s.dbName)
}

func (s *service) Close(ctx context.Context) error {
	return s.db.Disconnect(ctx)
}

// NewDoctorPool opens the pool for the secondary doctor database. An empty
// url yields a nil pool; callers treat that as a disabled directory.
func NewDoctorPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, nil
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse doctor database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create doctor connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping doctor database: %w", err)
	}

	return pool, nil
}

// DoctorHealth mirrors Health for the secondary database.
func DoctorHealth(pool *pgxpool.Pool) map[string]string {
	if pool == nil {
		return map[string]string{"message": "disabled"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Doctor database health check failed")
		return map[string]string{
			"message": "db down",
			"error":   err.Error(),
		}
	}

	stat := pool.Stat()
	utils.DBConnectionsOpen.WithLabelValues("doctors").Set(float64(stat.TotalConns()))
	utils.DBConnectionsInUse.WithLabelValues("doctors").Set(float64(stat.AcquiredConns()))
	utils.DBConnectionsIdle.WithLabelValues("doctors").Set(float64(stat.IdleConns()))

	return map[string]string{
		"message":           "It's healthy",
		"total_connections": fmt.Sprintf("%d", stat.TotalConns()),
		"idle_connections":  fmt.Sprintf("%d", stat.IdleConns()),
	}
}
