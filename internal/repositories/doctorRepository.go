package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"hospitaldesk/internal/database"
	"hospitaldesk/internal/models"
	"hospitaldesk/internal/utils"
)

const doctorCols = `doctor_code, doctor_name, doctor_display, COALESCE(home_address, ''), active`

// DoctorRepository reads the external doctor directory. Only active doctors
// are ever returned.
type DoctorRepository interface {
	SearchByName(ctx context.Context, name string, limit int) ([]models.Doctor, error)
	ListActive(ctx context.Context, limit int) ([]models.Doctor, error)
	FindBySpecialization(ctx context.Context, specialization string, limit int) ([]models.Doctor, error)
}

type doctorRepository struct {
	pool *pgxpool.Pool
}

// NewDoctorRepository accepts a nil pool; every query then fails with
// database.ErrDoctorDirectoryDisabled.
func NewDoctorRepository(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepository{pool: pool}
}

func (r *doctorRepository) SearchByName(ctx context.Context, name string, limit int) ([]models.Doctor, error) {
	return r.query(ctx, "searchByName", `
		SELECT `+doctorCols+`
		FROM doctors
		WHERE (doctor_name ILIKE '%' || $1::text || '%' OR doctor_display ILIKE '%' || $1::text || '%')
		  AND active = TRUE
		ORDER BY doctor_name
		LIMIT $2`, name, limit)
}

func (r *doctorRepository) ListActive(ctx context.Context, limit int) ([]models.Doctor, error) {
	return r.query(ctx, "listActive", `
		SELECT `+doctorCols+`
		FROM doctors
		WHERE active = TRUE
		ORDER BY doctor_name
		LIMIT $1`, limit)
}

func (r *doctorRepository) FindBySpecialization(ctx context.Context, specialization string, limit int) ([]models.Doctor, error) {
	return r.query(ctx, "findBySpecialization", `
		SELECT `+doctorCols+`
		FROM doctors
		WHERE doctor_display ILIKE '%' || $1::text || '%'
		  AND active = TRUE
		ORDER BY doctor_name
		LIMIT $2`, specialization, limit)
}

func (r *doctorRepository) query(ctx context.Context, queryType, sql string, args ...any) ([]models.Doctor, error) {
	repository := "doctor"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	if r.pool == nil {
		status = "error"
		return nil, database.ErrDoctorDirectoryDisabled
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to query doctors: %w", err)
	}

	doctors, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Doctor, error) {
		var d models.Doctor
		err := row.Scan(&d.Code, &d.Name, &d.Display, &d.HomeAddress, &d.Active)
		return d, err
	})
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to scan doctors: %w", err)
	}
	return doctors, nil
}
