package repositories

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"hospitaldesk/internal/database"
)

const doctorSchema = `
CREATE TABLE doctors (
	doctor_code    TEXT PRIMARY KEY,
	doctor_name    TEXT NOT NULL,
	doctor_display TEXT NOT NULL,
	home_address   TEXT,
	active         BOOLEAN NOT NULL DEFAULT TRUE
);
INSERT INTO doctors VALUES
	('D001', 'BUDI SANTOSO', 'dr. Budi Santoso, Sp.A', 'Jl. Mawar 1', TRUE),
	('D002', 'SITI RAHAYU', 'dr. Siti Rahayu, Sp.PD', NULL, TRUE),
	('D003', 'BUDI HARTONO', 'dr. Budi Hartono, Sp.OG', NULL, FALSE),
	('D004', 'ANDI WIJAYA', 'dr. Andi Wijaya, Sp.A', NULL, TRUE);
`

func newDoctorPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping test in short mode.")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("doctors"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.NewDoctorPool(ctx, connStr, 4, 1)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, doctorSchema)
	require.NoError(t, err)
	return pool
}

func TestDoctorRepositoryDisabled(t *testing.T) {
	repo := NewDoctorRepository(nil)
	_, err := repo.ListActive(context.Background(), 20)
	assert.ErrorIs(t, err, database.ErrDoctorDirectoryDisabled)
}

func TestDoctorRepository(t *testing.T) {
	repo := NewDoctorRepository(newDoctorPool(t))
	ctx := context.Background()

	t.Run("search by name skips inactive doctors", func(t *testing.T) {
		doctors, err := repo.SearchByName(ctx, "budi", 10)
		require.NoError(t, err)
		require.Len(t, doctors, 1)
		assert.Equal(t, "D001", doctors[0].Code)
		assert.Equal(t, "Jl. Mawar 1", doctors[0].HomeAddress)
	})

	t.Run("search matches display", func(t *testing.T) {
		doctors, err := repo.SearchByName(ctx, "Sp.PD", 10)
		require.NoError(t, err)
		require.Len(t, doctors, 1)
		assert.Equal(t, "SITI RAHAYU", doctors[0].Name)
	})

	t.Run("active list is ordered and limited", func(t *testing.T) {
		doctors, err := repo.ListActive(ctx, 2)
		require.NoError(t, err)
		require.Len(t, doctors, 2)
		assert.Equal(t, "ANDI WIJAYA", doctors[0].Name)
		assert.Equal(t, "BUDI SANTOSO", doctors[1].Name)
	})

	t.Run("specialization", func(t *testing.T) {
		doctors, err := repo.FindBySpecialization(ctx, "sp.a", 10)
		require.NoError(t, err)
		assert.Len(t, doctors, 2)

		doctors, err = repo.FindBySpecialization(ctx, "Sp.THT", 10)
		require.NoError(t, err)
		assert.Empty(t, doctors)
	})
}
