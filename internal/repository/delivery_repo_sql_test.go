package repository

import (
	"context"
	"database/sql"
	"testing"

	"fulfillment/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDeliveryRepository(t *testing.T) (DeliveryRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return NewDeliveryRepository(gormDB), mock, mockDB
}

func TestDeliveryRepository_CompareAndSetStatus_SQL(t *testing.T) {
	t.Run("guards the update with the expected status", func(t *testing.T) {
		repo, mock, mockDB := newMockDeliveryRepository(t)
		defer mockDB.Close()

		d := &model.Delivery{ID: uuid.New(), Direction: model.DirectionOutbound, Status: model.StatusInTransit}
		mock.ExpectExec(`UPDATE "deliveries" SET .* WHERE id = \$5 AND status = \$6`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), model.StatusInTransit, sqlmock.AnyArg(), d.ID, model.StatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.CompareAndSetStatus(context.Background(), d, model.StatusPending)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matching row is a conflict", func(t *testing.T) {
		repo, mock, mockDB := newMockDeliveryRepository(t)
		defer mockDB.Close()

		d := &model.Delivery{ID: uuid.New(), Direction: model.DirectionOutbound, Status: model.StatusInTransit}
		mock.ExpectExec(`UPDATE "deliveries" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.CompareAndSetStatus(context.Background(), d, model.StatusPending)
		assert.ErrorIs(t, err, model.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
