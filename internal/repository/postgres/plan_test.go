package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/linesync/internal/apperrors"
	"github.com/nkiryanov/linesync/internal/models"
	"github.com/nkiryanov/linesync/internal/testutil"
)

func TestPlans(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withTx := func(t *testing.T, fn func(repo *PlanRepo)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			fn(&PlanRepo{DB: tx})
		})
	}

	t.Run("CreatePlan", func(t *testing.T) {
		t.Run("create ok", func(t *testing.T) {
			withTx(t, func(repo *PlanRepo) {
				plan, err := repo.CreatePlan(t.Context(), testutil.TestPlan("1234", 5, "0001", "0002"))

				require.NoError(t, err, "plan has to be created ok")
				require.NotZero(t, plan.ID)
				require.Equal(t, "1234", plan.Series)
				require.Equal(t, 5, plan.Band)
				require.Equal(t, &models.Reference{Code: "P-1234", ShortName: "Model 1234"}, plan.Product)
				require.Len(t, plan.Rows, 4)
				require.WithinDuration(t, time.Now(), plan.CreatedAt, time.Second)
			})
		})

		t.Run("create twice", func(t *testing.T) {
			withTx(t, func(repo *PlanRepo) {
				_, err := repo.CreatePlan(t.Context(), testutil.TestPlan("1234", 5, "0001"))
				require.NoError(t, err)

				_, err = repo.CreatePlan(t.Context(), testutil.TestPlan("1234", 6, "0001"))

				require.ErrorIs(t, err, apperrors.ErrPlanAlreadyExists, "should return well known error")
			})
		})

		t.Run("duplicated row position", func(t *testing.T) {
			withTx(t, func(repo *PlanRepo) {
				plan := testutil.TestPlan("1234", 5, "0001")
				plan.Rows[1].Position = plan.Rows[0].Position

				_, err := repo.CreatePlan(t.Context(), plan)

				require.ErrorIs(t, err, apperrors.ErrPlanInvalid)
			})
		})
	})

	t.Run("GetBySeries", func(t *testing.T) {
		t.Run("rows ordered by position", func(t *testing.T) {
			withTx(t, func(repo *PlanRepo) {
				plan := testutil.TestPlan("1234", 5, "0001", "0002")
				plan.Product = nil
				plan.Rows[0], plan.Rows[3] = plan.Rows[3], plan.Rows[0]
				_, err := repo.CreatePlan(t.Context(), plan)
				require.NoError(t, err)

				got, err := repo.GetBySeries(t.Context(), "1234")

				require.NoError(t, err)
				require.Nil(t, got.Product)
				require.Len(t, got.Rows, 4)
				for i, row := range got.Rows {
					require.Equal(t, i+1, row.Position)
				}
				require.Equal(t, models.PlanRow{
					Position:      1,
					RunningNumber: "0001",
					PlannedAt:     "20240301143000",
					Decor:         &models.Reference{Code: "D-0001", ShortName: "Decor"},
					Option:        &models.Reference{Code: "O-0001-1", ShortName: "Option"},
				}, got.Rows[0])
				require.Nil(t, got.Rows[1].Decor)
				require.Empty(t, got.Rows[1].RunningNumber)
			})
		})

		t.Run("not found", func(t *testing.T) {
			withTx(t, func(repo *PlanRepo) {
				_, err := repo.GetBySeries(t.Context(), "9999")

				require.ErrorIs(t, err, apperrors.ErrPlanNotFound)
			})
		})
	})
}
