package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/linesync/internal/models"
	"github.com/nkiryanov/linesync/internal/repository"
	"github.com/nkiryanov/linesync/internal/testutil"
)

func TestSyncRuns(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("create and list newest first", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &SyncRunRepo{DB: tx}

			for i := range 3 {
				_, err := repo.CreateRun(t.Context(), models.SyncRun{
					Line:       5,
					Pushed:     i,
					Status:     models.SyncRunStatusSucceeded,
					StartedAt:  started.Add(time.Duration(i) * time.Minute),
					FinishedAt: started.Add(time.Duration(i)*time.Minute + time.Second),
				})
				require.NoError(t, err)
			}
			_, err := repo.CreateRun(t.Context(), models.SyncRun{Line: 6, Status: models.SyncRunStatusFailed, Error: "boom", StartedAt: started, FinishedAt: started})
			require.NoError(t, err)

			runs, err := repo.ListRuns(t.Context(), 5, 2)

			require.NoError(t, err)
			require.Len(t, runs, 2)
			require.Equal(t, 2, runs[0].Pushed)
			require.Equal(t, 1, runs[1].Pushed)
			require.NotZero(t, runs[0].ID)
			require.True(t, started.Add(2*time.Minute).Equal(runs[0].StartedAt))
		})
	})

	t.Run("rolled back in failed transaction", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s := NewStorage(tx)

			err := s.InTx(t.Context(), func(s repository.Storage) error {
				_, err := s.SyncRun().CreateRun(t.Context(), models.SyncRun{Line: 7, Status: models.SyncRunStatusSucceeded, StartedAt: started, FinishedAt: started})
				require.NoError(t, err)
				return errors.New("abort")
			})
			require.Error(t, err)

			runs, err := s.SyncRun().ListRuns(t.Context(), 7, 10)
			require.NoError(t, err)
			require.Empty(t, runs)
		})
	})
}
