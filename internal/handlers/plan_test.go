package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/linesync/internal/apperrors"
	"github.com/nkiryanov/linesync/internal/logger"
	"github.com/nkiryanov/linesync/internal/repository/postgres"
	"github.com/nkiryanov/linesync/internal/service/segment"
	"github.com/nkiryanov/linesync/internal/testutil"
)

func Test_PlanHandler(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Run http server with plan handlers on production repositories
	withTx := func(t *testing.T, fn func(url string, plans *postgres.PlanRepo, vehicles *postgres.VehicleRepo)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			l := logger.NewNoOpLogger()
			plans := &postgres.PlanRepo{DB: tx}
			vehicles := &postgres.VehicleRepo{DB: tx}

			h := NewPlan(postgres.NewStorage(tx), segment.NewBuilder(plans, l), l)
			router := NewRouter(NewSync(nil, nil, l), NewOrder(nil, nil, l), h, "", l)

			srv := httptest.NewServer(router)
			defer srv.Close()

			fn(srv.URL, plans, vehicles)
		})
	}

	planBody := `{
		"series": "1234",
		"band": 5,
		"product": {"code": "P1", "shortName": "Model X"},
		"rows": [
			{"position": 1, "runningNumber": "R1", "plannedAt": "20240301143000", "decor": {"code": "D1"}, "option": {"code": "O1"}},
			{"position": 2, "option": {"code": "O2"}},
			{"position": 3, "runningNumber": "R2", "decor": {"code": "D2"}}
		]
	}`

	t.Run("create plan", func(t *testing.T) {
		withTx(t, func(url string, plans *postgres.PlanRepo, _ *postgres.VehicleRepo) {
			code, body := doRequest(t, http.MethodPost, url+"/api/plans", planBody, nil)

			require.Equalf(t, http.StatusCreated, code, "not expected code. Body: %s", body)
			require.Contains(t, body, `"series":"1234"`)
			require.Contains(t, body, `"rows":3`)

			plan, err := plans.GetBySeries(t.Context(), "1234")
			require.NoError(t, err)
			require.Equal(t, 5, plan.Band)
			require.Len(t, plan.Rows, 3)
			require.Equal(t, "R1", plan.Rows[0].RunningNumber)
			require.Nil(t, plan.Rows[1].Decor)
			require.Equal(t, "O2", plan.Rows[1].Option.Code)
		})
	})

	t.Run("create plan with vehicles", func(t *testing.T) {
		withTx(t, func(url string, _ *postgres.PlanRepo, vehicles *postgres.VehicleRepo) {
			data := `{
				"series": "1234",
				"band": 5,
				"rows": [{"position": 1, "runningNumber": "R1"}],
				"vehicles": [
					{"orderNumber": "123400001", "runningNumber": "R1"},
					{"orderNumber": "123400002", "runningNumber": "R2", "isVehicle": false}
				]
			}`

			code, body := doRequest(t, http.MethodPost, url+"/api/plans", data, nil)

			require.Equalf(t, http.StatusCreated, code, "not expected code. Body: %s", body)
			require.Contains(t, body, `"vehicles":2`)

			list, err := vehicles.ListForLine(t.Context(), 5)
			require.NoError(t, err)
			require.Len(t, list, 2)
			require.Equal(t, "123400001", list[0].OrderNumber)
			require.Equal(t, "1234", list[0].Series)
			require.True(t, list[0].IsVehicle)
			require.False(t, list[1].IsVehicle)
		})
	})

	t.Run("create plan with existing vehicle stores nothing", func(t *testing.T) {
		withTx(t, func(url string, plans *postgres.PlanRepo, vehicles *postgres.VehicleRepo) {
			_, err := vehicles.CreateVehicle(t.Context(), testutil.TestVehicle("123400001", "R1"))
			require.NoError(t, err)

			data := `{
				"series": "1234",
				"band": 5,
				"rows": [{"position": 1, "runningNumber": "R1"}],
				"vehicles": [{"orderNumber": "123400001", "runningNumber": "R1"}]
			}`

			code, body := doRequest(t, http.MethodPost, url+"/api/plans", data, nil)

			require.Equal(t, http.StatusConflict, code)
			require.JSONEq(t, `{"error": "service_error", "message": "Vehicle of the plan already exists"}`, body)

			_, err = plans.GetBySeries(t.Context(), "1234")
			require.ErrorIs(t, err, apperrors.ErrPlanNotFound, "plan must be rolled back with its vehicles")
		})
	})

	t.Run("create plan with vehicle of other series", func(t *testing.T) {
		withTx(t, func(url string, _ *postgres.PlanRepo, _ *postgres.VehicleRepo) {
			data := `{
				"series": "1234",
				"band": 5,
				"rows": [{"position": 1, "runningNumber": "R1"}],
				"vehicles": [{"orderNumber": "567800001", "runningNumber": "R1"}]
			}`

			code, _ := doRequest(t, http.MethodPost, url+"/api/plans", data, nil)

			require.Equal(t, http.StatusBadRequest, code)
		})
	})

	t.Run("create plan twice", func(t *testing.T) {
		withTx(t, func(url string, _ *postgres.PlanRepo, _ *postgres.VehicleRepo) {
			code, _ := doRequest(t, http.MethodPost, url+"/api/plans", planBody, nil)
			require.Equal(t, http.StatusCreated, code)

			code, body := doRequest(t, http.MethodPost, url+"/api/plans", planBody, nil)

			require.Equal(t, http.StatusConflict, code)
			require.JSONEq(t, `{"error": "service_error", "message": "Production plan for series already exists"}`, body)
		})
	})

	t.Run("create plan duplicated positions", func(t *testing.T) {
		withTx(t, func(url string, _ *postgres.PlanRepo, _ *postgres.VehicleRepo) {
			data := `{"series": "1234", "band": 5, "rows": [{"position": 1}, {"position": 1}]}`

			code, _ := doRequest(t, http.MethodPost, url+"/api/plans", data, nil)

			require.Equal(t, http.StatusBadRequest, code)
		})
	})

	t.Run("create plan validation", func(t *testing.T) {
		withTx(t, func(url string, _ *postgres.PlanRepo, _ *postgres.VehicleRepo) {
			data := `{"series": "12", "band": 5, "rows": [{"position": 1, "plannedAt": "2024-03-01"}]}`

			code, body := doRequest(t, http.MethodPost, url+"/api/plans", data, nil)

			require.Equal(t, http.StatusBadRequest, code)
			require.JSONEq(t, `{
				"error": "validation_failed",
				"message": "Request validation failed",
				"fields": {
					"series": "Value must be exactly 4 long",
					"rows[0].plannedAt": "Timestamp must be in yyyyMMddHHmmss format"
				}
			}`, body)
		})
	})

	t.Run("create vehicle", func(t *testing.T) {
		withTx(t, func(url string, _ *postgres.PlanRepo, vehicles *postgres.VehicleRepo) {
			data := `{"orderNumber": "123400001", "series": "1234", "runningNumber": "R1"}`

			code, body := doRequest(t, http.MethodPost, url+"/api/vehicles", data, nil)

			require.Equalf(t, http.StatusCreated, code, "not expected code. Body: %s", body)

			v, err := vehicles.GetVehicle(t.Context(), "123400001")
			require.NoError(t, err)
			require.Equal(t, "R1", v.RunningNumber)
			require.True(t, v.IsVehicle, "vehicle flag should default to true")

			code, _ = doRequest(t, http.MethodPost, url+"/api/vehicles", data, nil)
			require.Equal(t, http.StatusConflict, code)
		})
	})

	t.Run("preview order", func(t *testing.T) {
		withTx(t, func(url string, _ *postgres.PlanRepo, _ *postgres.VehicleRepo) {
			code, _ := doRequest(t, http.MethodPost, url+"/api/plans", planBody, nil)
			require.Equal(t, http.StatusCreated, code)
			code, _ = doRequest(t, http.MethodPost, url+"/api/vehicles",
				`{"orderNumber": "123400001", "series": "1234", "runningNumber": "R1"}`, nil)
			require.Equal(t, http.StatusCreated, code)

			code, body := doRequest(t, http.MethodGet, url+"/api/vehicles/123400001/order?line=5", "", nil)

			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
			require.JSONEq(t, `{
				"orderNumber": "123400001",
				"model": "Model X",
				"description": "Model X",
				"dates": [{"date": "2024-03-01T14:30:00.0000000+01:00", "location": "Station1", "type": "PLAN"}],
				"features": ["D1", "O1", "O2", "1234"]
			}`, body)
		})
	})

	t.Run("preview order on other line", func(t *testing.T) {
		withTx(t, func(url string, _ *postgres.PlanRepo, _ *postgres.VehicleRepo) {
			code, _ := doRequest(t, http.MethodPost, url+"/api/plans", planBody, nil)
			require.Equal(t, http.StatusCreated, code)
			code, _ = doRequest(t, http.MethodPost, url+"/api/vehicles",
				`{"orderNumber": "123400001", "series": "1234", "runningNumber": "R1"}`, nil)
			require.Equal(t, http.StatusCreated, code)

			code, body := doRequest(t, http.MethodGet, url+"/api/vehicles/123400001/order?line=7", "", nil)

			require.Equal(t, http.StatusOK, code)
			require.JSONEq(t, `{"orderNumber": null, "model": null, "description": null, "dates": [], "features": []}`, body)
		})
	})

	t.Run("preview order of unknown vehicle", func(t *testing.T) {
		withTx(t, func(url string, _ *postgres.PlanRepo, _ *postgres.VehicleRepo) {
			code, _ := doRequest(t, http.MethodGet, url+"/api/vehicles/999900001/order?line=5", "", nil)
			require.Equal(t, http.StatusNotFound, code)

			code, _ = doRequest(t, http.MethodGet, url+"/api/vehicles/999900001/order", "", nil)
			require.Equal(t, http.StatusBadRequest, code)
		})
	})
}
