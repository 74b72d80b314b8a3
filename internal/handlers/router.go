package handlers

import (
	"net/http"

	"github.com/nkiryanov/linesync/internal/handlers/middleware"
	"github.com/nkiryanov/linesync/internal/handlers/render"
	"github.com/nkiryanov/linesync/internal/logger"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	syncHandler *SyncHandler,
	orderHandler *OrderHandler,
	planHandler *PlanHandler,
	apiKey string,
	logger logger.Logger,
) http.Handler {
	withKey := middleware.APIKeyMiddleware(apiKey)

	api := http.NewServeMux()

	api.HandleFunc("GET /health", handleHealth)

	api.Handle("POST /sync", withKey(http.HandlerFunc(syncHandler.trigger)))
	api.Handle("GET /lines/{line}/runs", http.HandlerFunc(syncHandler.listRuns))

	api.Handle("GET /lines/{line}/orders", http.HandlerFunc(orderHandler.list))
	api.Handle("POST /series/position", http.HandlerFunc(orderHandler.position))

	api.Handle("POST /plans", withKey(http.HandlerFunc(planHandler.createPlan)))
	api.Handle("POST /vehicles", withKey(http.HandlerFunc(planHandler.createVehicle)))
	api.Handle("GET /vehicles/{orderNumber}/order", http.HandlerFunc(planHandler.previewOrder))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	handler := chain(root,
		middleware.RequestLogger(logger, "/api/health"),
	)

	return handler
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	render.JSON(w, map[string]string{"status": "ok"})
}
