package router

import (
	"net/http"

	"pc-insight/backend/app/controllers"
	"pc-insight/backend/app/middleware"
)

// New assembles the HTTP surface. Admin endpoints require an operator
// JWT; agent endpoints require a device token and are rate limited per
// device. Enroll sits outside device auth but behind the limiter.
func New(
	auth *controllers.AuthController,
	admin *controllers.AdminController,
	agent *controllers.AgentController,
	authMW *middleware.Auth,
	limiter *middleware.RateLimiter,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /login", auth.Login)

	mux.Handle("POST /admin/tokens", authMW.RequireAdmin(http.HandlerFunc(admin.MintEnrollToken)))
	mux.Handle("POST /admin/command", authMW.RequireAdmin(http.HandlerFunc(admin.QueueCommand)))
	mux.Handle("GET /admin/devices", authMW.RequireAdmin(http.HandlerFunc(admin.ListDevices)))
	mux.Handle("GET /admin/devices/{id}/reports", authMW.RequireAdmin(http.HandlerFunc(admin.ListDeviceReports)))

	mux.Handle("POST /v1/agent/enroll",
		limiter.Guard("enroll", http.HandlerFunc(agent.Enroll)))
	mux.Handle("GET /v1/agent/commands/next",
		authMW.RequireDevice(limiter.Guard("poll", http.HandlerFunc(agent.NextCommand))))
	mux.Handle("POST /v1/agent/commands/{id}/status",
		authMW.RequireDevice(limiter.Guard("status", http.HandlerFunc(agent.UpdateStatus))))
	mux.Handle("POST /v1/agent/reports",
		authMW.RequireDevice(limiter.Guard("reports", http.HandlerFunc(agent.UploadReport))))
	mux.Handle("POST /v1/agent/heartbeat",
		authMW.RequireDevice(limiter.Guard("heartbeat", http.HandlerFunc(agent.Heartbeat))))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return middleware.Logging(mux)
}
