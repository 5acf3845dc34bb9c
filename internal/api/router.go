package api

import (
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"device-allocation-backend/config"
	"device-allocation-backend/internal/mw"
)

// NewRouter creates and configures the gin engine serving the API and the
// frontend build.
func NewRouter(h *Handler, server config.ServerConfig, authRequired bool) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(mw.Logger(h.log), gin.Recovery(), mw.CORS(server.AllowedOrigin))

	limiter := mw.NewIPRateLimiter(rate.Limit(server.RateLimitPerSec), server.RateLimitBurst)
	reportCache := cache.New(server.CacheTTL(), 2*server.CacheTTL())

	api := r.Group("/api")
	api.Use(mw.RateLimiter(limiter))
	{
		api.GET("/health", h.Health)
		api.POST("/auth/login", h.Login)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	secured := api.Group("")
	secured.Use(mw.Authenticate(h.issuer, authRequired), mw.Invalidate(reportCache))
	{
		secured.GET("/auth/me", h.Me)

		secured.GET("/machines", h.ListMachines)
		secured.POST("/machines", h.CreateMachine)
		secured.GET("/machines/:id", h.GetMachine)
		secured.PUT("/machines/:id", h.UpdateMachine)
		secured.DELETE("/machines/:id", h.DeleteMachine)
		secured.GET("/machines/:id/assignments", h.MachineHistory)

		secured.GET("/assignments", h.ListAssignments)
		secured.POST("/assignments", h.CreateAssignments)
		secured.GET("/assignments/:id", h.GetAssignment)
		secured.PUT("/assignments/:id/status", h.UpdateAssignmentStatus)
		secured.DELETE("/assignments/:id", h.DeleteAssignment)

		secured.GET("/distributors", h.ListDistributors)
		secured.POST("/distributors", h.CreateDistributor)
		secured.GET("/distributors/:id", h.GetDistributor)
		secured.PUT("/distributors/:id", h.UpdateDistributor)
		secured.DELETE("/distributors/:id", h.DeleteDistributor)

		secured.GET("/retailers", h.ListRetailers)
		secured.POST("/retailers", h.CreateRetailer)
		secured.GET("/retailers/:id", h.GetRetailer)
		secured.PUT("/retailers/:id", h.UpdateRetailer)
		secured.DELETE("/retailers/:id", h.DeleteRetailer)

		secured.GET("/orders", h.ListOrders)
		secured.POST("/orders", h.CreateOrder)
		secured.GET("/orders/:id", h.GetOrder)
		secured.PUT("/orders/:id/status", h.UpdateOrderStatus)
		secured.DELETE("/orders/:id", h.DeleteOrder)

		secured.GET("/subscriptions", h.GetSubscription)
		secured.PUT("/subscriptions", h.PutSubscription)
		secured.DELETE("/subscriptions", h.DeleteSubscription)

		reports := secured.Group("/reports")
		reports.Use(mw.Cache(reportCache, server.CacheTTL()))
		reports.GET("/dashboard", h.DashboardReport)
		reports.GET("/machines", h.MachineReport)
		reports.GET("/assignments", h.AssignmentReport)
		reports.GET("/distributors", h.DistributorReport)
		reports.GET("/retailers", h.RetailerReport)
	}

	r.NoRoute(spaFallback(server.StaticDir))
	return r
}
