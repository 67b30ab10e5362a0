package routes

import (
	"github.com/gin-gonic/gin"

	handlers "resq/internal/handlers/shared"
)

// SetupCaseRoutes sets up routes for the active case and notifications
func SetupCaseRoutes(r *gin.RouterGroup, caseHandler *handlers.CaseHandler) {
	if caseHandler == nil {
		return
	}

	cases := r.Group("/case")
	{
		cases.GET("", caseHandler.GetActiveCase)
		cases.POST("/refresh", caseHandler.RefreshCases)
		cases.DELETE("/:id", caseHandler.CancelCase)
		cases.GET("/:id/media", caseHandler.ListMedia)
		cases.POST("/:id/media", caseHandler.AttachMedia)
	}

	r.GET("/notifications", caseHandler.GetNotifications)
}

// SetupSOSRoutes sets up routes for the SOS button and the offline fallback
func SetupSOSRoutes(r *gin.RouterGroup, sosHandler *handlers.SOSHandler) {
	if sosHandler == nil {
		return
	}

	sos := r.Group("/sos")
	{
		sos.GET("", sosHandler.GetState)
		sos.POST("", sosHandler.PressSOS)
		sos.DELETE("", sosHandler.CancelCountdown)
		sos.POST("/offline", sosHandler.SendOfflineSOS)
		sos.GET("/hotlines", sosHandler.GetHotlines)
	}
}

func SetupLocationRoutes(r *gin.RouterGroup, locationHandler *handlers.LocationHandler) {
	if locationHandler == nil {
		return
	}

	r.GET("/location", locationHandler.GetLocation)
	r.PUT("/location", locationHandler.UpdateLocation)
}
