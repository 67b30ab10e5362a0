package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"resq/internal/models"
	"resq/internal/utils"
	"resq/internal/validators"
	"resq/pkg/location"
)

type LocationHandler struct {
	tracker *location.Tracker
}

func NewLocationHandler(tracker *location.Tracker) *LocationHandler {
	return &LocationHandler{tracker: tracker}
}

// UpdateLocation accepts a device position from the UI shell
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	var request validators.LocationUpdate
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := validators.ValidateLocationUpdate(&request); err != nil {
		var verrs validators.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, v := range verrs {
				details[v.Field] = v.Message
			}
			utils.ValidationErrorResponse(c, details)
			return
		}
		utils.BadRequestResponse(c, err.Error())
		return
	}

	loc := models.Location{
		Latitude:  request.Latitude,
		Longitude: request.Longitude,
		Accuracy:  request.Accuracy,
		Timestamp: time.Now(),
	}
	h.tracker.Update(loc)

	utils.SuccessResponse(c, utils.MsgLocationUpdated, loc)
}

func (h *LocationHandler) GetLocation(c *gin.Context) {
	loc, _ := h.tracker.LastKnown(c.Request.Context())
	if loc == nil {
		utils.NotFoundResponse(c, "Location")
		return
	}
	utils.SuccessResponse(c, "Last known location", loc)
}
