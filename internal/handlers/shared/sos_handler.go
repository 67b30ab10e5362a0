package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resq/internal/services"
	"resq/internal/utils"
)

type SOSHandler struct {
	sosService      services.SOSService
	fallbackService services.FallbackService
}

func NewSOSHandler(sosService services.SOSService, fallbackService services.FallbackService) *SOSHandler {
	return &SOSHandler{
		sosService:      sosService,
		fallbackService: fallbackService,
	}
}

// PressSOS handles a press of the SOS button
func (h *SOSHandler) PressSOS(c *gin.Context) {
	result := h.sosService.Press(c.Request.Context())

	data := gin.H{
		"outcome": result.Outcome,
		"state":   h.sosService.State(),
	}

	switch result.Outcome {
	case services.PressStarted:
		utils.AcceptedResponse(c, utils.MsgSOSStarted, data)
	case services.PressCancelled:
		utils.SuccessResponse(c, utils.MsgSOSCancelled, data)
	case services.PressShowExisting:
		data["existing"] = result.Existing
		utils.SuccessResponse(c, utils.MsgSOSExisting, data)
	default:
		utils.ConflictResponse(c, utils.MsgSOSBusy)
	}
}

// CancelCountdown stops a running SOS countdown
func (h *SOSHandler) CancelCountdown(c *gin.Context) {
	if !h.sosService.CancelCountdown() {
		utils.ConflictResponse(c, utils.ErrSOSNotCancellable)
		return
	}
	utils.SuccessResponse(c, utils.MsgSOSCancelled, h.sosService.State())
}

func (h *SOSHandler) GetState(c *gin.Context) {
	utils.SuccessResponse(c, utils.MsgSOSState, h.sosService.State())
}

// SendOfflineSOS texts the hotline numbers directly
func (h *SOSHandler) SendOfflineSOS(c *gin.Context) {
	if h.fallbackService == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, utils.CodeOfflineSOSUnavailable, "Offline SOS is not configured")
		return
	}

	result, err := h.fallbackService.SendOfflineSOS(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, utils.CodeOfflineSOSFailed, err.Error())
		return
	}

	utils.SuccessResponse(c, utils.MsgOfflineSOSSent, result)
}

func (h *SOSHandler) GetHotlines(c *gin.Context) {
	var numbers []string
	if h.fallbackService != nil {
		numbers = h.fallbackService.HotlineNumbers()
	}
	utils.SuccessResponse(c, "Hotline numbers", gin.H{"numbers": numbers})
}
