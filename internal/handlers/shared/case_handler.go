package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resq/internal/services"
	"resq/internal/utils"
	"resq/pkg/storage"
)

type CaseHandler struct {
	caseService  services.ActiveCaseService
	mediaService services.MediaService
}

func NewCaseHandler(caseService services.ActiveCaseService, mediaService services.MediaService) *CaseHandler {
	return &CaseHandler{
		caseService:  caseService,
		mediaService: mediaService,
	}
}

// GetActiveCase returns the current case slot and the loading flag
func (h *CaseHandler) GetActiveCase(c *gin.Context) {
	utils.SuccessResponse(c, utils.MsgCaseLoaded, h.caseService.State())
}

// RefreshCases re-reads the active case and the notification feed
func (h *CaseHandler) RefreshCases(c *gin.Context) {
	h.caseService.Refresh(c.Request.Context())
	utils.SuccessResponse(c, utils.MsgCaseRefreshed, h.caseService.State())
}

// CancelCase cancels the reporter's case
func (h *CaseHandler) CancelCase(c *gin.Context) {
	reportID := c.Param("id")

	snapshot := h.caseService.ActiveCase()
	if snapshot != nil && snapshot.ReportID != reportID {
		snapshot = nil
	}

	if !h.caseService.CancelCurrentCase(c.Request.Context(), reportID, snapshot) {
		utils.ErrorResponse(c, http.StatusBadGateway, utils.CodeCancelFailed, utils.ErrCancelFailed)
		return
	}

	utils.SuccessResponse(c, utils.MsgCaseCancelled, h.caseService.State())
}

// GetNotifications returns the projected notification feed
func (h *CaseHandler) GetNotifications(c *gin.Context) {
	if c.Query("refresh") == "true" {
		h.caseService.CheckNotifications(c.Request.Context())
	}

	feed := h.caseService.NotificationFeed()
	utils.SuccessResponseWithMeta(c, utils.MsgNotificationsLoaded, feed, &utils.Meta{Count: len(feed)})
}

// AttachMedia uploads one evidence file for a report
func (h *CaseHandler) AttachMedia(c *gin.Context) {
	reportID := c.Param("id")

	header, err := c.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "Missing file: "+err.Error())
		return
	}
	if header.Size > utils.MaxMediaSize {
		utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, utils.CodeMediaTooLarge, utils.ErrMediaTooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		utils.BadRequestResponse(c, "Unreadable file: "+err.Error())
		return
	}
	defer file.Close()

	media, err := h.mediaService.Attach(c.Request.Context(), reportID, header.Filename, header.Header.Get("Content-Type"), file)
	if errors.Is(err, storage.ErrObjectTooLarge) {
		utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, utils.CodeMediaTooLarge, utils.ErrMediaTooLarge)
		return
	}
	if err != nil {
		utils.BackendErrorResponse(c, utils.CodeMediaUploadFailed, "Failed to attach media", err)
		return
	}

	utils.CreatedResponse(c, utils.MsgMediaAttached, media)
}

// ListMedia returns the evidence attached to a report
func (h *CaseHandler) ListMedia(c *gin.Context) {
	media, err := h.mediaService.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.BackendErrorResponse(c, utils.CodeMediaListFailed, "Failed to list media", err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Media loaded", media, &utils.Meta{Count: len(media)})
}
