package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/resellhub/notify-engine/internal/notification/domain"
	"github.com/resellhub/notify-engine/pkg/db/pagination"
)

// scheduleNotifications triggers one scheduling pass. The external cron hits
// this endpoint; running it twice in a row is harmless because creation is
// conditional on the cycle key.
func (s *Server) scheduleNotifications(c *gin.Context) {
	scheduled, err := s.scheduler.ScheduleDue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"total_scheduled": scheduled})
}

// processNotifications triggers one delivery pass. batch_size overrides the
// configured batch for this invocation only.
func (s *Server) processNotifications(c *gin.Context) {
	batchSize, err := parseOptionalInt(c.Query("batch_size"))
	if err != nil || (batchSize != nil && *batchSize <= 0) {
		AbortWithError(c, newValidationError("batch_size", "invalid_batch_size", "invalid batch size"))
		return
	}

	size := 0
	if batchSize != nil {
		size = *batchSize
	}
	summary, err := s.worker.ProcessBatch(c.Request.Context(), size)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"processed": summary.Processed,
		"failed":    summary.Failed,
	})
}

func (s *Server) listNotifications(c *gin.Context) {
	status, err := parseOptionalStatus(c.Query("status"))
	if err != nil {
		AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
		return
	}
	notificationType, err := parseOptionalType(c.Query("type"))
	if err != nil {
		AbortWithError(c, newValidationError("type", "invalid_type", "invalid notification type"))
		return
	}
	serviceType, err := parseOptionalServiceType(c.Query("service_type"))
	if err != nil {
		AbortWithError(c, newValidationError("service_type", "invalid_service_type", "invalid service type"))
		return
	}

	page, err := parseOptionalInt(c.Query("page"))
	if err != nil {
		AbortWithError(c, newValidationError("page", "invalid_page", "invalid page"))
		return
	}
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	pageReq := pagination.Pagination{}
	if page != nil {
		pageReq.Page = *page
	}
	if limit != nil {
		pageReq.Limit = *limit
	}

	req := notificationdomain.ListRequest{
		Filter: notificationdomain.ListFilter{
			Status:      status,
			Type:        notificationType,
			ServiceType: serviceType,
			ServiceID:   strings.TrimSpace(c.Query("service_id")),
		},
		Page: pageReq,
	}

	resp, err := s.notificationSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) getNotification(c *gin.Context) {
	record, err := s.notificationSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

type updateNotificationRequest struct {
	Subject     *string `json:"subject"`
	Content     *string `json:"content"`
	Status      *string `json:"status"`
	ScheduledAt *string `json:"scheduled_at"`
}

func (s *Server) updateNotification(c *gin.Context) {
	var body updateNotificationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	req := notificationdomain.UpdateRequest{
		Subject: body.Subject,
		Content: body.Content,
	}
	if body.Status != nil {
		status, err := parseOptionalStatus(*body.Status)
		if err != nil || status == nil {
			AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
			return
		}
		req.Status = status
	}
	if body.ScheduledAt != nil {
		scheduledAt, err := parseOptionalTime(*body.ScheduledAt, false)
		if err != nil {
			AbortWithError(c, newValidationError("scheduled_at", "invalid_time", "invalid scheduled_at"))
			return
		}
		req.ScheduledAt = scheduledAt
	}

	record, err := s.notificationSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) cancelNotification(c *gin.Context) {
	record, err := s.notificationSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) resumeNotification(c *gin.Context) {
	record, err := s.notificationSvc.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) deleteNotification(c *gin.Context) {
	if err := s.notificationSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
