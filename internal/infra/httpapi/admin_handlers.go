package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"concern2care/internal/app"
	"concern2care/internal/domain/notification"
	"concern2care/internal/domain/submission"
	"concern2care/internal/domain/teacher"
	idb "concern2care/internal/infra/database"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type adminHandler struct {
	adminSvc *app.AdminService
	logger   *logrus.Entry
}

func newAdminHandler(adminSvc *app.AdminService, logger *logrus.Entry) *adminHandler {
	return &adminHandler{adminSvc: adminSvc, logger: logger}
}

type enrollTeacherRequest struct {
	FirstName     string `json:"first_name" binding:"required"`
	LastName      string `json:"last_name" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Position      string `json:"position"`
	School        string `json:"school"`
	RequestsLimit int    `json:"requests_limit" binding:"required,min=1"`
}

func (h *adminHandler) enrollTeacher(c *gin.Context) {
	var req enrollTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := h.adminSvc.EnrollTeacher(c.Request.Context(), req.FirstName, req.LastName, req.Email, req.Position, req.School, req.RequestsLimit)
	if err != nil {
		if err == app.ErrTeacherAlreadyExists {
			c.JSON(http.StatusConflict, gin.H{"error": "teacher with this email already exists"})
			return
		}
		h.logger.WithError(err).Error("Teacher enrollment failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enroll teacher"})
		return
	}
	c.JSON(http.StatusCreated, teacherResponse(t))
}

func (h *adminHandler) listTeachers(c *gin.Context) {
	teachers, err := h.adminSvc.ListTeachers(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Teacher listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list teachers"})
		return
	}
	out := make([]gin.H, 0, len(teachers))
	for _, t := range teachers {
		out = append(out, teacherResponse(t))
	}
	c.JSON(http.StatusOK, gin.H{"teachers": out})
}

func (h *adminHandler) deactivateTeacher(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, err := h.adminSvc.DeactivateTeacher(c.Request.Context(), id)
	if err != nil {
		switch err {
		case idb.ErrTeacherNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "teacher not found"})
		case app.ErrTeacherAlreadyInactive:
			c.JSON(http.StatusConflict, gin.H{"error": "teacher is already inactive"})
		default:
			h.logger.WithError(err).Error("Teacher deactivation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate teacher"})
		}
		return
	}
	c.JSON(http.StatusOK, teacherResponse(t))
}

func (h *adminHandler) resetUsage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.adminSvc.ResetTeacherUsage(c.Request.Context(), id); err != nil {
		if err == idb.ErrTeacherNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "teacher not found"})
			return
		}
		h.logger.WithError(err).Error("Usage reset failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset usage"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "usage reset"})
}

func (h *adminHandler) listUrgent(c *gin.Context) {
	subs, err := h.adminSvc.ListUrgentSubmissions(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Urgent submission listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list urgent submissions"})
		return
	}
	out := make([]gin.H, 0, len(subs))
	for _, sub := range subs {
		out = append(out, submissionResponse(sub))
	}
	c.JSON(http.StatusOK, gin.H{"submissions": out})
}

func (h *adminHandler) getSubmission(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sub, err := h.adminSvc.GetSubmission(c.Request.Context(), id)
	if err != nil {
		if err == idb.ErrSubmissionNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
			return
		}
		h.logger.WithError(err).Error("Submission lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch submission"})
		return
	}
	c.JSON(http.StatusOK, submissionResponse(sub))
}

type reviewRequest struct {
	ReviewedText string `json:"reviewed_text" binding:"required"`
	ReviewedBy   string `json:"reviewed_by" binding:"required"`
}

func (h *adminHandler) reviewSubmission(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.adminSvc.ReviewSubmission(c.Request.Context(), id, req.ReviewedText, req.ReviewedBy)
	h.respondSubmissionMutation(c, sub, err)
}

type statusChangeRequest struct {
	ReviewedBy string `json:"reviewed_by" binding:"required"`
}

func (h *adminHandler) statusChange(c *gin.Context, apply func(ctx *gin.Context, id int64, by string) (*submission.Submission, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req statusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, err := apply(c, id, req.ReviewedBy)
	h.respondSubmissionMutation(c, sub, err)
}

func (h *adminHandler) approveSubmission(c *gin.Context) {
	h.statusChange(c, func(ctx *gin.Context, id int64, by string) (*submission.Submission, error) {
		return h.adminSvc.ApproveSubmission(ctx.Request.Context(), id, by)
	})
}

func (h *adminHandler) holdSubmission(c *gin.Context) {
	h.statusChange(c, func(ctx *gin.Context, id int64, by string) (*submission.Submission, error) {
		return h.adminSvc.HoldSubmission(ctx.Request.Context(), id, by)
	})
}

func (h *adminHandler) cancelSubmission(c *gin.Context) {
	h.statusChange(c, func(ctx *gin.Context, id int64, by string) (*submission.Submission, error) {
		return h.adminSvc.CancelSubmission(ctx.Request.Context(), id, by)
	})
}

func (h *adminHandler) sendSubmission(c *gin.Context) {
	h.statusChange(c, func(ctx *gin.Context, id int64, by string) (*submission.Submission, error) {
		return h.adminSvc.SendSubmissionNow(ctx.Request.Context(), id, by)
	})
}

func (h *adminHandler) respondSubmissionMutation(c *gin.Context, sub *submission.Submission, err error) {
	if err != nil {
		switch err {
		case idb.ErrSubmissionNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
		case app.ErrSubmissionConflict:
			c.JSON(http.StatusConflict, gin.H{"error": "submission state no longer allows this action"})
		default:
			h.logger.WithError(err).Error("Submission mutation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "submission update failed"})
		}
		return
	}
	c.JSON(http.StatusOK, submissionResponse(sub))
}

func (h *adminHandler) listNotifications(c *gin.Context) {
	notifications, err := h.adminSvc.ListOpenNotifications(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Notification listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}
	out := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationResponse(n))
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

func (h *adminHandler) markNotificationRead(c *gin.Context) {
	h.notificationStatusChange(c, h.adminSvc.MarkNotificationRead)
}

func (h *adminHandler) markNotificationResolved(c *gin.Context) {
	h.notificationStatusChange(c, h.adminSvc.MarkNotificationResolved)
}

func (h *adminHandler) notificationStatusChange(c *gin.Context, apply func(ctx context.Context, id int64) error) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := apply(c.Request.Context(), id); err != nil {
		if err == idb.ErrNotificationNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		h.logger.WithError(err).Error("Notification update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "notification update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func teacherResponse(t *teacher.EnrolledTeacher) gin.H {
	resp := gin.H{
		"id":             t.ID,
		"first_name":     t.FirstName,
		"last_name":      t.LastName,
		"email":          t.Email,
		"requests_used":  t.RequestsUsed,
		"requests_limit": t.RequestsLimit,
		"is_active":      t.IsActive,
		"created_at":     t.CreatedAt.Format(time.RFC3339),
	}
	if t.Position.Valid {
		resp["position"] = t.Position.String
	}
	if t.School.Valid {
		resp["school"] = t.School.String
	}
	if t.LastUsageReset.Valid {
		resp["last_usage_reset"] = t.LastUsageReset.Time.Format(time.RFC3339)
	}
	return resp
}

func notificationResponse(n *notification.AdminNotification) gin.H {
	resp := gin.H{
		"id":            n.ID,
		"submission_id": n.SubmissionID,
		"type":          n.Type,
		"title":         n.Title,
		"priority":      n.Priority,
		"status":        n.Status,
		"created_at":    n.CreatedAt.Format(time.RFC3339),
	}
	if n.Message.Valid {
		resp["message"] = n.Message.String
	}
	if n.AssignedTo.Valid {
		resp["assigned_to"] = n.AssignedTo.String
	}
	return resp
}
