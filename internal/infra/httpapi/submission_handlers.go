package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"concern2care/internal/app"
	"concern2care/internal/domain/submission"
	idb "concern2care/internal/infra/database"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type submissionHandler struct {
	subSvc   *app.SubmissionService
	usageSvc *app.UsageService
	logger   *logrus.Entry
}

func newSubmissionHandler(subSvc *app.SubmissionService, usageSvc *app.UsageService, logger *logrus.Entry) *submissionHandler {
	return &submissionHandler{subSvc: subSvc, usageSvc: usageSvc, logger: logger}
}

// createSubmissionRequest is the explicit request shape; unknown severities
// and task types are rejected at the boundary.
type createSubmissionRequest struct {
	TeacherID          int64    `json:"teacher_id" binding:"required"`
	StudentFirstName   string   `json:"student_first_name" binding:"required"`
	StudentLastInitial string   `json:"student_last_initial" binding:"required,len=1"`
	StudentAge         int      `json:"student_age" binding:"omitempty,min=3,max=21"`
	GradeLevel         string   `json:"grade_level" binding:"required"`
	TaskType           string   `json:"task_type" binding:"required,oneof=differentiation tier2_intervention"`
	Severity           string   `json:"severity" binding:"required,oneof=mild moderate urgent"`
	ConcernTypes       []string `json:"concern_types" binding:"required,min=1"`
	ConcernDescription string   `json:"concern_description" binding:"required"`
	ActionsTaken       []string `json:"actions_taken"`
	MarkedUrgent       bool     `json:"marked_urgent"`
}

func (h *submissionHandler) create(c *gin.Context) {
	var req createSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.subSvc.Create(c.Request.Context(), app.CreateSubmissionRequest{
		TeacherID:          req.TeacherID,
		StudentFirstName:   req.StudentFirstName,
		StudentLastInitial: req.StudentLastInitial,
		StudentAge:         req.StudentAge,
		GradeLevel:         req.GradeLevel,
		TaskType:           submission.TaskType(req.TaskType),
		Severity:           submission.Severity(req.Severity),
		ConcernTypes:       req.ConcernTypes,
		ConcernDescription: req.ConcernDescription,
		ActionsTaken:       req.ActionsTaken,
		MarkedUrgent:       req.MarkedUrgent,
	})
	if err != nil {
		switch err {
		case idb.ErrTeacherNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "teacher not found"})
		case idb.ErrUsageLimitExceeded:
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "monthly request limit reached"})
		default:
			h.logger.WithError(err).Error("Submission creation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create submission"})
		}
		return
	}

	c.JSON(http.StatusCreated, submissionResponse(sub))
}

func (h *submissionHandler) getByReference(c *gin.Context) {
	sub, err := h.subSvc.GetByReference(c.Request.Context(), c.Param("ref"))
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

type followUpRequest struct {
	Question string `json:"question" binding:"required"`
}

func (h *submissionHandler) followUp(c *gin.Context) {
	var req followUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.subSvc.FollowUp(c.Request.Context(), c.Param("ref"), req.Question)
	if err != nil {
		if err == idb.ErrSubmissionNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
			return
		}
		h.logger.WithError(err).Error("Follow-up generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate follow-up assistance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":       rec.Text,
		"disclaimer": rec.Disclaimer,
	})
}

func (h *submissionHandler) usage(c *gin.Context) {
	teacherID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid teacher id"})
		return
	}

	status, err := h.usageSvc.CheckUsageLimit(c.Request.Context(), teacherID)
	if err != nil {
		if err == idb.ErrTeacherNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "teacher not found"})
			return
		}
		h.logger.WithError(err).Error("Usage check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check usage"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"can_submit": status.CanSubmit,
		"used":       status.Used,
		"limit":      status.Limit,
	})
}

// submissionResponse flattens the entity into a JSON-friendly shape.
func submissionResponse(sub *submission.Submission) gin.H {
	resp := gin.H{
		"reference":            sub.Reference,
		"teacher_id":           sub.TeacherID,
		"student_first_name":   sub.StudentFirstName,
		"student_last_initial": sub.StudentLastInitial,
		"grade_level":          sub.GradeLevel,
		"task_type":            sub.TaskType,
		"severity":             sub.Severity,
		"concern_types":        sub.ConcernTypes,
		"concern_description":  sub.ConcernDescription,
		"actions_taken":        sub.ActionsTaken,
		"urgent":               sub.UrgentFlag,
		"status":               sub.Status,
		"disclaimer_attached":  sub.DisclaimerAttached,
		"created_at":           sub.CreatedAt.Format(time.RFC3339),
	}
	if sub.StudentAge.Valid {
		resp["student_age"] = sub.StudentAge.Int32
	}
	if sub.AIDraft.Valid {
		resp["ai_draft"] = sub.AIDraft.String
	}
	if sub.ReviewedText.Valid {
		resp["reviewed_text"] = sub.ReviewedText.String
	}
	if sub.SentText.Valid {
		resp["sent_text"] = sub.SentText.String
	}
	if sub.AutoSendTime.Valid {
		resp["auto_send_time"] = sub.AutoSendTime.Time.Format(time.RFC3339)
	}
	if sub.SentAt.Valid {
		resp["sent_at"] = sub.SentAt.Time.Format(time.RFC3339)
	}
	if sub.AdminReviewedBy.Valid {
		resp["admin_reviewed_by"] = sub.AdminReviewedBy.String
	}
	return resp
}
