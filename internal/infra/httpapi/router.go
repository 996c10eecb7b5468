package httpapi

import (
	"concern2care/internal/app"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the HTTP surface: the public classroom endpoints and the
// admin console endpoints behind an API-key check. Full authentication lives
// in the surrounding platform, not here.
func NewRouter(
	subSvc *app.SubmissionService,
	adminSvc *app.AdminService,
	usageSvc *app.UsageService,
	adminAPIKey string,
	environment string,
	logger *logrus.Entry,
) *gin.Engine {
	if environment == "production" || environment == "staging" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	sh := newSubmissionHandler(subSvc, usageSvc, logger)
	classroom := r.Group("/api/classroom")
	{
		classroom.POST("/submissions", sh.create)
		classroom.GET("/submissions/:ref", sh.getByReference)
		classroom.POST("/submissions/:ref/followup", sh.followUp)
		classroom.GET("/teachers/:id/usage", sh.usage)
	}

	ah := newAdminHandler(adminSvc, logger)
	admin := r.Group("/api/admin", requireAdminKey(adminAPIKey))
	{
		admin.POST("/teachers", ah.enrollTeacher)
		admin.GET("/teachers", ah.listTeachers)
		admin.DELETE("/teachers/:id", ah.deactivateTeacher)
		admin.POST("/teachers/:id/reset-usage", ah.resetUsage)

		admin.GET("/submissions/urgent", ah.listUrgent)
		admin.GET("/submissions/:id", ah.getSubmission)
		admin.POST("/submissions/:id/review", ah.reviewSubmission)
		admin.POST("/submissions/:id/approve", ah.approveSubmission)
		admin.POST("/submissions/:id/hold", ah.holdSubmission)
		admin.POST("/submissions/:id/cancel", ah.cancelSubmission)
		admin.POST("/submissions/:id/send", ah.sendSubmission)

		admin.GET("/notifications", ah.listNotifications)
		admin.POST("/notifications/:id/read", ah.markNotificationRead)
		admin.POST("/notifications/:id/resolve", ah.markNotificationResolved)
	}

	return r
}

func requireAdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Key") != key {
			c.AbortWithStatusJSON(401, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
