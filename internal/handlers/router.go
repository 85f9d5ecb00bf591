package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/config"
	"github.com/SAP-F-2025/classroom-service/internal/metrics"
	"github.com/SAP-F-2025/classroom-service/internal/services"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

type HandlerManager struct {
	authHandler       *AuthHandler
	platformHandler   *PlatformHandler
	courseHandler     *CourseHandler
	contentHandler    *ContentHandler
	teamHandler       *TeamHandler
	queryHandler      *QueryHandler
	dashboardHandler  *DashboardHandler
	extractionHandler *ExtractionHandler
	healthHandler     *HealthHandler
	metrics           *metrics.Metrics
}

// NewHandlerManager builds every handler from an initialized service manager.
// m may be nil, in which case /metrics is not served.
func NewHandlerManager(
	serviceManager services.ServiceManager,
	session config.SessionConfig,
	checks map[string]HealthCheck,
	m *metrics.Metrics,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		authHandler:       NewAuthHandler(serviceManager.Session(), session, logger),
		platformHandler:   NewPlatformHandler(serviceManager.Platform(), logger),
		courseHandler:     NewCourseHandler(serviceManager.Course(), serviceManager.Enrollment(), logger),
		contentHandler:    NewContentHandler(serviceManager.Class(), serviceManager.Assignment(), serviceManager.Submission(), logger),
		teamHandler:       NewTeamHandler(serviceManager.Team(), serviceManager.Sprint(), logger),
		queryHandler:      NewQueryHandler(serviceManager.Query(), logger),
		dashboardHandler:  NewDashboardHandler(serviceManager.Dashboard(), logger),
		extractionHandler: NewExtractionHandler(serviceManager.Extraction(), logger),
		healthHandler:     NewHealthHandler(checks, logger),
		metrics:           m,
	}
}

// SetupRoutes sets up all API routes. Authorization is decided per resource
// by the services, the router only requires a session.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	// Session routes are reachable without a session
	session := v1.Group("/auth")
	{
		session.POST("/session", hm.authHandler.Login)
		session.DELETE("/session", hm.authHandler.Logout)
	}

	api := v1.Group("")
	api.Use(hm.authHandler.RequireSession())
	{
		api.GET("/auth/me", hm.authHandler.Me)
		api.GET("/dashboard", hm.dashboardHandler.GetDashboard)

		// Platform administration
		institutions := api.Group("/institutions")
		{
			institutions.POST("", hm.platformHandler.CreateInstitution)
			institutions.GET("", hm.platformHandler.ListInstitutions)
			institutions.GET("/:id", hm.platformHandler.GetInstitution)
			institutions.PUT("/:id", hm.platformHandler.UpdateInstitution)
			institutions.DELETE("/:id", hm.platformHandler.DeleteInstitution)

			institutions.GET("/:id/roles", hm.platformHandler.ListInstitutionRoles)
			institutions.POST("/:id/roles", hm.platformHandler.AssignInstitutionRole)
			institutions.DELETE("/:id/roles/:role_id", hm.platformHandler.RemoveInstitutionRole)

			institutions.GET("/:id/courses", hm.courseHandler.ListInstitutionCourses)
		}

		whitelist := api.Group("/whitelist")
		{
			whitelist.GET("", hm.platformHandler.ListWhitelist)
			whitelist.POST("", hm.platformHandler.AddToWhitelist)
			whitelist.DELETE("/:id", hm.platformHandler.RemoveFromWhitelist)
		}

		profiles := api.Group("/profiles")
		{
			profiles.GET("", hm.platformHandler.ListProfiles)
			profiles.PUT("/:id/roles", hm.platformHandler.SetGlobalRoles)
		}

		// Courses and everything scoped to one course
		courses := api.Group("/courses")
		{
			courses.POST("", hm.courseHandler.CreateCourse)
			courses.GET("/mine", hm.courseHandler.ListMyCourses)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.PUT("/:id", hm.courseHandler.UpdateCourse)
			courses.PUT("/:id/status", hm.courseHandler.UpdateCourseStatus)
			courses.DELETE("/:id", hm.courseHandler.DeleteCourse)

			courses.GET("/:id/enrollments", hm.courseHandler.ListEnrollments)
			courses.POST("/:id/enrollments", hm.courseHandler.Enroll)
			courses.POST("/:id/enrollments/bulk", hm.courseHandler.BulkEnroll)
			courses.POST("/:id/enrollments/import", hm.courseHandler.ImportRoster)
			courses.PUT("/:id/enrollments/:enrollment_id/role", hm.courseHandler.UpdateEnrollmentRole)
			courses.PUT("/:id/enrollments/:enrollment_id/team", hm.courseHandler.AssignTeam)
			courses.DELETE("/:id/enrollments/:enrollment_id", hm.courseHandler.RemoveEnrollment)

			courses.GET("/:id/classes", hm.contentHandler.ListClasses)
			courses.POST("/:id/classes", hm.contentHandler.CreateClass)
			courses.GET("/:id/assignments", hm.contentHandler.ListAssignments)
			courses.POST("/:id/assignments", hm.contentHandler.CreateAssignment)
			courses.GET("/:id/gradebook", hm.contentHandler.ExportGradebook)

			courses.GET("/:id/teams", hm.teamHandler.ListTeams)
			courses.POST("/:id/teams", hm.teamHandler.CreateTeam)
			courses.GET("/:id/sprints", hm.teamHandler.ListSprints)
			courses.POST("/:id/sprints", hm.teamHandler.CreateSprint)

			courses.GET("/:id/queries", hm.queryHandler.ListQueries)
			courses.POST("/:id/queries", hm.queryHandler.CreateQuery)

			courses.GET("/:id/extractions", hm.extractionHandler.ListRuns)
			courses.POST("/:id/extract/resources", hm.extractionHandler.ExtractResources)
			courses.POST("/:id/extract/assignments", hm.extractionHandler.ExtractAssignments)
			courses.POST("/:id/extract/roster", hm.extractionHandler.ExtractRoster)
			courses.POST("/:id/extract/name-matches", hm.extractionHandler.MatchNames)
		}

		classes := api.Group("/classes")
		{
			classes.GET("/:class_id", hm.contentHandler.GetClass)
			classes.PUT("/:class_id", hm.contentHandler.UpdateClass)
			classes.DELETE("/:class_id", hm.contentHandler.DeleteClass)
			classes.POST("/:class_id/resources", hm.contentHandler.AddClassLink)
			classes.POST("/:class_id/resources/upload", hm.contentHandler.UploadClassFile)
			classes.DELETE("/:class_id/resources/:resource_id", hm.contentHandler.DeleteClassResource)
		}

		assignments := api.Group("/assignments")
		{
			assignments.GET("/:assignment_id", hm.contentHandler.GetAssignment)
			assignments.PUT("/:assignment_id", hm.contentHandler.UpdateAssignment)
			assignments.DELETE("/:assignment_id", hm.contentHandler.DeleteAssignment)
			assignments.POST("/:assignment_id/resources", hm.contentHandler.AddAssignmentLink)
			assignments.POST("/:assignment_id/resources/upload", hm.contentHandler.UploadAssignmentFile)
			assignments.DELETE("/:assignment_id/resources/:resource_id", hm.contentHandler.DeleteAssignmentResource)

			// Submissions and grading
			assignments.GET("/:assignment_id/submissions", hm.contentHandler.ListSubmissions)
			assignments.POST("/:assignment_id/submissions", hm.contentHandler.Submit)
			assignments.PUT("/:assignment_id/grades", hm.contentHandler.SetGrade)
			assignments.PUT("/:assignment_id/grades/bulk", hm.contentHandler.BulkGrade)
		}

		teams := api.Group("/teams")
		{
			teams.GET("/:team_id", hm.teamHandler.GetTeam)
			teams.PUT("/:team_id", hm.teamHandler.UpdateTeam)
			teams.DELETE("/:team_id", hm.teamHandler.DeleteTeam)
			teams.GET("/:team_id/messages", hm.teamHandler.ListMessages)
			teams.POST("/:team_id/messages", hm.teamHandler.PostMessage)
		}

		sprints := api.Group("/sprints")
		{
			sprints.PUT("/:sprint_id", hm.teamHandler.UpdateSprint)
			sprints.DELETE("/:sprint_id", hm.teamHandler.DeleteSprint)
			sprints.GET("/:sprint_id/reviews", hm.teamHandler.ListReviews)
			sprints.PUT("/:sprint_id/reviews", hm.teamHandler.UpsertReview)
		}

		queries := api.Group("/queries")
		{
			queries.GET("/:query_id", hm.queryHandler.GetThread)
			queries.DELETE("/:query_id", hm.queryHandler.DeleteQuery)
			queries.POST("/:query_id/responses", hm.queryHandler.Respond)
			queries.PUT("/:query_id/resolved", hm.queryHandler.SetResolved)
		}
	}

	router.GET("/health", hm.healthHandler.Health)
	if hm.metrics != nil {
		router.GET("/metrics", gin.WrapH(hm.metrics.Handler()))
	}
}
