package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/skillradar/internal/api/handlers"
	"github.com/yoockh/skillradar/internal/api/middleware"
	"github.com/yoockh/skillradar/internal/models"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
)

type RateLimits struct {
	Limiter middleware.Limiter
	Auth    int
	Import  int
	Window  time.Duration
}

type Deps struct {
	JWTSecret []byte
	JWTIssuer string
	Profiles  pgrepo.ProfileRepository
	Logger    *logrus.Logger
	Limits    RateLimits

	Auth        *handlers.AuthHandler
	Users       *handlers.UserHandler
	Imports     *handlers.ImportHandler
	Locations   *handlers.LocationHandler
	Taxonomy    *handlers.TaxonomyHandler
	Qualifiers  *handlers.QualifierHandler
	JobProfiles *handlers.JobProfileHandler
	Evaluations *handlers.EvaluationHandler
	Settings    *handlers.SettingHandler
	Uploads     *handlers.UploadHandler
	Profile     *handlers.ProfileHandler
	WS          *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	lim := d.Limits
	authLimit := middleware.RateLimit(lim.Limiter, d.Logger, "auth", lim.Auth, lim.Window, middleware.ByIP)
	importLimit := middleware.RateLimit(lim.Limiter, d.Logger, "import", lim.Import, lim.Window, middleware.ByUser)

	// Public
	auth := r.Group("/auth", authLimit)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/password/forgot", d.Auth.ForgotPassword)
	auth.POST("/password/reset", d.Auth.ResetPassword)

	protected := []gin.HandlerFunc{
		middleware.JWTAuth(d.JWTSecret, d.JWTIssuer),
		middleware.LoadCaller(d.Profiles, d.Logger),
	}
	api := r.Group("/api", protected...)

	admin := middleware.RequireAdmin()
	editors := middleware.RequireRole(models.RoleSuperAdmin, models.RoleSkillMaster)
	evaluators := middleware.RequireEvaluator()

	// Own profile
	api.GET("/profile/me", d.Profile.Me)
	api.PUT("/profile/me", d.Profile.Update)
	api.POST("/profile/avatar", d.Uploads.Avatar)
	api.GET("/me/evaluations", d.Evaluations.ListMine)

	// Users and locations
	api.POST("/users", admin, d.Users.Create)
	api.PATCH("/users", admin, d.Users.Update)
	api.GET("/users", evaluators, d.Users.List)
	api.GET("/users/:id", d.Users.Get)
	api.GET("/team", middleware.RequireRole(models.RoleManager), d.Users.Team)
	api.POST("/users/import", admin, importLimit, d.Imports.Users)
	api.GET("/imports", admin, d.Imports.Reports)
	api.GET("/imports/:id", admin, d.Imports.Report)

	api.GET("/locations", d.Locations.List)
	api.POST("/locations", admin, d.Locations.Create)
	api.POST("/locations/import", admin, importLimit, d.Imports.Locations)

	workers := api.Group("/workers/:id")
	workers.GET("/job-profiles", d.Users.JobProfiles)
	workers.POST("/job-profiles", evaluators, d.Users.AssignJobProfile)
	workers.DELETE("/job-profiles/:job_profile_id", evaluators, d.Users.UnassignJobProfile)
	workers.GET("/evaluations", d.Evaluations.ListForWorker)

	// Taxonomy: read for everyone, write for editors
	api.GET("/modules", d.Taxonomy.Modules)
	api.GET("/modules/:id", d.Taxonomy.Module)
	api.POST("/modules", editors, d.Taxonomy.CreateModule)
	api.PUT("/modules/:id", editors, d.Taxonomy.UpdateModule)
	api.DELETE("/modules/:id", editors, d.Taxonomy.DeleteModule)

	api.GET("/competencies", d.Taxonomy.Competencies)
	api.POST("/competencies", editors, d.Taxonomy.CreateCompetency)
	api.PUT("/competencies/:id", editors, d.Taxonomy.UpdateCompetency)
	api.DELETE("/competencies/:id", editors, d.Taxonomy.DeleteCompetency)

	api.GET("/qualifiers", d.Qualifiers.List)
	api.GET("/qualifiers/:id", d.Qualifiers.Get)
	api.POST("/qualifiers", editors, d.Qualifiers.Create)
	api.PUT("/qualifiers/:id", editors, d.Qualifiers.Update)
	api.DELETE("/qualifiers/:id", editors, d.Qualifiers.Delete)

	api.GET("/job-profiles", d.JobProfiles.List)
	api.GET("/job-profiles/:id", d.JobProfiles.Get)
	api.POST("/job-profiles", editors, d.JobProfiles.Create)
	api.PUT("/job-profiles/:id", editors, d.JobProfiles.Update)
	api.DELETE("/job-profiles/:id", editors, d.JobProfiles.Delete)
	api.PUT("/job-profiles/:id/modules", editors, d.JobProfiles.SetModules)
	api.PUT("/job-profiles/:id/qualifiers", editors, d.JobProfiles.SetQualifiers)
	api.PUT("/job-profiles/:id/competencies", editors, d.JobProfiles.SetCompetencies)

	// Evaluations; team scoping is enforced by the service
	api.POST("/evaluations", evaluators, d.Evaluations.Create)
	api.POST("/evaluations/scores", d.Evaluations.BatchScores)
	api.GET("/evaluations/:id", d.Evaluations.Get)
	api.PUT("/evaluations/:id/results", evaluators, d.Evaluations.SaveResult)
	api.POST("/evaluations/:id/complete", evaluators, d.Evaluations.Complete)
	api.GET("/evaluations/:id/scores", d.Evaluations.Scores)
	api.GET("/evaluations/:id/history", d.Evaluations.History)
	api.GET("/evaluations/:id/summary", d.Evaluations.Summary)

	// Settings
	api.GET("/settings", d.Settings.All)
	api.PUT("/settings", admin, d.Settings.Put)
	api.POST("/settings/logo", admin, d.Uploads.Logo)

	// WebSocket
	ws := r.Group("/ws", protected...)
	ws.GET("/evaluations/:id", d.WS.EvaluationWS)
}
