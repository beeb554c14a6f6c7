package routes

import (
	"bankeu-api/controllers"
	"bankeu-api/middleware"
	"bankeu-api/models"
	"bankeu-api/services"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the controllers mounted by SetupRoutes.
type Handlers struct {
	Proposals      *controllers.ProposalController
	Assignments    *controllers.AssignmentController
	Questionnaires *controllers.QuestionnaireController
	Tracking       *controllers.TrackingController
	// Auth defaults to middleware.AuthMiddleware when nil.
	Auth gin.HandlerFunc
}

func SetupRoutes(router *gin.Engine, h Handlers) {
	auth := h.Auth
	if auth == nil {
		auth = middleware.AuthMiddleware()
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		setupPublicRoutes(v1, h)

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(auth)
		{
			proposals := protected.Group("/proposals")
			{
				proposals.GET("/:id", h.Proposals.GetProposal)
				proposals.GET("/:id/history", h.Proposals.GetHistory)

				// Only village accounts draft and submit to dinas/kecamatan
				proposals.POST("", middleware.RequireRole(services.RoleDesa), h.Proposals.CreateProposal)
				proposals.POST("/:id/submit-to-dinas", h.Proposals.SubmitTo(models.AuthorityDinas))
				proposals.POST("/:id/submit-to-kecamatan", h.Proposals.SubmitTo(models.AuthorityKecamatan))
				proposals.POST("/:id/submit-to-dpmd", h.Proposals.SubmitTo(models.AuthorityDPMD))

				proposals.POST("/:id/review/:authority/start", h.Proposals.StartReview)
				proposals.PATCH("/:id/verify/:authority", h.Proposals.Verify)

				proposals.GET("/:id/questionnaire", h.Questionnaires.GetQuestionnaire)
				proposals.POST("/:id/questionnaire", h.Questionnaires.SaveQuestionnaire)
				proposals.GET("/:id/questionnaire/complete", h.Questionnaires.Completion)
			}

			// Verifier assignment registry
			authorities := protected.Group("/authorities/:type/:authorityId")
			{
				authorities.GET("/available-villages", h.Assignments.AvailableVillages)
				authorities.GET("/coverage", h.Assignments.Coverage)
				authorities.GET("/verifiers/:verifierId/villages", h.Assignments.ListVillages)
				authorities.POST("/verifiers/:verifierId/villages", h.Assignments.AssignVillages)
				authorities.DELETE("/verifiers/:verifierId/villages", h.Assignments.UnassignVillages)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"success": false, "error": "Endpoint not found"})
	})
}
