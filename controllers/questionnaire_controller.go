package controllers

import (
	"context"
	"net/http"

	"bankeu-api/models"
	"bankeu-api/services"

	"github.com/gin-gonic/gin"
)

// QuestionnaireStore is implemented by services.QuestionnaireService.
type QuestionnaireStore interface {
	Upsert(ctx context.Context, actor services.Actor, in services.QuestionnaireInput) (*models.QuestionnaireResponse, error)
	Get(ctx context.Context, actor services.Actor, proposalID uint, authority models.AuthorityType, role string, verifierID uint) (*models.QuestionnaireResponse, error)
	List(ctx context.Context, actor services.Actor, proposalID uint, authority models.AuthorityType) ([]models.QuestionnaireResponse, error)
	IsStageComplete(ctx context.Context, actor services.Actor, proposalID uint, authority models.AuthorityType) (*services.StageCompletion, error)
}

type QuestionnaireController struct {
	store QuestionnaireStore
}

func NewQuestionnaireController(store QuestionnaireStore) *QuestionnaireController {
	return &QuestionnaireController{store: store}
}

type saveQuestionnaireRequest struct {
	Items       []models.QuestionnaireItem `json:"items" binding:"required"`
	Rekomendasi models.Rekomendasi         `json:"rekomendasi" binding:"required"`
	Catatan     string                     `json:"catatan"`
	Finalize    bool                       `json:"finalize"`
}

func questionnaireAuthority(c *gin.Context) (models.AuthorityType, bool) {
	t := models.AuthorityType(c.Query("authority"))
	if !t.Valid() {
		badRequest(c, "authority must be one of dinas, kecamatan, dpmd")
		return "", false
	}
	return t, true
}

// verifierQuery accepts verifier_id or verifierId; the caller's own verifier
// account is the default.
func verifierQuery(c *gin.Context, actor services.Actor) (uint, bool) {
	name := "verifier_id"
	if c.Query(name) == "" {
		name = "verifierId"
	}
	id, ok := uintQuery(c, name)
	if !ok {
		return 0, false
	}
	if id == 0 {
		id = actor.VerifierID
	}
	return id, true
}

// GetQuestionnaire returns a single checklist when role is given, or every
// checklist of the authority otherwise.
func (qc *QuestionnaireController) GetQuestionnaire(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	authority, ok := questionnaireAuthority(c)
	if !ok {
		return
	}

	role := c.Query("role")
	if role == "" {
		rows, err := qc.store.List(c.Request.Context(), actor, id, authority)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "questionnaires": rows})
		return
	}

	verifierID, ok := verifierQuery(c, actor)
	if !ok {
		return
	}
	resp, err := qc.store.Get(c.Request.Context(), actor, id, authority, role, verifierID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "questionnaire": resp})
}

func (qc *QuestionnaireController) SaveQuestionnaire(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	authority, ok := questionnaireAuthority(c)
	if !ok {
		return
	}
	verifierID, ok := verifierQuery(c, actor)
	if !ok {
		return
	}
	var req saveQuestionnaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := qc.store.Upsert(c.Request.Context(), actor, services.QuestionnaireInput{
		ProposalID:  id,
		Authority:   authority,
		Role:        c.Query("role"),
		VerifierID:  verifierID,
		Items:       req.Items,
		Rekomendasi: req.Rekomendasi,
		Catatan:     req.Catatan,
		Finalize:    req.Finalize,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "questionnaire": resp})
}

func (qc *QuestionnaireController) Completion(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	authority, ok := questionnaireAuthority(c)
	if !ok {
		return
	}
	result, err := qc.store.IsStageComplete(c.Request.Context(), actor, id, authority)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "completion": result})
}
