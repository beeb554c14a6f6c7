package controllers

import (
	"context"
	"net/http"

	"bankeu-api/models"
	"bankeu-api/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProposalWorkflow is implemented by services.ProposalService.
type ProposalWorkflow interface {
	Get(ctx context.Context, actor services.Actor, id uint) (*models.Proposal, error)
	History(ctx context.Context, actor services.Actor, id uint) ([]models.ProposalStatusHistory, error)
	CreateDraft(ctx context.Context, actor services.Actor, in services.DraftInput) (*models.Proposal, error)
	Submit(ctx context.Context, actor services.Actor, id uint, to models.AuthorityType) (*services.TransitionResult, error)
	StartReview(ctx context.Context, actor services.Actor, id uint, authority models.AuthorityType) (*services.TransitionResult, error)
	Decide(ctx context.Context, in services.DecideInput) (*services.TransitionResult, error)
}

type ProposalController struct {
	workflow ProposalWorkflow
}

func NewProposalController(workflow ProposalWorkflow) *ProposalController {
	return &ProposalController{workflow: workflow}
}

type createProposalRequest struct {
	KegiatanID           uint            `json:"kegiatan_id" binding:"required"`
	TahunAnggaran        int             `json:"tahun_anggaran" binding:"required"`
	Judul                string          `json:"judul" binding:"required"`
	NamaKegiatanSpesifik string          `json:"nama_kegiatan_spesifik"`
	Volume               string          `json:"volume"`
	Lokasi               string          `json:"lokasi"`
	AnggaranUsulan       decimal.Decimal `json:"anggaran_usulan"`
	FileProposal         string          `json:"file_proposal"`
}

type verifyRequest struct {
	Action  string `json:"action" binding:"required"`
	Catatan string `json:"catatan"`
	Version *uint  `json:"version"`
}

// GetProposal returns a proposal with its derived position.
func (pc *ProposalController) GetProposal(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	p, err := pc.workflow.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"proposal": p,
		"position": services.PositionOf(*p),
	})
}

// GetHistory lists the proposal's recorded transitions.
func (pc *ProposalController) GetHistory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	rows, err := pc.workflow.History(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": rows})
}

// CreateProposal stores a draft for the caller's village.
func (pc *ProposalController) CreateProposal(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req createProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	p, err := pc.workflow.CreateDraft(c.Request.Context(), actor, services.DraftInput{
		KegiatanID:           req.KegiatanID,
		TahunAnggaran:        req.TahunAnggaran,
		Judul:                req.Judul,
		NamaKegiatanSpesifik: req.NamaKegiatanSpesifik,
		Volume:               req.Volume,
		Lokasi:               req.Lokasi,
		AnggaranUsulan:       req.AnggaranUsulan,
		FileProposal:         req.FileProposal,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "proposal": p})
}

// SubmitTo returns a handler that hands the proposal to the given authority.
func (pc *ProposalController) SubmitTo(to models.AuthorityType) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		result, err := pc.workflow.Submit(c.Request.Context(), actor, id, to)
		if err != nil {
			respondError(c, err)
			return
		}
		writeTransition(c, result)
	}
}

// StartReview opens the review at the authority in the path.
func (pc *ProposalController) StartReview(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	authority, ok := authorityParam(c, "authority")
	if !ok {
		return
	}
	result, err := pc.workflow.StartReview(c.Request.Context(), actor, id, authority)
	if err != nil {
		respondError(c, err)
		return
	}
	writeTransition(c, result)
}

// Verify records the authority's verdict.
func (pc *ProposalController) Verify(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	authority, ok := authorityParam(c, "authority")
	if !ok {
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := pc.workflow.Decide(c.Request.Context(), services.DecideInput{
		ProposalID:      id,
		Authority:       authority,
		Actor:           actor,
		Verdict:         models.ReviewStatus(req.Action),
		Catatan:         req.Catatan,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	writeTransition(c, result)
}

func writeTransition(c *gin.Context, result *services.TransitionResult) {
	body := gin.H{
		"success":          true,
		"proposal":         result.Proposal,
		"position":         services.PositionOf(result.Proposal),
		"status":           result.Proposal.Status,
		"returned_to_desa": result.ReturnedToDesa,
	}
	if len(result.Warnings) > 0 {
		body["warnings"] = result.Warnings
	}
	c.JSON(http.StatusOK, body)
}
