package controllers

import (
	"context"
	"net/http"

	"bankeu-api/models"
	"bankeu-api/services"

	"github.com/gin-gonic/gin"
)

// AssignmentRegistry is implemented by services.AssignmentService.
type AssignmentRegistry interface {
	Assign(ctx context.Context, actor services.Actor, ref services.AuthorityRef, verifierID uint, desaIDs []uint) (*services.AssignResult, error)
	Unassign(ctx context.Context, actor services.Actor, ref services.AuthorityRef, verifierID uint, desaIDs []uint) (int64, error)
	AssignedVillages(ctx context.Context, actor services.Actor, ref services.AuthorityRef, verifierID uint) ([]services.AssignedVillage, error)
	AvailableVillages(ctx context.Context, actor services.Actor, ref services.AuthorityRef) ([]services.AvailableVillage, error)
	CoverageStats(ctx context.Context, actor services.Actor, ref services.AuthorityRef, year int) (*services.CoverageReport, error)
}

type AssignmentController struct {
	registry AssignmentRegistry
}

func NewAssignmentController(registry AssignmentRegistry) *AssignmentController {
	return &AssignmentController{registry: registry}
}

type villageIDsRequest struct {
	DesaIDs []uint `json:"desa_ids"`
	// VillageIDs is accepted for older clients.
	VillageIDs []uint `json:"villageIds"`
}

func (r villageIDsRequest) ids() []uint {
	if len(r.DesaIDs) > 0 {
		return r.DesaIDs
	}
	return r.VillageIDs
}

func authorityRef(c *gin.Context) (services.AuthorityRef, bool) {
	t, ok := authorityParam(c, "type")
	if !ok {
		return services.AuthorityRef{}, false
	}
	id, ok := uintParam(c, "authorityId")
	if !ok {
		return services.AuthorityRef{}, false
	}
	if t == models.AuthorityDPMD && id != models.DPMDAuthorityID {
		badRequest(c, "dpmd authority id must be 1")
		return services.AuthorityRef{}, false
	}
	return services.AuthorityRef{Type: t, ID: id}, true
}

func (ac *AssignmentController) ListVillages(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	ref, ok := authorityRef(c)
	if !ok {
		return
	}
	verifierID, ok := uintParam(c, "verifierId")
	if !ok {
		return
	}
	rows, err := ac.registry.AssignedVillages(c.Request.Context(), actor, ref, verifierID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "villages": rows, "total": len(rows)})
}

// AssignVillages answers 409 with the full conflict list when any village is
// already held by another verifier.
func (ac *AssignmentController) AssignVillages(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	ref, ok := authorityRef(c)
	if !ok {
		return
	}
	verifierID, ok := uintParam(c, "verifierId")
	if !ok {
		return
	}
	var req villageIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	result, err := ac.registry.Assign(c.Request.Context(), actor, ref, verifierID, req.ids())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assigned": result.Assigned, "already_held": result.AlreadyHeld})
}

func (ac *AssignmentController) UnassignVillages(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	ref, ok := authorityRef(c)
	if !ok {
		return
	}
	verifierID, ok := uintParam(c, "verifierId")
	if !ok {
		return
	}
	var req villageIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	removed, err := ac.registry.Unassign(c.Request.Context(), actor, ref, verifierID, req.ids())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
}

func (ac *AssignmentController) AvailableVillages(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	ref, ok := authorityRef(c)
	if !ok {
		return
	}
	rows, err := ac.registry.AvailableVillages(c.Request.Context(), actor, ref)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "villages": rows, "total": len(rows)})
}

func (ac *AssignmentController) Coverage(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	ref, ok := authorityRef(c)
	if !ok {
		return
	}
	year, ok := yearQuery(c)
	if !ok {
		return
	}
	report, err := ac.registry.CoverageStats(c.Request.Context(), actor, ref, year)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "coverage": report})
}
