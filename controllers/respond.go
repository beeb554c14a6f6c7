package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"bankeu-api/middleware"
	"bankeu-api/models"
	"bankeu-api/services"

	"github.com/gin-gonic/gin"
)

var statusByKind = map[services.ErrorKind]int{
	services.KindInvalidTransition:      http.StatusBadRequest,
	services.KindPrecursorNotApproved:   http.StatusBadRequest,
	services.KindNotAuthorized:          http.StatusForbidden,
	services.KindNotFound:               http.StatusNotFound,
	services.KindAssignmentConflict:     http.StatusConflict,
	services.KindConcurrentModification: http.StatusConflict,
	services.KindAlreadySubmitted:       http.StatusConflict,
	services.KindValidation:             http.StatusUnprocessableEntity,
}

// respondError writes a workflow error with its kind, or a generic 500.
func respondError(c *gin.Context, err error) {
	var werr *services.Error
	if errors.As(err, &werr) {
		status, ok := statusByKind[werr.Kind]
		if !ok {
			status = http.StatusBadRequest
		}
		body := gin.H{
			"success": false,
			"kind":    werr.Kind,
			"error":   werr.Message,
		}
		if len(werr.Conflicts) > 0 {
			body["conflicts"] = werr.Conflicts
		}
		c.JSON(status, body)
		return
	}

	log.Printf("Error handling %s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "kind": services.KindValidation, "error": msg})
}

func requireActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
		return services.Actor{}, false
	}
	return actor, true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

func uintQuery(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

func yearQuery(c *gin.Context) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		raw = c.Query("tahun")
	}
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year <= 0 {
		badRequest(c, "invalid year")
		return 0, false
	}
	return year, true
}

func authorityParam(c *gin.Context, name string) (models.AuthorityType, bool) {
	t := models.AuthorityType(c.Param(name))
	if !t.Valid() {
		badRequest(c, "unknown authority "+strconv.Quote(string(t)))
		return "", false
	}
	return t, true
}
