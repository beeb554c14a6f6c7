package controllers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"bankeu-api/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/blake2b"
)

// TrackingSource is implemented by services.TrackingService.
type TrackingSource interface {
	Summary(ctx context.Context, year int) (*services.TrackingSummary, error)
}

type TrackingController struct {
	source TrackingSource
	maxAge int
}

func NewTrackingController(source TrackingSource, maxAgeSeconds int) *TrackingController {
	return &TrackingController{source: source, maxAge: maxAgeSeconds}
}

// GetTrackingSummary serves the public dashboard. The ETag covers the
// aggregates only, so an unchanged year answers 304 regardless of when it was computed.
func (tc *TrackingController) GetTrackingSummary(c *gin.Context) {
	year, ok := yearQuery(c)
	if !ok {
		return
	}
	summary, err := tc.source.Summary(c.Request.Context(), year)
	if err != nil {
		respondError(c, err)
		return
	}

	etag, err := summaryETag(summary)
	if err == nil {
		c.Header("ETag", etag)
		if tc.maxAge > 0 {
			c.Header("Cache-Control", "public, max-age="+strconv.Itoa(tc.maxAge))
		}
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}

func summaryETag(summary *services.TrackingSummary) (string, error) {
	payload, err := json.Marshal(struct {
		Tahun     int                          `json:"tahun"`
		Kecamatan []services.TrackingKecamatan `json:"kecamatan"`
		Total     services.TrackingTotals      `json:"total"`
	}{summary.Tahun, summary.Kecamatan, summary.Total})
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(payload)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}
