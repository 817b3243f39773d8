package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
)

// ExportService is the part of service.ExportService the handler needs.
type ExportService interface {
	GetBreakdown(ctx context.Context, filters domain.BreakdownFilters) (*domain.ExportBreakdown, error)
	Estimate(ctx context.Context, req domain.EstimateRequest) (domain.CostComponents, error)
	GetRates(ctx context.Context) (domain.RateSnapshot, error)
	InvalidateRates(ctx context.Context) error
}

type ExportHandler struct {
	service ExportService
}

func NewExportHandler(service ExportService) *ExportHandler {
	return &ExportHandler{service: service}
}

func (h *ExportHandler) parseFilters(c *gin.Context) domain.BreakdownFilters {
	return domain.BreakdownFilters{
		Start:       strings.TrimSpace(c.Query("start")),
		End:         strings.TrimSpace(c.Query("end")),
		Zone:        strings.TrimSpace(c.Query("zone")),
		Destination: strings.TrimSpace(c.Query("destination")),
		Incoterm:    strings.TrimSpace(c.Query("incoterm")),
		ClientID:    strings.TrimSpace(c.Query("client_id")),
		ProductID:   strings.TrimSpace(c.Query("product_id")),
	}
}

func (h *ExportHandler) GetBreakdown(c *gin.Context) {
	result, err := h.service.GetBreakdown(c.Request.Context(), h.parseFilters(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute breakdown", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Estimate prices export costs for {"base": 1000, "territory": "GP"}. An
// empty or null territory prices against the first row of each rate table.
func (h *ExportHandler) Estimate(c *gin.Context) {
	var req domain.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid estimate request", "details": err.Error()})
		return
	}
	req.Territory = strings.TrimSpace(req.Territory)

	costs, err := h.service.Estimate(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to estimate costs", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"base":      req.Base,
		"territory": req.Territory,
		"costs":     costs,
	})
}

func (h *ExportHandler) GetRates(c *gin.Context) {
	snapshot, err := h.service.GetRates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rates", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *ExportHandler) InvalidateRates(c *gin.Context) {
	if err := h.service.InvalidateRates(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate rates", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}
