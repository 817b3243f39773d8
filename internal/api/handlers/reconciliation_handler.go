package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
)

type ReconciliationService interface {
	Run(ctx context.Context, filter domain.ReconciliationFilter) (*domain.ReconciliationResult, error)
	GetRisks(ctx context.Context, filter domain.ReconciliationFilter, tag domain.RiskTag) ([]domain.ReconciliationCase, error)
	GetSummary(ctx context.Context, filter domain.ReconciliationFilter) (*domain.CaseAggregates, error)
}

type ReconciliationHandler struct {
	service ReconciliationService
}

func NewReconciliationHandler(service ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{service: service}
}

func (h *ReconciliationHandler) parseFilter(c *gin.Context) domain.ReconciliationFilter {
	return domain.ReconciliationFilter{
		From:     strings.TrimSpace(c.Query("from")),
		To:       strings.TrimSpace(c.Query("to")),
		ClientID: strings.TrimSpace(c.Query("client_id")),
	}
}

func (h *ReconciliationHandler) GetCases(c *gin.Context) {
	result, err := h.service.Run(c.Request.Context(), h.parseFilter(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reconcile", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRisks accepts an optional ?tag=perte|marge_faible|transit_non_couvert.
func (h *ReconciliationHandler) GetRisks(c *gin.Context) {
	var tag domain.RiskTag
	if raw := strings.TrimSpace(c.Query("tag")); raw != "" {
		parsed, ok := domain.ParseRiskTag(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown risk tag", "details": raw})
			return
		}
		tag = parsed
	}

	cases, err := h.service.GetRisks(c.Request.Context(), h.parseFilter(c), tag)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reconcile", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cases": cases, "total": len(cases), "labels": riskLabels(cases)})
}

// riskLabels maps every tag present in cases to its display label.
func riskLabels(cases []domain.ReconciliationCase) map[domain.RiskTag]string {
	labels := make(map[domain.RiskTag]string)
	for _, rc := range cases {
		for _, tag := range rc.Tags {
			labels[tag] = domain.RiskTagLabel(tag)
		}
	}
	return labels
}

func (h *ReconciliationHandler) GetSummary(c *gin.Context) {
	summary, err := h.service.GetSummary(c.Request.Context(), h.parseFilter(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to summarize cases", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
