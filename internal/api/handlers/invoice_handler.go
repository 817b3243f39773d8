package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
)

type InvoiceService interface {
	FetchInvoices(ctx context.Context, filter domain.InvoiceFilter, page domain.Pagination) (*domain.InvoiceResult, error)
	FetchKPIs(ctx context.Context, filter domain.InvoiceFilter) (*domain.KPIResult, error)
	FetchAlerts(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Alert, error)
	FetchTopClients(ctx context.Context, filter domain.InvoiceFilter, limit int) ([]domain.TopClient, error)
}

type InvoiceHandler struct {
	service InvoiceService
}

func NewInvoiceHandler(service InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

func (h *InvoiceHandler) parseFilter(c *gin.Context) domain.InvoiceFilter {
	return domain.InvoiceFilter{
		From:      strings.TrimSpace(c.Query("from")),
		To:        strings.TrimSpace(c.Query("to")),
		ClientID:  strings.TrimSpace(c.Query("client_id")),
		Territory: strings.TrimSpace(c.Query("territory")),
	}
}

// parsePage leaves zero values for the service to default.
func parsePage(c *gin.Context) domain.Pagination {
	var page domain.Pagination
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page.Page = p
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil && size > 0 {
		page.PageSize = size
	}
	return page
}

func (h *InvoiceHandler) GetInvoices(c *gin.Context) {
	result, err := h.service.FetchInvoices(c.Request.Context(), h.parseFilter(c), parsePage(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch invoices", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *InvoiceHandler) GetKPIs(c *gin.Context) {
	kpis, err := h.service.FetchKPIs(c.Request.Context(), h.parseFilter(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute kpis", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, kpis)
}

func (h *InvoiceHandler) GetAlerts(c *gin.Context) {
	alerts, err := h.service.FetchAlerts(c.Request.Context(), h.parseFilter(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build alerts", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (h *InvoiceHandler) GetTopClients(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	clients, err := h.service.FetchTopClients(c.Request.Context(), h.parseFilter(c), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rank clients", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"clients": clients})
}
