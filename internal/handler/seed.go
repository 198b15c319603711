package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nathanyu/order-fanout/internal/composer"
	"github.com/nathanyu/order-fanout/internal/domain"
	"github.com/nathanyu/order-fanout/internal/fanout"
)

// OrderSource composes an order without writing it anywhere.
type OrderSource interface {
	Generate(ctx context.Context, cons composer.Constraints) domain.Order
}

// Persister fans an order out to the stores.
type Persister interface {
	Write(ctx context.Context, order domain.Order, opts ...fanout.WriteOption) fanout.Report
}

// SeedHandler serves orders to remote generators.
type SeedHandler struct {
	source    OrderSource
	persister Persister
}

// NewSeedHandler creates a SeedHandler. With a nil persister the handler
// only composes orders and the caller writes them.
func NewSeedHandler(source OrderSource, persister Persister) *SeedHandler {
	return &SeedHandler{source: source, persister: persister}
}

// RegisterRoutes sets up the Gin routes.
func (h *SeedHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.POST("/generate-order", h.GenerateOrder)
}

func (h *SeedHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GenerateOrder handles POST /generate-order. The body is optional and
// may pin cliente_id and sucursal_id.
func (h *SeedHandler) GenerateOrder(c *gin.Context) {
	var req composer.Constraints
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (req.ClientID != nil && *req.ClientID <= 0) || (req.BranchID != nil && *req.BranchID <= 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cliente_id and sucursal_id must be positive"})
		return
	}

	ctx := c.Request.Context()
	order := h.source.Generate(ctx, req)

	if h.persister != nil {
		report := h.persister.Write(ctx, order, fanout.WithSource("seed"))
		if stores := report.Stores(fanout.StatusSuccess); len(stores) > 0 {
			c.Header(fanout.StoresHeader, strings.Join(stores, ","))
		}
	}

	c.JSON(http.StatusOK, order)
}
