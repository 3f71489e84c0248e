package handlers

import (
	"net/http"

	"stonemarket/internal/service"
	"stonemarket/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SaleHandler struct {
	sales service.SaleService
	log   *zap.Logger
}

func NewSaleHandler(sales service.SaleService, log *zap.Logger) *SaleHandler {
	return &SaleHandler{sales: sales, log: log}
}

// Confirm converts an approved reservation into its sale record.
// Confirming twice returns 409.
func (h *SaleHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid confirm sale request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}

	sale, err := h.sales.ConfirmSale(c.Request.Context(), service.ConfirmSaleInput{
		ReservationID:  req.ReservationID,
		FinalQuantity:  req.FinalQuantity,
		FinalUnitPrice: req.FinalUnitPrice,
		InvoiceRef:     req.InvoiceRef,
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToSaleResponse(sale))
}

func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	sale, err := h.sales.GetSale(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSaleResponse(sale))
}

func (h *SaleHandler) ListMine(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, total, err := h.sales.ListMySales(c.Request.Context(), limit, offset)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	resp := dto.SaleListResponse{Items: make([]dto.SaleResponse, 0, len(list)), Total: total}
	for i := range list {
		resp.Items = append(resp.Items, dto.ToSaleResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}
