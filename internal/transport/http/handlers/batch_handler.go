package handlers

import (
	"context"
	"net/http"

	"stonemarket/internal/models"
	"stonemarket/internal/pricing"
	"stonemarket/internal/service"
	"stonemarket/internal/transport/http/dto"
	"stonemarket/internal/transport/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type BatchHandler struct {
	batches service.BatchService
	log     *zap.Logger
}

func NewBatchHandler(batches service.BatchService, log *zap.Logger) *BatchHandler {
	return &BatchHandler{batches: batches, log: log}
}

// Create registers a batch; all slabs start in the available pool.
func (h *BatchHandler) Create(c *gin.Context) {
	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid create batch request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}

	industryID, _ := c.MustGet(middleware.CtxIndustryID).(uuid.UUID)
	if req.IndustryID != nil {
		industryID = *req.IndustryID
	}
	b, err := h.batches.CreateBatch(c.Request.Context(), service.BatchInput{
		IndustryID:  industryID,
		ProductRef:  req.ProductRef,
		HeightCM:    req.HeightCM,
		WidthCM:     req.WidthCM,
		ThicknessCM: req.ThicknessCM,
		TotalSlabs:  req.TotalSlabs,
		UnitPrice:   req.UnitPrice,
		PriceUnit:   models.PriceUnit(req.PriceUnit),
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToBatchResponse(b, b.Status(), totalArea(b)))
}

func (h *BatchHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	v, err := h.batches.GetBatch(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToBatchView(v))
}

func (h *BatchHandler) List(c *gin.Context) {
	limit, offset := parsePagination(c)
	f := service.BatchListFilter{
		Query:  c.Query("q"),
		Limit:  limit,
		Offset: offset,
	}
	if s := c.Query("industry_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid industry_id", nil))
			return
		}
		f.IndustryID = &id
	}
	if s := c.Query("only_active"); s != "" {
		v := s == "true" || s == "1"
		f.OnlyActive = &v
	}

	views, total, err := h.batches.ListBatches(c.Request.Context(), f)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	resp := dto.BatchListResponse{Items: make([]dto.BatchResponse, 0, len(views)), Total: total}
	for i := range views {
		resp.Items = append(resp.Items, dto.ToBatchView(&views[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BatchHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}
	patch := service.BatchPatch{
		ProductRef: req.ProductRef,
		UnitPrice:  req.UnitPrice,
		IsActive:   req.IsActive,
	}
	if req.PriceUnit != nil {
		u := models.PriceUnit(*req.PriceUnit)
		patch.PriceUnit = &u
	}
	b, err := h.batches.UpdateBatch(c.Request.Context(), id, patch)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToBatchResponse(b, b.Status(), totalArea(b)))
}

// Delete soft-deletes an empty batch. Batches with reserved slabs refuse.
func (h *BatchHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.batches.DeleteBatch(c.Request.Context(), id); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BatchHandler) Deactivate(c *gin.Context) {
	h.move(c, h.batches.DeactivateSlabs)
}

func (h *BatchHandler) Reactivate(c *gin.Context) {
	h.move(c, h.batches.ReactivateSlabs)
}

func totalArea(b *models.Batch) decimal.Decimal {
	return pricing.BatchAreaM2(b, b.TotalSlabs)
}

func (h *BatchHandler) move(c *gin.Context, op func(ctx context.Context, id uuid.UUID, qty int32) (*models.Batch, error)) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.MoveSlabsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}
	b, err := op(c.Request.Context(), id, req.Quantity)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToBatchResponse(b, b.Status(), totalArea(b)))
}
