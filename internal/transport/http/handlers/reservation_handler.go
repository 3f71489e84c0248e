package handlers

import (
	"net/http"

	"stonemarket/internal/service"
	"stonemarket/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	reservations service.ReservationService
	log          *zap.Logger
}

func NewReservationHandler(reservations service.ReservationService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{reservations: reservations, log: log}
}

// Create places a hold on a batch's available slabs. Losing a concurrent
// race for the last slabs comes back as 409 with the actual availability.
func (h *ReservationHandler) Create(c *gin.Context) {
	var req dto.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid create reservation request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}

	r, err := h.reservations.CreateReservation(c.Request.Context(), service.ReservationInput{
		BatchID:         req.BatchID,
		Quantity:        req.Quantity,
		CustomerName:    req.CustomerName,
		CustomerContact: req.CustomerContact,
		Notes:           req.Notes,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToReservationResponse(r))
}

func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	r, err := h.reservations.GetReservation(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToReservationResponse(r))
}

func (h *ReservationHandler) ListMine(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, total, err := h.reservations.ListMyReservations(c.Request.Context(), limit, offset)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	resp := dto.ReservationListResponse{Items: make([]dto.ReservationResponse, 0, len(list)), Total: total}
	for i := range list {
		resp.Items = append(resp.Items, dto.ToReservationResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReservationHandler) Approve(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	r, err := h.reservations.Approve(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToReservationResponse(r))
}

func (h *ReservationHandler) Reject(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.RejectReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("reason is required", nil))
		return
	}
	r, err := h.reservations.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToReservationResponse(r))
}

func (h *ReservationHandler) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	r, err := h.reservations.Cancel(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToReservationResponse(r))
}
