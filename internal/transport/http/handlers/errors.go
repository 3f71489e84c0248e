package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"stonemarket/internal/service"
	"stonemarket/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// writeServiceError maps a typed service error onto an HTTP status and
// the shared error envelope.
func writeServiceError(c *gin.Context, log *zap.Logger, err error) {
	var ise *service.InsufficientStockError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError(err.Error()))
	case errors.Is(err, service.ErrBatchNotFound),
		errors.Is(err, service.ErrReservationNotFound),
		errors.Is(err, service.ErrGrantNotFound),
		errors.Is(err, service.ErrSaleNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(err.Error()))
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPriceUnit),
		errors.Is(err, service.ErrExpiryInPast),
		errors.Is(err, service.ErrQuantityExceedsReservation):
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
	case errors.As(err, &ise):
		c.JSON(http.StatusConflict, dto.NewConflictError(ise.Error()))
	case errors.Is(err, service.ErrBatchInactive),
		errors.Is(err, service.ErrBatchHasReservations),
		errors.Is(err, service.ErrReservationNotActive),
		errors.Is(err, service.ErrReservationNotApproved),
		errors.Is(err, service.ErrAlreadyConverted):
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
	default:
		log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid "+name, nil))
		return uuid.Nil, false
	}
	return id, true
}

func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
