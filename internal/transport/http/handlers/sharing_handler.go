package handlers

import (
	"net/http"

	"stonemarket/internal/models"
	"stonemarket/internal/service"
	"stonemarket/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SharingHandler struct {
	sharing service.SharingService
	log     *zap.Logger
}

func NewSharingHandler(sharing service.SharingService, log *zap.Logger) *SharingHandler {
	return &SharingHandler{sharing: sharing, log: log}
}

// Grant shares one batch with a grantee, optionally at a negotiated
// price. Re-granting the same pair updates the price instead of failing.
func (h *SharingHandler) Grant(c *gin.Context) {
	var req dto.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid grant request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}

	in := service.GrantInput{
		BatchID:         req.BatchID,
		GranteeID:       req.GranteeID,
		NegotiatedPrice: req.NegotiatedPrice,
	}
	if req.NegotiatedPriceUnit != nil {
		u := models.PriceUnit(*req.NegotiatedPriceUnit)
		in.NegotiatedPriceUnit = &u
	}

	g, err := h.sharing.GrantBatch(c.Request.Context(), in)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToGrantResponse(g))
}

// GrantCatalog shares every active batch of the caller's catalog at list
// price in one shot.
func (h *SharingHandler) GrantCatalog(c *gin.Context) {
	var req dto.GrantCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("grantee_id is required", nil))
		return
	}

	grants, err := h.sharing.GrantCatalog(c.Request.Context(), req.GranteeID)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	resp := make([]dto.GrantResponse, 0, len(grants))
	for i := range grants {
		resp = append(resp, dto.ToGrantResponse(&grants[i]))
	}
	c.JSON(http.StatusCreated, gin.H{"items": resp, "total": len(resp)})
}

func (h *SharingHandler) Revoke(c *gin.Context) {
	batchID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	granteeID, ok := parseIDParam(c, "grantee_id")
	if !ok {
		return
	}
	if _, err := h.sharing.RevokeGrant(c.Request.Context(), batchID, granteeID); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SharingHandler) ListForBatch(c *gin.Context) {
	batchID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	grants, err := h.sharing.ListGrantsForBatch(c.Request.Context(), batchID)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	resp := make([]dto.GrantResponse, 0, len(grants))
	for i := range grants {
		resp = append(resp, dto.ToGrantResponse(&grants[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": resp, "total": len(resp)})
}

// ListMine returns the grants where the caller is the grantee, i.e. the
// shared inventory visible to a seller or broker.
func (h *SharingHandler) ListMine(c *gin.Context) {
	grants, err := h.sharing.ListMyGrants(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	resp := make([]dto.GrantResponse, 0, len(grants))
	for i := range grants {
		resp = append(resp, dto.ToGrantResponse(&grants[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": resp, "total": len(resp)})
}
