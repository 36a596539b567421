package handler

import (
	"p2p-transfer-service/internal/adapter/http/dto"
	"p2p-transfer-service/internal/core/ports"
	"p2p-transfer-service/pkg/apperror"
	"p2p-transfer-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransferHandler handles the transfer endpoint.
type TransferHandler struct {
	transferSvc ports.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferSvc ports.TransferService) *TransferHandler {
	return &TransferHandler{transferSvc: transferSvc}
}

// Transfer handles POST /v1/transfer.
func (h *TransferHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	err := h.transferSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		PayerEmail: req.Payer,
		PayeeEmail: req.Payee,
		Amount:     req.Value,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
