package handlers

import (
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"

	"memochat/internal/ledger"
	"memochat/internal/service"
)

// WalletHandler controls the wallet lifecycle.
type WalletHandler struct {
	core service.Core
}

func NewWalletHandler(core service.Core) *WalletHandler {
	return &WalletHandler{core: core}
}

// Start begins synchronization. seed is hex encoded; mode is "new" or "existing".
func (h *WalletHandler) Start(c *gin.Context) {
	var req struct {
		Seed string `json:"seed"`
		Mode string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seed, err := hex.DecodeString(req.Seed)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seed must be hex encoded"})
		return
	}
	mode := ledger.WalletMode(req.Mode)
	switch mode {
	case "":
		mode = ledger.WalletModeExisting
	case ledger.WalletModeNew, ledger.WalletModeExisting:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be new or existing"})
		return
	}

	if err := h.core.Start(c.Request.Context(), seed, mode); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to start wallet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started", "mode": mode})
}

// Wipe deletes all local chats and messages.
func (h *WalletHandler) Wipe(c *gin.Context) {
	if err := h.core.Wipe(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not wipe local data"})
		return
	}
	c.Status(http.StatusNoContent)
}
