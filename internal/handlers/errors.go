package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"memochat/internal/ledger"
	"memochat/internal/memo"
	"memochat/internal/sender"
	"memochat/internal/service"
)

// respondError maps core errors to HTTP. A broadcast that was not recorded
// locally is reported as accepted with a warning; sent carries the entity.
func respondError(c *gin.Context, err error, sent gin.H) {
	var notStored *sender.NotStoredError
	if errors.As(err, &notStored) {
		body := gin.H{"warning": "sent_not_recorded", "tx_id": notStored.Record.TxID}
		for k, v := range sent {
			body[k] = v
		}
		c.JSON(http.StatusAccepted, body)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sender.ErrInvalidToAddress), errors.Is(err, memo.ErrInvalidInitContent):
		status = http.StatusBadRequest
	case errors.Is(err, memo.ErrMessageTooLong):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrChatNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrVerificationMismatch):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrNotStarted):
		status = http.StatusConflict
	case errors.Is(err, sender.ErrOwnAddressUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, sender.ErrBroadcast):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.Printf("request %s failed: %v", requestIDFromContext(c), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
