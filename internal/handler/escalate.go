package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wifi-portal/request-service/internal/escalation"
)

type EscalateHandler struct {
	sweeper *escalation.Sweeper
}

func NewEscalateHandler(sweeper *escalation.Sweeper) *EscalateHandler {
	return &EscalateHandler{sweeper: sweeper}
}

// Run — ручной триггер свипа («проверить эскалации сейчас» в дашборде).
// Та же точка входа, что и у планового прогона; тело запроса не требуется.
func (h *EscalateHandler) Run(c *gin.Context) {
	res, err := h.sweeper.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
			"message": res.Message,
		})
		return
	}
	c.JSON(http.StatusOK, res)
}
