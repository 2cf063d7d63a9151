package shockers

import (
	"log"
	"net/http"

	"github.com/anoixa/shock-panel/api/common"
	"github.com/anoixa/shock-panel/api/middleware"
	"github.com/gin-gonic/gin"
)

type resetResponse struct {
	ResetCount int64 `json:"reset_count"`
}

// ResetIntensityHandler 将当前用户所有递增模式设备的存储强度归零。
// 纯本地操作，不向平台发送任何命令。
func (h *Handler) ResetIntensityHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	count, err := h.svc.ResetIntensity(userID)
	if err != nil {
		log.Printf("Failed to reset intensity for user %d: %v", userID, err)
		common.RespondError(c, http.StatusInternalServerError, "Failed to reset intensity")
		return
	}

	h.invalidateListCache(userID)

	common.RespondSuccessMessage(c, "Intensity reset", resetResponse{ResetCount: count})
}
