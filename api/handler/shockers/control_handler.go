package shockers

import (
	"net/http"
	"strconv"

	"github.com/anoixa/shock-panel/api/common"
	"github.com/anoixa/shock-panel/api/middleware"
	"github.com/anoixa/shock-panel/internal/openshock"
	svcShockers "github.com/anoixa/shock-panel/internal/shockers"
	"github.com/gin-gonic/gin"
)

type controlRequestBody struct {
	ControlType    string `json:"control_type"`
	Intensity      int    `json:"intensity"`
	Duration       int    `json:"duration" binding:"required"`
	UseIncrement   bool   `json:"use_increment"`
	IncrementAfter bool   `json:"increment_after"`
}

type controlResponse struct {
	EffectiveIntensity int  `json:"effective_intensity"`
	IncrementUsed      bool `json:"increment_used"`
	CurrentIntensity   *int `json:"current_intensity,omitempty"`
}

// ControlHandler 向设备下发控制命令
func (h *Handler) ControlHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	var req controlRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	controlType, ok := parseControlType(req.ControlType)
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "control_type must be one of shock, vibrate, sound")
		return
	}

	result, err := h.svc.Trigger(c.Request.Context(), userID, uint(id), svcShockers.TriggerRequest{
		Intensity:      req.Intensity,
		Duration:       req.Duration,
		ControlType:    controlType,
		UseIncrement:   req.UseIncrement,
		IncrementAfter: req.IncrementAfter,
	})
	if err != nil {
		respondRemoteError(c, err)
		return
	}

	resp := controlResponse{
		EffectiveIntensity: result.EffectiveIntensity,
		IncrementUsed:      result.IncrementUsed,
	}
	if result.IncrementUsed {
		// 递增模式下强度已在发送前推进，返回最新存储值供前端展示
		if device, err := h.repo.GetByID(uint(id), userID); err == nil {
			resp.CurrentIntensity = &device.CurrentIntensity
		}
		h.invalidateListCache(userID)
	}

	common.RespondSuccessMessage(c, "Command sent", resp)
}

func parseControlType(value string) (openshock.ControlType, bool) {
	switch value {
	case "shock", "Shock":
		return openshock.ControlShock, true
	case "vibrate", "Vibrate":
		return openshock.ControlVibrate, true
	case "sound", "Sound":
		return openshock.ControlSound, true
	case "":
		return openshock.ControlShock, true
	default:
		return "", false
	}
}
