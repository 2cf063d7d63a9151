package shockers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/anoixa/shock-panel/api/common"
	"github.com/anoixa/shock-panel/api/middleware"
	repo "github.com/anoixa/shock-panel/database/repo/shockers"
	"github.com/gin-gonic/gin"
)

type updateRequestBody struct {
	Nickname           *string `json:"nickname"`
	DisplayOrder       *int    `json:"display_order"`
	Enabled            *bool   `json:"enabled"`
	FrequencyMin       *int    `json:"frequency_min"`
	FrequencyMax       *int    `json:"frequency_max"`
	IntensityMin       *int    `json:"intensity_min"`
	IntensityMax       *int    `json:"intensity_max"`
	IntensityIncrement *int    `json:"intensity_increment"`
	ClearIncrement     bool    `json:"clear_increment"`
	CurrentIntensity   *int    `json:"current_intensity"`
	DurationMin        *int    `json:"duration_min"`
	DurationMax        *int    `json:"duration_max"`
	PreVibrateEnabled  *bool   `json:"pre_vibrate_enabled"`
	PreVibrateDuration *int    `json:"pre_vibrate_duration"`
}

func (r *updateRequestBody) validate() error {
	checkRange := func(name string, value *int, min, max int) error {
		if value != nil && (*value < min || *value > max) {
			return fmt.Errorf("%s must be between %d and %d", name, min, max)
		}
		return nil
	}

	if err := checkRange("frequency_min", r.FrequencyMin, 1, 100); err != nil {
		return err
	}
	if err := checkRange("frequency_max", r.FrequencyMax, 1, 100); err != nil {
		return err
	}
	if err := checkRange("intensity_min", r.IntensityMin, 0, 100); err != nil {
		return err
	}
	if err := checkRange("intensity_max", r.IntensityMax, 0, 100); err != nil {
		return err
	}
	if err := checkRange("intensity_increment", r.IntensityIncrement, 1, 100); err != nil {
		return err
	}
	if err := checkRange("current_intensity", r.CurrentIntensity, 0, 100); err != nil {
		return err
	}
	if err := checkRange("duration_min", r.DurationMin, 300, 30000); err != nil {
		return err
	}
	if err := checkRange("duration_max", r.DurationMax, 300, 30000); err != nil {
		return err
	}
	if err := checkRange("pre_vibrate_duration", r.PreVibrateDuration, 300, 30000); err != nil {
		return err
	}
	return nil
}

// UpdateHandler 更新设备的用户可编辑字段，未出现的字段不修改
func (h *Handler) UpdateHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	var req updateRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	fields := &repo.UpdateFields{
		Nickname:           req.Nickname,
		DisplayOrder:       req.DisplayOrder,
		Enabled:            req.Enabled,
		FrequencyMin:       req.FrequencyMin,
		FrequencyMax:       req.FrequencyMax,
		IntensityMin:       req.IntensityMin,
		IntensityMax:       req.IntensityMax,
		IntensityIncrement: req.IntensityIncrement,
		ClearIncrement:     req.ClearIncrement,
		CurrentIntensity:   req.CurrentIntensity,
		DurationMin:        req.DurationMin,
		DurationMax:        req.DurationMax,
		PreVibrateEnabled:  req.PreVibrateEnabled,
		PreVibrateDuration: req.PreVibrateDuration,
	}

	if err := h.repo.Update(uint(id), userID, fields); err != nil {
		if errors.Is(err, repo.ErrShockerNotFound) {
			common.RespondError(c, http.StatusNotFound, "Device not found")
			return
		}
		log.Printf("Failed to update shocker %d for user %d: %v", id, userID, err)
		common.RespondError(c, http.StatusInternalServerError, "Failed to update device")
		return
	}

	h.invalidateListCache(userID)

	device, err := h.repo.GetByID(uint(id), userID)
	if err != nil {
		common.RespondSuccessMessage(c, "Device updated", nil)
		return
	}
	common.RespondSuccessMessage(c, "Device updated", toView(device))
}

// DeleteHandler 删除设备的本地记录，不影响平台侧
func (h *Handler) DeleteHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	if err := h.repo.Delete(uint(id), userID); err != nil {
		if errors.Is(err, repo.ErrShockerNotFound) {
			common.RespondError(c, http.StatusNotFound, "Device not found")
			return
		}
		log.Printf("Failed to delete shocker %d for user %d: %v", id, userID, err)
		common.RespondError(c, http.StatusInternalServerError, "Failed to delete device")
		return
	}

	h.invalidateListCache(userID)

	common.RespondSuccessMessage(c, "Device deleted", nil)
}
