package shockers

import (
	"log"
	"net/http"

	"github.com/anoixa/shock-panel/api/common"
	"github.com/anoixa/shock-panel/api/middleware"
	"github.com/gin-gonic/gin"
)

type syncResponse struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Deleted int           `json:"deleted"`
	Devices []shockerView `json:"devices"`
}

// SyncHandler 从 OpenShock 平台拉取设备并与本地记录对齐
func (h *Handler) SyncHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	result, err := h.svc.Sync(c.Request.Context(), userID)
	if err != nil {
		respondRemoteError(c, err)
		return
	}

	h.invalidateListCache(userID)

	shockers, err := h.svc.List(userID)
	if err != nil {
		log.Printf("Failed to list shockers after sync for user %d: %v", userID, err)
		common.RespondError(c, http.StatusInternalServerError, "Failed to get device list")
		return
	}

	common.RespondSuccess(c, syncResponse{
		Created: result.Created,
		Updated: result.Updated,
		Deleted: result.Deleted,
		Devices: toViews(shockers),
	})
}
