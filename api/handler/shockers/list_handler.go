package shockers

import (
	"log"
	"net/http"

	"github.com/anoixa/shock-panel/api/common"
	"github.com/anoixa/shock-panel/api/middleware"
	"github.com/anoixa/shock-panel/cache"
	"github.com/gin-gonic/gin"
)

// ListHandler 获取当前用户的设备列表
func (h *Handler) ListHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	cacheKey := cache.ShockerListKey(userID)

	var cached []shockerView
	if err := h.cacheProvider.Get(c.Request.Context(), cacheKey, &cached); err == nil {
		common.RespondSuccess(c, cached)
		return
	}

	shockers, err := h.svc.List(userID)
	if err != nil {
		log.Printf("Failed to list shockers for user %d: %v", userID, err)
		common.RespondError(c, http.StatusInternalServerError, "Failed to get device list")
		return
	}

	views := toViews(shockers)

	if err := h.cacheProvider.Set(c.Request.Context(), cacheKey, views, shockerListCacheTTL); err != nil {
		log.Printf("Failed to cache shocker list for user %d: %v", userID, err)
	}

	common.RespondSuccess(c, views)
}
