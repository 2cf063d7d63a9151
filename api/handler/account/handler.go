package account

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/anoixa/shock-panel/api/common"
	"github.com/anoixa/shock-panel/api/middleware"
	"github.com/anoixa/shock-panel/cache"
	"github.com/anoixa/shock-panel/database/repo/accounts"
	svcShockers "github.com/anoixa/shock-panel/internal/shockers"
	"github.com/anoixa/shock-panel/utils"
	"github.com/gin-gonic/gin"
)

// Handler 账户设置处理器
type Handler struct {
	accountsRepo  *accounts.Repository
	shockerSvc    *svcShockers.Service
	cacheProvider cache.Provider
}

// NewHandler 创建新的账户设置处理器
func NewHandler(accountsRepo *accounts.Repository, shockerSvc *svcShockers.Service, cacheProvider cache.Provider) *Handler {
	return &Handler{
		accountsRepo:  accountsRepo,
		shockerSvc:    shockerSvc,
		cacheProvider: cacheProvider,
	}
}

type keyStatusResponse struct {
	Configured bool   `json:"configured"`
	MaskedKey  string `json:"masked_key,omitempty"`
}

type updateKeyRequest struct {
	APIKey string `json:"api_key"`
}

// GetKeyHandler 查询当前 API key 配置状态（脱敏）
func (h *Handler) GetKeyHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	user, err := h.accountsRepo.GetUserByID(userID)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, "Failed to get account")
		return
	}

	common.RespondSuccess(c, keyStatusResponse{
		Configured: user.HasAPIKey(),
		MaskedKey:  maskKey(user.APIKey()),
	})
}

// UpdateKeyHandler 保存或清除 OpenShock API key。
// 首次配置 key 时自动执行一次设备同步（沿用原 settings 页行为），
// 同步失败不回滚 key 的保存。
func (h *Handler) UpdateKeyHandler(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	var req updateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accountsRepo.GetUserByID(userID)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, "Failed to get account")
		return
	}
	hadKey := user.HasAPIKey()

	apiKey := strings.TrimSpace(req.APIKey)
	var stored *string
	if apiKey != "" {
		stored = &apiKey
	}

	if err := h.accountsRepo.UpdateAPIKey(userID, stored); err != nil {
		common.RespondError(c, http.StatusInternalServerError, "Failed to update API key")
		return
	}

	message := "API key updated successfully"

	// 首次配置时自动同步
	if apiKey != "" && !hadKey {
		result, err := h.shockerSvc.SyncWithKey(c.Request.Context(), userID, apiKey)
		if err != nil {
			message = fmt.Sprintf("API key saved but sync failed: %v", err)
		} else {
			message = fmt.Sprintf("API key saved and devices synced: %d new, %d updated, %d removed",
				result.Created, result.Updated, result.Deleted)
			h.invalidateShockerList(userID)
		}
	}

	common.RespondSuccessMessage(c, message, keyStatusResponse{
		Configured: apiKey != "",
		MaskedKey:  maskKey(apiKey),
	})
}

func (h *Handler) invalidateShockerList(userID uint) {
	utils.SafeGo(func() {
		ctx := context.Background()
		if err := h.cacheProvider.Delete(ctx, cache.ShockerListKey(userID)); err != nil {
			log.Printf("Failed to delete shocker list cache for user %d: %v", userID, err)
		}
	})
}

// maskKey 脱敏 API key，仅保留末尾 4 位
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
