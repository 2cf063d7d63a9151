package shockers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/anoixa/shock-panel/api/common"
	"github.com/anoixa/shock-panel/cache"
	"github.com/anoixa/shock-panel/database/models"
	repo "github.com/anoixa/shock-panel/database/repo/shockers"
	"github.com/anoixa/shock-panel/internal/openshock"
	svcShockers "github.com/anoixa/shock-panel/internal/shockers"
	"github.com/anoixa/shock-panel/utils"
	"github.com/gin-gonic/gin"
)

// 设备列表缓存的生存期。列表只是展示数据，所有变更路径都会主动失效。
const shockerListCacheTTL = 30 * time.Second

// Handler 设备处理器
type Handler struct {
	svc           *svcShockers.Service
	repo          *repo.Repository
	cacheProvider cache.Provider
}

// NewHandler 创建新的设备处理器
func NewHandler(svc *svcShockers.Service, shockersRepo *repo.Repository, cacheProvider cache.Provider) *Handler {
	return &Handler{
		svc:           svc,
		repo:          shockersRepo,
		cacheProvider: cacheProvider,
	}
}

// shockerView 设备行的对外表示
type shockerView struct {
	ID                 uint      `json:"id"`
	ShockerID          string    `json:"shocker_id"`
	DeviceName         string    `json:"device_name"`
	ShockerName        string    `json:"shocker_name"`
	Nickname           string    `json:"nickname"`
	IsOnline           bool      `json:"is_online"`
	IsPaused           bool      `json:"is_paused"`
	LastSynced         time.Time `json:"last_synced"`
	DisplayOrder       int       `json:"display_order"`
	Enabled            bool      `json:"enabled"`
	FrequencyMin       int       `json:"frequency_min"`
	FrequencyMax       int       `json:"frequency_max"`
	IntensityMin       int       `json:"intensity_min"`
	IntensityMax       int       `json:"intensity_max"`
	IntensityIncrement *int      `json:"intensity_increment"`
	CurrentIntensity   int       `json:"current_intensity"`
	DurationMin        int       `json:"duration_min"`
	DurationMax        int       `json:"duration_max"`
	PreVibrateEnabled  bool      `json:"pre_vibrate_enabled"`
	PreVibrateDuration int       `json:"pre_vibrate_duration"`
}

func toView(s *models.Shocker) shockerView {
	return shockerView{
		ID:                 s.ID,
		ShockerID:          s.ShockerID,
		DeviceName:         s.DeviceName,
		ShockerName:        s.ShockerName,
		Nickname:           s.Nickname,
		IsOnline:           s.IsOnline,
		IsPaused:           s.IsPaused,
		LastSynced:         s.LastSynced,
		DisplayOrder:       s.DisplayOrder,
		Enabled:            s.Enabled,
		FrequencyMin:       s.FrequencyMin,
		FrequencyMax:       s.FrequencyMax,
		IntensityMin:       s.IntensityMin,
		IntensityMax:       s.IntensityMax,
		IntensityIncrement: s.IntensityIncrement,
		CurrentIntensity:   s.CurrentIntensity,
		DurationMin:        s.DurationMin,
		DurationMax:        s.DurationMax,
		PreVibrateEnabled:  s.PreVibrateEnabled,
		PreVibrateDuration: s.PreVibrateDuration,
	}
}

func toViews(shockers []*models.Shocker) []shockerView {
	views := make([]shockerView, 0, len(shockers))
	for _, s := range shockers {
		views = append(views, toView(s))
	}
	return views
}

// respondRemoteError 将远端平台调用的失败映射为 HTTP 响应
func respondRemoteError(c *gin.Context, err error) {
	var invalidParam *openshock.InvalidParameterError
	var upstream *openshock.UpstreamError

	switch {
	case errors.As(err, &invalidParam):
		common.RespondError(c, http.StatusBadRequest, invalidParam.Error())
	case errors.Is(err, openshock.ErrNoAPIKey):
		common.RespondError(c, http.StatusBadRequest, "Please configure your OpenShock API key in Settings first")
	case errors.Is(err, openshock.ErrUnauthenticated), errors.Is(err, openshock.ErrForbidden):
		common.RespondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, openshock.ErrNotFound):
		common.RespondError(c, http.StatusNotFound, err.Error())
	case errors.As(err, &upstream):
		common.RespondError(c, http.StatusBadGateway, upstream.Error())
	case openshock.IsRetryable(err):
		common.RespondError(c, http.StatusGatewayTimeout, err.Error()+", please try again")
	case errors.Is(err, repo.ErrShockerNotFound):
		common.RespondError(c, http.StatusNotFound, "Device not found")
	default:
		log.Printf("Unexpected remote error: %v", err)
		common.RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) invalidateListCache(userID uint) {
	utils.SafeGo(func() {
		ctx := context.Background()
		if err := h.cacheProvider.Delete(ctx, cache.ShockerListKey(userID)); err != nil {
			log.Printf("Failed to delete shocker list cache for user %d: %v", userID, err)
		}
	})
}
