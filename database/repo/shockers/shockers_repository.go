package shockers

import (
	"context"
	"errors"
	"time"

	"github.com/anoixa/shock-panel/database/models"
	"gorm.io/gorm"
)

// ErrShockerNotFound 设备不存在错误
var ErrShockerNotFound = errors.New("shocker not found")

// Repository 设备仓库 - 所有查询均以 user_id 约束
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建新的设备仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListByUser 获取用户的所有设备，按展示顺序排列
func (r *Repository) ListByUser(userID uint) ([]*models.Shocker, error) {
	var shockers []*models.Shocker
	err := r.db.Where("user_id = ?", userID).
		Order("display_order, created_at").Find(&shockers).Error
	return shockers, err
}

// GetByID 获取用户的单个设备
func (r *Repository) GetByID(id uint, userID uint) (*models.Shocker, error) {
	var shocker models.Shocker
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&shocker).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShockerNotFound
		}
		return nil, err
	}
	return &shocker, nil
}

// Create 创建设备行，display_order 取当前最大值 +1
func (r *Repository) Create(shocker *models.Shocker) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		order, err := nextDisplayOrder(tx, shocker.UserID)
		if err != nil {
			return err
		}
		shocker.DisplayOrder = order
		return tx.Create(shocker).Error
	})
}

// Delete 删除用户的设备
func (r *Repository) Delete(id uint, userID uint) error {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Shocker{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrShockerNotFound
	}
	return nil
}

// UpdateFields 可更新字段的显式枚举，nil 表示不修改
type UpdateFields struct {
	Nickname           *string
	DisplayOrder       *int
	Enabled            *bool
	FrequencyMin       *int
	FrequencyMax       *int
	IntensityMin       *int
	IntensityMax       *int
	IntensityIncrement *int
	ClearIncrement     bool
	CurrentIntensity   *int
	DurationMin        *int
	DurationMax        *int
	PreVibrateEnabled  *bool
	PreVibrateDuration *int
}

func (f *UpdateFields) columns() map[string]interface{} {
	values := map[string]interface{}{}
	if f.Nickname != nil {
		values["nickname"] = *f.Nickname
	}
	if f.DisplayOrder != nil {
		values["display_order"] = *f.DisplayOrder
	}
	if f.Enabled != nil {
		values["enabled"] = *f.Enabled
	}
	if f.FrequencyMin != nil {
		values["frequency_min"] = *f.FrequencyMin
	}
	if f.FrequencyMax != nil {
		values["frequency_max"] = *f.FrequencyMax
	}
	if f.IntensityMin != nil {
		values["intensity_min"] = *f.IntensityMin
	}
	if f.IntensityMax != nil {
		values["intensity_max"] = *f.IntensityMax
	}
	if f.IntensityIncrement != nil {
		values["intensity_increment"] = *f.IntensityIncrement
	} else if f.ClearIncrement {
		values["intensity_increment"] = nil
	}
	if f.CurrentIntensity != nil {
		values["current_intensity"] = *f.CurrentIntensity
	}
	if f.DurationMin != nil {
		values["duration_min"] = *f.DurationMin
	}
	if f.DurationMax != nil {
		values["duration_max"] = *f.DurationMax
	}
	if f.PreVibrateEnabled != nil {
		values["pre_vibrate_enabled"] = *f.PreVibrateEnabled
	}
	if f.PreVibrateDuration != nil {
		values["pre_vibrate_duration"] = *f.PreVibrateDuration
	}
	return values
}

// Update 更新用户可编辑字段
func (r *Repository) Update(id uint, userID uint, fields *UpdateFields) error {
	values := fields.columns()
	if len(values) == 0 {
		return nil
	}

	result := r.db.Model(&models.Shocker{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrShockerNotFound
	}
	return nil
}

// SetCurrentIntensity 更新单个设备的 current_intensity
func (r *Repository) SetCurrentIntensity(id uint, userID uint, intensity int) error {
	result := r.db.Model(&models.Shocker{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("current_intensity", intensity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrShockerNotFound
	}
	return nil
}

// ResetIntensity 将用户所有启用递增模式的设备的 current_intensity 归零，
// 返回受影响的行数。不访问远端平台。
func (r *Repository) ResetIntensity(userID uint) (int64, error) {
	result := r.db.Model(&models.Shocker{}).
		Where("user_id = ? AND intensity_increment IS NOT NULL AND intensity_increment > 0", userID).
		Update("current_intensity", 0)
	return result.RowsAffected, result.Error
}

// nextDisplayOrder 计算下一个展示顺序 (max+1)
func nextDisplayOrder(tx *gorm.DB, userID uint) (int, error) {
	var maxOrder *int
	err := tx.Model(&models.Shocker{}).
		Where("user_id = ?", userID).
		Select("MAX(display_order)").Scan(&maxOrder).Error
	if err != nil {
		return 0, err
	}
	if maxOrder == nil {
		return 1, nil
	}
	return *maxOrder + 1, nil
}

// RemoteShocker 平台返回的、已通过有效性过滤的远端记录
type RemoteShocker struct {
	ShockerID   string
	ShockerName string
	DeviceName  string
	IsOnline    bool
	IsPaused    bool
}

// SyncResult 同步计数
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Reconcile 将用户的本地设备行与远端记录集对齐，整体在一个事务内执行：
// 以 shocker_id 匹配本地行，命中则仅覆盖只读字段，未命中则新建，
// 远端集中不再出现的本地行删除。
func (r *Repository) Reconcile(userID uint, remote []RemoteShocker) (SyncResult, error) {
	var result SyncResult
	now := time.Now()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing []models.Shocker
		if err := tx.Select("id", "shocker_id").
			Where("user_id = ?", userID).Find(&existing).Error; err != nil {
			return err
		}

		existingByShockerID := make(map[string]uint, len(existing))
		for _, row := range existing {
			existingByShockerID[row.ShockerID] = row.ID
		}

		seen := make(map[string]struct{}, len(remote))
		for _, record := range remote {
			seen[record.ShockerID] = struct{}{}

			if rowID, ok := existingByShockerID[record.ShockerID]; ok {
				err := tx.Model(&models.Shocker{}).
					Where("id = ? AND user_id = ?", rowID, userID).
					Updates(map[string]interface{}{
						"device_name":  record.DeviceName,
						"shocker_name": record.ShockerName,
						"is_online":    record.IsOnline,
						"is_paused":    record.IsPaused,
						"last_synced":  now,
					}).Error
				if err != nil {
					return err
				}
				result.Updated++
				continue
			}

			order, err := nextDisplayOrder(tx, userID)
			if err != nil {
				return err
			}
			shocker := &models.Shocker{
				UserID:       userID,
				ShockerID:    record.ShockerID,
				DeviceName:   record.DeviceName,
				ShockerName:  record.ShockerName,
				Nickname:     record.ShockerName,
				IsOnline:     record.IsOnline,
				IsPaused:     record.IsPaused,
				LastSynced:   now,
				DisplayOrder: order,
				Enabled:      true,
				FrequencyMin: 1,
				FrequencyMax: 10,
				IntensityMax: 100,
				DurationMin:  300,
				DurationMax:  30000,
			}
			if err := tx.Create(shocker).Error; err != nil {
				return err
			}
			result.Created++
		}

		for shockerID, rowID := range existingByShockerID {
			if _, ok := seen[shockerID]; ok {
				continue
			}
			err := tx.Where("id = ? AND user_id = ?", rowID, userID).
				Delete(&models.Shocker{}).Error
			if err != nil {
				return err
			}
			result.Deleted++
		}

		return nil
	})

	if err != nil {
		return SyncResult{}, err
	}
	return result, nil
}

// WithContext 返回带上下文的仓库
func (r *Repository) WithContext(ctx context.Context) *Repository {
	return &Repository{db: r.db.WithContext(ctx)}
}
