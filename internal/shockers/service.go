package shockers

import (
	"context"
	"fmt"

	"github.com/anoixa/shock-panel/database/models"
	repo "github.com/anoixa/shock-panel/database/repo/shockers"
	"github.com/anoixa/shock-panel/internal/openshock"
)

const (
	// 平台把无法解析所属 hub 的记录标记为该名称，同步时视为噪声
	unknownDeviceName = "Unknown Device"

	// 平台未返回名称时的缺省 shocker 名称
	unnamedShockerName = "Unnamed Shocker"
)

// RemoteClient 远端平台客户端接口
type RemoteClient interface {
	ListShockers(ctx context.Context, apiKey string) ([]openshock.ShockerRecord, error)
	SendControl(ctx context.Context, apiKey string, cmd openshock.ControlCommand) error
}

// ShockerRepository 设备仓库接口
type ShockerRepository interface {
	ListByUser(userID uint) ([]*models.Shocker, error)
	GetByID(id uint, userID uint) (*models.Shocker, error)
	SetCurrentIntensity(id uint, userID uint, intensity int) error
	ResetIntensity(userID uint) (int64, error)
	Reconcile(userID uint, remote []repo.RemoteShocker) (repo.SyncResult, error)
}

// UserRepository 账户仓库接口
type UserRepository interface {
	GetUserByID(id uint) (*models.User, error)
}

// Service 设备同步与控制服务
type Service struct {
	shockersRepo ShockerRepository
	usersRepo    UserRepository
	client       RemoteClient
}

// NewService 创建新的设备服务
func NewService(shockersRepo ShockerRepository, usersRepo UserRepository, client RemoteClient) *Service {
	return &Service{
		shockersRepo: shockersRepo,
		usersRepo:    usersRepo,
		client:       client,
	}
}

// List 获取用户的设备列表
func (s *Service) List(userID uint) ([]*models.Shocker, error) {
	return s.shockersRepo.ListByUser(userID)
}

// Sync 从远端平台拉取 shocker 列表并与本地行对齐，返回同步计数
func (s *Service) Sync(ctx context.Context, userID uint) (repo.SyncResult, error) {
	user, err := s.usersRepo.GetUserByID(userID)
	if err != nil {
		return repo.SyncResult{}, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.HasAPIKey() {
		return repo.SyncResult{}, openshock.ErrNoAPIKey
	}

	return s.SyncWithKey(ctx, userID, user.APIKey())
}

// SyncWithKey 使用给定的 API key 执行同步，供首次保存 key 时直接调用
func (s *Service) SyncWithKey(ctx context.Context, userID uint, apiKey string) (repo.SyncResult, error) {
	records, err := s.client.ListShockers(ctx, apiKey)
	if err != nil {
		return repo.SyncResult{}, err
	}

	return s.shockersRepo.Reconcile(userID, validRecords(records))
}

// validRecords 过滤远端记录中的噪声：没有标识的记录或所属 hub 名称
// 未解析的记录被静默跳过，不计入任何计数，也不会导致无关本地行被删除。
func validRecords(records []openshock.ShockerRecord) []repo.RemoteShocker {
	valid := make([]repo.RemoteShocker, 0, len(records))
	for _, record := range records {
		if record.ID == "" {
			continue
		}
		if record.DeviceName == "" || record.DeviceName == unknownDeviceName {
			continue
		}

		name := record.Name
		if name == "" {
			name = unnamedShockerName
		}

		valid = append(valid, repo.RemoteShocker{
			ShockerID:   record.ID,
			ShockerName: name,
			DeviceName:  record.DeviceName,
			IsOnline:    record.DeviceOnline,
			IsPaused:    record.IsPaused,
		})
	}
	return valid
}

// TriggerRequest 控制命令请求
type TriggerRequest struct {
	Intensity      int
	Duration       int
	ControlType    openshock.ControlType
	UseIncrement   bool
	IncrementAfter bool
}

// TriggerResult 控制命令结果
type TriggerResult struct {
	// EffectiveIntensity 实际发送到平台的强度值
	EffectiveIntensity int

	// IncrementUsed 本次是否使用了递增模式的存储强度
	IncrementUsed bool
}

// Trigger 触发设备。递增模式下忽略调用方强度，改用存储的
// current_intensity；increment_after 时先推进存储值再发送命令
// （沿用源实现顺序：中途崩溃丢失一次推进，而不是旧值重复触发）。
func (s *Service) Trigger(ctx context.Context, userID uint, shockerID uint, req TriggerRequest) (TriggerResult, error) {
	device, err := s.shockersRepo.GetByID(shockerID, userID)
	if err != nil {
		return TriggerResult{}, err
	}

	user, err := s.usersRepo.GetUserByID(userID)
	if err != nil {
		return TriggerResult{}, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.HasAPIKey() {
		return TriggerResult{}, openshock.ErrNoAPIKey
	}

	effective := req.Intensity
	incrementUsed := false

	if req.UseIncrement && device.IncrementEnabled() {
		effective = device.CurrentIntensity
		incrementUsed = true

		if req.IncrementAfter {
			next := device.CurrentIntensity + *device.IntensityIncrement
			if next > 100 {
				next = 0
			}
			if err := s.shockersRepo.SetCurrentIntensity(device.ID, userID, next); err != nil {
				return TriggerResult{}, fmt.Errorf("failed to advance intensity: %w", err)
			}
		}
	}

	cmd := openshock.ControlCommand{
		ShockerID: device.ShockerID,
		Type:      req.ControlType,
		Intensity: effective,
		Duration:  req.Duration,
	}
	if err := s.client.SendControl(ctx, user.APIKey(), cmd); err != nil {
		return TriggerResult{EffectiveIntensity: effective, IncrementUsed: incrementUsed}, err
	}

	return TriggerResult{EffectiveIntensity: effective, IncrementUsed: incrementUsed}, nil
}

// ResetIntensity 将用户所有递增模式设备的 current_intensity 归零
func (s *Service) ResetIntensity(userID uint) (int64, error) {
	return s.shockersRepo.ResetIntensity(userID)
}
