package shockers

import (
	"context"
	"testing"

	"github.com/anoixa/shock-panel/database/models"
	repo "github.com/anoixa/shock-panel/database/repo/shockers"
	"github.com/anoixa/shock-panel/internal/openshock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- mock 实现 ---

type mockClient struct {
	records    []openshock.ShockerRecord
	listErr    error
	sendErr    error
	sentCmds   []openshock.ControlCommand
	listCalled int
}

func (m *mockClient) ListShockers(ctx context.Context, apiKey string) ([]openshock.ShockerRecord, error) {
	m.listCalled++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.records, nil
}

func (m *mockClient) SendControl(ctx context.Context, apiKey string, cmd openshock.ControlCommand) error {
	m.sentCmds = append(m.sentCmds, cmd)
	return m.sendErr
}

type mockShockerRepo struct {
	shockers    map[uint]*models.Shocker
	intensities map[uint]int
	reconciled  []repo.RemoteShocker
	resetCount  int64
}

func newMockShockerRepo() *mockShockerRepo {
	return &mockShockerRepo{
		shockers:    make(map[uint]*models.Shocker),
		intensities: make(map[uint]int),
	}
}

func (m *mockShockerRepo) ListByUser(userID uint) ([]*models.Shocker, error) {
	var result []*models.Shocker
	for _, s := range m.shockers {
		if s.UserID == userID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockShockerRepo) GetByID(id uint, userID uint) (*models.Shocker, error) {
	s, ok := m.shockers[id]
	if !ok || s.UserID != userID {
		return nil, repo.ErrShockerNotFound
	}
	return s, nil
}

func (m *mockShockerRepo) SetCurrentIntensity(id uint, userID uint, intensity int) error {
	m.intensities[id] = intensity
	return nil
}

func (m *mockShockerRepo) ResetIntensity(userID uint) (int64, error) {
	return m.resetCount, nil
}

func (m *mockShockerRepo) Reconcile(userID uint, remote []repo.RemoteShocker) (repo.SyncResult, error) {
	m.reconciled = remote
	return repo.SyncResult{Created: len(remote)}, nil
}

type mockUserRepo struct {
	user *models.User
	err  error
}

func (m *mockUserRepo) GetUserByID(id uint) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func userWithKey() *models.User {
	key := "osk-test-key"
	return &models.User{
		Model:           gorm.Model{ID: 1},
		Username:        "tester",
		OpenShockAPIKey: &key,
	}
}

func intPtr(v int) *int {
	return &v
}

// --- Sync ---

func TestSync_NoAPIKey(t *testing.T) {
	shockerRepo := newMockShockerRepo()
	users := &mockUserRepo{user: &models.User{Model: gorm.Model{ID: 1}, Username: "tester"}}
	client := &mockClient{}
	svc := NewService(shockerRepo, users, client)

	_, err := svc.Sync(context.Background(), 1)
	assert.ErrorIs(t, err, openshock.ErrNoAPIKey)
	assert.Zero(t, client.listCalled)
}

func TestSync_FiltersNoiseRecords(t *testing.T) {
	shockerRepo := newMockShockerRepo()
	users := &mockUserRepo{user: userWithKey()}
	client := &mockClient{
		records: []openshock.ShockerRecord{
			{ID: "aaa", Name: "Left", DeviceName: "Hub1", DeviceOnline: true},
			{ID: "", Name: "Ghost", DeviceName: "Hub1"},
			{ID: "bbb", Name: "Orphan", DeviceName: "Unknown Device"},
			{ID: "ccc", Name: "NoHub", DeviceName: ""},
			{ID: "ddd", Name: "", DeviceName: "Hub2"},
		},
	}
	svc := NewService(shockerRepo, users, client)

	result, err := svc.Sync(context.Background(), 1)
	require.NoError(t, err)

	// 噪声记录被静默跳过，不计入任何计数
	require.Len(t, shockerRepo.reconciled, 2)
	assert.Equal(t, 2, result.Created)

	assert.Equal(t, "aaa", shockerRepo.reconciled[0].ShockerID)

	// 缺失名称的记录获得缺省名称
	assert.Equal(t, "ddd", shockerRepo.reconciled[1].ShockerID)
	assert.Equal(t, "Unnamed Shocker", shockerRepo.reconciled[1].ShockerName)
}

func TestSync_ListErrorPassthrough(t *testing.T) {
	shockerRepo := newMockShockerRepo()
	users := &mockUserRepo{user: userWithKey()}
	client := &mockClient{listErr: openshock.ErrUnauthenticated}
	svc := NewService(shockerRepo, users, client)

	_, err := svc.Sync(context.Background(), 1)
	assert.ErrorIs(t, err, openshock.ErrUnauthenticated)
	assert.Nil(t, shockerRepo.reconciled)
}

// --- Trigger ---

func TestTrigger_PlainCommand(t *testing.T) {
	shockerRepo := newMockShockerRepo()
	shockerRepo.shockers[10] = &models.Shocker{
		Model:     gorm.Model{ID: 10},
		UserID:    1,
		ShockerID: "aaa-111",
	}
	users := &mockUserRepo{user: userWithKey()}
	client := &mockClient{}
	svc := NewService(shockerRepo, users, client)

	result, err := svc.Trigger(context.Background(), 1, 10, TriggerRequest{
		Intensity:   42,
		Duration:    1000,
		ControlType: openshock.ControlShock,
	})
	require.NoError(t, err)

	assert.Equal(t, 42, result.EffectiveIntensity)
	assert.False(t, result.IncrementUsed)

	require.Len(t, client.sentCmds, 1)
	assert.Equal(t, "aaa-111", client.sentCmds[0].ShockerID)
	assert.Equal(t, 42, client.sentCmds[0].Intensity)
	assert.Equal(t, 1000, client.sentCmds[0].Duration)
}

func TestTrigger_UseIncrementSendsStoredIntensity(t *testing.T) {
	shockerRepo := newMockShockerRepo()
	shockerRepo.shockers[10] = &models.Shocker{
		Model:              gorm.Model{ID: 10},
		UserID:             1,
		ShockerID:          "aaa-111",
		IntensityIncrement: intPtr(20),
		CurrentIntensity:   30,
	}
	users := &mockUserRepo{user: userWithKey()}
	client := &mockClient{}
	svc := NewService(shockerRepo, users, client)

	result, err := svc.Trigger(context.Background(), 1, 10, TriggerRequest{
		Intensity:    99, // 递增模式下调用方强度被忽略
		Duration:     1000,
		ControlType:  openshock.ControlShock,
		UseIncrement: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 30, result.EffectiveIntensity)
	assert.True(t, result.IncrementUsed)

	require.Len(t, client.sentCmds, 1)
	assert.Equal(t, 30, client.sentCmds[0].Intensity)

	// increment_after 未设置时存储值保持不变
	_, advanced := shockerRepo.intensities[10]
	assert.False(t, advanced)
}

func TestTrigger_IncrementAfterAdvancesBeforeSend(t *testing.T) {
	shockerRepo := newMockShockerRepo()
	shockerRepo.shockers[10] = &models.Shocker{
		Model:              gorm.Model{ID: 10},
		UserID:             1,
		ShockerID:          "aaa-111",
		IntensityIncrement: intPtr(20),
		CurrentIntensity:   30,
	}
	users := &mockUserRepo{user: userWithKey()}
	client := &mockClient{}
	svc := NewService(shockerRepo, users, client)

	result, err := svc.Trigger(context.Background(), 1, 10, TriggerRequest{
		Duration:       1000,
		ControlType:    openshock.ControlVibrate,
		UseIncrement:   true,
		IncrementAfter: true,
	})
	require.NoError(t, err)

	// 发送的是推进前的值，存储推进到 50
	assert.Equal(t, 30, result.EffectiveIntensity)
	assert.Equal(t, 50, shockerRepo.intensities[10])
}

func TestTrigger_IncrementWrapsToZero(t *testing.T) {
	shockerRepo := newMockShockerRepo()
	shockerRepo.shockers[10] = &models.Shocker{
		Model:              gorm.Model{ID: 10},
		UserID:             1,
		ShockerID:          "aaa-111",
		IntensityIncrement: intPtr(20),
		CurrentIntensity:   90,
	}
	users := &mockUserRepo{user: userWithKey()}
	client := &mockClient{}
	svc := NewService(shockerRepo, users, client)

	result, err := svc.Trigger(context.Background(), 1, 10, TriggerRequest{
		Duration:       1000,
		ControlType:    openshock.ControlShock,
		UseIncrement:   true,
		IncrementAfter: true,
	})
	require.NoError(t, err)

	// 90+20 越过 100，归零而不是折返
	assert.Equal(t, 90, result.EffectiveIntensity)
	assert.Equal(t, 0, shockerRepo.intensities[10])
}

func TestTrigger_ExactHundredDoesNotWrap(t *testing.T) {
	shockerRepo := newMockShockerRepo()
	shockerRepo.shockers[10] = &models.Shocker{
		Model:              gorm.Model{ID: 10},
		UserID:             1,
		ShockerID:          "aaa-111",
		IntensityIncrement: intPtr(20),
		CurrentIntensity:   80,
	}
	users := &mockUserRepo{user: userWithKey()}
	client := &mockClient{}
	svc := NewService(shockerRepo, users, client)

	_, err := svc.Trigger(context.Background(), 1, 10, TriggerRequest{
		Duration:       1000,
		ControlType:    openshock.ControlShock,
		UseIncrement:   true,
		IncrementAfter: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 100, shockerRepo.intensities[10])
}

func TestTrigger_UseIncrementWithoutConfiguredIncrement(t *testing.T) {
	shockerRepo := newMockShockerRepo()
	shockerRepo.shockers[10] = &models.Shocker{
		Model:            gorm.Model{ID: 10},
		UserID:           1,
		ShockerID:        "aaa-111",
		CurrentIntensity: 30,
	}
	users := &mockUserRepo{user: userWithKey()}
	client := &mockClient{}
	svc := NewService(shockerRepo, users, client)

	// 未配置递增值时退回调用方强度
	result, err := svc.Trigger(context.Background(), 1, 10, TriggerRequest{
		Intensity:    42,
		Duration:     1000,
		ControlType:  openshock.ControlShock,
		UseIncrement: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 42, result.EffectiveIntensity)
	assert.False(t, result.IncrementUsed)
}

func TestTrigger_NotFoundBeforeRemoteCall(t *testing.T) {
	shockerRepo := newMockShockerRepo()
	users := &mockUserRepo{user: userWithKey()}
	client := &mockClient{}
	svc := NewService(shockerRepo, users, client)

	_, err := svc.Trigger(context.Background(), 1, 999, TriggerRequest{
		Intensity:   10,
		Duration:    1000,
		ControlType: openshock.ControlShock,
	})
	assert.ErrorIs(t, err, repo.ErrShockerNotFound)
	assert.Empty(t, client.sentCmds)
}

func TestTrigger_NoAPIKey(t *testing.T) {
	shockerRepo := newMockShockerRepo()
	shockerRepo.shockers[10] = &models.Shocker{
		Model:     gorm.Model{ID: 10},
		UserID:    1,
		ShockerID: "aaa-111",
	}
	users := &mockUserRepo{user: &models.User{Model: gorm.Model{ID: 1}, Username: "tester"}}
	client := &mockClient{}
	svc := NewService(shockerRepo, users, client)

	_, err := svc.Trigger(context.Background(), 1, 10, TriggerRequest{
		Intensity:   10,
		Duration:    1000,
		ControlType: openshock.ControlShock,
	})
	assert.ErrorIs(t, err, openshock.ErrNoAPIKey)
	assert.Empty(t, client.sentCmds)
}

func TestTrigger_SendErrorStillAdvancesIntensity(t *testing.T) {
	shockerRepo := newMockShockerRepo()
	shockerRepo.shockers[10] = &models.Shocker{
		Model:              gorm.Model{ID: 10},
		UserID:             1,
		ShockerID:          "aaa-111",
		IntensityIncrement: intPtr(10),
		CurrentIntensity:   30,
	}
	users := &mockUserRepo{user: userWithKey()}
	client := &mockClient{sendErr: openshock.ErrTimeout}
	svc := NewService(shockerRepo, users, client)

	_, err := svc.Trigger(context.Background(), 1, 10, TriggerRequest{
		Duration:       1000,
		ControlType:    openshock.ControlShock,
		UseIncrement:   true,
		IncrementAfter: true,
	})
	assert.ErrorIs(t, err, openshock.ErrTimeout)

	// 推进发生在发送之前，发送失败不回滚
	assert.Equal(t, 40, shockerRepo.intensities[10])
}
