package shockers

import (
	"testing"

	"github.com/anoixa/shock-panel/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 创建内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Shocker{}, &models.Session{})
	require.NoError(t, err)

	return db
}

func remoteFixture() []RemoteShocker {
	return []RemoteShocker{
		{ShockerID: "aaa-111", ShockerName: "Left", DeviceName: "Hub1", IsOnline: true},
		{ShockerID: "bbb-222", ShockerName: "Right", DeviceName: "Hub1", IsOnline: true, IsPaused: true},
	}
}

func TestReconcile_CreatesNewRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	result, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Deleted)

	rows, err := repo.ListByUser(1)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// 新行：昵称取平台名称，展示顺序递增，默认设置就位
	first := rows[0]
	assert.Equal(t, "aaa-111", first.ShockerID)
	assert.Equal(t, "Left", first.Nickname)
	assert.Equal(t, 1, first.DisplayOrder)
	assert.True(t, first.Enabled)
	assert.Equal(t, 1, first.FrequencyMin)
	assert.Equal(t, 10, first.FrequencyMax)
	assert.Equal(t, 100, first.IntensityMax)
	assert.Equal(t, 300, first.DurationMin)
	assert.Equal(t, 30000, first.DurationMax)
	assert.Nil(t, first.IntensityIncrement)

	assert.Equal(t, 2, rows[1].DisplayOrder)
}

func TestReconcile_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)

	result, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 0, result.Deleted)

	rows, err := repo.ListByUser(1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReconcile_PreservesUserSettingsOnUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)

	rows, err := repo.ListByUser(1)
	require.NoError(t, err)

	// 用户自定义昵称和递增设置
	nickname := "My favourite"
	increment := 5
	err = repo.Update(rows[0].ID, 1, &UpdateFields{
		Nickname:           &nickname,
		IntensityIncrement: &increment,
	})
	require.NoError(t, err)

	// 平台侧改名并离线
	updated := []RemoteShocker{
		{ShockerID: "aaa-111", ShockerName: "Left Renamed", DeviceName: "Hub1 Renamed", IsOnline: false},
		{ShockerID: "bbb-222", ShockerName: "Right", DeviceName: "Hub1", IsOnline: true},
	}
	result, err := repo.Reconcile(1, updated)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Created: 0, Updated: 2, Deleted: 0}, result)

	row, err := repo.GetByID(rows[0].ID, 1)
	require.NoError(t, err)

	// 只读字段被覆盖
	assert.Equal(t, "Left Renamed", row.ShockerName)
	assert.Equal(t, "Hub1 Renamed", row.DeviceName)
	assert.False(t, row.IsOnline)

	// 用户字段不受影响
	assert.Equal(t, "My favourite", row.Nickname)
	require.NotNil(t, row.IntensityIncrement)
	assert.Equal(t, 5, *row.IntensityIncrement)
}

func TestReconcile_DeletesAbsentRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)

	// 远端只剩第一个 shocker
	result, err := repo.Reconcile(1, remoteFixture()[:1])
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Created: 0, Updated: 1, Deleted: 1}, result)

	rows, err := repo.ListByUser(1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "aaa-111", rows[0].ShockerID)
}

func TestReconcile_EmptyRemoteDeletesAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)

	result, err := repo.Reconcile(1, nil)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Created: 0, Updated: 0, Deleted: 2}, result)

	rows, err := repo.ListByUser(1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReconcile_ScopedToUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)
	_, err = repo.Reconcile(2, remoteFixture())
	require.NoError(t, err)

	// 用户1清空不影响用户2
	result, err := repo.Reconcile(1, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Deleted)

	rows, err := repo.ListByUser(2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReconcile_NewRowAfterDeleteGetsNextOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)

	// 删除第一个，新增第三个
	next := []RemoteShocker{
		{ShockerID: "bbb-222", ShockerName: "Right", DeviceName: "Hub1", IsOnline: true},
		{ShockerID: "ccc-333", ShockerName: "New", DeviceName: "Hub2", IsOnline: true},
	}
	result, err := repo.Reconcile(1, next)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Created: 1, Updated: 1, Deleted: 1}, result)

	rows, err := repo.ListByUser(1)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// 新行排在现有最大顺序之后
	assert.Equal(t, "ccc-333", rows[1].ShockerID)
	assert.Equal(t, 3, rows[1].DisplayOrder)
}

func TestReconcile_ReaddAfterEmptySync(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)

	// 远端清空后再次上报同一批 shocker，重新创建不得与已删除行冲突
	_, err = repo.Reconcile(1, nil)
	require.NoError(t, err)

	result, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Created: 2, Updated: 0, Deleted: 0}, result)

	rows, err := repo.ListByUser(1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReconcile_ReaddAfterManualDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)

	rows, err := repo.ListByUser(1)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(rows[0].ID, 1))

	// 手工删除的行在下次同步时重新创建
	result, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Created: 1, Updated: 1, Deleted: 0}, result)

	rows, err = repo.ListByUser(1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestUpdate_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	nickname := "nope"
	err := repo.Update(12345, 1, &UpdateFields{Nickname: &nickname})
	assert.ErrorIs(t, err, ErrShockerNotFound)
}

func TestUpdate_WrongUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)

	rows, err := repo.ListByUser(1)
	require.NoError(t, err)

	nickname := "hijack"
	err = repo.Update(rows[0].ID, 2, &UpdateFields{Nickname: &nickname})
	assert.ErrorIs(t, err, ErrShockerNotFound)
}

func TestUpdate_ClearIncrement(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)

	rows, err := repo.ListByUser(1)
	require.NoError(t, err)
	id := rows[0].ID

	increment := 10
	require.NoError(t, repo.Update(id, 1, &UpdateFields{IntensityIncrement: &increment}))

	row, err := repo.GetByID(id, 1)
	require.NoError(t, err)
	require.NotNil(t, row.IntensityIncrement)

	require.NoError(t, repo.Update(id, 1, &UpdateFields{ClearIncrement: true}))

	row, err = repo.GetByID(id, 1)
	require.NoError(t, err)
	assert.Nil(t, row.IntensityIncrement)
}

func TestDelete_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	err := repo.Delete(999, 1)
	assert.ErrorIs(t, err, ErrShockerNotFound)
}

func TestResetIntensity_OnlyIncrementRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)

	rows, err := repo.ListByUser(1)
	require.NoError(t, err)

	// 第一行启用递增并有存储强度，第二行仅有存储强度
	increment := 10
	intensity := 40
	require.NoError(t, repo.Update(rows[0].ID, 1, &UpdateFields{
		IntensityIncrement: &increment,
		CurrentIntensity:   &intensity,
	}))
	require.NoError(t, repo.Update(rows[1].ID, 1, &UpdateFields{
		CurrentIntensity: &intensity,
	}))

	count, err := repo.ResetIntensity(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	first, err := repo.GetByID(rows[0].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, first.CurrentIntensity)

	// 非递增行保持原值
	second, err := repo.GetByID(rows[1].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 40, second.CurrentIntensity)
}

func TestSetCurrentIntensity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Reconcile(1, remoteFixture())
	require.NoError(t, err)

	rows, err := repo.ListByUser(1)
	require.NoError(t, err)

	require.NoError(t, repo.SetCurrentIntensity(rows[0].ID, 1, 55))

	row, err := repo.GetByID(rows[0].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 55, row.CurrentIntensity)
}

func TestSetCurrentIntensity_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	err := repo.SetCurrentIntensity(999, 1, 55)
	assert.ErrorIs(t, err, ErrShockerNotFound)
}
