package accounts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/anoixa/shock-panel/database/models"
	"gorm.io/gorm"
)

// SessionRepository 登录会话仓库 - 封装刷新令牌的存储与轮换
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建新的会话仓库
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func hashToken(token string) string {
	hasher := sha256.New()
	hasher.Write([]byte(token))
	return hex.EncodeToString(hasher.Sum(nil))
}

// CreateSession 创建登录会话记录
func (r *SessionRepository) CreateSession(userID uint, sessionID string, refreshToken string, expiry time.Time) error {
	session := &models.Session{
		UserID:       userID,
		RefreshToken: hashToken(refreshToken),
		SessionID:    sessionID,
		Expiry:       expiry,
	}
	return r.db.Create(session).Error
}

// GetSessionByRefreshToken 通过刷新令牌和会话ID获取未过期的会话
func (r *SessionRepository) GetSessionByRefreshToken(refreshToken string, sessionID string) (*models.Session, error) {
	var session models.Session
	err := r.db.Where("refresh_token = ? AND session_id = ? AND expiry > ?",
		hashToken(refreshToken), sessionID, time.Now()).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// RotateRefreshToken 轮换刷新令牌
func (r *SessionRepository) RotateRefreshToken(userID uint, sessionID, newRefreshToken string, newExpiry time.Time) error {
	hashed := hashToken(newRefreshToken)

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.Session{}).Error; err != nil {
			return err
		}

		session := &models.Session{
			UserID:       userID,
			RefreshToken: hashed,
			SessionID:    sessionID,
			Expiry:       newExpiry,
		}
		return tx.Create(session).Error
	})
}

// DeleteSessionByID 删除会话
func (r *SessionRepository) DeleteSessionByID(sessionID string) error {
	return r.db.Where("session_id = ?", sessionID).Delete(&models.Session{}).Error
}

// DeleteSessionsByUser 删除用户的所有会话
func (r *SessionRepository) DeleteSessionsByUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.Session{}).Error
}

// DeleteExpiredSessions 清理已过期的会话
func (r *SessionRepository) DeleteExpiredSessions() (int64, error) {
	result := r.db.Where("expiry <= ?", time.Now()).Delete(&models.Session{})
	return result.RowsAffected, result.Error
}

// WithContext 返回带上下文的仓库
func (r *SessionRepository) WithContext(ctx context.Context) *SessionRepository {
	return &SessionRepository{db: r.db.WithContext(ctx)}
}
