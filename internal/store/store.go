package store

import (
	"errors"
	"time"

	"github.com/markgate/markgate/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.OAuthClient{},
		&models.AuthorizationCode{},
		&models.RefreshToken{},
		&models.UpstreamSession{},
		&models.UserAuthorization{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Client operations

func (s *Store) CreateClient(client *models.OAuthClient) error {
	err := s.db.Create(client).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrClientIDConflict
	}
	return err
}

func (s *Store) GetClientByClientID(clientID string) (*models.OAuthClient, error) {
	var client models.OAuthClient
	if err := s.db.Where("client_id = ?", clientID).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &client, nil
}

// Authorization code operations

func (s *Store) CreateAuthorizationCode(code *models.AuthorizationCode) error {
	return s.db.Create(code).Error
}

// ConsumeAuthorizationCode fetches the code row by hash and deletes it in
// the same call. The conditional delete decides races: of N concurrent
// redeemers only one observes RowsAffected == 1, everyone else gets
// ErrCodeConsumed. The row is gone even when later validation of the
// returned record fails, so a code is burned by its first redemption
// attempt regardless of outcome.
func (s *Store) ConsumeAuthorizationCode(codeHash string) (*models.AuthorizationCode, error) {
	var code models.AuthorizationCode
	if err := s.db.Where("code_hash = ?", codeHash).First(&code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	result := s.db.Where("code_hash = ?", codeHash).Delete(&models.AuthorizationCode{})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrCodeConsumed
	}

	return &code, nil
}

// DeleteExpiredAuthorizationCodes removes codes past their expiry.
// Called periodically; redemption checks expiry itself and does not
// depend on this running.
func (s *Store) DeleteExpiredAuthorizationCodes() (int64, error) {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&models.AuthorizationCode{})
	return result.RowsAffected, result.Error
}

// Refresh token operations

func (s *Store) CreateRefreshToken(token *models.RefreshToken) error {
	return s.db.Create(token).Error
}

func (s *Store) GetRefreshTokenByHash(tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := s.db.Where("token_hash = ?", tokenHash).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &token, nil
}

// TouchRefreshToken records the use of a fixed refresh token.
func (s *Store) TouchRefreshToken(id uint) error {
	return s.db.Model(&models.RefreshToken{}).
		Where("id = ?", id).
		Update("last_used_at", time.Now()).Error
}

func (s *Store) DeleteExpiredRefreshTokens() (int64, error) {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}

// Upstream session operations

// SaveUpstreamSession inserts or replaces the session wholesale, keeping
// token pair and expiry consistent with each other.
func (s *Store) SaveUpstreamSession(session *models.UpstreamSession) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		UpdateAll: true,
	}).Create(session).Error
}

func (s *Store) GetUpstreamSession(sessionID string) (*models.UpstreamSession, error) {
	var session models.UpstreamSession
	if err := s.db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetUpstreamSessionByUserID returns the newest session for a user. The
// user_id index exists for this lookup and for logout-by-user.
func (s *Store) GetUpstreamSessionByUserID(userID string) (*models.UpstreamSession, error) {
	var session models.UpstreamSession
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *Store) DeleteUpstreamSession(sessionID string) error {
	return s.db.Where("session_id = ?", sessionID).Delete(&models.UpstreamSession{}).Error
}

func (s *Store) DeleteUpstreamSessionsByUserID(userID string) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.UpstreamSession{}).Error
}

// Consent operations

func (s *Store) UpsertUserAuthorization(auth *models.UserAuthorization) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"scopes", "granted_at"}),
	}).Create(auth).Error
}

func (s *Store) GetUserAuthorization(userID, clientID string) (*models.UserAuthorization, error) {
	var auth models.UserAuthorization
	err := s.db.Where("user_id = ? AND client_id = ?", userID, clientID).First(&auth).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &auth, nil
}

// Health pings the underlying database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
