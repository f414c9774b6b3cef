package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vgcarvalho/techstore-backend/internal/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken surfaces the unique-index violation on users.email.
	// Duplicate registrations race through here rather than through an
	// application-level existence check.
	ErrEmailTaken = errors.New("email already registered")
	// ErrTokenConsumed means the stored verification token no longer
	// matches: it was already used or superseded by a resend.
	ErrTokenConsumed = errors.New("verification token already consumed or replaced")
)

type UserRepository interface {
	Create(user *domain.User) error
	FindByID(id uint) (*domain.User, error)
	FindByEmail(email string) (*domain.User, error)
	ReplaceVerificationToken(email, token string) error
	ConsumeVerificationToken(email, token string) error
	PromoteToAdmin(email string) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) Create(user *domain.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *GormUserRepository) FindByID(id uint) (*domain.User, error) {
	var u domain.User
	if err := r.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) ReplaceVerificationToken(email, token string) error {
	res := r.db.Model(&domain.User{}).
		Where("email = ? AND verified = ?", email, false).
		Updates(map[string]any{"verification_token": token, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ConsumeVerificationToken flips the account to verified and clears the
// stored token in one guarded UPDATE. RowsAffected 0 means the token was
// already consumed or replaced, which keeps verification one-shot.
func (r *GormUserRepository) ConsumeVerificationToken(email, token string) error {
	res := r.db.Model(&domain.User{}).
		Where("email = ? AND verification_token = ?", email, token).
		Updates(map[string]any{"verified": true, "verification_token": nil, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenConsumed
	}
	return nil
}

func (r *GormUserRepository) PromoteToAdmin(email string) error {
	res := r.db.Model(&domain.User{}).
		Where("email = ?", email).
		Update("is_admin", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
