package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domain "registration-service/internal/domain/user"
	apperrors "registration-service/pkg/errors"
	"registration-service/pkg/logger"
)

// UserRepo implements the user Repository on top of GORM.
// It works with any dialect opened with TranslateError enabled.
type UserRepo struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewUserRepo creates a new instance of UserRepo.
func NewUserRepo(db *gorm.DB, log *zap.Logger) *UserRepo {
	return &UserRepo{db: db, log: log}
}

// Create inserts a new user and returns the stored row.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := UserSchema{
		Name:     u.Name,
		Email:    u.Email,
		Password: u.Password,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, r.translate(ctx, err, u.Email)
	}

	logger.WithContext(ctx, r.log).Info("user created in db", zap.Int64("id", model.ID))
	return toDomain(model), nil
}

// GetByEmail retrieves a user by email. It returns nil, nil when none exists.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithContext(ctx, r.log).Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return toDomain(model), nil
}

// translate maps driver errors to the application error taxonomy.
func (r *UserRepo) translate(ctx context.Context, err error, email string) error {
	log := logger.WithContext(ctx, r.log)

	var invalid *apperrors.FieldValidationError
	switch {
	case errors.As(err, &invalid):
		log.Warn("user failed model validation", zap.Strings("reasons", invalid.Messages))
		return invalid
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		log.Warn("unique constraint violated", zap.String("email", email))
		return apperrors.NewAlreadyExistsError("email", apperrors.DuplicateEmailMessage)
	case errors.Is(err, gorm.ErrCheckConstraintViolated), isNotNullViolation(err):
		log.Warn("user rejected by column constraint", zap.Error(err))
		return apperrors.NewFieldValidationError(err.Error())
	default:
		log.Error("failed to create user in db", zap.Error(err), zap.String("email", email))
		return fmt.Errorf("failed to create user: %w", err)
	}
}

// Drivers that do not implement gorm's ErrorTranslator are matched on message.
var (
	uniqueViolationMarkers  = []string{"unique constraint failed", "duplicate key value", "duplicate entry"}
	notNullViolationMarkers = []string{"not null constraint failed", "violates not-null constraint", "cannot be null"}
)

func isUniqueViolation(err error) bool {
	return containsAny(err, uniqueViolationMarkers)
}

func isNotNullViolation(err error) bool {
	return containsAny(err, notNullViolationMarkers)
}

func containsAny(err error, markers []string) bool {
	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func toDomain(m UserSchema) *domain.User {
	return &domain.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Password:  m.Password,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
