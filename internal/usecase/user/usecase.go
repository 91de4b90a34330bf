package user

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "registration-service/internal/domain/user"
	apperrors "registration-service/pkg/errors"
	"registration-service/pkg/logger"
	"registration-service/pkg/security"
)

// Repository defines the user persistence operations needed for registration.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)   // Insert and return the stored row
	GetByEmail(ctx context.Context, email string) (*domain.User, error) // nil, nil when absent
}

// Mailer sends the welcome email to a newly registered user.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string) error
}

// PasswordHasher turns a plaintext password into its stored form.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Option configures a Usecase.
type Option func(*Usecase)

// WithVerboseErrors adds full error detail to failure logs.
func WithVerboseErrors(verbose bool) Option {
	return func(uc *Usecase) {
		uc.verbose = verbose
	}
}

// Usecase implements user registration: validation, persistence and the
// detached welcome email.
type Usecase struct {
	repo     Repository
	mailer   Mailer
	hasher   PasswordHasher
	log      *zap.Logger
	validate *validator.Validate
	verbose  bool

	inflight sync.WaitGroup // welcome emails still being sent
}

// New creates a new registration use case.
func New(r Repository, m Mailer, h PasswordHasher, log *zap.Logger, opts ...Option) *Usecase {
	uc := &Usecase{
		repo:     r,
		mailer:   m,
		hasher:   h,
		log:      log,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// missingFields lists the struct fields that failed the required check.
func missingFields(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	fields := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, e.Field())
	}
	return fields
}

// Register creates a user and schedules the welcome email. The returned
// response does not depend on the email outcome.
func (uc *Usecase) Register(ctx context.Context, in RegisterRequest) (*RegisterResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("registering user", zap.String("name", in.Name), zap.String("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("registration rejected", zap.Strings("missing", missingFields(err)))
		return nil, apperrors.ErrMissingFields
	}

	existing, err := uc.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to check existing email", err)
	}
	if existing != nil {
		log.Warn("email already exists", zap.String("email", in.Email), zap.Int64("existing_id", existing.ID))
		return nil, apperrors.ErrDuplicateEmail
	}

	hashed, err := uc.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return nil, apperrors.NewFieldValidationError(err.Error())
		}
		log.Error("failed to hash password", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	created, err := uc.repo.Create(ctx, &domain.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hashed,
	})
	if err != nil {
		var duplicate *apperrors.AlreadyExistsError
		var invalid *apperrors.FieldValidationError
		switch {
		case errors.As(err, &duplicate):
			log.Warn("email already exists", zap.String("email", in.Email))
			return nil, duplicate
		case errors.As(err, &invalid):
			log.Warn("user rejected by store", zap.Strings("reasons", invalid.Messages))
			return nil, invalid
		default:
			log.Error("failed to create user", uc.errorFields(err)...)
			return nil, apperrors.NewInternalError("failed to create user", err)
		}
	}

	uc.sendWelcome(ctx, created.Email, created.Name)

	return &RegisterResponse{
		ID:    created.ID,
		Name:  created.Name,
		Email: created.Email,
	}, nil
}

// sendWelcome dispatches the welcome email on its own goroutine. The request
// context's values are kept but its cancellation is not.
func (uc *Usecase) sendWelcome(ctx context.Context, email, name string) {
	ctx = context.WithoutCancel(ctx)
	log := logger.WithContext(ctx, uc.log)

	uc.inflight.Add(1)
	go func() {
		defer uc.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic while sending welcome email", zap.Any("panic", r), zap.Stack("stack"))
			}
		}()

		if err := uc.mailer.SendWelcome(ctx, email, name); err != nil {
			log.Error("welcome email failed", append(uc.errorFields(err), zap.String("email", email))...)
			return
		}
		log.Info("welcome email sent", zap.String("email", email))
	}()
}

// errorFields returns the log fields for err, with full detail in verbose mode.
func (uc *Usecase) errorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	if uc.verbose {
		fields = append(fields, zap.String("error_detail", fmt.Sprintf("%+v", err)))
	}
	return fields
}

// Wait blocks until every in-flight welcome email has finished or ctx is done.
func (uc *Usecase) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		uc.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("welcome emails still in flight: %w", ctx.Err())
	}
}
