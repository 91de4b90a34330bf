package handler

import (
	"errors"
	"io"
	"net/http"

	"registration-service/internal/usecase/user"
	apperrors "registration-service/pkg/errors"
	"registration-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisteredMessage is returned with every successful registration.
const RegisteredMessage = "Registration successful. Email sent."

// UserHandler handles HTTP requests for user registration
type UserHandler struct {
	uc  user.UserUsecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.UserUsecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// RegisterRequest represents the HTTP request body for registering a user.
// Presence is checked by the use case so every missing field yields one message.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents the public view of a user
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RegisterResponse represents the HTTP response for a created user
type RegisterResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register handles POST /register
func (h *UserHandler) Register(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	// An empty body is treated as an empty object.
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Warn("invalid register request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON body: " + err.Error()})
		return
	}

	resp, err := h.uc.Register(c.Request.Context(), user.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		Message: RegisteredMessage,
		User: UserResponse{
			ID:    resp.ID,
			Name:  resp.Name,
			Email: resp.Email,
		},
	})
}

// handleError converts use case errors to JSON error responses
func (h *UserHandler) handleError(c *gin.Context, err error) {
	var (
		missing   *apperrors.ValidationError
		duplicate *apperrors.AlreadyExistsError
		invalid   *apperrors.FieldValidationError
		internal  *apperrors.InternalError
	)

	status := statusOf(err)

	switch {
	case errors.As(err, &missing):
		c.JSON(status, ErrorResponse{Error: missing.Error()})
	case errors.As(err, &duplicate):
		c.JSON(status, ErrorResponse{Error: apperrors.DuplicateEmailMessage})
	case errors.As(err, &invalid):
		c.JSON(status, ErrorResponse{Error: invalid.Error()})
	case errors.As(err, &internal):
		logger.WithContext(c.Request.Context(), h.log).Error("registration error", zap.Error(err))
		c.JSON(status, ErrorResponse{Error: internal.Reason()})
	default:
		logger.WithContext(c.Request.Context(), h.log).Error("registration error", zap.Error(err))
		msg := err.Error()
		if msg == "" {
			msg = apperrors.FallbackMessage
		}
		c.JSON(status, ErrorResponse{Error: msg})
	}
}

// statusOf returns the HTTP status carried by err, or 400 when it has none.
func statusOf(err error) int {
	var coder apperrors.StatusCoder
	if errors.As(err, &coder) {
		return coder.StatusCode()
	}
	return http.StatusBadRequest
}
