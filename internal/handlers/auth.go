package handlers

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dominik-hvln/hv-hosting-platform/internal/config"
	"github.com/dominik-hvln/hv-hosting-platform/internal/database"
	"github.com/dominik-hvln/hv-hosting-platform/internal/middleware"
	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// LoginAttempt tracks failed login attempts
type LoginAttempt struct {
	Count     int
	LastTry   time.Time
	BlockedAt *time.Time
}

var (
	loginAttempts = make(map[string]*LoginAttempt)
	attemptsMutex sync.RWMutex
)

// getSecuritySetting retrieves a security setting from database
func getSecuritySetting(key string, defaultVal int) int {
	var setting models.SystemSetting
	if err := database.DB.Where("key = ?", key).First(&setting).Error; err != nil {
		return defaultVal
	}
	if val, err := strconv.Atoi(setting.Value); err == nil {
		return val
	}
	return defaultVal
}

// isIPBlocked checks if IP has too many failed attempts
func isIPBlocked(ip string) (bool, int) {
	attemptsMutex.RLock()
	attempt, exists := loginAttempts[ip]
	attemptsMutex.RUnlock()

	if !exists {
		return false, 0
	}

	maxAttempts := getSecuritySetting("max_login_attempts", 5)
	blockDuration := 15 * time.Minute

	// Check if blocked
	if attempt.BlockedAt != nil {
		if time.Since(*attempt.BlockedAt) < blockDuration {
			remaining := int(blockDuration.Minutes() - time.Since(*attempt.BlockedAt).Minutes())
			return true, remaining
		}
		// Block expired, reset
		attemptsMutex.Lock()
		delete(loginAttempts, ip)
		attemptsMutex.Unlock()
		return false, 0
	}

	// Check if attempts expired (reset after 15 minutes of no attempts)
	if time.Since(attempt.LastTry) > blockDuration {
		attemptsMutex.Lock()
		delete(loginAttempts, ip)
		attemptsMutex.Unlock()
		return false, 0
	}

	return attempt.Count >= maxAttempts, 0
}

// recordFailedAttempt records a failed login attempt
func recordFailedAttempt(ip string) int {
	attemptsMutex.Lock()
	defer attemptsMutex.Unlock()

	maxAttempts := getSecuritySetting("max_login_attempts", 5)

	if _, exists := loginAttempts[ip]; !exists {
		loginAttempts[ip] = &LoginAttempt{Count: 0}
	}

	loginAttempts[ip].Count++
	loginAttempts[ip].LastTry = time.Now()

	if loginAttempts[ip].Count >= maxAttempts {
		now := time.Now()
		loginAttempts[ip].BlockedAt = &now
	}

	return maxAttempts - loginAttempts[ip].Count
}

// clearFailedAttempts clears failed attempts on successful login
func clearFailedAttempts(ip string) {
	attemptsMutex.Lock()
	defer attemptsMutex.Unlock()
	delete(loginAttempts, ip)
}

type AuthHandler struct {
	cfg *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// RegisterRequest represents registration request body
type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	ReferralCode string `json:"referral_code"`
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	TwoFACode string `json:"two_fa_code"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message,omitempty"`
	Token       string    `json:"token,omitempty"`
	User        *UserInfo `json:"user,omitempty"`
	Requires2FA bool      `json:"requires_2fa,omitempty"`
}

// UserInfo represents user info in response
type UserInfo struct {
	ID           uint            `json:"id"`
	Email        string          `json:"email"`
	FullName     string          `json:"full_name"`
	Role         models.UserRole `json:"role"`
	ReferralCode string          `json:"referral_code"`
}

// newReferralCode generates a short unique referral code
func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// Register handles customer registration
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "A valid email is required",
		})
	}
	if len(req.Password) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Password must be at least 6 characters",
		})
	}

	var count int64
	database.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Email is already registered",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to hash password",
		})
	}

	user := models.User{
		Email:        req.Email,
		Password:     string(hashedPassword),
		FullName:     req.FullName,
		Role:         models.UserRoleCustomer,
		IsActive:     true,
		ReferralCode: newReferralCode(),
	}

	// Attach referrer when a valid referral code is supplied; an unknown
	// code is ignored rather than rejected
	if req.ReferralCode != "" {
		var referrer models.User
		if err := database.DB.Where("referral_code = ?", strings.ToUpper(req.ReferralCode)).First(&referrer).Error; err == nil {
			user.ReferredBy = &referrer.ID
		}
	}

	if err := database.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create user",
		})
	}

	auditLog := models.AuditLog{
		UserID:      user.ID,
		Email:       user.Email,
		Action:      models.AuditActionCreate,
		EntityType:  "user",
		EntityID:    user.ID,
		Description: "User registered",
		IPAddress:   c.IP(),
	}
	database.DB.Create(&auditLog)

	token, err := middleware.GenerateToken(&user, h.cfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to generate token",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(LoginResponse{
		Success: true,
		Token:   token,
		User: &UserInfo{
			ID:           user.ID,
			Email:        user.Email,
			FullName:     user.FullName,
			Role:         user.Role,
			ReferralCode: user.ReferralCode,
		},
	})
}

// Login handles user login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	clientIP := c.IP()

	// Check if IP is blocked due to too many failed attempts
	if blocked, remaining := isIPBlocked(clientIP); blocked {
		return c.Status(fiber.StatusTooManyRequests).JSON(LoginResponse{
			Success: false,
			Message: "Too many failed login attempts. Please try again in " + strconv.Itoa(remaining) + " minutes",
		})
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(LoginResponse{
			Success: false,
			Message: "Invalid request body",
		})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(LoginResponse{
			Success: false,
			Message: "Email and password are required",
		})
	}

	// Find user
	var user models.User
	if err := database.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		remaining := recordFailedAttempt(clientIP)
		msg := "Invalid email or password"
		if remaining > 0 {
			msg += ". " + strconv.Itoa(remaining) + " attempts remaining"
		}
		return c.Status(fiber.StatusUnauthorized).JSON(LoginResponse{
			Success: false,
			Message: msg,
		})
	}

	// Check if user is active
	if !user.IsActive {
		return c.Status(fiber.StatusUnauthorized).JSON(LoginResponse{
			Success: false,
			Message: "Account is disabled",
		})
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		remaining := recordFailedAttempt(clientIP)
		msg := "Invalid email or password"
		if remaining > 0 {
			msg += ". " + strconv.Itoa(remaining) + " attempts remaining"
		}
		return c.Status(fiber.StatusUnauthorized).JSON(LoginResponse{
			Success: false,
			Message: msg,
		})
	}

	// Check if 2FA is enabled for this user
	if user.TwoFactorEnabled {
		if req.TwoFACode == "" {
			// Password is correct, but need 2FA code
			return c.JSON(LoginResponse{
				Success:     false,
				Requires2FA: true,
				Message:     "2FA code required",
			})
		}
		// Verify 2FA code
		if !totp.Validate(req.TwoFACode, user.TwoFactorSecret) {
			remaining := recordFailedAttempt(clientIP)
			msg := "Invalid 2FA code"
			if remaining > 0 {
				msg += ". " + strconv.Itoa(remaining) + " attempts remaining"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(LoginResponse{
				Success: false,
				Message: msg,
			})
		}
	}

	// Clear failed attempts on successful login
	clearFailedAttempts(clientIP)

	// Generate token
	token, err := middleware.GenerateToken(&user, h.cfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(LoginResponse{
			Success: false,
			Message: "Failed to generate token",
		})
	}

	// Update last login
	now := time.Now()
	database.DB.Model(&user).Update("last_login", now)

	// Log the login
	auditLog := models.AuditLog{
		UserID:      user.ID,
		Email:       user.Email,
		Action:      models.AuditActionLogin,
		EntityType:  "user",
		EntityID:    user.ID,
		Description: "User logged in",
		IPAddress:   c.IP(),
	}
	database.DB.Create(&auditLog)

	return c.JSON(LoginResponse{
		Success: true,
		Token:   token,
		User: &UserInfo{
			ID:           user.ID,
			Email:        user.Email,
			FullName:     user.FullName,
			Role:         user.Role,
			ReferralCode: user.ReferralCode,
		},
	})
}

// Logout handles user logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	// Blacklist the current token for the remainder of its lifetime
	authHeader := c.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		ttl := time.Duration(h.cfg.JWTExpireHours) * time.Hour
		database.BlacklistToken(parts[1], ttl)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Me returns current user info
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":                 user.ID,
			"email":              user.Email,
			"full_name":          user.FullName,
			"role":               user.Role,
			"is_active":          user.IsActive,
			"two_factor_enabled": user.TwoFactorEnabled,
			"referral_code":      user.ReferralCode,
			"last_login":         user.LastLogin,
			"created_at":         user.CreatedAt,
		},
	})
}

// ChangePassword handles password change
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	// Verify current password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Current password is incorrect",
		})
	}

	// Validate new password
	if len(req.NewPassword) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Password must be at least 6 characters",
		})
	}

	// Hash new password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to hash password",
		})
	}

	if err := database.DB.Model(user).Update("password", string(hashedPassword)).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update password",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password changed successfully",
	})
}

// RefreshToken generates a new token
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	token, err := middleware.GenerateToken(user, h.cfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
	})
}

// HashPassword hashes a password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}
