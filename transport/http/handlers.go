package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/willvault/auth/core"
	"github.com/willvault/auth/ports"
	"github.com/willvault/auth/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	wallet   *service.WalletAuthService
	otp      *service.OTPService
	sessions *service.SessionService
	users    ports.UserStore
	log      *zap.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(
	wallet *service.WalletAuthService,
	otp *service.OTPService,
	sessions *service.SessionService,
	users ports.UserStore,
	log *zap.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		wallet:   wallet,
		otp:      otp,
		sessions: sessions,
		users:    users,
		log:      log,
	}
}

// pendingRegistration is the payload held by a verification code until the
// email is proven
type pendingRegistration struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// WalletChallenge handles the wallet challenge request
func (h *AuthHandlers) WalletChallenge(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Purpose   string `json:"purpose" binding:"required"`
		PaymentID string `json:"payment_id"`
		Amount    string `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	purpose := core.ChallengePurpose(req.Purpose)
	var payment *core.PaymentDetails
	if purpose == core.PurposePayment {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || req.PaymentID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment details"})
			return
		}
		payment = &core.PaymentDetails{PaymentID: req.PaymentID, Amount: amount}
	}

	ch, err := h.wallet.IssueChallenge(c.Request.Context(), req.Address, purpose, payment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         ch.ID,
		"message":    ch.Message,
		"expires_at": ch.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// WalletVerify handles the signed challenge response and issues a session
func (h *AuthHandlers) WalletVerify(c *gin.Context) {
	var req struct {
		Message   string `json:"message" binding:"required"`
		Signature string `json:"signature" binding:"required"`
		PublicKey string `json:"public_key" binding:"required"`
		Address   string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	identity, err := h.wallet.VerifyChallengeResponse(ctx, req.Message, req.Signature, req.PublicKey, req.Address)
	if err != nil {
		respondError(c, err)
		return
	}

	// First successful verification registers the wallet
	user, err := h.users.FindByWalletAddress(ctx, identity.WalletAddress)
	if errors.Is(err, core.ErrUserNotFound) {
		user = &core.User{
			WalletAddress: identity.WalletAddress,
			Role:          core.RoleUser,
			Verified:      true,
		}
		err = h.users.Create(ctx, user)
	}
	if err != nil {
		h.log.Error("wallet user resolution failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
		return
	}

	if err := h.users.UpdateLastLogin(ctx, user.ID); err != nil {
		h.log.Warn("failed to update last login", zap.String("user", user.ID), zap.Error(err))
	}

	token, err := h.sessions.Issue(user.Identity())
	if err != nil {
		h.log.Error("session issuance failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(service.DefaultSessionTTL.Seconds()),
		"user": gin.H{
			"id":      user.ID,
			"address": user.WalletAddress,
			"role":    user.Role,
		},
	})
}

// Register starts email registration by issuing a verification code. The
// response is the same whether or not the email is already registered or
// already pending, so the endpoint cannot be used to enumerate accounts.
func (h *AuthHandlers) Register(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		DisplayName string `json:"display_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	email := core.NormalizeEmail(req.Email)
	accepted := gin.H{"message": "If the email is available, a verification code has been sent"}

	if _, err := h.users.FindByEmail(ctx, email); err == nil {
		c.JSON(http.StatusOK, accepted)
		return
	}
	if h.otp.HasPendingVerification(ctx, email) {
		c.JSON(http.StatusOK, accepted)
		return
	}

	payload, err := json.Marshal(pendingRegistration{Email: email, DisplayName: req.DisplayName})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	if _, err := h.otp.IssueCode(ctx, email, payload); err != nil {
		h.log.Error("code issuance failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	c.JSON(http.StatusOK, accepted)
}

// VerifyEmail completes registration: the code unlocks the pending
// payload, the account is created, and the code record is consumed.
func (h *AuthHandlers) VerifyEmail(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	payload, err := h.otp.Verify(ctx, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	var pending pendingRegistration
	if err := json.Unmarshal(payload, &pending); err != nil {
		h.log.Error("pending registration payload corrupt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	user := &core.User{
		Email:       pending.Email,
		DisplayName: pending.DisplayName,
		Role:        core.RoleUser,
		Verified:    true,
	}
	if err := h.users.Create(ctx, user); err != nil {
		h.log.Error("user creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	// Close the replay window now that the payload is spent
	if err := h.otp.Consume(ctx, req.Code); err != nil {
		h.log.Warn("failed to consume verified code", zap.Error(err))
	}

	token, err := h.sessions.Issue(user.Identity())
	if err != nil {
		h.log.Error("session issuance failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(service.DefaultSessionTTL.Seconds()),
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.DisplayName,
			"role":  user.Role,
		},
	})
}

// ResendCode reissues the pending verification code for an email. The
// response never reveals whether a pending verification exists.
func (h *AuthHandlers) ResendCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if _, err := h.otp.Resend(c.Request.Context(), req.Email); err != nil && !errors.Is(err, core.ErrCodeNotFound) {
		h.log.Error("code resend failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"message": "If a verification is pending, a new code has been sent"})
}

// Refresh re-signs a still-valid session token with a fresh expiry
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, err := h.sessions.Refresh(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(service.DefaultSessionTTL.Seconds()),
	})
}

// Me returns the authenticated identity
func (h *AuthHandlers) Me(c *gin.Context) {
	identity := CurrentIdentity(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       identity.ID,
		"email":    identity.Email,
		"address":  identity.WalletAddress,
		"role":     identity.Role,
		"verified": identity.Verified,
		"name":     identity.DisplayName,
	})
}

// AdminOverview is an admin-only probe exercising the role guard
func (h *AuthHandlers) AdminOverview(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
