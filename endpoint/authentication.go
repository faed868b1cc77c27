package endpoint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/medbook/medbook/config"
	"github.com/medbook/medbook/middleware"
	"github.com/medbook/medbook/model"
	"github.com/medbook/medbook/util"
	"gorm.io/gorm"
)

type SignupRequest struct {
	Name     string `json:"name" binding:"required" example:"Jane Doe"`
	Email    string `json:"email" binding:"required,email" example:"jane@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
	Role     string `json:"role" binding:"required" example:"PATIENT"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

type LoginResponse struct {
	Token  string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Role   string `json:"role" example:"Patient"`
	UserID uint   `json:"user_id" example:"1"`
}

const sessionDuration = time.Hour

// signupRoleID maps the public role names onto seeded role IDs. Admin
// accounts cannot be self-registered.
func signupRoleID(role string) (uint32, error) {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "PATIENT":
		return model.RolePatient, nil
	case "DOCTOR":
		return model.RoleDoctor, nil
	default:
		return 0, fmt.Errorf("role must be PATIENT or DOCTOR")
	}
}

// Signup godoc
// @Summary      Register a new account
// @Description  Create a user with a PATIENT or DOCTOR role; the matching role profile is created in the same transaction. Doctor accounts start unapproved.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Registration details"
// @Success      200 {object} util.APIResponse "Signup successful"
// @Failure      400 {object} util.APIResponse "Invalid request or email already exists"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /signup [post]
func Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	roleID, err := signupRoleID(req.Role)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: fmt.Errorf("invalid role")})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	if !ensureEmailAvailable(c, db, req.Email) {
		return
	}

	hashedPassword, salt, ok := hashPasswordForSignup(c, req.Password)
	if !ok {
		return
	}

	user := model.User{
		Name:         util.NormalizeName(req.Name),
		Email:        req.Email,
		Password:     hashedPassword,
		PasswordSalt: salt,
		RoleID:       roleID,
	}

	// The role profile is created here, as an explicit step of registration,
	// so the whole account setup is one traceable transaction.
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		switch roleID {
		case model.RolePatient:
			return tx.Create(&model.PatientProfile{UserID: user.ID}).Error
		case model.RoleDoctor:
			return tx.Create(&model.DoctorProfile{UserID: user.ID, IsApproved: false}).Error
		}
		return nil
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create new user", Err: err})
		return
	}

	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventSignupSuccess,
		UserID:    fmt.Sprintf("%d", user.ID),
		Email:     user.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   "User registered",
	})

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Signup successful",
		Data: map[string]interface{}{"user_id": user.ID, "role_id": roleID},
	})
}

// Login godoc
// @Summary      User login
// @Description  Authenticate user with email and password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} util.APIResponse{data=LoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid email or password"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /login [post]
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ci := clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}
	ctx := loginContext{C: c, DB: db, Email: req.Email, CI: ci}

	user, ok := loadUserForLogin(ctx)
	if !ok {
		return
	}

	if !ensureAccountNotLocked(ctx, &user) {
		return
	}

	if !verifyPasswordOrRespond(ctx, &user, req.Password) {
		return
	}

	finalizeLogin(ctx, &user)
}

// helper types and functions to simplify the Login flow
type clientInfo struct {
	IP    string
	Agent string
}

type loginContext struct {
	C     *gin.Context
	DB    *gorm.DB
	Email string
	CI    clientInfo
}

func loadUserForLogin(ctx loginContext) (model.User, bool) {
	user, err := loadUserByEmail(ctx.DB, ctx.Email)
	if err == gorm.ErrRecordNotFound {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "user not found")
		util.CallUserError(ctx.C, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("user not found")})
		return model.User{}, false
	}
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "database error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Database error", Err: err})
		return model.User{}, false
	}
	return user, true
}

func ensureAccountNotLocked(ctx loginContext, user *model.User) bool {
	if locked, expiry := isAccountLocked(user); locked {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "account locked")
		util.CallUserError(ctx.C, util.APIErrorParams{
			Msg: fmt.Sprintf("Account is locked until %s due to multiple failed login attempts", expiry.Format(time.RFC3339)),
			Err: fmt.Errorf("account locked"),
		})
		return false
	}
	return true
}

func verifyPasswordOrRespond(ctx loginContext, user *model.User, plain string) bool {
	match, err := util.VerifyPassword(plain, user.Password, user.PasswordSalt)
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "password verification error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Password verification failed", Err: err})
		return false
	}
	if !match {
		incrementFailedAttempts(ctx.DB, user, ctx.CI)
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "invalid password")
		util.CallUserError(ctx.C, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("invalid password")})
		return false
	}
	return true
}

func finalizeLogin(ctx loginContext, user *model.User) bool {
	if err := resetFailedAttempts(ctx.DB, user); err != nil {
		util.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventSuspiciousActivity,
			UserID:    fmt.Sprintf("%d", user.ID),
			Email:     user.Email,
			IP:        ctx.CI.IP,
			Message:   fmt.Sprintf("Failed to reset failed attempts: %v", err),
		})
	}

	role, ok := fetchRoleOrRespond(ctx, user.RoleID)
	if !ok {
		return false
	}

	tokenString, err := createJWTToken(*user)
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "token generation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return false
	}

	sessionInfo := SessionInfo{UserID: user.ID, Token: tokenString, Client: ctx.CI, Expires: time.Now().Add(sessionDuration)}
	session, err := recordSession(ctx.DB, sessionInfo)
	if err != nil {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "session creation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Failed to record session", Err: err})
		return false
	}

	// Store session in Redis (best-effort)
	if rdb := config.GetRedisClient(); rdb != nil {
		exp := time.Until(session.ExpiresAt)
		val := fmt.Sprintf("%d:%d", session.UserID, user.RoleID)
		_ = rdb.Set(context.Background(), fmt.Sprintf("session:%s", tokenString), val, exp).Err()
		_ = util.AddSessionToUserSet(session.UserID, tokenString, exp)
	}

	util.LogLoginSuccess(user.ID, user.Email, ctx.CI.IP, ctx.CI.Agent)
	util.CallSuccessOK(ctx.C, util.APISuccessParams{
		Msg:  "Login successful",
		Data: LoginResponse{Token: tokenString, Role: role.Name, UserID: user.ID},
	})
	return true
}

func fetchRoleOrRespond(ctx loginContext, roleID uint32) (model.Role, bool) {
	var role model.Role
	err := ctx.DB.Model(&role).Where("id = ?", roleID).First(&role).Error
	if err == gorm.ErrRecordNotFound {
		util.LogLoginFailure(ctx.Email, ctx.CI.IP, ctx.CI.Agent, "role not found")
		util.CallUserError(ctx.C, util.APIErrorParams{Msg: "Role not found", Err: fmt.Errorf("role not found")})
		return model.Role{}, false
	}
	if err != nil {
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Database error", Err: err})
		return model.Role{}, false
	}
	return role, true
}

func ensureEmailAvailable(c *gin.Context, db *gorm.DB, email string) bool {
	var existingUser model.User
	err := db.First(&existingUser, "email = ?", email).Error
	if err != gorm.ErrRecordNotFound {
		if err == nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "Email already exists", Err: fmt.Errorf("email already exists")})
			return false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return false
	}
	return true
}

func hashPasswordForSignup(c *gin.Context, plain string) (string, string, bool) {
	salt, err := util.GenerateSalt()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to generate password salt", Err: err})
		return "", "", false
	}
	hashedPassword, err := util.HashPasswordArgon2(plain, salt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return "", "", false
	}
	return hashedPassword, salt, true
}

func loadUserByEmail(db *gorm.DB, email string) (model.User, error) {
	var user model.User
	err := db.Model(&user).Where("email = ?", email).First(&user).Error
	return user, err
}

func isAccountLocked(user *model.User) (bool, time.Time) {
	if user.LockedUntil != nil && *user.LockedUntil > time.Now().Unix() {
		return true, time.Unix(*user.LockedUntil, 0)
	}
	return false, time.Time{}
}

func incrementFailedAttempts(db *gorm.DB, user *model.User, ci clientInfo) {
	user.FailedAttempts++
	if user.FailedAttempts >= 5 {
		lockUntil := time.Now().Add(15 * time.Minute).Unix()
		user.LockedUntil = &lockUntil
		util.LogAccountLocked(user.ID, user.Email, ci.IP, "too many failed login attempts")
		// Kill any live sessions for the locked account (best-effort).
		_ = util.InvalidateUserSessions(user.ID)
	}
	if err := db.Save(user).Error; err != nil {
		util.LogLoginFailure(user.Email, ci.IP, ci.Agent, "failed to update failed attempts")
	}
}

func resetFailedAttempts(db *gorm.DB, user *model.User) error {
	if user.FailedAttempts > 0 || user.LockedUntil != nil {
		user.FailedAttempts = 0
		user.LockedUntil = nil
		return db.Save(user).Error
	}
	return nil
}

func createJWTToken(user model.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": user.Email,
		"exp":   time.Now().Add(sessionDuration).Unix(),
		"role":  user.RoleID,
	})
	return token.SignedString(util.GetJWTSecretByte())
}

// SessionInfo groups parameters for creating a session to avoid long argument lists.
type SessionInfo struct {
	UserID  uint
	Token   string
	Client  clientInfo
	Expires time.Time
}

func recordSession(db *gorm.DB, info SessionInfo) (model.Session, error) {
	session := model.Session{
		UserID:       info.UserID,
		SessionToken: info.Token,
		ExpiresAt:    info.Expires,
		ClientIP:     info.Client.IP,
		Browser:      info.Client.Agent,
	}
	err := db.Create(&session).Error
	return session, err
}

// Logout godoc
// @Summary      User logout
// @Description  Invalidate the user session token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Logout successful"
// @Failure      400 {object} util.APIResponse "Session not found"
// @Failure      401 {object} util.APIResponse "Session token not provided"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /logout [delete]
func Logout(c *gin.Context) {
	sessionToken := c.GetHeader("session-token")
	if sessionToken == "" {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Session token not provided",
			Err: fmt.Errorf("session token not provided"),
		})
		c.Abort()
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var session model.Session
	if err := db.Where("session_token = ?", sessionToken).First(&session).Error; err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Session not found", Err: err})
		return
	}

	if err := db.Delete(&session).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete session", Err: err})
		return
	}

	// Drop the Redis copy as well (best-effort)
	if rdb := config.GetRedisClient(); rdb != nil {
		_ = rdb.Del(context.Background(), fmt.Sprintf("session:%s", sessionToken)).Err()
		_ = util.RemoveSessionTokenFromUserSet(session.UserID, sessionToken)
	}

	userID, _ := middleware.GetUserID(c)
	util.LogLogout(userID, "", c.ClientIP(), c.Request.UserAgent())

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Logout successful", Data: nil})
}
