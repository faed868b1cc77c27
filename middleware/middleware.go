package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medbook/medbook/config"
	"github.com/medbook/medbook/util"
	"gorm.io/gorm"
)

const (
	dbContext     = "db"
	userIDContext = "userID"
	roleIDContext = "roleID"
)

// CORSMiddleware configures CORS headers for incoming requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization, session-token")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Content-Type", "application/json")

		// For preflight requests, respond with 204 and abort further processing.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// DatabaseMiddleware injects the gorm DB handle into the request context.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbContext, db)
		c.Next()
	}
}

// GetDB returns the request-scoped gorm DB handle, or nil if none was injected.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(dbContext)
	if !ok {
		return nil
	}
	db, ok := v.(*gorm.DB)
	if !ok {
		return nil
	}
	return db
}

// SetAuthContext stores the authenticated user and role IDs in the request
// context. Used by ValidateLoginToken and by tests that bypass login.
func SetAuthContext(c *gin.Context, userID uint, roleID uint32) {
	c.Set(userIDContext, userID)
	c.Set(roleIDContext, roleID)
}

// GetUserID returns the authenticated user ID from the request context.
func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(userIDContext)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// GetRoleID returns the authenticated role ID from the request context.
func GetRoleID(c *gin.Context) (uint32, bool) {
	v, ok := c.Get(roleIDContext)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint32)
	return id, ok
}

// parseSessionValue parses the Redis session value format "userID:roleID".
func parseSessionValue(val string) (uint, uint32, bool) {
	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	uid, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || uid == 0 {
		return 0, 0, false
	}
	rid, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	return uint(uid), uint32(rid), true
}

// ValidateLoginToken authenticates the request from the session-token header.
// It first consults the Redis session cache and falls back to the sessions
// table when Redis is unavailable or holds a malformed value.
func ValidateLoginToken(c *gin.Context) {
	sessionToken := c.GetHeader("session-token")
	if sessionToken == "" {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Session token not provided",
			Err: fmt.Errorf("session token not provided"),
		})
		c.Abort()
		return
	}

	db := GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database connection not available",
			Err: fmt.Errorf("db is nil"),
		})
		c.Abort()
		return
	}

	if rdb := config.GetRedisClient(); rdb != nil {
		val, err := rdb.Get(context.Background(), fmt.Sprintf("session:%s", sessionToken)).Result()
		if err == nil {
			if uid, rid, ok := parseSessionValue(val); ok {
				SetAuthContext(c, uid, rid)
				c.Next()
				return
			}
		}
	}

	// DB fallback: join sessions and users to recover the role as well.
	var result struct {
		UserID uint   `gorm:"column:user_id"`
		RoleID uint32 `gorm:"column:role_id"`
	}
	err := db.Table("sessions").
		Select("sessions.user_id, users.role_id").
		Joins("JOIN users ON users.id = sessions.user_id").
		Where("sessions.session_token = ? AND sessions.expires_at > ? AND sessions.deleted_at IS NULL", sessionToken, time.Now()).
		Scan(&result).Error
	if err != nil || result.UserID == 0 {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Session not found or has expired",
			Err: fmt.Errorf("invalid session token"),
		})
		c.Abort()
		return
	}

	SetAuthContext(c, result.UserID, result.RoleID)
	c.Next()
}

// RequireRole aborts the request with 403 unless the authenticated caller
// holds the given role. Must run after ValidateLoginToken.
func RequireRole(roleID uint32) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid, ok := GetRoleID(c)
		if !ok || rid != roleID {
			userID, _ := GetUserID(c)
			util.LogUnauthorizedAccess(fmt.Sprintf("%d", userID), "", c.ClientIP(), c.Request.URL.Path, "role mismatch")
			util.CallUserForbidden(c, util.APIErrorParams{
				Msg: "You do not have permission to perform this action",
				Err: fmt.Errorf("forbidden"),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
