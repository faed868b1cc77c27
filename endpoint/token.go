package endpoint

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medbook/medbook/model"
	"github.com/medbook/medbook/util"
)

// ValidateToken godoc
// @Summary      Validate session token
// @Description  Validate if the session token is valid and not expired
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Valid session token"
// @Failure      401 {object} util.APIResponse "Invalid or expired session token"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /token/validate [get]
func ValidateToken(c *gin.Context) {
	sessionToken := c.GetHeader("session-token")
	if sessionToken == "" {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Invalid session token",
			Err: fmt.Errorf("session token not provided"),
		})
		c.Abort()
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	// Join sessions, users, and roles to retrieve the role name aliased as 'role'
	var result struct {
		model.Session
		Role string `json:"role"`
	}
	err := db.Table("sessions").
		Select("sessions.*, roles.name as role").
		Joins("JOIN users ON sessions.user_id = users.id").
		Joins("JOIN roles ON users.role_id = roles.id").
		Where("session_token = ? AND expires_at > ? AND sessions.deleted_at IS NULL", sessionToken, time.Now()).
		First(&result).Error
	if err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Session not found",
			Err: fmt.Errorf("invalid session token"),
		})
		c.Abort()
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Valid session token",
		Data: result,
	})
}
