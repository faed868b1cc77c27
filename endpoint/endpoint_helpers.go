package endpoint

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/medbook/medbook/middleware"
	"github.com/medbook/medbook/model"
	"github.com/medbook/medbook/util"
	"gorm.io/gorm"
)

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
		return nil, false
	}
	return db, true
}

func getUserIDOrRespond(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "User not authenticated", Err: fmt.Errorf("user id not found in context")})
		return 0, false
	}
	return userID, true
}

// parseIDParam parses a numeric :id style path parameter.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	if raw == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: fmt.Sprintf("Missing %s", name), Err: fmt.Errorf("%s is required", name)})
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: fmt.Sprintf("Invalid %s", name), Err: err})
		return 0, false
	}
	return uint(id), true
}

func parseLimitOffset(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return limit, offset
}

// doctorProfileForUser resolves the doctor profile owned by the
// authenticated user, responding 403 when the caller has no doctor profile.
func doctorProfileForUser(c *gin.Context, db *gorm.DB, userID uint) (model.DoctorProfile, bool) {
	var doctor model.DoctorProfile
	if err := db.Where("user_id = ?", userID).First(&doctor).Error; err != nil {
		util.CallUserForbidden(c, util.APIErrorParams{Msg: "Doctor profile not found for this account", Err: fmt.Errorf("forbidden")})
		return model.DoctorProfile{}, false
	}
	return doctor, true
}
