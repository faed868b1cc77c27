package endpoint

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/medbook/medbook/model"
	"github.com/medbook/medbook/util"
)

type updatePatientProfileRequest struct {
	Phone       string `json:"phone"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
	Location    string `json:"location"`
	Address     string `json:"address"`
}

// GetPatientProfile godoc
// @Summary      Get own patient profile
// @Description  Get the calling patient's profile
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=model.PatientProfile} "Profile retrieved"
// @Failure      403 {object} util.APIResponse "Not a patient account"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patient/profile [get]
func GetPatientProfile(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}

	var profile model.PatientProfile
	if err := db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		util.CallUserForbidden(c, util.APIErrorParams{Msg: "Patient profile not found for this account", Err: fmt.Errorf("forbidden")})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Profile retrieved", Data: profile})
}

// UpdatePatientProfile godoc
// @Summary      Update own patient profile
// @Description  Update the calling patient's contact and demographic fields
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body updatePatientProfileRequest true "Profile fields"
// @Success      200 {object} util.APIResponse{data=model.PatientProfile} "Profile updated"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      403 {object} util.APIResponse "Not a patient account"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patient/profile [patch]
func UpdatePatientProfile(c *gin.Context) {
	var req updatePatientProfileRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}

	var profile model.PatientProfile
	if err := db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		util.CallUserForbidden(c, util.APIErrorParams{Msg: "Patient profile not found for this account", Err: fmt.Errorf("forbidden")})
		return
	}

	if req.Phone != "" {
		profile.Phone = req.Phone
	}
	if req.Gender != "" {
		profile.Gender = req.Gender
	}
	if req.DateOfBirth != "" {
		profile.DateOfBirth = req.DateOfBirth
	}
	if req.Location != "" {
		profile.Location = req.Location
	}
	if req.Address != "" {
		profile.Address = req.Address
	}

	if err := db.Save(&profile).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update patient profile", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Profile updated", Data: profile})
}
