package endpoint

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/medbook/medbook/model"
	"github.com/medbook/medbook/util"
)

type createAvailabilityRequest struct {
	DayOfWeek *int   `json:"day_of_week" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

func validateAvailabilityRequest(req createAvailabilityRequest) error {
	if req.DayOfWeek == nil || *req.DayOfWeek < model.Monday || *req.DayOfWeek > model.Sunday {
		return fmt.Errorf("day_of_week must be between 0 (Monday) and 6 (Sunday)")
	}
	start, err := minutesOfDay(req.StartTime)
	if err != nil {
		return fmt.Errorf("start_time must be in HH:MM format")
	}
	end, err := minutesOfDay(req.EndTime)
	if err != nil {
		return fmt.Errorf("end_time must be in HH:MM format")
	}
	if start >= end {
		return fmt.Errorf("start_time must be before end_time")
	}
	return nil
}

// ListMyAvailability returns the availability windows of the calling doctor.
func ListMyAvailability(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}
	doctor, ok := doctorProfileForUser(c, db, userID)
	if !ok {
		return
	}

	var windows []model.DoctorAvailability
	if err := db.Where("doctor_id = ?", doctor.ID).
		Order("day_of_week ASC, start_time ASC").
		Find(&windows).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to fetch availability", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Availability retrieved",
		Data: map[string]interface{}{"total": len(windows), "availability": windows},
	})
}

// ListDoctorAvailability returns a doctor's windows for the booking page.
func ListDoctorAvailability(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var doctor model.DoctorProfile
	if err := db.First(&doctor, doctorID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Doctor not found", Err: err})
		return
	}

	var windows []model.DoctorAvailability
	if err := db.Where("doctor_id = ?", doctor.ID).
		Order("day_of_week ASC, start_time ASC").
		Find(&windows).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to fetch availability", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Availability retrieved",
		Data: map[string]interface{}{"total": len(windows), "availability": windows},
	})
}

// CreateAvailability adds a weekly window for the calling doctor. Windows are
// immutable once created; doctors delete and recreate them to change hours.
func CreateAvailability(c *gin.Context) {
	var req createAvailabilityRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}
	if err := validateAvailabilityRequest(req); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: fmt.Errorf("invalid payload")})
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
	doctor, ok := doctorProfileForUser(c, db, userID)
	if !ok {
		return
	}

	window := model.DoctorAvailability{
		DoctorID:  doctor.ID,
		DayOfWeek: *req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := db.Create(&window).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create availability", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Availability created", Data: window})
}

// DeleteAvailability removes one of the calling doctor's windows.
func DeleteAvailability(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}
	windowID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	doctor, ok := doctorProfileForUser(c, db, userID)
	if !ok {
		return
	}

	var window model.DoctorAvailability
	if err := db.Where("id = ? AND doctor_id = ?", windowID, doctor.ID).First(&window).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Availability not found", Err: err})
		return
	}

	if err := db.Delete(&window).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete availability", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Availability deleted", Data: nil})
}
