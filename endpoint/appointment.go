package endpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medbook/medbook/middleware"
	"github.com/medbook/medbook/model"
	"github.com/medbook/medbook/util"
	"gorm.io/gorm"
)

type bookAppointmentRequest struct {
	DoctorID uint   `json:"doctor_id" binding:"required"`
	Date     string `json:"date" binding:"required"`
	Time     string `json:"time" binding:"required"`
	Notes    string `json:"notes"`
}

type rescheduleAppointmentRequest struct {
	Date  string `json:"date" binding:"required"`
	Time  string `json:"time" binding:"required"`
	Notes string `json:"notes"`
}

type appointmentActionRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// allowedActionStatuses are the only transitions a doctor can drive.
var allowedActionStatuses = []string{
	string(model.StatusConfirmed),
	string(model.StatusCancelled),
	string(model.StatusCompleted),
}

// respondSlotRejection maps a slot validation failure onto the right response.
// Returns false when the error was not a known rejection kind.
func respondSlotRejection(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, ErrInvalidSlotFormat):
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid date or time format", Err: err})
	case errors.Is(err, ErrPastDate):
		util.CallUserError(c, util.APIErrorParams{Msg: "You cannot book appointments for past dates", Err: err})
	case errors.Is(err, ErrDoctorUnavailable):
		util.CallUserError(c, util.APIErrorParams{Msg: "Doctor not available at this time", Err: err})
	default:
		return false
	}
	return true
}

// BookAppointment creates an appointment for the calling patient. A valid
// slot is confirmed immediately; there is no pending-approval stage.
func BookAppointment(c *gin.Context) {
	var req bookAppointmentRequest
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

	var doctor model.DoctorProfile
	if err := db.First(&doctor, req.DoctorID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Doctor not found", Err: err})
		return
	}
	if !doctor.IsApproved {
		util.CallUserError(c, util.APIErrorParams{Msg: "Doctor is not accepting appointments yet", Err: ErrDoctorNotApproved})
		return
	}

	if err := checkSlotBookable(db, doctor.ID, req.Date, req.Time); err != nil {
		if !respondSlotRejection(c, err) {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to validate appointment slot", Err: err})
		}
		return
	}

	appointment := model.Appointment{
		PatientID: userID,
		DoctorID:  doctor.ID,
		Date:      req.Date,
		Time:      req.Time,
		Notes:     req.Notes,
		Status:    model.StatusConfirmed,
	}
	if err := db.Create(&appointment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to book appointment", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment booked successfully", Data: appointment})
}

// ListAppointments returns the caller's appointments. Doctors get their
// schedule with per-status counts, patients their own bookings.
func ListAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}

	roleID, _ := middleware.GetRoleID(c)
	if roleID == model.RoleDoctor {
		listDoctorAppointments(c, db, userID)
		return
	}

	var appointments []model.Appointment
	if err := db.Where("patient_id = ?", userID).Order("created_at DESC").Find(&appointments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to fetch appointments", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointments retrieved",
		Data: map[string]interface{}{"total": len(appointments), "appointments": appointments},
	})
}

func listDoctorAppointments(c *gin.Context, db *gorm.DB, userID uint) {
	doctor, ok := doctorProfileForUser(c, db, userID)
	if !ok {
		return
	}

	var appointments []model.Appointment
	if err := db.Where("doctor_id = ?", doctor.ID).Order("date ASC, time ASC").Find(&appointments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to fetch appointments", Err: err})
		return
	}

	counts := map[string]int{}
	for _, a := range appointments {
		counts[string(a.Status)]++
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Appointments retrieved",
		Data: map[string]interface{}{
			"total":        len(appointments),
			"confirmed":    counts[string(model.StatusConfirmed)],
			"cancelled":    counts[string(model.StatusCancelled)],
			"completed":    counts[string(model.StatusCompleted)],
			"appointments": appointments,
		},
	})
}

// GetAppointment returns one appointment to its owning patient or doctor.
func GetAppointment(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}
	appointmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var appointment model.Appointment
	if err := db.First(&appointment, appointmentID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Appointment not found", Err: err})
		return
	}

	if appointment.PatientID != userID {
		var doctor model.DoctorProfile
		err := db.Where("user_id = ? AND id = ?", userID, appointment.DoctorID).First(&doctor).Error
		if err != nil {
			util.CallUserForbidden(c, util.APIErrorParams{Msg: "You do not have access to this appointment", Err: fmt.Errorf("forbidden")})
			return
		}
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment retrieved", Data: appointment})
}

// patientOwnedAppointment loads an appointment and enforces that the calling
// patient owns it.
func patientOwnedAppointment(c *gin.Context, db *gorm.DB, userID, appointmentID uint) (model.Appointment, bool) {
	var appointment model.Appointment
	if err := db.First(&appointment, appointmentID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Appointment not found", Err: err})
		return model.Appointment{}, false
	}
	if appointment.PatientID != userID {
		util.CallUserForbidden(c, util.APIErrorParams{Msg: "You do not have access to this appointment", Err: fmt.Errorf("forbidden")})
		return model.Appointment{}, false
	}
	return appointment, true
}

// RescheduleAppointment moves an appointment to a new date and time. The new
// slot is only checked for format, not against the doctor's availability;
// matching booking-time validation here is an open product decision.
func RescheduleAppointment(c *gin.Context) {
	var req rescheduleAppointmentRequest
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
	appointmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid date or time format", Err: ErrInvalidSlotFormat})
		return
	}
	if _, err := time.Parse(timeLayout, req.Time); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid date or time format", Err: ErrInvalidSlotFormat})
		return
	}

	appointment, ok := patientOwnedAppointment(c, db, userID, appointmentID)
	if !ok {
		return
	}

	appointment.Date = req.Date
	appointment.Time = req.Time
	appointment.Notes = req.Notes
	if err := db.Save(&appointment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to reschedule appointment", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment rescheduled", Data: appointment})
}

// DeleteAppointment removes an appointment. Only the owning patient may
// delete, and deletion is allowed in any status.
func DeleteAppointment(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}
	appointmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	appointment, ok := patientOwnedAppointment(c, db, userID, appointmentID)
	if !ok {
		return
	}

	if err := db.Delete(&appointment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete appointment", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment deleted", Data: nil})
}

// AppointmentAction lets the owning doctor drive the appointment lifecycle.
// A status outside {CONFIRMED, CANCELLED, COMPLETED} is ignored, leaving the
// appointment unchanged but still answering with success.
func AppointmentAction(c *gin.Context) {
	var req appointmentActionRequest
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
	appointmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	doctor, ok := doctorProfileForUser(c, db, userID)
	if !ok {
		return
	}

	var appointment model.Appointment
	if err := db.Where("id = ? AND doctor_id = ?", appointmentID, doctor.ID).First(&appointment).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Appointment not found", Err: err})
		return
	}

	if util.Contains(req.Status, allowedActionStatuses) {
		appointment.Status = model.AppointmentStatus(req.Status)
		if req.Notes != "" {
			appointment.Notes = req.Notes
		}
		if err := db.Save(&appointment).Error; err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update appointment", Err: err})
			return
		}
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment updated", Data: appointment})
}
