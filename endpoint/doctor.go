package endpoint

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/medbook/medbook/model"
	"github.com/medbook/medbook/util"
	"gorm.io/gorm"
)

// doctorListRow is a DoctorProfile joined with the owning user's name.
type doctorListRow struct {
	model.DoctorProfile
	DoctorName string `json:"doctor_name" gorm:"column:doctor_name"`
}

func fetchDoctors(db *gorm.DB, limit, offset int, keyword, speciality string) ([]doctorListRow, int64, error) {
	var doctors []doctorListRow
	var total int64

	query := db.Table("doctor_profiles").
		Joins("JOIN users ON users.id = doctor_profiles.user_id").
		Select("doctor_profiles.*, users.name as doctor_name").
		Where("doctor_profiles.is_approved = ?", true).
		Where("doctor_profiles.deleted_at IS NULL")
	if keyword != "" {
		kw := "%" + keyword + "%"
		query = query.Where("users.name LIKE ? OR doctor_profiles.specialization LIKE ?", kw, kw)
	}
	if speciality != "" {
		query = query.Where("doctor_profiles.specialization = ?", speciality)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	query = query.Order("doctor_profiles.specialization ASC, users.name ASC")

	if err := query.Find(&doctors).Error; err != nil {
		return nil, 0, err
	}

	return doctors, total, nil
}

// ListDoctors godoc
// @Summary      List approved doctors
// @Description  Get a paginated list of approved doctors with optional search
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Param        limit query int false "Limit number of results"
// @Param        offset query int false "Offset for pagination"
// @Param        keyword query string false "Search keyword for doctor name or specialization"
// @Param        speciality query string false "Exact specialization filter"
// @Success      200 {object} util.APIResponse{data=object} "Doctors retrieved"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /doctor [get]
func ListDoctors(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	limit, offset := parseLimitOffset(c)
	keyword := c.Query("keyword")
	speciality := c.Query("speciality")

	doctors, total, err := fetchDoctors(db, limit, offset, keyword, speciality)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve doctors", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Doctors retrieved",
		Data: map[string]interface{}{"total": total, "total_fetched": len(doctors), "doctors": doctors},
	})
}

// ListSpecialities godoc
// @Summary      List doctor specialities
// @Description  Get the distinct specializations of approved doctors
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Success      200 {object} util.APIResponse{data=object} "Specialities retrieved"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /doctor/specialities [get]
func ListSpecialities(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var specialities []string
	err := db.Model(&model.DoctorProfile{}).
		Where("is_approved = ?", true).
		Distinct("specialization").
		Order("specialization ASC").
		Pluck("specialization", &specialities).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve specialities", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Specialities retrieved",
		Data: map[string]interface{}{"total": len(specialities), "specialities": specialities},
	})
}

// GetDoctor godoc
// @Summary      Get doctor details
// @Description  Get a doctor's profile together with the average rating
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Param        id path int true "Doctor ID"
// @Success      200 {object} util.APIResponse{data=object} "Doctor retrieved"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /doctor/{id} [get]
func GetDoctor(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var doctor doctorListRow
	err := db.Table("doctor_profiles").
		Joins("JOIN users ON users.id = doctor_profiles.user_id").
		Select("doctor_profiles.*, users.name as doctor_name").
		Where("doctor_profiles.id = ? AND doctor_profiles.deleted_at IS NULL", doctorID).
		First(&doctor).Error
	if err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Doctor not found", Err: err})
		return
	}

	avg, err := averageRating(db, doctor.ID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to compute average rating", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Doctor retrieved",
		Data: map[string]interface{}{"doctor": doctor, "average_rating": avg},
	})
}

type updateDoctorProfileRequest struct {
	Specialization  string   `json:"specialization"`
	ConsultationFee *float64 `json:"consultation_fee"`
}

// UpdateDoctorProfile godoc
// @Summary      Update own doctor profile
// @Description  Update the calling doctor's specialization and consultation fee
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body updateDoctorProfileRequest true "Profile fields"
// @Success      200 {object} util.APIResponse{data=model.DoctorProfile} "Profile updated"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      403 {object} util.APIResponse "Not a doctor account"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /doctor/profile [patch]
func UpdateDoctorProfile(c *gin.Context) {
	var req updateDoctorProfileRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}
	if req.Specialization == "" && req.ConsultationFee == nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "At least one field (specialization or consultation_fee) must be provided",
			Err: fmt.Errorf("no fields to update"),
		})
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

	if req.Specialization != "" {
		doctor.Specialization = util.NormalizeName(req.Specialization)
	}
	if req.ConsultationFee != nil {
		doctor.ConsultationFee = *req.ConsultationFee
	}
	if err := db.Save(&doctor).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update doctor profile", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctor profile updated", Data: doctor})
}

// ApproveDoctor godoc
// @Summary      Approve a doctor
// @Description  Mark a doctor profile as approved so patients can book (admin only)
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Doctor ID"
// @Success      200 {object} util.APIResponse{data=model.DoctorProfile} "Doctor approved"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /doctor/{id}/approve [patch]
func ApproveDoctor(c *gin.Context) {
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

	doctor.IsApproved = true
	if err := db.Save(&doctor).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to approve doctor", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctor approved", Data: doctor})
}
