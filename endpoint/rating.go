package endpoint

import (
	"fmt"
	"math"

	"github.com/gin-gonic/gin"
	"github.com/medbook/medbook/model"
	"github.com/medbook/medbook/util"
	"gorm.io/gorm"
)

type rateDoctorRequest struct {
	Rating int    `json:"rating" binding:"required"`
	Review string `json:"review"`
}

// averageRating computes the doctor's mean rating rounded to one decimal
// place, 0 when the doctor has no ratings. Results are cached per doctor and
// invalidated on every rating write.
func averageRating(db *gorm.DB, doctorID uint) (float64, error) {
	if avg, ok := util.RatingCacheGet(doctorID); ok {
		return avg, nil
	}

	var ratings []model.DoctorRating
	if err := db.Where("doctor_id = ?", doctorID).Find(&ratings).Error; err != nil {
		return 0, err
	}
	if len(ratings) == 0 {
		util.RatingCacheSet(doctorID, 0)
		return 0, nil
	}

	sum := 0
	for _, r := range ratings {
		sum += r.Rating
	}
	avg := math.Round(float64(sum)/float64(len(ratings))*10) / 10
	util.RatingCacheSet(doctorID, avg)
	return avg, nil
}

// hasCompletedAppointment reports whether the patient has at least one
// completed appointment with the doctor.
func hasCompletedAppointment(db *gorm.DB, doctorID, patientID uint) (bool, error) {
	var count int64
	err := db.Model(&model.Appointment{}).
		Where("doctor_id = ? AND patient_id = ? AND status = ?", doctorID, patientID, model.StatusCompleted).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// upsertRating writes the (doctor, patient) rating, overwriting any earlier
// one rather than inserting a second row.
func upsertRating(db *gorm.DB, doctorID, patientID uint, rating int, review string) (model.DoctorRating, error) {
	var record model.DoctorRating
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("doctor_id = ? AND patient_id = ?", doctorID, patientID).First(&record).Error
		if err == gorm.ErrRecordNotFound {
			record = model.DoctorRating{
				DoctorID:  doctorID,
				PatientID: patientID,
				Rating:    rating,
				Review:    review,
			}
			return tx.Create(&record).Error
		}
		if err != nil {
			return err
		}
		record.Rating = rating
		record.Review = review
		return tx.Save(&record).Error
	})
	return record, err
}

// RateDoctor records the calling patient's rating of a doctor. Rating a
// doctor requires a completed appointment; rating again overwrites the
// earlier entry.
func RateDoctor(c *gin.Context) {
	var req rateDoctorRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		util.CallUserError(c, util.APIErrorParams{Msg: "Rating must be between 1 and 5", Err: fmt.Errorf("invalid rating")})
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
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var doctor model.DoctorProfile
	if err := db.First(&doctor, doctorID).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Doctor not found", Err: err})
		return
	}

	eligible, err := hasCompletedAppointment(db, doctor.ID, userID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check rating eligibility", Err: err})
		return
	}
	if !eligible {
		util.CallUserError(c, util.APIErrorParams{Msg: "You can only rate a doctor after completing an appointment", Err: ErrNotEligible})
		return
	}

	record, err := upsertRating(db, doctor.ID, userID, req.Rating, req.Review)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to save rating", Err: err})
		return
	}

	util.RatingCacheInvalidate(doctor.ID)

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Rating submitted", Data: record})
}

// ListDoctorRatings returns a doctor's ratings together with the average.
func ListDoctorRatings(c *gin.Context) {
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

	var ratings []model.DoctorRating
	if err := db.Where("doctor_id = ?", doctor.ID).Order("created_at DESC").Find(&ratings).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to fetch ratings", Err: err})
		return
	}

	avg, err := averageRating(db, doctor.ID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to compute average rating", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Ratings retrieved",
		Data: map[string]interface{}{"total": len(ratings), "average": avg, "ratings": ratings},
	})
}
