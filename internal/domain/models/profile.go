package models

// ApplicantProfile holds the applicant facts used for outreach.
type ApplicantProfile struct {
	UserID   int64    `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Headline string   `json:"headline"`
	Summary  string   `json:"summary"`
	Skills   []string `gorm:"serializer:json" json:"skills"`
}
