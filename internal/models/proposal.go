package models

// Proposal - отклик соискателя на вакансию.
type Proposal struct {
	BaseModel
	JobID       string         `gorm:"type:uuid;not null;index" json:"job_id"`
	ApplicantID string         `gorm:"type:uuid;not null;index" json:"applicant_id"`
	OwnerID     string         `gorm:"type:uuid;not null;index" json:"owner_id"`
	Status      ProposalStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CoverLetter string         `gorm:"type:text" json:"cover_letter,omitempty"`
}

func (Proposal) TableName() string {
	return "proposals"
}

// Job - вакансия. Хранит только то, что нужно чатам и уведомлениям.
type Job struct {
	BaseModel
	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title   string `gorm:"not null" json:"title"`
}

func (Job) TableName() string {
	return "jobs"
}
