package models

// Job is a job listing owned by exactly one author.
type Job struct {
	BaseModel

	Title    string `gorm:"type:varchar(255);not null" json:"title"`
	Company  string `gorm:"type:varchar(255);not null" json:"company"`
	AuthorID string `gorm:"type:varchar(36);not null;index" json:"authorId"`

	Author       *User            `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Applications []JobApplication `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"-"`
}

// JobApplication records that a user applied to a job. Applications are never withdrawn.
type JobApplication struct {
	BaseModel

	UserID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_job_applications_pair,priority:1" json:"userId"`
	JobID  string `gorm:"type:varchar(36);not null;uniqueIndex:idx_job_applications_pair,priority:2;index" json:"jobId"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
