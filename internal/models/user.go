package models

// User is identified by its email, which is stored verbatim and compared
// case-sensitively.
type User struct {
	BaseModel

	Email string  `gorm:"type:varchar(320);uniqueIndex;not null" json:"email"`
	Name  *string `gorm:"type:varchar(255)" json:"name"`
}

// DisplayName returns the user's name, falling back to the email address.
func (u User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}
