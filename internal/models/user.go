package models

// User хранит только поля отображения, которые отдает провайдер идентичности.
type User struct {
	BaseModel
	Name  string `gorm:"not null" json:"name"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`
}

func (User) TableName() string {
	return "users"
}
