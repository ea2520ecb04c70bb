package domain

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Name         string `gorm:"size:50;not null"`
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`

	Todos []Todo `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
