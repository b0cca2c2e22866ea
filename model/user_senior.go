package model

import "gorm.io/gorm"

// UserSenior grants a user access to a senior.
type UserSenior struct {
	UserID   string `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	SeniorID string `gorm:"primaryKey;type:varchar(11);index" json:"senior_id"`
}

// UserHasSenior reports whether userID is linked to seniorID.
func UserHasSenior(db *gorm.DB, userID, seniorID string) (bool, error) {
	var count int64
	err := db.Model(&UserSenior{}).Where("user_id = ? AND senior_id = ?", userID, seniorID).Count(&count).Error
	return count > 0, err
}
