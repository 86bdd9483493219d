package db_models

type Account struct {
	BaseModel
	Name          string
	Email         string `gorm:"uniqueIndex"`
	PasswordHash  string
	IsActive      bool `gorm:"default:true"`
	EmailVerified bool `gorm:"default:false"`
}
