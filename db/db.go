package db

import (
	"os"

	"billing-backend/models"
	"billing-backend/utils"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	if err := godotenv.Load(); err != nil {
		utils.LogError(err, "Warning: impossible to load the .env file")
		utils.LogInfo("The environment variable DB_URL must be defined in the system environment")
	}

	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		utils.LogError(nil, "DB_URL is not set")
		panic("database URL not configured")
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: utils.GetGormLogger(),
	})
	if err != nil {
		utils.LogError(err, "Error connecting to the database")
		panic("could not connect to the database")
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.Plan{},
		&models.Subscription{},
		&models.Refund{},
		&models.SubscriptionEvent{},
	)
	if err != nil {
		utils.LogError(err, "Error migrating database")
		panic("could not migrate database")
	}

	utils.LogSuccess("Database connection successful")
}
