package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vantage-go/internal/config"
	logging "vantage-go/internal/logging"
	"vantage-go/internal/models"
)

var DB *gorm.DB

func Init(log *zap.Logger) {
	var err error
	dbConf := config.Conf.Database
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.User, dbConf.Password, dbConf.DBName, dbConf.Port)

	// Route GORM traffic through the zap adapter.
	gormLogger := logging.NewGormZapLogger(log)
	gormLogger.LogLevel = logger.Warn

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})

	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	log.Info("Database connection established successfully.")
	runMigrations(log)
}

func runMigrations(log *zap.Logger) {
	// AutoMigrate creates tables, columns and foreign keys; partial
	// indexes are handled separately below.
	err := DB.AutoMigrate(
		&models.AssessmentSession{},
		&models.StudentResponse{},
		&models.PersonalityResponse{},
		&models.PersonalityScore{},
	)
	if err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully.")

	// The external scoring pipeline polls for unscored uploads; keep that
	// scan off the main index.
	scoringIndex := `CREATE INDEX IF NOT EXISTS idx_responses_needs_scoring
		ON student_responses (needs_scoring) WHERE needs_scoring = true;`
	if err := DB.Exec(scoringIndex).Error; err != nil {
		log.Fatal("Failed to create scoring index", zap.Error(err))
	}

	staleIndex := `CREATE INDEX IF NOT EXISTS idx_responses_pending
		ON student_responses (response_submitted_at) WHERE upload_status = 'pending';`
	if err := DB.Exec(staleIndex).Error; err != nil {
		log.Fatal("Failed to create pending-upload index", zap.Error(err))
	}
	log.Info("Custom indexes ensured successfully.")
}
