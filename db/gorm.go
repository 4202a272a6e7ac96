package db

import (
	"fmt"
	"net"
	"time"

	"GenreFM/config"
	applog "GenreFM/logger"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormDB is the process-wide history database, nil until ConnectGormDB.
var GormDB *gorm.DB

// DSN renders the MySQL connection string for cfg.
func DSN(cfg *config.Config) string {
	c := gomysql.NewConfig()
	c.User = cfg.DBUser
	c.Passwd = cfg.DBPassword
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	c.DBName = cfg.DBName
	c.ParseTime = true
	c.Loc = time.Local
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

// zapWriter routes GORM's logger into the application logger.
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	applog.Info(fmt.Sprintf(format, args...), applog.String("component", "gorm"))
}

func gormLogger(level logger.LogLevel) logger.Interface {
	return logger.New(zapWriter{}, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// ConnectGormDB opens GormDB and configures its pool.
func ConnectGormDB(cfg *config.Config) error {
	level := logger.Warn
	if cfg.LogLevel == "debug" {
		level = logger.Info
	}

	var err error
	GormDB, err = gorm.Open(mysql.Open(DSN(cfg)), &gorm.Config{
		Logger:                                   gormLogger(level),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := GormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	applog.Info("connected to history database",
		applog.String("host", cfg.DBHost),
		applog.String("database", cfg.DBName))
	return nil
}

// CloseGormDB closes GormDB if it was opened.
func CloseGormDB() error {
	if GormDB == nil {
		return nil
	}
	sqlDB, err := GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrateModels migrates the given models on GormDB.
func AutoMigrateModels(models ...interface{}) error {
	if GormDB == nil {
		return fmt.Errorf("GORM database not initialized")
	}
	if err := GormDB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	applog.Info("history models migrated")
	return nil
}
