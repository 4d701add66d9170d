package database

import (
	"time"

	"gems-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// DB 是全局的 GORM 句柄，存放摄入任务的簿记表。
var DB *gorm.DB

// InitMySQL 初始化 MySQL 数据库连接。
func InitMySQL(dsn string) {
	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("MySQL database connected successfully")
}
