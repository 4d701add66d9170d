// Package database 负责初始化并持有各数据库的全局连接。
package database

import (
	"context"
	"time"

	"gems-go/internal/config"
	"gems-go/pkg/log"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo 是全局的 MongoDB 数据库句柄，持有基因集语料库与两张参考表。
var Mongo *mongo.Database

var mongoClient *mongo.Client

// InitMongo 初始化 MongoDB 连接并做一次 ping 检查。
func InitMongo(cfg config.MongoConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		log.Fatal("连接 MongoDB 失败", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatal("MongoDB ping 失败", err)
	}

	mongoClient = client
	Mongo = client.Database(cfg.Database)
	log.Info("MongoDB 连接成功")
}

// CloseMongo 断开 MongoDB 连接。
func CloseMongo(ctx context.Context) {
	if mongoClient != nil {
		if err := mongoClient.Disconnect(ctx); err != nil {
			log.Error("断开 MongoDB 连接失败", err)
		}
	}
}
