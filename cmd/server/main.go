// Package main 是基因集管理服务的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gems-go/internal/config"
	"gems-go/internal/handler"
	"gems-go/internal/middleware"
	"gems-go/internal/model"
	"gems-go/internal/pipeline"
	"gems-go/internal/repository"
	"gems-go/internal/service"
	"gems-go/pkg/database"
	"gems-go/pkg/kafka"
	"gems-go/pkg/log"
	"gems-go/pkg/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化各数据存储
	database.InitMongo(cfg.Mongo)
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	kafka.InitProducer(cfg.Kafka)

	if err := database.DB.AutoMigrate(&model.IngestJob{}); err != nil {
		log.Fatal("迁移 ingest_job 表失败", err)
	}

	// 4. 初始化 Repository
	geneRepo := repository.NewGeneRepository(database.Mongo, cfg.Mongo.GeneCollection, cfg.Mongo.MappingCollection, database.RDB)
	genesetRepo := repository.NewGenesetRepository(database.Mongo, cfg.Mongo.GenesetCollection)
	jobRepo := repository.NewIngestJobRepository(database.DB)

	// 语料库唯一性索引：幂等 upsert 依赖它
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 10*time.Second)
	if err := genesetRepo.EnsureIndexes(indexCtx); err != nil {
		cancelIndex()
		log.Fatal("建立基因集唯一性索引失败", err)
	}
	cancelIndex()

	// 5. 初始化 Service (依赖注入)
	resolverService := service.NewResolverService(geneRepo, cfg.Reference.HumanTaxID)
	ingestService := service.NewIngestService(resolverService, genesetRepo, jobRepo, cfg.MinIO)
	queryService := service.NewQueryService(genesetRepo)

	// 6. 初始化摄入流水线并启动后台 Kafka 消费者
	processor := pipeline.NewProcessor(cfg.MinIO, ingestService, jobRepo)
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	genesetHandler := handler.NewGenesetHandler(queryService)
	similarHandler := handler.NewSimilarHandler(queryService)
	ingestHandler := handler.NewIngestHandler(ingestService)
	uploadHandler := handler.NewUploadHandler(ingestService)

	api := r.Group("/api")
	{
		api.GET("/genesets", genesetHandler.Get)
		api.POST("/genesets", genesetHandler.Post)
		api.GET("/similar", similarHandler.Get)
		api.POST("/insert", ingestHandler.Insert)
		api.POST("/remove", genesetHandler.Remove)
		api.POST("/upload", uploadHandler.Upload)
		api.GET("/upload/status", uploadHandler.Status)
	}

	// 9. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	database.CloseMongo(ctx)
	log.Info("服务已优雅关闭")
}
