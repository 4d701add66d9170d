// Package main 提供基因参考数据（gene_info 与 homologene）重建工具。
package main

import (
	"context"
	"flag"

	"gems-go/internal/config"
	"gems-go/internal/repository"
	"gems-go/internal/service"
	"gems-go/pkg/database"
	"gems-go/pkg/log"
)

func main() {
	var (
		configPath     = flag.String("config", "./configs/config.yaml", "配置文件路径")
		geneInfoPath   = flag.String("gene-info", "", "gene_info 文件路径 (默认取配置)")
		homologenePath = flag.String("homologene", "", "homologene.data 文件路径 (默认取配置)")
	)
	flag.Parse()

	// 1. 初始化配置与日志
	config.Init(*configPath)
	cfg := config.Conf
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	if *geneInfoPath == "" {
		*geneInfoPath = cfg.Reference.GeneInfoFile
	}
	if *homologenePath == "" {
		*homologenePath = cfg.Reference.HomologeneFile
	}
	if *geneInfoPath == "" || *homologenePath == "" {
		log.Fatalf("必须通过命令行或配置指定 gene_info 与 homologene 文件路径")
	}

	// 2. 初始化 MongoDB 与 Redis (GeneRepository 依赖二者)
	database.InitMongo(cfg.Mongo)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	ctx := context.Background()
	defer database.CloseMongo(ctx)

	// 3. 重建参考集合
	geneRepo := repository.NewGeneRepository(database.Mongo, cfg.Mongo.GeneCollection, cfg.Mongo.MappingCollection, database.RDB)
	refService := service.NewReferenceService(geneRepo)

	geneCount, groupCount, err := refService.Rebuild(ctx, *geneInfoPath, *homologenePath)
	if err != nil {
		log.Fatalf("参考数据重建失败: %v", err)
	}
	log.Infof("[RefLoad] 重建完成: %d 条基因记录, %d 个同源组", geneCount, groupCount)
}
