// Package main 提供命令行 GMTX 文件同步摄入工具。
package main

import (
	"context"
	"flag"
	"os"

	"gems-go/internal/config"
	"gems-go/internal/model"
	"gems-go/internal/repository"
	"gems-go/internal/service"
	"gems-go/pkg/database"
	"gems-go/pkg/gmtx"
	"gems-go/pkg/log"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/config.yaml", "配置文件路径")
		filePath   = flag.String("fl", "", "GMTX 文件路径")
		geneFormat = flag.Int("gf", -1, "基因标识格式 (0=符号 1=ID 2=人源化符号 3=人源化ID)")
		source     = flag.String("so", "", "基因集来源")
		taxID      = flag.Int("ti", 0, "物种分类 ID")
		user       = flag.String("us", "", "所属用户")
		subtype    = flag.String("st", "", "来源子类型 (可选)")
		domain     = flag.String("do", "", "领域标签 (可选)")
	)
	flag.Parse()

	if *filePath == "" || *source == "" || *user == "" || *taxID == 0 || *geneFormat < 0 {
		flag.Usage()
		os.Exit(2)
	}

	// 1. 初始化配置与日志
	config.Init(*configPath)
	cfg := config.Conf
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	// 2. 初始化依赖的存储
	database.InitMongo(cfg.Mongo)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	ctx := context.Background()
	defer database.CloseMongo(ctx)

	// 3. 解析 GMTX 文件
	header, rows, err := gmtx.ParseFile(*filePath)
	if err != nil {
		log.Fatalf("解析文件 %s 失败: %v", *filePath, err)
	}
	log.Infof("[Upload] 解析完成: %d 行数据", len(rows))

	// 4. 构建服务并执行摄入 (命令行模式不需要任务记录)
	geneRepo := repository.NewGeneRepository(database.Mongo, cfg.Mongo.GeneCollection, cfg.Mongo.MappingCollection, database.RDB)
	genesetRepo := repository.NewGenesetRepository(database.Mongo, cfg.Mongo.GenesetCollection)
	if err := genesetRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("建立基因集唯一性索引失败: %v", err)
	}

	resolver := service.NewResolverService(geneRepo, cfg.Reference.HumanTaxID)
	ingest := service.NewIngestService(resolver, genesetRepo, nil, cfg.MinIO)

	constants := service.ConstantFields{
		Source:  *source,
		Subtype: *subtype,
		TaxID:   *taxID,
		User:    *user,
		Domain:  *domain,
	}
	diagnostics, err := ingest.Ingest(ctx, header, rows, constants, model.GeneFormat(*geneFormat))
	if err != nil {
		log.Fatalf("摄入失败: %v", err)
	}

	// 5. 输出未解析基因诊断
	if len(diagnostics) == 0 {
		log.Info("[Upload] 摄入完成，所有基因均已解析")
		return
	}
	log.Warnf("[Upload] 摄入完成，%d 条未解析诊断:", len(diagnostics))
	for _, msg := range diagnostics {
		log.Warnf("[Upload] %s", msg)
	}
}
