// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Reference ReferenceConfig `mapstructure:"reference"`
}

// ServerConfig 存储 HTTP 服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// MongoConfig 存储 MongoDB（基因集语料库与参考表所在的文档库）的配置。
type MongoConfig struct {
	URI               string `mapstructure:"uri"`
	Database          string `mapstructure:"database"`
	GenesetCollection string `mapstructure:"geneset_collection"`
	GeneCollection    string `mapstructure:"gene_collection"`
	MappingCollection string `mapstructure:"mapping_collection"`
}

// DatabaseConfig 存储 MySQL 与 Redis 连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// ReferenceConfig 存储基因参考数据相关的配置。
// HumanTaxID 是"人源化"坐标系对应的参考物种分类号（NCBI 分类号 9606）。
type ReferenceConfig struct {
	HumanTaxID     int    `mapstructure:"human_tax_id"`
	GeneInfoFile   string `mapstructure:"gene_info_file"`
	HomologeneFile string `mapstructure:"homologene_file"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	if Conf.Reference.HumanTaxID == 0 {
		Conf.Reference.HumanTaxID = 9606
	}
}
