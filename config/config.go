package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	config              GlobalConfig // 全局配置文件
	once                sync.Once    // 只执行一次的代码
	updateDebounceTimer *time.Timer  // 配置更新防抖动
)

const debounceDuration = 1 * time.Second

// 存储后端
const (
	BackendMySQL  = "mysql"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type GlobalConfig struct {
	ServerConfig  ServerConf  `yaml:"server" mapstructure:"server"`   // http 服务配置
	StoreConfig   StoreConf   `yaml:"store" mapstructure:"store"`     // 票据存储后端
	DbConfig      DbConf      `yaml:"db" mapstructure:"db"`           // 数据库配置
	SQLiteConfig  SQLiteConf  `yaml:"sqlite" mapstructure:"sqlite"`   // sqlite 配置
	RedisConfig   RedisConf   `yaml:"redis" mapstructure:"redis"`     // redis 配置
	ParkingConfig ParkingConf `yaml:"parking" mapstructure:"parking"` // 停车业务配置
	LogConfig     LogConf     `yaml:"log" mapstructure:"log"`         // 日志配置
}

type ServerConf struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`                         // 监听地址
	PprofAddr       string        `yaml:"pprof_addr" mapstructure:"pprof_addr"`             // pprof 地址，为空则不启动
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // 优雅退出等待时间
}

type StoreConf struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // mysql | sqlite | redis | memory
}

type DbConf struct {
	Host        string `yaml:"host" mapstructure:"host"`                   // 主机地址
	Port        string `yaml:"port" mapstructure:"port"`                   // 端口号
	User        string `yaml:"user" mapstructure:"user"`                   // 用户名
	Password    string `yaml:"password" mapstructure:"password"`           // 密码
	Dbname      string `yaml:"dbname" mapstructure:"dbname"`               // 数据库名
	MaxIdleConn int    `yaml:"max_idle_conn" mapstructure:"max_idle_conn"` // 最大空闲连接数
	MaxOpenConn int    `yaml:"max_open_conn" mapstructure:"max_open_conn"` // 最大打开连接数
	MaxIdleTime int64  `yaml:"max_idle_time" mapstructure:"max_idle_time"` // 连接最大空闲时间
}

type SQLiteConf struct {
	Path string `yaml:"path" mapstructure:"path"` // 数据库文件路径
}

// RedisConf 配置
type RedisConf struct {
	Host     string `yaml:"rhost" mapstructure:"rhost"`       // db主机地址
	Port     int    `yaml:"rport" mapstructure:"rport"`       // db端口
	DB       int    `yaml:"rdb" mapstructure:"rdb"`           // 数据库
	PassWord string `yaml:"passwd" mapstructure:"passwd"`     // 密码
	PoolSize int    `yaml:"poolsize" mapstructure:"poolsize"` // 连接池大小，即最大连接数
}

type ParkingConf struct {
	// AlreadyClosedStatus 重复出场时返回的 http 状态码，409 或兼容旧接口的 404
	AlreadyClosedStatus int `yaml:"already_closed_status" mapstructure:"already_closed_status"`
}

type LogConf struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug | info | warn | error
	Format string `yaml:"format" mapstructure:"format"` // text | json
}

func GetGlobalConf() *GlobalConfig {
	once.Do(readConf)
	return &config
}

func setDefaults() {
	viper.SetDefault("server.addr", ":9090")
	viper.SetDefault("server.pprof_addr", "")
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("store.backend", BackendMySQL)
	viper.SetDefault("sqlite.path", "parkme.db")
	viper.SetDefault("parking.already_closed_status", 409)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// 将配置文件中的信息全部加载到 全局配置文件中
func readConf() {
	setDefaults()
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("../config")
	err := viper.ReadInConfig() // 读取配置信息
	if err != nil {
		panic("read config file err:" + err.Error())
	}
	err = viper.Unmarshal(&config) // 将配置信息反序列化填充到全局配置文件中
	if err != nil {
		panic("config file unmarshal err:" + err.Error())
	}
	ApplyLogConf(config.LogConfig)
	log.WithFields(log.Fields{
		"backend": config.StoreConfig.Backend,
		"addr":    config.ServerConfig.Addr,
	}).Info("config loaded")

	viper.WatchConfig() //监听配置文件的变化
	viper.OnConfigChange(func(e fsnotify.Event) {
		if updateDebounceTimer != nil {
			updateDebounceTimer.Stop()
		}
		updateDebounceTimer = time.AfterFunc(debounceDuration, func() {
			var logConf LogConf
			if err := viper.UnmarshalKey("log", &logConf); err != nil {
				log.WithError(err).Warn("reload log config")
				return
			}
			ApplyLogConf(logConf)
			log.WithField("file", e.Name).Info("config reloaded")
		})
	})
}

// ApplyLogConf 设置 logrus 的级别和格式，非法级别回退到 info
func ApplyLogConf(c LogConf) {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
