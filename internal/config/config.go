package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
)

type Config struct {
	Env      string `yaml:"env" env-default:"local"`
	Telegram struct {
		ApiKey  string `yaml:"api_key" env-default:""`
		AdminId int64  `yaml:"admin_id" env-default:"0"`
		BotName string `yaml:"bot_name" env-default:"NovaCSBot"`
		Enabled bool   `yaml:"enabled" env-default:"false"`
	} `yaml:"telegram"`
	OpenAI struct {
		ApiKey    string `yaml:"api_key" env-default:""`
		Model     string `yaml:"model" env-default:"gpt-4o-mini"`
		DevPrefix string `yaml:"dev_prefix" env-default:""`
	} `yaml:"openai"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:"admin"`
		Password string `yaml:"password" env-default:"pass"`
		Database string `yaml:"database" env-default:""`
	} `yaml:"mongo"`
	Listen struct {
		BindIP string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port   string `yaml:"port" env-default:"9200"`
		ApiKey string `yaml:"key" env-default:""`
	} `yaml:"listen"`
	Gateway struct {
		BaseURL string `yaml:"base_url" env-default:"http://127.0.0.1:9200/api/v1"`
		WsURL   string `yaml:"ws_url" env-default:"ws://127.0.0.1:9200/api/v1/ws"`
		ApiKey  string `yaml:"key" env-default:""`
	} `yaml:"gateway"`
	Sync struct {
		PollIntervalSeconds int    `yaml:"poll_interval_seconds" env-default:"3"`
		CacheDir            string `yaml:"cache_dir" env-default:".novacs-cache"`
	} `yaml:"sync"`
	Returns struct {
		// Auto-refund threshold in cents; orders at or below it refund
		// without a human in the loop.
		AutoRefundThreshold int64 `yaml:"auto_refund_threshold" env-default:"70000"`
	} `yaml:"returns"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("%s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
