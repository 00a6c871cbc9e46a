package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Feed 单个RSS源
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type Config struct {
	Server struct {
		Host         string `yaml:"host"`
		Port         int    `yaml:"port"`
		Addr         string `yaml:"-"` // 不从配置文件读取，而是在加载后计算
		MaxBodyBytes int64  `yaml:"max_body_bytes"`

		// CORSAllowOrigins 允许跨域的来源，包含 * 时允许所有
		CORSAllowOrigins []string `yaml:"cors_allow_origins"`
	} `yaml:"server"`
	Store struct {
		Driver         string `yaml:"driver"` // rest / mysql
		URL            string `yaml:"url"`
		ServiceRoleKey string `yaml:"service_role_key"`
		Table          string `yaml:"table"`
		TimeoutSec     int    `yaml:"timeout_sec"`
		CandidateLimit int    `yaml:"candidate_limit"`
	} `yaml:"store"`
	LLM struct {
		APIURL             string  `yaml:"api_url"`
		APIKey             string  `yaml:"api_key"`
		Model              string  `yaml:"model"`
		TimeoutSec         int     `yaml:"timeout_sec"`
		AnswerTemperature  float64 `yaml:"answer_temperature"`
		AnswerMaxTokens    int     `yaml:"answer_max_tokens"`
		SummaryTemperature float64 `yaml:"summary_temperature"`
		SummaryMaxTokens   int     `yaml:"summary_max_tokens"`
	} `yaml:"llm"`
	Retrieval struct {
		PrimaryDays     int `yaml:"primary_days"`
		FallbackDays    int `yaml:"fallback_days"`
		Limit           int `yaml:"limit"`
		ContextMaxChars int `yaml:"context_max_chars"`
		StreamChunkSize int `yaml:"stream_chunk_size"`
	} `yaml:"retrieval"`
	Log struct {
		Level    string `yaml:"level"`
		Format   string `yaml:"format"`
		Output   string `yaml:"output"`
		FilePath string `yaml:"file_path"`
	} `yaml:"log"`

	DB struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		Username        string `yaml:"username"`
		Password        string `yaml:"password"`
		Database        string `yaml:"database"`
		Charset         string `yaml:"charset"`
		DSN             string `yaml:"-"`                 // 不从配置文件读取，而是在加载后计算
		MaxOpenConns    int    `yaml:"max_open_conns"`    // 最大打开连接数
		MaxIdleConns    int    `yaml:"max_idle_conns"`    // 最大空闲连接数
		ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 连接最大生命周期（分钟）
	} `yaml:"database"`
	Ingest struct {
		Enabled           bool   `yaml:"enabled"`
		Feeds             []Feed `yaml:"feeds"`
		MaxEntriesPerFeed int    `yaml:"max_entries_per_feed"`
		MinPublishYear    int    `yaml:"min_publish_year"`
		Summarize         bool   `yaml:"summarize"`
		Concurrency       int    `yaml:"concurrency"`
	} `yaml:"ingest"`
	Scheduler struct {
		CheckIntervalSec  int `yaml:"check_interval_sec"` // 调度器检查间隔（秒）
		IngestIntervalMin int `yaml:"ingest_interval_min"`
	} `yaml:"scheduler"`
}

// Load 读取 .env、config.yaml 和环境变量
func Load() *Config {
	// 忽略错误，如果.env文件不存在，继续使用系统环境变量
	_ = godotenv.Load()
	return LoadFile("config.yaml")
}

// LoadFile 从指定yaml文件加载配置，文件不存在或解析失败时只使用环境变量
func LoadFile(path string) *Config {
	var cfg Config

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Printf("Error loading %s: %v, falling back to environment variables", path, err)
			cfg = Config{}
		} else {
			log.Printf("Loading configuration from %s", path)
		}
	} else {
		log.Println("配置文件不存在，从环境变量加载")
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	buildDSN(&cfg)
	return &cfg
}

// applyEnv 从环境变量中加载敏感信息
func applyEnv(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if origins := os.Getenv("CORS_ALLOW_ORIGINS"); origins != "" {
		cfg.Server.CORSAllowOrigins = splitList(origins)
	}

	setFromEnv(&cfg.Store.Driver, "STORE_DRIVER")
	setFromEnv(&cfg.Store.URL, "SUPABASE_URL")
	setFromEnv(&cfg.Store.ServiceRoleKey, "SUPABASE_SERVICE_ROLE_KEY")

	setFromEnv(&cfg.LLM.APIURL, "LLM_API_URL")
	setFromEnv(&cfg.LLM.APIKey, "LLM_API_KEY")
	setFromEnv(&cfg.LLM.Model, "LLM_MODEL")

	setFromEnv(&cfg.DB.Username, "DATABASE_USERNAME")
	setFromEnv(&cfg.DB.Password, "DATABASE_PASSWORD")
	setFromEnv(&cfg.DB.DSN, "DB_DSN")

	setFromEnv(&cfg.Log.Level, "LOG_LEVEL")

	// 配置中的 ${VAR} 引用从环境变量中解析
	cfg.Store.ServiceRoleKey = resolveEnvRef(cfg.Store.ServiceRoleKey)
	cfg.LLM.APIKey = resolveEnvRef(cfg.LLM.APIKey)
	cfg.DB.Password = resolveEnvRef(cfg.DB.Password)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8787
	}
	cfg.Server.Addr = fmt.Sprintf(":%d", cfg.Server.Port)
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if len(cfg.Server.CORSAllowOrigins) == 0 {
		cfg.Server.CORSAllowOrigins = []string{"*"}
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "rest"
	}
	if cfg.Store.Table == "" {
		cfg.Store.Table = "news_raw"
	}
	cfg.Store.URL = strings.TrimRight(cfg.Store.URL, "/")
	defaultInt(&cfg.Store.TimeoutSec, 8)
	defaultInt(&cfg.Store.CandidateLimit, 500)

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "bedrock-claude-4-5-sonnet"
	}
	defaultInt(&cfg.LLM.TimeoutSec, 45)
	defaultInt(&cfg.LLM.AnswerMaxTokens, 900)
	defaultInt(&cfg.LLM.SummaryMaxTokens, 500)
	if cfg.LLM.AnswerTemperature <= 0 {
		cfg.LLM.AnswerTemperature = 0.35
	}
	if cfg.LLM.SummaryTemperature <= 0 {
		cfg.LLM.SummaryTemperature = 0.5
	}

	defaultInt(&cfg.Retrieval.PrimaryDays, 30)
	defaultInt(&cfg.Retrieval.FallbackDays, 180)
	defaultInt(&cfg.Retrieval.Limit, 8)
	defaultInt(&cfg.Retrieval.ContextMaxChars, 6000)
	defaultInt(&cfg.Retrieval.StreamChunkSize, 80)

	if cfg.DB.Charset == "" {
		cfg.DB.Charset = "utf8mb4"
	}

	defaultInt(&cfg.Ingest.MaxEntriesPerFeed, 80)
	defaultInt(&cfg.Ingest.MinPublishYear, 2025)
	defaultInt(&cfg.Ingest.Concurrency, 4)
	cfg.Ingest.Feeds = dedupeFeeds(cfg.Ingest.Feeds)

	defaultInt(&cfg.Scheduler.CheckIntervalSec, 60)
	defaultInt(&cfg.Scheduler.IngestIntervalMin, 180)
}

// buildDSN 计算 DB.DSN 字段
func buildDSN(cfg *Config) {
	if cfg.DB.DSN != "" || cfg.DB.Host == "" {
		return
	}
	cfg.DB.DSN = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true&loc=UTC",
		cfg.DB.Username,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.Database,
		cfg.DB.Charset)
}

// StoreConfigured 文档库凭证是否齐全
func (c *Config) StoreConfigured() bool {
	if c.Store.Driver == "mysql" {
		return c.DB.DSN != ""
	}
	return c.Store.URL != "" && c.Store.ServiceRoleKey != ""
}

// LLMConfigured 大模型凭证是否齐全
func (c *Config) LLMConfigured() bool {
	return c.LLM.APIURL != "" && c.LLM.APIKey != "" && c.LLM.Model != ""
}

// MissingCredentials 返回缺失的凭证名称
func (c *Config) MissingCredentials(needStore bool) []string {
	var missing []string
	if needStore && !c.StoreConfigured() {
		if c.Store.Driver == "mysql" {
			missing = append(missing, "DB_DSN")
		} else {
			missing = append(missing, "SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY")
		}
	}
	if c.LLM.APIURL == "" {
		missing = append(missing, "LLM_API_URL")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	return missing
}

// splitList 逗号分隔，去掉空项
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func defaultInt(dst *int, def int) {
	if *dst <= 0 {
		*dst = def
	}
}

// resolveEnvRef 如果值是 ${NAME} 形式，则从环境变量中获取
func resolveEnvRef(v string) string {
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		return os.Getenv(v[2 : len(v)-1])
	}
	return v
}

func dedupeFeeds(feeds []Feed) []Feed {
	seen := make(map[string]bool, len(feeds))
	out := make([]Feed, 0, len(feeds))
	for _, f := range feeds {
		u := strings.TrimSpace(f.URL)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		name := strings.TrimSpace(f.Name)
		if name == "" {
			name = "Unknown"
		}
		out = append(out, Feed{Name: name, URL: u})
	}
	return out
}
