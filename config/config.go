package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Line    LineConfig    `yaml:"line"`
	LLM     LLMConfig     `yaml:"llm"`
	GitHub  GitHubConfig  `yaml:"github"`
	Data    DataConfig    `yaml:"data"`
	Mermaid MermaidConfig `yaml:"mermaid"`
	Memory  MemoryConfig  `yaml:"memory"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
	// PublicURL is the externally reachable base URL. LINE only accepts
	// https image URLs, so image delivery is skipped when this is not https.
	PublicURL string `yaml:"public_url"`
}

type LineConfig struct {
	ChannelSecret      string `yaml:"channel_secret"`
	ChannelAccessToken string `yaml:"channel_access_token"`
	APIEndpoint        string `yaml:"api_endpoint"`
}

type LLMConfig struct {
	APIURL      string        `yaml:"api_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type GitHubConfig struct {
	Token       string `yaml:"token"`
	RepoOwner   string `yaml:"repo_owner"`
	RepoName    string `yaml:"repo_name"`
	APIEndpoint string `yaml:"api_endpoint"`
}

type DataConfig struct {
	Dir     string `yaml:"dir"`
	TempDir string `yaml:"temp_dir"`
}

type MermaidConfig struct {
	Command string `yaml:"command"`
	// Dialect selects the generated diagram type: "flowchart" (graph TD)
	// or "mindmap" (nested).
	Dialect    string        `yaml:"dialect"`
	Theme      string        `yaml:"theme"`
	Background string        `yaml:"background"`
	Width      int           `yaml:"width"`
	Height     int           `yaml:"height"`
	Scale      int           `yaml:"scale"`
	CSSFile    string        `yaml:"css_file"`
	Timeout    time.Duration `yaml:"timeout"`
}

type MemoryConfig struct {
	MaxRSSMB      uint64        `yaml:"max_rss_mb"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		cfg = loadConfig()
	})
	return cfg
}

func loadConfig() *Config {
	// .env is optional; deployments usually inject environment variables directly
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: "3000",
			Mode: "debug",
		},
		Line: LineConfig{
			APIEndpoint: "https://api.line.me",
		},
		LLM: LLMConfig{
			APIURL:      "https://api.openai.com/v1",
			Model:       "gpt-4o",
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
		GitHub: GitHubConfig{
			APIEndpoint: "https://api.github.com",
		},
		Data: DataConfig{
			Dir:     "./data",
			TempDir: "./temp",
		},
		Mermaid: MermaidConfig{
			Command:    "mmdc",
			Dialect:    "flowchart",
			Theme:      "forest",
			Background: "white",
			Width:      1200,
			Height:     800,
			Scale:      2,
			Timeout:    2 * time.Minute,
		},
		Memory: MemoryConfig{
			MaxRSSMB:      450,
			CheckInterval: 30 * time.Second,
		},
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		yaml.Unmarshal(data, config)
	}

	// Environment variables override the config file
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
	if serverURL := os.Getenv("SERVER_URL"); serverURL != "" {
		config.Server.PublicURL = serverURL
	}
	if secret := os.Getenv("LINE_CHANNEL_SECRET"); secret != "" {
		config.Line.ChannelSecret = secret
	}
	if token := os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"); token != "" {
		config.Line.ChannelAccessToken = token
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.APIURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL_NAME"); model != "" {
		config.LLM.Model = model
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		config.GitHub.Token = token
	}
	if owner := os.Getenv("GITHUB_REPO_OWNER"); owner != "" {
		config.GitHub.RepoOwner = owner
	}
	if name := os.Getenv("GITHUB_REPO_NAME"); name != "" {
		config.GitHub.RepoName = name
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		config.Data.Dir = dataDir
	}
	if tempDir := os.Getenv("TEMP_DIR"); tempDir != "" {
		config.Data.TempDir = tempDir
	}
	if config.Data.TempDir == "" {
		config.Data.TempDir = filepath.Join(config.Data.Dir, "temp")
	}

	return config
}

// DatabasePath is the on-disk location of the JSON database document.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.Dir, "database.json")
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func UpdateConfig(newCfg *Config) {
	cfg = newCfg
}
