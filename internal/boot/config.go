package boot

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env            string        `env:"ENV,default=dev"`
	DataDirectory  string        `env:"DATA_DIR"`
	StoreFile      string        `env:"STORE_FILE,default=aura.db"`
	SessionSecret  string        `env:"SESSION_SECRET,default=aura-dev-session-secret"`
	PasswordHasher string        `env:"PASSWORD_HASHER,default=plain"`
	PostCooldown   time.Duration `env:"POST_COOLDOWN,default=5m"`
	Server         struct {
		Port        string   `env:"PORT,default=8000"`
		MetricsPort string   `env:"METRICS_PORT,default=8081"`
		Origins     []string `env:"ALLOWED_ORIGINS,default=*"`
		ViewsDir    string   `env:"VIEWS_DIR,default=ui/views"`
	}
}

func Load() (*Config, error) {
	return LoadWith(envconfig.OsLookuper())
}

func LoadWith(lookuper envconfig.Lookuper) (*Config, error) {
	config := &Config{}
	if err := envconfig.ProcessWith(context.Background(), config, lookuper); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}

func (c *Config) StorePath() string {
	return path.Join(c.DataDirectory, c.StoreFile)
}
