package room

import (
	"time"

	"github.com/codelafda/codelafda/internal/database"
	"github.com/codelafda/codelafda/internal/game"
)

type Config struct {
	// Logs everything at debug level with the development encoder
	Debug bool `envconfig:"LAFDA_DEBUG" default:"false"`

	// Port on which health check, websocket and REST API are launched
	Port string `envconfig:"LAFDA_PORT" default:"1234"`

	// profile port
	ProfPort string `envconfig:"LAFDA_PROF_PORT" default:"8888"`

	// Number of items in the progression read cache
	CacheSize int `envconfig:"LAFDA_CACHE_SIZE" default:"1024"`

	// Length of one coding round
	RoundTime time.Duration `envconfig:"LAFDA_ROUND_TIME" default:"300s"`

	// Cooldown applied after each sabotage use
	SabotageCooldown time.Duration `envconfig:"LAFDA_SABOTAGE_COOLDOWN" default:"30s"`

	// How long a start-game validation error stays on screen
	ErrorClearDelay time.Duration `envconfig:"LAFDA_ERROR_CLEAR_DELAY" default:"5s"`

	Db database.Config
}

// GameConfig maps the room-level settings onto the phase machine config,
// keeping the pipeline's artificial step delays at their defaults.
func (c *Config) GameConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.RoundSeconds = int(c.RoundTime.Seconds())
	cfg.SabotageCooldown = c.SabotageCooldown
	cfg.ErrorClearDelay = c.ErrorClearDelay
	return cfg
}
