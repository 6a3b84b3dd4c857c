package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv" // .envファイルを読み込むため

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/models/tetris"
)

// ErrInvalidConfig は環境変数の値が不正な場合に返されます。
var ErrInvalidConfig = errors.New("invalid configuration")

// Config はアプリケーション全体の設定です。
type Config struct {
	Port           string
	DatabaseURL    string // 空の場合はメモリ上に記録を保存
	JWTSecret      string
	BypassAuth     bool
	AllowedOrigins []string
	TickInterval   time.Duration
	Randomizer     string // "uniform" または "bag"
	Field          tetris.Config
}

// LoadDotEnv は APP_ENV が production 以外の場合に .env ファイルを読み込みます。
// ファイルがなくてもエラーにはしません。
func LoadDotEnv(files ...string) {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	if err := godotenv.Load(files...); err != nil {
		log.Printf("warning: Error loading .env file (this is fine in production): %v", err)
	}
}

// Load は環境変数から設定を読み込みます。値の形式が不正な場合はエラーを返します。
//
// Returns:
//   *Config: 読み込んだ設定
//   error: 不正な値がある場合は ErrInvalidConfig をラップしたエラー
func Load() (*Config, error) {
	return load(os.LookupEnv)
}

// LoadFile は指定された .env 形式のファイルを読み込み、環境変数より優先して設定を作ります。
func LoadFile(path string) (*Config, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイル %s の読み込みに失敗しました: %w", path, err)
	}
	return load(func(key string) (string, bool) {
		if v, ok := values[key]; ok {
			return v, true
		}
		return os.LookupEnv(key)
	})
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	p := parser{lookup: lookup}

	field := tetris.DefaultConfig()
	field.Width = p.int("FIELD_WIDTH", field.Width)
	field.Height = p.int("FIELD_HEIGHT", field.Height)
	field.SpawnPoint.X = p.int("SPAWN_X", field.SpawnPoint.X)
	field.SpawnPoint.Y = p.int("SPAWN_Y", field.SpawnPoint.Y)
	field.SpawnGapColumns[0] = p.int("SPAWN_GAP_FROM", field.SpawnGapColumns[0])
	field.SpawnGapColumns[1] = p.int("SPAWN_GAP_TO", field.SpawnGapColumns[1])
	field.SpawnGapRows = p.int("SPAWN_GAP_ROWS", field.SpawnGapRows)
	field.InitialSpeed = p.int("INITIAL_SPEED", field.InitialSpeed)
	field.DropThreshold = p.int("DROP_THRESHOLD", field.DropThreshold)

	cfg := &Config{
		Port:           p.string("PORT", "8080"),
		DatabaseURL:    p.string("DATABASE_URL", ""),
		JWTSecret:      p.string("JWT_SECRET", ""),
		BypassAuth:     p.bool("BYPASS_AUTH", false),
		AllowedOrigins: p.list("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		TickInterval:   p.duration("TICK_INTERVAL", time.Second/60),
		Randomizer:     p.string("RANDOMIZER", "uniform"),
		Field:          field,
	}

	if p.err != nil {
		return nil, p.err
	}
	if cfg.Randomizer != "uniform" && cfg.Randomizer != "bag" {
		return nil, fmt.Errorf("%w: RANDOMIZER must be uniform or bag, got %q", ErrInvalidConfig, cfg.Randomizer)
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("%w: TICK_INTERVAL must be positive", ErrInvalidConfig)
	}
	if err := cfg.Field.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// parser は最初のエラーを保持しながら環境変数を読み込みます。
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, value, err)
	}
}

func (p *parser) string(key, def string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) bool(key string, def bool) bool {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) list(key string, def []string) []string {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
