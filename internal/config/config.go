package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ctscan-quiz/internal/game"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		TTL string `yaml:"ttl"`
	} `yaml:"questions"`
	Game        Game `yaml:"game"`
	Leaderboard struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"leaderboard"`
	Admin struct {
		// Code guards question management; empty disables it.
		Code string `yaml:"code"`
	} `yaml:"admin"`
}

// Game mirrors game.Config with YAML friendly types.
type Game struct {
	QuestionsPerLevel int            `yaml:"questions_per_level"`
	MaxLevel          int            `yaml:"max_level"`
	LevelsEnabled     *bool          `yaml:"levels_enabled"`
	LivesEnabled      *bool          `yaml:"lives_enabled"`
	InitialLives      int            `yaml:"initial_lives"`
	TimePerQuestion   int            `yaml:"time_per_question"`
	LevelTimes        map[int]int    `yaml:"level_times"`
	Scoring           string         `yaml:"scoring"`
	FastAnswerSeconds int            `yaml:"fast_answer_seconds"`
	FullPoints        int            `yaml:"full_points"`
	ReducedPoints     int            `yaml:"reduced_points"`
	FlatPoints        int            `yaml:"flat_points"`
	AnswerFlow        string         `yaml:"answer_flow"`
	FeedbackDelay     string         `yaml:"feedback_delay"`
}

// Default returns a config that runs without any file: in-memory storage and
// the public leaderboard.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	cfg.Redis.TTL = "1h"
	cfg.Questions.TTL = "5m"
	cfg.Leaderboard.URL = "https://leaderboard-online.vercel.app"
	cfg.Leaderboard.Timeout = "5s"
	return cfg
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// GameConfig overlays the game section on game.DefaultConfig and validates
// the result.
func (c Config) GameConfig() (game.Config, error) {
	g := c.Game
	out := game.DefaultConfig()
	if g.QuestionsPerLevel != 0 {
		out.QuestionsPerLevel = g.QuestionsPerLevel
	}
	if g.MaxLevel != 0 {
		out.MaxLevel = g.MaxLevel
	}
	if g.LevelsEnabled != nil {
		out.LevelsEnabled = *g.LevelsEnabled
	}
	if g.LivesEnabled != nil {
		out.LivesEnabled = *g.LivesEnabled
	}
	if g.InitialLives != 0 {
		out.InitialLives = g.InitialLives
	}
	if g.TimePerQuestion != 0 {
		out.TimePerQuestion = g.TimePerQuestion
	}
	if len(g.LevelTimes) > 0 {
		out.LevelTimes = make(map[int]int, len(g.LevelTimes))
		for level, seconds := range g.LevelTimes {
			out.LevelTimes[level] = seconds
		}
	}
	if g.Scoring != "" {
		out.Scoring = game.Scoring(g.Scoring)
	}
	if g.FastAnswerSeconds != 0 {
		out.FastAnswerSeconds = g.FastAnswerSeconds
	}
	if g.FullPoints != 0 {
		out.FullPoints = g.FullPoints
	}
	if g.ReducedPoints != 0 {
		out.ReducedPoints = g.ReducedPoints
	}
	if g.FlatPoints != 0 {
		out.FlatPoints = g.FlatPoints
	}
	if g.AnswerFlow != "" {
		out.AnswerFlow = game.AnswerFlow(g.AnswerFlow)
	}
	out.FeedbackDelay = TTLDuration(g.FeedbackDelay, out.FeedbackDelay)

	return out, out.Validate()
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
