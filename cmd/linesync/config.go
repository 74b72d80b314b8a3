package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/linesync/internal/broker/messages"
	"github.com/nkiryanov/linesync/internal/logger"
)

const (
	defaultListenAddr    = "localhost:8000"
	defaultLoggingLevel  = logger.LevelInfo
	defaultSequencerAddr = "http://localhost:5000"
	defaultSyncInterval  = 30 * time.Second
	defaultEnvironment   = logger.EnvProduction

	lineNotSet = -1
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the ops api will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Sequencer base url and credentials
	SequencerAddr     string
	SequencerUsername string
	SequencerPassword string

	// Production line (band) synchronized by this instance
	ProductionLine int

	// Interval between sync cycles
	SyncInterval time.Duration

	// Kafka brokers to publish synced orders to. Publishing is disabled if empty
	KafkaBrokers []string
	KafkaTopic   string

	// Redis address for pulled batch snapshots. Snapshots are disabled if empty
	RedisAddr string

	// Key required by mutating ops api routes. Check is disabled if empty
	APIKey string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:       defaultLoggingLevel,
		ListenAddr:     defaultListenAddr,
		SequencerAddr:  defaultSequencerAddr,
		ProductionLine: lineNotSet,
		SyncInterval:   defaultSyncInterval,
		KafkaTopic:     messages.TopicOrdersSynced,
		Environment:    defaultEnvironment,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setList := func(o *[]string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = strings.Split(value, ",")
			}
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":        setString(&c.ListenAddr),
		"DATABASE_URI":       setString(&c.DatabaseDSN),
		"SEQUENCER_ADDRESS":  setString(&c.SequencerAddr),
		"SEQUENCER_USERNAME": setString(&c.SequencerUsername),
		"SEQUENCER_PASSWORD": setString(&c.SequencerPassword),
		"PRODUCTION_LINE":    setInt(&c.ProductionLine),
		"SYNC_INTERVAL":      setDuration(&c.SyncInterval),
		"KAFKA_BROKERS":      setList(&c.KafkaBrokers),
		"KAFKA_TOPIC":        setString(&c.KafkaTopic),
		"REDIS_ADDRESS":      setString(&c.RedisAddr),
		"OPS_API_KEY":        setString(&c.APIKey),
		"LOG_LEVEL":          setString(&c.LogLevel),
		"ENVIRONMENT":        setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid value of %s. Err: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("linesync", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Ops api listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SequencerAddr, "sequencer", "r", c.SequencerAddr, "Sequencer base url")
	fs.StringVarP(&c.SequencerUsername, "username", "u", c.SequencerUsername, "Sequencer username")
	fs.StringVarP(&c.SequencerPassword, "password", "p", c.SequencerPassword, "Sequencer password")
	fs.IntVarP(&c.ProductionLine, "line", "b", c.ProductionLine, "Production line to synchronize")
	fs.DurationVarP(&c.SyncInterval, "interval", "i", c.SyncInterval, "Interval between sync cycles")
	fs.StringSliceVarP(&c.KafkaBrokers, "kafka", "k", c.KafkaBrokers, "Kafka brokers, comma separated")
	fs.StringVar(&c.KafkaTopic, "kafka-topic", c.KafkaTopic, "Kafka topic for synced orders")
	fs.StringVarP(&c.RedisAddr, "redis", "c", c.RedisAddr, "Redis address")
	fs.StringVarP(&c.APIKey, "api-key", "t", c.APIKey, "Key required by mutating ops api routes")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}

// Validate reports all missing mandatory settings at once
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is not set"))
	}
	if c.SequencerAddr == "" {
		errs = append(errs, errors.New("sequencer address is not set"))
	}
	if c.SequencerUsername == "" || c.SequencerPassword == "" {
		errs = append(errs, errors.New("sequencer credentials are not set"))
	}
	if c.ProductionLine < 0 {
		errs = append(errs, errors.New("production line is not set"))
	}
	if c.SyncInterval <= 0 {
		errs = append(errs, errors.New("sync interval must be positive"))
	}

	return errors.Join(errs...)
}
