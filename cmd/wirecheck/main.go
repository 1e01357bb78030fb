// wirecheck is a conformance harness for the protoshade wire codec. For each
// configured check it loads a schema, builds a sample value tree from the
// descriptors, round-trips it through the codec and structurally verifies
// the produced bytes with the reference protowire reader.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	protoshade "github.com/tanayagrawal/protoshade"
)

// Config is the TOML configuration for a wirecheck run.
type Config struct {
	LogLevel string  `toml:"log_level"`
	Checks   []Check `toml:"check"`
}

// Check names one schema and the messages to exercise in it.
type Check struct {
	Name      string   `toml:"name"`
	SchemaDir string   `toml:"schema_dir"`
	Messages  []string `toml:"messages"`
}

func main() {
	configPath := flag.String("config", "wirecheck.toml", "path to config file")
	pretty := flag.Bool("pretty", false, "human-readable log output")
	flag.Parse()

	if *pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	var cfg Config
	if _, err := toml.DecodeFile(*configPath, &cfg); err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("cannot load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	failures := 0
	for _, check := range cfg.Checks {
		if err := runCheck(check); err != nil {
			log.Error().Err(err).Str("check", check.Name).Msg("check failed")
			failures++
			continue
		}
		log.Info().Str("check", check.Name).Msg("check passed")
	}

	if failures > 0 {
		log.Error().Int("failures", failures).Msg("wirecheck finished with failures")
		os.Exit(1)
	}
	log.Info().Int("checks", len(cfg.Checks)).Msg("wirecheck finished")
}

func runCheck(check Check) error {
	ps := protoshade.New(check.SchemaDir)
	if err := ps.LoadSchema(check.SchemaDir); err != nil {
		return err
	}

	messages := check.Messages
	if len(messages) == 0 {
		messages = ps.ListMessages()
	}

	for _, messageType := range messages {
		if err := verifyMessage(ps, messageType); err != nil {
			return err
		}
		log.Debug().Str("message", messageType).Msg("message verified")
	}
	return nil
}
