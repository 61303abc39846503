/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"github.com/tomoncle/querykit/database"
	"github.com/tomoncle/querykit/internal/fixture"
	"github.com/tomoncle/querykit/utils"
)

type options struct {
	Config    string `short:"c" long:"config" description:"YAML configuration file"`
	Type      string `long:"type" description:"Database type: sqlite, postgres or mysql"`
	DSNName   string `long:"dsn-name" description:"Database name, for sqlite a file name or empty for memory"`
	Host      string `long:"host" description:"Database host"`
	Port      int    `long:"port" description:"Database port"`
	Username  string `long:"username" description:"Database user"`
	Password  string `long:"password" description:"Database password"`
	Seed      bool   `long:"seed" description:"Insert the example teams and members before running the queries"`
	Debug     bool   `short:"d" long:"debug" description:"Show debug logs and executed SQL"`
	LogFormat string `long:"log-format" default:"text" choice:"text" choice:"json" description:"Console log format"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "querykit"
	parser.LongDescription = "Runs the member and team query scenarios against a database."
	if _, err := parser.Parse(); err != nil {
		code := 1
		var fe *flags.Error
		if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
			code = 0
		}
		os.Exit(code)
	}

	utils.ConfigureConsoleLogFormat(opts.LogFormat)
	logger := utils.NewLogger("QUERYKIT")
	if opts.Debug {
		utils.ConfigureLogLevel("debug")
	}

	cfg, err := opts.config()
	if err != nil {
		logger.Fatal(err.Error())
	}
	if err := run(context.Background(), cfg, opts.Seed, logger); err != nil {
		logger.Fatal(err.Error())
	}
}

// config loads the configuration file, if any, and applies the flags on top.
func (o *options) config() (*database.Config, error) {
	cfg := database.DefaultConfig()
	if o.Config != "" {
		var err error
		if cfg, err = database.LoadConfig(o.Config); err != nil {
			return nil, err
		}
	}
	conn := &cfg.ConnectionConfig
	if o.Type != "" {
		conn.Type = o.Type
	}
	if o.DSNName != "" {
		conn.DBName = o.DSNName
	}
	if o.Host != "" {
		conn.Host = o.Host
	}
	if o.Port != 0 {
		conn.Port = o.Port
	}
	if o.Username != "" {
		conn.Username = o.Username
	}
	if o.Password != "" {
		conn.Password = o.Password
	}
	if o.Debug {
		conn.EnableQueryLog = true
	}
	// the demo exits after one pass
	conn.HealthCheckInterval = 0
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg *database.Config, seed bool, logger *log.Logger) error {
	db, err := database.InitDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.CloseDB() }()

	if seed {
		f, err := fixture.Load(ctx, db)
		if err != nil {
			return fmt.Errorf("load fixture: %w", err)
		}
		logger.WithField("members", len(f.Members)).Info("Fixture loaded")
	}

	for _, s := range scenarios {
		logger.WithField("scenario", s.name).Debug("Running scenario")
		if err := s.run(ctx, db, os.Stdout); err != nil {
			return fmt.Errorf("scenario %s: %w", s.name, err)
		}
	}
	return nil
}
