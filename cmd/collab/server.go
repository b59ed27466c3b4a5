/*
 * Copyright 2026 The CanvasAI Collab Authors. All rights reserved.
 *
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
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/server"
	"github.com/canvasai/collab/server/backend/database/mongo"
	"github.com/canvasai/collab/server/backend/database/redis"
	"github.com/canvasai/collab/server/logging"
	"github.com/canvasai/collab/server/projects/postgres"
	"github.com/canvasai/collab/server/rooms"
)

var (
	gracefulTimeout = 40 * time.Second
)

var (
	flagConfPath  string
	flagLogLevel  string
	flagLogFormat string

	housekeepingInterval time.Duration
	gracePeriod          time.Duration
	presenceTTL          time.Duration
	heartbeatTimeout     time.Duration
	lockTTL              time.Duration
	lockMaxTTL           time.Duration
	defaultRole          string

	mongoConnectionURI string
	mongoDatabase      string
	redisURL           string
	postgresDSN        string

	conf = server.NewConfig()
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server [options]",
		Short: "Start collab server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf.Housekeeping.Interval = housekeepingInterval.String()

			conf.Rooms.GracePeriod = gracePeriod.String()
			conf.Rooms.PresenceTTL = presenceTTL.String()
			conf.Rooms.HeartbeatTimeout = heartbeatTimeout.String()
			conf.Rooms.LockTTL = lockTTL.String()
			conf.Rooms.LockMaxTTL = lockMaxTTL.String()

			role, err := types.ParseRole(defaultRole)
			if err != nil {
				return err
			}
			conf.Backend.DefaultRole = role

			if mongoConnectionURI != "" {
				conf.Mongo = &mongo.Config{
					ConnectionURI: mongoConnectionURI,
					Database:      mongoDatabase,
				}
				conf.Mongo.EnsureDefaultValue()
			}
			if redisURL != "" {
				conf.Redis = &redis.Config{URL: redisURL}
				conf.Redis.EnsureDefaultValue()
			}
			if postgresDSN != "" {
				conf.Postgres = &postgres.Config{DSN: postgresDSN}
				conf.Postgres.EnsureDefaultValue()
			}

			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}

			if err := logging.SetLogLevel(flagLogLevel); err != nil {
				return err
			}
			if err := logging.SetLogFormat(flagLogFormat); err != nil {
				return err
			}

			c, err := server.New(conf)
			if err != nil {
				return err
			}

			if err := c.Start(); err != nil {
				return err
			}

			if code := handleSignal(c); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

func handleSignal(c *server.Collab) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	select {
	case s := <-sigCh:
		sig = s
	case <-c.ShutdownCh():
		// collab is already shutdown
		return 0
	}

	graceful := false
	if sig == syscall.SIGINT || sig == syscall.SIGTERM {
		graceful = true
	}

	gracefulCh := make(chan struct{})
	go func() {
		if err := c.Shutdown(graceful); err != nil {
			return
		}
		close(gracefulCh)
	}()

	select {
	case <-sigCh:
		return 1
	case <-time.After(gracefulTimeout):
		return 1
	case <-gracefulCh:
		return 0
	}
}

func init() {
	cmd := newServerCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"info",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().StringVar(
		&flagLogFormat,
		"log-format",
		string(logging.FormatConsole),
		"Log format: console, json",
	)
	cmd.Flags().IntVar(
		&conf.RPC.Port,
		"rpc-port",
		server.DefaultRPCPort,
		"RPC port",
	)
	cmd.Flags().StringVar(
		&conf.RPC.CertFile,
		"rpc-cert-file",
		"",
		"RPC certification file's path",
	)
	cmd.Flags().StringVar(
		&conf.RPC.KeyFile,
		"rpc-key-file",
		"",
		"RPC key file's path",
	)
	cmd.Flags().Int64Var(
		&conf.RPC.MaxMessageBytes,
		"rpc-max-message-bytes",
		conf.RPC.MaxMessageBytes,
		"Maximum size in bytes of a message the server will accept.",
	)
	cmd.Flags().StringSliceVar(
		&conf.RPC.AllowedOrigins,
		"rpc-allowed-origins",
		nil,
		"Origins allowed to open a connection. Empty allows every origin.",
	)
	cmd.Flags().BoolVar(
		&conf.RPC.EnableAdmin,
		"enable-admin",
		false,
		"Serve the room listing on /admin/rooms.",
	)
	cmd.Flags().IntVar(
		&conf.Profiling.Port,
		"profiling-port",
		server.DefaultProfilingPort,
		"Profiling port",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.EnablePprof,
		"enable-pprof",
		false,
		"Enable runtime profiling data via HTTP server.",
	)
	cmd.Flags().DurationVar(
		&housekeepingInterval,
		"housekeeping-interval",
		server.DefaultHousekeepingInterval,
		"housekeeping interval between housekeeping runs",
	)
	cmd.Flags().DurationVar(
		&gracePeriod,
		"grace-period",
		rooms.DefaultGracePeriod,
		"How long an empty room is kept before it is checkpointed and closed.",
	)
	cmd.Flags().DurationVar(
		&presenceTTL,
		"presence-ttl",
		rooms.DefaultPresenceTTL,
		"How long a presence record lives without refresh.",
	)
	cmd.Flags().DurationVar(
		&heartbeatTimeout,
		"heartbeat-timeout",
		rooms.DefaultHeartbeatTimeout,
		"How long a participant may stay silent before it is removed.",
	)
	cmd.Flags().DurationVar(
		&lockTTL,
		"lock-ttl",
		rooms.DefaultLockTTL,
		"Lease of a lock requested without a TTL.",
	)
	cmd.Flags().DurationVar(
		&lockMaxTTL,
		"lock-max-ttl",
		rooms.DefaultLockMaxTTL,
		"Maximum lease of a lock.",
	)
	cmd.Flags().IntVar(
		&conf.Rooms.OutboundQueueSize,
		"outbound-queue-size",
		rooms.DefaultOutboundQueueSize,
		"Capacity of the outbound queue of a participant.",
	)
	cmd.Flags().StringVar(
		&conf.Auth.Secret,
		"auth-secret",
		server.DefaultSecretKey,
		"The HMAC secret for verifying join tokens.",
	)
	cmd.Flags().StringVar(
		&conf.Backend.StoreType,
		"backend-store-type",
		"",
		"Snapshot store: memory, mongo or redis. Empty picks the first configured.",
	)
	cmd.Flags().StringVar(
		&defaultRole,
		"backend-default-role",
		string(types.RoleEditor),
		"Role of every participant when no project database is configured.",
	)
	cmd.Flags().StringVar(
		&mongoConnectionURI,
		"mongo-connection-uri",
		"",
		"MongoDB's connection URI",
	)
	cmd.Flags().StringVar(
		&mongoDatabase,
		"mongo-database",
		mongo.DefaultDatabase,
		"Collab's database name in MongoDB",
	)
	cmd.Flags().StringVar(
		&redisURL,
		"redis-url",
		"",
		"Redis URL of the snapshot store",
	)
	cmd.Flags().StringVar(
		&postgresDSN,
		"postgres-dsn",
		"",
		"Postgres DSN of the project database",
	)

	rootCmd.AddCommand(cmd)
}
