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
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/server"
	"github.com/canvasai/collab/server/auth"
)

var (
	tokenConfPath string
	tokenSecret   string
	tokenDuration time.Duration
	tokenIdentity types.Identity
)

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token [options]",
		Short: "Sign a join token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenIdentity.UserID == "" {
				return errors.New("--user is required")
			}

			conf := server.NewConfig().Auth
			if tokenConfPath != "" {
				parsed, err := server.NewConfigFromFile(tokenConfPath)
				if err != nil {
					return err
				}
				conf = parsed.Auth
			}
			if cmd.Flags().Changed("secret") {
				conf.Secret = tokenSecret
			}
			if tokenDuration > 0 {
				conf.TokenDuration = tokenDuration.String()
			}

			tokens, err := auth.NewTokenManager(conf)
			if err != nil {
				return err
			}
			token, err := tokens.Generate(&tokenIdentity)
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}
}

func init() {
	cmd := newTokenCmd()
	cmd.Flags().StringVarP(&tokenConfPath, "config", "c", "", "Config path")
	cmd.Flags().StringVar(&tokenSecret, "secret", server.DefaultSecretKey, "The HMAC secret of the server")
	cmd.Flags().DurationVar(&tokenDuration, "duration", 0, "Lifetime of the token")
	cmd.Flags().StringVar(&tokenIdentity.UserID, "user", "", "User id of the token")
	cmd.Flags().StringVar(&tokenIdentity.Name, "name", "", "Display name of the user")
	cmd.Flags().StringVar(&tokenIdentity.Email, "email", "", "Email of the user")

	rootCmd.AddCommand(cmd)
}
