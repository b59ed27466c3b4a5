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

package server_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasai/collab/server"
	"github.com/canvasai/collab/server/auth"
	"github.com/canvasai/collab/server/rooms"
)

func TestNewConfigFromFile(t *testing.T) {
	t.Run("fail read config file test", func(t *testing.T) {
		conf := server.NewConfig()
		assert.Equal(t, conf.RPCAddr(), "localhost:"+strconv.Itoa(server.DefaultRPCPort))
		_, err := server.NewConfigFromFile("nowhere.yml")
		assert.Error(t, err)
		assert.Equal(t, conf.RPC.Port, server.DefaultRPCPort)
		assert.Equal(t, conf.RPC.CertFile, "")
		assert.Equal(t, conf.RPC.KeyFile, "")
		assert.Nil(t, conf.Mongo)
		assert.NoError(t, conf.Validate())
	})

	t.Run("read config file test", func(t *testing.T) {
		filePath := "config.sample.yml"
		conf, err := server.NewConfigFromFile(filePath)
		require.NoError(t, err)
		require.NoError(t, conf.Validate())

		assert.Equal(t, conf.RPC.Port, server.DefaultRPCPort)
		assert.True(t, conf.RPC.EnableAdmin)
		assert.Equal(t, "memory", conf.Backend.StoreType)
		assert.Nil(t, conf.Mongo)
		assert.Nil(t, conf.Redis)
		assert.Nil(t, conf.Postgres)

		grace, err := time.ParseDuration(conf.Rooms.GracePeriod)
		assert.NoError(t, err)
		assert.Equal(t, rooms.DefaultGracePeriod, grace)
		assert.Equal(t, rooms.DefaultCommandQueueSize, conf.Rooms.CommandQueueSize)

		assert.Equal(t, auth.DefaultIssuer, conf.Auth.Issuer)
		assert.Equal(t, auth.DefaultCacheSize, conf.Auth.CacheSize)
	})

	t.Run("invalid section test", func(t *testing.T) {
		conf := server.NewConfig()
		conf.Rooms.LockTTL = "2m"
		assert.Error(t, conf.Validate())
	})
}
