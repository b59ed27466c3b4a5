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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/canvasai/collab/api/types"
)

var roomsTimeout = 10 * time.Second

func newRoomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List the open rooms of the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := fetchRooms(fmt.Sprintf("http://%s/admin/rooms", addr))
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.Style().Options.DrawBorder = false
			tw.Style().Options.SeparateColumns = false
			tw.Style().Options.SeparateFooter = false
			tw.Style().Options.SeparateHeader = false
			tw.Style().Options.SeparateRows = false
			tw.AppendHeader(table.Row{
				"ROOM",
				"PROJECT",
				"STATE",
				"PARTICIPANTS",
				"ELEMENTS",
				"LOCKS",
				"LAMPORT",
				"IDLE",
			})
			for _, summary := range summaries {
				tw.AppendRow(table.Row{
					summary.ID,
					summary.ProjectRef,
					summary.State,
					summary.Participants,
					summary.Elements,
					summary.Locks,
					summary.Lamport,
					time.Since(summary.LastActivityAt).Round(time.Second).String(),
				})
			}
			cmd.Printf("%s\n", tw.Render())

			return nil
		},
	}
}

func fetchRooms(url string) ([]types.RoomSummary, error) {
	cli := &http.Client{Timeout: roomsTimeout}
	resp, err := cli.Get(url)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list rooms: unexpected status %s", resp.Status)
	}

	var summaries []types.RoomSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return summaries, nil
}

func init() {
	rootCmd.AddCommand(newRoomsCmd())
}
