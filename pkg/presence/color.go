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

package presence

// Palette is the set of participant colors, picked in order.
var Palette = []string{
	"#E03131", "#1971C2", "#2F9E44", "#F08C00",
	"#9C36B5", "#0C8599", "#E8590C", "#5C940D",
	"#C2255C", "#3B5BDB", "#66A80F", "#862E9C",
}

// PickColor returns the first palette color not in use. When every color is
// taken it cycles through the palette by the number of colors in use.
func PickColor(used map[string]struct{}) string {
	for _, color := range Palette {
		if _, ok := used[color]; !ok {
			return color
		}
	}
	return Palette[len(used)%len(Palette)]
}
