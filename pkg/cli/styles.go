/*
 * Copyright 2025 The Jumpstarter Authors.
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

package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Dracula theme colors.
const (
	draculaCyan    = "#8BE9FD"
	draculaGreen   = "#50FA7B"
	draculaPurple  = "#BD93F9"
	draculaRed     = "#FF5555"
	draculaYellow  = "#F1FA8C"
	draculaComment = "#6272A4"
)

// logStyles defines styles for status messages.
type logStyles struct {
	info, success, warning, error, header, muted lipgloss.Style
}

func newLogStyles() logStyles {
	return logStyles{
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaCyan)),
		success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaYellow)),
		error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		header: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPurple)).
			Bold(true),
		muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
	}
}

func (s logStyles) table(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.muted).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.header.Padding(0, 1)
			}

			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}
