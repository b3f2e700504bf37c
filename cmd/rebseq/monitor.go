// This file is part of rebseq - https://github.com/db47h/rebseq
//
// Copyright 2016 Denis Bernard <db047h@gmail.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/db47h/rebseq/reb"
	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/pkg/errors"
)

const monitorHelp = "q: quit  g: start  x: stop  s: step"

type dashboard struct {
	state *widgets.Paragraph
	temps *widgets.Table
	sup   *widgets.Table
	help  *widgets.Paragraph
}

func newDashboard() *dashboard {
	d := &dashboard{
		state: widgets.NewParagraph(),
		temps: widgets.NewTable(),
		sup:   widgets.NewTable(),
		help:  widgets.NewParagraph(),
	}
	d.state.Title = "Sequencer"
	d.state.BorderStyle = ui.NewStyle(ui.ColorGreen)
	d.temps.Title = "Temperatures"
	d.temps.BorderStyle = ui.NewStyle(ui.ColorGreen)
	d.sup.Title = "Supplies"
	d.sup.BorderStyle = ui.NewStyle(ui.ColorGreen)
	d.help.Border = false
	d.help.Text = monitorHelp
	d.help.TextStyle = ui.NewStyle(ui.ColorYellow)
	return d
}

func (d *dashboard) layout() {
	w, h := ui.TerminalDimensions()
	d.state.SetRect(0, 0, w, 6)
	d.temps.SetRect(0, 6, w/2, h-1)
	d.sup.SetRect(w/2, 6, w, h-1)
	d.help.SetRect(0, h-1, w, h)
}

// refresh reads the board and updates the widgets. Errors are shown in the
// state box.
func (d *dashboard) refresh(ctx context.Context, b *reb.Board) {
	st, err := b.State(ctx)
	if err != nil {
		d.state.Text = fmt.Sprintf("[%v](fg:red)", err)
		return
	}
	clk, err := b.Time(ctx)
	if err != nil {
		d.state.Text = fmt.Sprintf("[%v](fg:red)", err)
		return
	}
	d.state.Text = fmt.Sprintf("state  0x%02x [%s](fg:green)\nclock  %d\nupdated %s",
		st, stateString(st), clk, time.Now().Format("15:04:05"))

	if temps, err := b.Temperatures(ctx); err != nil {
		d.temps.Rows = [][]string{{err.Error()}}
		d.temps.RowStyles[0] = ui.NewStyle(ui.ColorRed)
	} else {
		d.temps.Rows = [][]string{{"sensor", "°C"}}
		d.temps.RowStyles = map[int]ui.Style{0: ui.NewStyle(ui.ColorYellow)}
		for _, t := range temps {
			d.temps.Rows = append(d.temps.Rows, []string{fmt.Sprintf("TREB_%d", t.Sensor), fmt.Sprintf("%.2f", t.Celsius)})
			if t.Err {
				d.temps.RowStyles[len(d.temps.Rows)-1] = ui.NewStyle(ui.ColorRed)
			}
		}
	}

	if sup, err := b.Supplies(ctx); err != nil {
		d.sup.Rows = [][]string{{err.Error()}}
		d.sup.RowStyles[0] = ui.NewStyle(ui.ColorRed)
	} else {
		d.sup.Rows = [][]string{{"supply", "V", "A"}}
		d.sup.RowStyles = map[int]ui.Style{0: ui.NewStyle(ui.ColorYellow)}
		for _, s := range sup {
			d.sup.Rows = append(d.sup.Rows, []string{s.Name, fmt.Sprintf("%.3f", s.Volts), fmt.Sprintf("%.3f", s.Amps)})
		}
	}
}

func (d *dashboard) render() {
	ui.Render(d.state, d.temps, d.sup, d.help)
}

// monitor shows the board state and telemetry, updated every interval, until
// the user quits or ctx is done.
func monitor(ctx context.Context, b *reb.Board, every time.Duration) error {
	if every <= 0 {
		return errors.Errorf("invalid monitor interval %v", every)
	}
	if err := ui.Init(); err != nil {
		return errors.Wrap(err, "termui init failed")
	}
	defer ui.Close()

	d := newDashboard()
	d.layout()
	d.refresh(ctx, b)
	d.render()

	tick := time.NewTicker(every)
	defer tick.Stop()
	events := ui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			var err error
			switch e.ID {
			case "q", "<C-c>", "<Escape>":
				return nil
			case "g":
				err = b.Start(ctx)
			case "x":
				err = b.Stop(ctx)
			case "s":
				err = b.Step(ctx)
			case "<Resize>":
				d.layout()
				ui.Clear()
				d.render()
				continue
			default:
				continue
			}
			if err != nil {
				d.help.Text = fmt.Sprintf("[%v](fg:red)", err)
			} else {
				d.help.Text = monitorHelp
			}
		case <-tick.C:
		}
		d.refresh(ctx, b)
		d.render()
	}
}
