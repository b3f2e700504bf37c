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

package reb

import (
	"context"

	"github.com/db47h/rebseq/bus"
	"github.com/pkg/errors"
)

// TempSensors is the number of board temperature sensors.
const TempSensors = 10

// SupplyNames lists the power supplies in register order.
var SupplyNames = []string{"6V", "9V", "24V", "40V"}

// Temperature is a board temperature reading.
type Temperature struct {
	Sensor  int
	Celsius float64
	Err     bool // the sensor flagged a measurement error
}

// Supply is a power supply reading.
type Supply struct {
	Name  string
	Volts float64
	Amps  float64
}

// measure triggers the measurement flagged by bit and waits for it to complete.
func (b *Board) measure(ctx context.Context, bit uint32) error {
	if err := b.setState(ctx, bit, 0); err != nil {
		return err
	}
	return b.waitClear(ctx, bit)
}

// TempCelsius converts a raw temperature register value.
func TempCelsius(raw uint32) float64 {
	v := int64(raw & 0xffff)
	return float64(v-0xffff*(v>>15)) * 0.0078
}

// Temperatures measures and returns the board temperatures.
func (b *Board) Temperatures(ctx context.Context) ([]Temperature, error) {
	if err := b.measure(ctx, bus.StateTemp); err != nil {
		return nil, errors.Wrap(err, "reb: temperature measurement")
	}
	m, err := b.bus.Read(ctx, bus.TempBase, TempSensors)
	if err != nil {
		return nil, err
	}
	t := make([]Temperature, TempSensors)
	for i := range t {
		raw := m[bus.TempBase+uint32(i)]
		t[i] = Temperature{Sensor: i, Celsius: TempCelsius(raw), Err: raw&0x10000 != 0}
		if t[i].Err {
			b.log.Warn("temperature sensor error", "sensor", i, "raw", raw)
		}
	}
	return t, nil
}

func supplyValue(raw uint32) float64 { return float64(raw&0xfff0>>4) }

// Supplies measures and returns the supply voltages and currents.
func (b *Board) Supplies(ctx context.Context) ([]Supply, error) {
	if err := b.measure(ctx, bus.StateSupplies); err != nil {
		return nil, errors.Wrap(err, "reb: supply measurement")
	}
	m, err := b.bus.Read(ctx, bus.SuppliesBase, 2*len(SupplyNames))
	if err != nil {
		return nil, err
	}
	s := make([]Supply, len(SupplyNames))
	for i, n := range SupplyNames {
		conv := 250e-6
		if n == "24V" || n == "40V" {
			conv = 80e-6
		}
		a := bus.SuppliesBase + 2*uint32(i)
		s[i] = Supply{
			Name:  n,
			Volts: supplyValue(m[a]) * 0.025,
			Amps:  supplyValue(m[a+1]) * conv,
		}
	}
	return s, nil
}
