/*
Copyright © 2026 the microgrid authors.
This file is part of microgrid.

microgrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

microgrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with microgrid.  If not, see <http://www.gnu.org/licenses/>.
*/

package mgutil

import (
	"reflect"
	"testing"
)

func TestSimulateAvailability(t *testing.T) {
	a := SimulateAvailability(2, 3, 8760, 50, 120, 7)
	if len(a) != 2 || len(a[0]) != 3 || len(a[0][0]) != 8760 {
		t.Fatalf("shape: %d", len(a))
	}
	var outages int
	for _, s := range a {
		for _, y := range s {
			for _, v := range y {
				if v < 0 || v > 1 {
					t.Fatalf("availability %g out of [0, 1]", v)
				}
				if v < 1 {
					outages++
				}
			}
		}
	}
	if outages == 0 {
		t.Error("expected some outages")
	}
	if b := SimulateAvailability(2, 3, 8760, 50, 120, 7); !reflect.DeepEqual(a, b) {
		t.Error("simulation should be deterministic for a given seed")
	}
	if b := SimulateAvailability(2, 3, 8760, 50, 120, 8); reflect.DeepEqual(a, b) {
		t.Error("different seeds should give different outages")
	}
}

func TestSimulateAvailabilityNoOutages(t *testing.T) {
	a := SimulateAvailability(1, 1, 24, 0, 60, 1)
	for i, v := range a[0][0] {
		if v != 1 {
			t.Errorf("period %d: availability %g", i, v)
		}
	}
}
