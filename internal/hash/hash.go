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

// Package hash fingerprints model inputs so that results can be matched
// to the parameters that produced them.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// Hash returns a hash key for the specified objects. Objects that
// implement fmt.Stringer are keyed by their string.
func Hash(objects ...interface{}) string {
	h := fnv.New128a()
	e := gob.NewEncoder(h)
	ok := true
	for _, o := range objects {
		if s, isStringer := o.(fmt.Stringer); isStringer {
			fmt.Fprintln(h, s.String())
			continue
		}
		if err := e.Encode(o); err != nil {
			ok = false
			break
		}
	}
	if ok {
		return fmt.Sprintf("%x", h.Sum(nil))
	}
	// gob fails on some values (e.g., unregistered interface types);
	// fall back to a deterministic dump.
	h = fnv.New128a()
	printer := spew.ConfigState{
		Indent:                  " ",
		SortKeys:                true,
		DisableMethods:          true,
		SpewKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	for _, o := range objects {
		printer.Fprintf(h, "%#v\n", o)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
