// Package draft holds the per-session, not yet submitted room-service order.
package draft

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// LegacyKeyPrefix is the form field prefix used by the order page ("qty_12").
const LegacyKeyPrefix = "qty_"

// Quantity is the raw quantity text as submitted by the client. It is stored
// verbatim; only finalization interprets it.
type Quantity string

// UnmarshalJSON accepts JSON strings and any other literal (numbers, booleans)
// as raw text. null becomes the empty quantity.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}
	*q = Quantity(data)
	return nil
}

// Int returns the quantity as a positive integer, or false when the text is
// not a whole number greater than zero.
func (q Quantity) Int() (int32, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(string(q)), 10, 32)
	if err != nil || n <= 0 {
		return 0, false
	}
	return int32(n), true
}

// Draft is the customer's in-progress order form.
type Draft struct {
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone"`
	RoomNumber    string              `json:"room_number"`
	Quantities    map[string]Quantity `json:"quantities"`
}

// Empty returns a draft with an allocated quantities map.
func Empty() Draft {
	return Draft{Quantities: map[string]Quantity{}}
}

// IsEmpty reports whether nothing has been entered yet.
func (d Draft) IsEmpty() bool {
	return d.CustomerName == "" && d.CustomerPhone == "" && d.RoomNumber == "" && len(d.Quantities) == 0
}

// HasNULByte reports whether any field, key or quantity contains a NUL
// character.
func (d Draft) HasNULByte() bool {
	if strings.ContainsRune(d.CustomerName, 0) || strings.ContainsRune(d.CustomerPhone, 0) || strings.ContainsRune(d.RoomNumber, 0) {
		return true
	}
	for k, v := range d.Quantities {
		if strings.ContainsRune(k, 0) || strings.ContainsRune(string(v), 0) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (d Draft) Clone() Draft {
	c := d
	c.Quantities = make(map[string]Quantity, len(d.Quantities))
	for k, v := range d.Quantities {
		c.Quantities[k] = v
	}
	return c
}

// Line is a selected item with a positive quantity.
type Line struct {
	ItemID   int64
	Quantity int32
}

// Lines returns the positive-quantity entries sorted by item id. Keys may be
// bare ids ("12") or legacy form keys ("qty_12"); when both are present for
// the same item the bare key wins. Unparseable keys and non-positive or
// non-numeric quantities are skipped.
func (d Draft) Lines() []Line {
	byID := make(map[int64]int32)
	bare := make(map[int64]bool)
	for key, qty := range d.Quantities {
		id, isBare, ok := parseItemKey(key)
		if !ok {
			continue
		}
		n, ok := qty.Int()
		if !ok {
			if isBare {
				// An explicit bare entry of 0 deselects the item.
				bare[id] = true
				delete(byID, id)
			}
			continue
		}
		if bare[id] && !isBare {
			continue
		}
		byID[id] = n
		if isBare {
			bare[id] = true
		}
	}

	lines := make([]Line, 0, len(byID))
	for id, n := range byID {
		lines = append(lines, Line{ItemID: id, Quantity: n})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ItemID < lines[j].ItemID })
	return lines
}

func parseItemKey(key string) (id int64, bare bool, ok bool) {
	key = strings.TrimSpace(key)
	bare = true
	if strings.HasPrefix(key, LegacyKeyPrefix) {
		key = strings.TrimPrefix(key, LegacyKeyPrefix)
		bare = false
	}
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, false
	}
	return id, bare, true
}
