package numbers

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// DecodeEvent turns a loosely typed payload such as {"type": "number_received", "value": 4}
// into a typed event.
func DecodeEvent(raw map[string]any) (domain.Event, error) {
	t, _ := raw["type"].(string)

	switch domain.EventType(t) {
	case EventNumberReceived:
		v, ok := raw["value"]
		if !ok {
			return nil, fmt.Errorf("%s requires a value", t)
		}
		if err := checkUint32(v); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", t, err)
		}
		var ev NumberReceived
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result: &ev,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(raw); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", t, err)
		}
		return ev, nil
	case EventNumberProcessed:
		return NumberProcessed{}, nil
	case EventNumberStored:
		return NumberStored{}, nil
	case "":
		return nil, fmt.Errorf("event type is required")
	}
	return nil, fmt.Errorf("unknown event type %q", t)
}

// DecodeInput is DecodeEvent restricted to the events outside producers may send.
// NumberProcessed and NumberStored belong to the Worker, which acts on the queue head
// it read earlier; a foreign copy would make it store a number it never processed.
func DecodeInput(raw map[string]any) (domain.Event, error) {
	ev, err := DecodeEvent(raw)
	if err != nil {
		return nil, err
	}
	if ev.Type() != EventNumberReceived {
		return nil, fmt.Errorf("event type %q is reserved for the worker", ev.Type())
	}
	return ev, nil
}

// checkUint32 rejects numeric values mapstructure would wrap around when setting a uint32.
// Non-numeric values are left for mapstructure to reject.
func checkUint32(v any) error {
	if n, ok := v.(json.Number); ok {
		if _, err := strconv.ParseUint(n.String(), 10, 32); err != nil {
			return fmt.Errorf("value %s is not a uint32", n)
		}
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i := rv.Int(); i < 0 || i > math.MaxUint32 {
			return fmt.Errorf("value %d is not a uint32", i)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u > math.MaxUint32 {
			return fmt.Errorf("value %d is not a uint32", u)
		}
	case reflect.Float32, reflect.Float64:
		if f := rv.Float(); f < 0 || f > math.MaxUint32 || f != math.Trunc(f) {
			return fmt.Errorf("value %v is not a uint32", f)
		}
	}
	return nil
}
