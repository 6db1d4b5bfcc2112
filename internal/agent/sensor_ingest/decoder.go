package sensor_ingest

import (
	"encoding/json"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

var ErrDecode = errors.New("failed to decode sensor payload")

// Decoder turns a transport payload into a map of sensor id to raw reading.
type Decoder interface {
	Decode(payload []byte) (map[string]any, error)
	Format() string
}

type JSONDecoder struct{}

func (JSONDecoder) Format() string { return "json" }

func (JSONDecoder) Decode(payload []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, errors.Wrapf(ErrDecode, "json: %v", err)
	}
	if out == nil {
		return nil, errors.Wrap(ErrDecode, "json: payload is not an object")
	}
	return out, nil
}

type CBORDecoder struct {
	mode cbor.DecMode
}

func NewCBORDecoder() (*CBORDecoder, error) {
	mode, err := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		MaxMapPairs: 4096,
	}.DecMode()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build cbor decoder")
	}
	return &CBORDecoder{mode: mode}, nil
}

func (*CBORDecoder) Format() string { return "cbor" }

func (d *CBORDecoder) Decode(payload []byte) (map[string]any, error) {
	var out map[string]any
	if err := d.mode.Unmarshal(payload, &out); err != nil {
		return nil, errors.Wrapf(ErrDecode, "cbor: %v", err)
	}
	if out == nil {
		return nil, errors.Wrap(ErrDecode, "cbor: payload is not a map")
	}
	return out, nil
}

// NewDecoder returns the decoder for format ("json" or "cbor").
func NewDecoder(format string) (Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return JSONDecoder{}, nil
	case "cbor":
		return NewCBORDecoder()
	default:
		return nil, errors.Errorf("unsupported payload format %q", format)
	}
}
