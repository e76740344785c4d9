package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aaronzipp/retroboard/internal/retro"
)

// Frame encodes ev as a wire frame: the event's JSON object with "type" and
// "version" placed first
func Frame(ev retro.Event, version uint64) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", ev.EventType(), err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("encoding %s: event is not a JSON object", ev.EventType())
	}
	typ, err := json.Marshal(ev.EventType())
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.Grow(len(body) + len(typ) + 32)
	b.WriteString(`{"type":`)
	b.Write(typ)
	b.WriteString(`,"version":`)
	b.WriteString(strconv.FormatUint(version, 10))
	if rest := body[1:]; len(rest) > 1 {
		b.WriteByte(',')
		b.Write(rest)
	} else {
		b.WriteByte('}')
	}
	return b.Bytes(), nil
}
