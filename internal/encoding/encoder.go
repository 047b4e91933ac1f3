package encoding

import (
	"bytes"
	"encoding/json"
	"sync"
)

// Codec marshals JSON through pooled buffers. Cache layers serialize the
// same payload shapes over and over, so reusing buffers keeps the hot path
// off the allocator.
type Codec struct {
	buffers sync.Pool
}

// NewCodec creates a codec with an empty buffer pool
func NewCodec() *Codec {
	return &Codec{
		buffers: sync.Pool{
			New: func() interface{} { return &bytes.Buffer{} },
		},
	}
}

// Marshal encodes v into a freshly allocated byte slice. The internal buffer
// returns to the pool; the result is safe to retain.
func (c *Codec) Marshal(v interface{}) ([]byte, error) {
	buf := c.buffers.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		c.buffers.Put(buf)
	}()

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}

	// json.Encoder appends a trailing newline
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Unmarshal decodes data into v
func (c *Codec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
