package encoding

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	DriverID string  `json:"driver_id"`
	Score    float64 `json:"score"`
}

func TestMarshalRoundTrip(t *testing.T) {
	codec := NewCodec()

	data, err := codec.Marshal(payload{DriverID: "drv-1", Score: 72.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"driver_id":"drv-1","score":72.5}`, string(data))

	var out payload
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, "drv-1", out.DriverID)
	assert.Equal(t, 72.5, out.Score)
}

func TestMarshalNoTrailingNewline(t *testing.T) {
	codec := NewCodec()

	data, err := codec.Marshal(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.NotEqual(t, byte('\n'), data[len(data)-1])
}

func TestMarshalResultSafeToRetain(t *testing.T) {
	codec := NewCodec()

	first, err := codec.Marshal(payload{DriverID: "one"})
	require.NoError(t, err)
	snapshot := string(first)

	// A second marshal reuses the pooled buffer; the first result must not
	// be clobbered.
	_, err = codec.Marshal(payload{DriverID: "two-much-longer-identifier"})
	require.NoError(t, err)

	assert.Equal(t, snapshot, string(first))
}

func TestMarshalConcurrent(t *testing.T) {
	codec := NewCodec()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				data, err := codec.Marshal(payload{DriverID: "drv", Score: float64(j)})
				assert.NoError(t, err)
				var out payload
				assert.NoError(t, codec.Unmarshal(data, &out))
			}
		}()
	}
	wg.Wait()
}

func TestMarshalError(t *testing.T) {
	codec := NewCodec()

	_, err := codec.Marshal(make(chan int))
	assert.Error(t, err)
}
