package types

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestOptionsTimeout(t *testing.T) {
	var nilOpts *RequestOptions
	assert.Zero(t, nilOpts.Timeout())
	assert.Zero(t, (&RequestOptions{}).Timeout())
	assert.Equal(t, time.Second, (&RequestOptions{ServerTimeout: time.Second}).Timeout())
	assert.Equal(t, time.Minute, (&RequestOptions{MaximumExecutionTime: time.Minute}).Timeout())
	assert.Equal(t, time.Second, (&RequestOptions{ServerTimeout: time.Second, MaximumExecutionTime: time.Minute}).Timeout())
}

func TestOperationContext(t *testing.T) {
	octx := NewOperationContext()
	id, err := uuid.Parse(octx.ClientRequestID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	empty := &OperationContext{}
	assert.NotEmpty(t, empty.EnsureRequestID())

	first := time.Now()
	octx.MarkStart(first)
	octx.MarkStart(first.Add(time.Hour))
	assert.Equal(t, first, octx.StartTime())

	_, ok := octx.LastResult()
	assert.False(t, ok)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			octx.AddRequestResult(RequestResult{StatusCode: 200 + i})
		}(i)
	}
	wg.Wait()
	assert.Len(t, octx.RequestResults(), 20)

	octx.AddRequestResult(RequestResult{StatusCode: 404})
	last, ok := octx.LastResult()
	require.True(t, ok)
	assert.Equal(t, 404, last.StatusCode)
}
