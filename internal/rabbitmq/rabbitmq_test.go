package rabbitmq

import (
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackRecorder struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestDispatch(t *testing.T) {
	cases := []struct {
		name        string
		handleErr   error
		redelivered bool
		acked       bool
		requeue     bool
	}{
		{"Handled", nil, false, true, false},
		{"TransientRequeuedOnce", errors.New("smtp down"), false, false, true},
		{"TransientDroppedOnRedelivery", errors.New("smtp down"), true, false, false},
		{"MalformedDropped", fmt.Errorf("decode: %w", ErrMalformed), false, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &ackRecorder{}
			d := amqp.Delivery{
				Acknowledger: rec,
				DeliveryTag:  1,
				Redelivered:  tc.redelivered,
				Body:         []byte(`{"to":"sam@example.com"}`),
			}

			var got []byte
			err := dispatch(d, func(body []byte) error {
				got = body
				return tc.handleErr
			})
			require.NoError(t, err)

			assert.Equal(t, d.Body, got)
			assert.Equal(t, tc.acked, rec.acked)
			assert.Equal(t, !tc.acked, rec.nacked)
			assert.Equal(t, tc.requeue, rec.requeue)
		})
	}
}
