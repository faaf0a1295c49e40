package wheel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/wheel.go/pkg/bridge/msgs"
)

func TestParseVelocity(t *testing.T) {
	testCases := []struct {
		name  string
		args  []string
		twist *msgs.Twist
		err   bool
	}{
		{"linear", []string{"0.2"}, msgs.NewTwist(0.2, 0), false},
		{"both", []string{"-0.1", "1.5"}, msgs.NewTwist(-0.1, 1.5), false},
		{"missing", nil, nil, true},
		{"bad linear", []string{"fast"}, nil, true},
		{"bad angular", []string{"0", "left"}, nil, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			twist, err := ParseVelocity(tc.args)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.twist, twist)
		})
	}
}
