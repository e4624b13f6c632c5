package ctdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportTypeFromRouteType(t *testing.T) {
	tests := []struct {
		routeType int
		expected  TransportType
	}{
		{0, TransportTypeTram},
		{1, TransportTypeSubway},
		{3, TransportTypeBus},
		{12, TransportTypeMonorail},
		{700, "Other/700"},
		{-1, "Other/-1"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, TransportTypeFromRouteType(test.routeType))
	}
}
