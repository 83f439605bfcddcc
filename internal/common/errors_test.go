package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindMatchesSentinel(t *testing.T) {
	cases := []struct {
		err  *Error
		kind string
	}{
		{ErrUserNotFound, string(KindUserNotFound)},
		{ErrNotRegistered, string(KindNotRegistered)},
		{ErrOutOfRange, string(KindOutOfRange)},
		{ErrInsufficientBuyingPower, string(KindInsufficientBuyingPower)},
		{ErrInsufficientAsset, string(KindInsufficientAsset)},
		{ErrOrderNotFound, string(KindOrderNotFound)},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, c.err.Kind())
		assert.NotEmpty(t, c.err.Error())
	}
}
