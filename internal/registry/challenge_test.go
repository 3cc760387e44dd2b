package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRecaptchaProviderBounds(t *testing.T) {
	t.Parallel()

	p := NewRecaptchaProvider()
	require.Equal(t, 10*time.Second, p.readyTimeout())
	require.Equal(t, 60*time.Second, p.executeTimeout())
}

func TestRecaptchaProviderZeroValuesFallBack(t *testing.T) {
	t.Parallel()

	var p RecaptchaProvider
	require.Equal(t, 10*time.Second, p.readyTimeout())
	require.Equal(t, 60*time.Second, p.executeTimeout())
}
