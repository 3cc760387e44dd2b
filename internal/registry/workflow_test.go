package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveDetailLink(t *testing.T) {
	t.Parallel()

	w := NewWorkflow(DefaultWorkflowConfig(), NewRecaptchaProvider(), nil, zap.NewNop())

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{
			name: "relative link",
			ref:  "datos-colegiado-detallado.php?id=7",
			want: "https://aplicaciones.cmp.org.pe/conoce_a_tu_medico/datos-colegiado-detallado.php?id=7",
		},
		{
			name: "absolute link passes through",
			ref:  "https://example.com/x",
			want: "https://example.com/x",
		},
		{
			name: "home page",
			ref:  "index.php",
			want: "https://aplicaciones.cmp.org.pe/conoce_a_tu_medico/index.php",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, w.resolve(tt.ref))
		})
	}
}

func TestStepErrorUnwraps(t *testing.T) {
	t.Parallel()

	inner := errors.New("deadline exceeded")
	err := &StepError{Step: "find detail link", Err: inner}
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "find detail link")
}

func TestRandBetweenStaysInRange(t *testing.T) {
	t.Parallel()

	min, max := 50*time.Millisecond, 120*time.Millisecond
	for i := 0; i < 100; i++ {
		d := randBetween(min, max)
		require.GreaterOrEqual(t, d, min)
		require.Less(t, d, max)
	}
	require.Equal(t, min, randBetween(min, min))
}

func TestDefaultWorkflowConfigBounds(t *testing.T) {
	t.Parallel()

	cfg := DefaultWorkflowConfig()
	require.Equal(t, "colegiados_busqueda", cfg.Action)
	require.NotEmpty(t, cfg.SiteKey)
	require.Equal(t, 60*time.Second, cfg.PageLoadTimeout)
	require.Equal(t, 15*time.Second, cfg.SubmitNavTimeout)
	require.Equal(t, 20*time.Second, cfg.DetailLinkTimeout)
}
