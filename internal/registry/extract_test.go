package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractDetailsStatusShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "single row single cell",
			html: `<table><tr><td>HABIL</td></tr></table>`,
			want: "HABIL",
		},
		{
			name: "two rows second row single cell",
			html: `<table><tr><td>ESTADO</td></tr><tr><td>INHABIL</td></tr></table>`,
			want: "INHABIL",
		},
		{
			name: "accented status matches vocabulary but is returned verbatim",
			html: `<table><tr><td>Hábil</td></tr></table>`,
			want: "Hábil",
		},
		{
			name: "unknown word rejected",
			html: `<table><tr><td>PENDIENTE</td></tr></table>`,
			want: "",
		},
		{
			name: "two cells in single row rejected",
			html: `<table><tr><td>HABIL</td><td>x</td></tr></table>`,
			want: "",
		},
		{
			name: "three rows rejected",
			html: `<table><tr><td>a</td></tr><tr><td>HABIL</td></tr><tr><td>b</td></tr></table>`,
			want: "",
		},
		{
			name: "first vocabulary match wins",
			html: `<table><tr><td>FALLECIDO</td></tr></table><table><tr><td>HABIL</td></tr></table>`,
			want: "FALLECIDO",
		},
		{
			name: "no tables",
			html: `<p>nothing here</p>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractDetails(tt.html)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Status)
		})
	}
}

func TestExtractDetailsSpecialties(t *testing.T) {
	t.Parallel()

	html := `
<table>
	<tr><td>N° REGISTRO</td><td>ESPECIALIDAD</td></tr>
	<tr><td>CARDIOLOGIA</td><td>001</td></tr>
	<tr><td></td><td>002</td></tr>
	<tr><td>PEDIATRIA</td><td>003</td></tr>
	<tr><td>CARDIOLOGIA</td><td>004</td></tr>
</table>`

	got, err := ExtractDetails(html)
	require.NoError(t, err)
	// Document order preserved, empty first cells skipped, duplicates kept
	// for the store's unique constraint to drop.
	require.Equal(t, []string{"CARDIOLOGIA", "PEDIATRIA", "CARDIOLOGIA"}, got.Specialties)
}

func TestExtractDetailsHeaderWithoutCueIgnored(t *testing.T) {
	t.Parallel()

	html := `<table><tr><td>NOMBRE</td></tr><tr><td>CARDIOLOGIA</td></tr></table>`
	got, err := ExtractDetails(html)
	require.NoError(t, err)
	require.Empty(t, got.Specialties)
}

func TestExtractDetailsCombinedDocument(t *testing.T) {
	t.Parallel()

	html := `
<html><body>
<table><tr><td>HABIL</td></tr></table>
<table>
	<tr><td>N° REGISTRO</td><td>ESPECIALIDAD</td></tr>
	<tr><td>CARDIOLOGIA</td><td>001</td></tr>
</table>
</body></html>`

	got, err := ExtractDetails(html)
	require.NoError(t, err)
	require.Equal(t, "HABIL", got.Status)
	require.Equal(t, []string{"CARDIOLOGIA"}, got.Specialties)
}

func TestExtractDetailsIsPure(t *testing.T) {
	t.Parallel()

	html := `
<table><tr><td>SUSPENDIDO</td></tr></table>
<table><tr><td>REGISTRO</td></tr><tr><td>NEUROLOGIA</td></tr></table>`

	first, err := ExtractDetails(html)
	require.NoError(t, err)
	second, err := ExtractDetails(html)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
