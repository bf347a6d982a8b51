package sejm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		out  string
	}{
		{"speech only", `<p>Pierwszy.</p><p>Drugi.</p>`, "Pierwszy.\nDrugi."},
		{"classed paragraphs skipped", `<p class="mowca">Poseł X:</p><p>Treść.</p><p class="uwaga">(Oklaski)</p>`, "Treść."},
		{"empty class counts as none", `<p class="">Treść.</p>`, "Treść."},
		{"inline markup flattened", `<p>Panie <b>Marszałku</b>,<br>Wysoka Izbo!</p>`, "Panie Marszałku, Wysoka Izbo!"},
		{"blank paragraphs dropped", `<p>   </p><p>&nbsp;</p><p>x</p>`, "x"},
		{"entities decoded", `<p>Ustawa o &quot;KRS&quot; &amp; SN</p>`, `Ustawa o "KRS" & SN`},
		{"no paragraphs", `<div>nic</div>`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractText(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.out, got)
		})
	}
}
