package stigmergy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeBuilderJoinsSegments(t *testing.T) {
	b := NewTypeBuilder("gen91", PortP3, "prospector")
	require.Equal(t, "hfo.gen91.p3.prospector.embed_complete", b.Type("embed_complete"))
}

func TestPrefixOmitsAction(t *testing.T) {
	b := NewTypeBuilder("gen91", PortInfra, "supervisor")
	require.Equal(t, "hfo.gen91.infra.supervisor", b.Prefix())
	require.Equal(t, b.Prefix()+".summon", b.Type("summon"))
}
