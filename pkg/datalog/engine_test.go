package datalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddFactAndQueryRoundTrips(t *testing.T) {
	e := New()
	require.NoError(t, e.LoadRules(`
		Decl event(Type, Subject, Id).
	`))
	require.NoError(t, e.AddFact("event", "hfo.gen91.p2.prospector.error", "prospector/run", int64(7)))

	rows, err := e.Query("event", 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "hfo.gen91.p2.prospector.error", rows[0][0])
}

func TestDerivedRulesReflectAssertedFacts(t *testing.T) {
	e := New()
	require.NoError(t, e.LoadRules(`
		Decl event(Type, Subject, Id).
		Decl stale_daemon(Subject).

		stale_daemon(Subject) :- event("hfo.gen91.infra.supervisor.death", Subject, _).
	`))

	count, err := e.Count("stale_daemon", 1)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	require.NoError(t, e.AddFact("event", "hfo.gen91.infra.supervisor.death", "prospector", int64(1)))

	count, err = e.Count("stale_daemon", 1)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestLoadRulesRejectsMalformedSource(t *testing.T) {
	e := New()
	err := e.LoadRules("this is not datalog (((")
	require.Error(t, err)
}
