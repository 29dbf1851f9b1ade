package repo

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ebrangerieau/bandtrack/internal/localstore"
	"github.com/ebrangerieau/bandtrack/internal/remote"
)

// triggerCount records TriggerSync calls so tests can assert exactly
// when a mutation schedules the worker.
type triggerCount struct {
	n atomic.Int64
}

func (t *triggerCount) TriggerSync() { t.n.Add(1) }

func (t *triggerCount) count() int64 { return t.n.Load() }

type fixture struct {
	local   *localstore.Store
	remote  *remote.Memory
	trigger *triggerCount
	cfg     Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := localstore.Open(filepath.Join(t.TempDir(), "bandtrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		local:   store,
		remote:  remote.NewMemory(),
		trigger: &triggerCount{},
	}
	var clock, ids atomic.Int64
	f.cfg = Config{
		Remote:  f.remote,
		Local:   store,
		Trigger: f.trigger,
		Now:     func() int64 { return 1700000000000 + clock.Add(1) },
		NewID:   func() string { return fmt.Sprintf("id-%d", ids.Add(1)) },
	}
	return f
}

// fallbackFixture has no local store, selecting the pure-remote mode.
func fallbackFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{remote: remote.NewMemory(), trigger: &triggerCount{}}
	var clock, ids atomic.Int64
	f.cfg = Config{
		Remote: f.remote,
		Now:    func() int64 { return 1700000000000 + clock.Add(1) },
		NewID:  func() string { return fmt.Sprintf("id-%d", ids.Add(1)) },
	}
	return f
}
