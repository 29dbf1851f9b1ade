package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ebrangerieau/bandtrack/internal/localstore"
	"github.com/ebrangerieau/bandtrack/internal/model"
	"github.com/ebrangerieau/bandtrack/internal/remote"
	"github.com/ebrangerieau/bandtrack/internal/repo"
	"github.com/ebrangerieau/bandtrack/internal/syncer"
	"github.com/ebrangerieau/bandtrack/internal/testutil"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step and assertion succeeded.
	Pass bool

	// Errors lists step and assertion failures.
	Errors []string

	// CreatedIDs records minted entity ids in creation order, for
	// "@N" references and golden inspection.
	CreatedIDs []string
}

// AddError records a failure.
func (r *Result) AddError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Harness executes scenarios against a real SQLite cache and the
// in-memory remote store, with a deterministic clock and id sequence.
type Harness struct {
	local  *localstore.Store
	remote *remote.Memory
	worker *syncer.Worker

	songs *repo.Songs
	sugs  *repo.Suggestions
	perfs *repo.Performances

	scenario *Scenario
	result   *Result
}

// Run executes a scenario end to end. The local store lives in a
// temporary directory that is removed before returning. A non-nil
// error means the harness itself broke; scripted failures land in
// Result.Errors instead.
func Run(scenario *Scenario) (*Result, error) {
	h, cleanup, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := h.execute(context.Background()); err != nil {
		return nil, err
	}
	return h.result, nil
}

// newHarness builds the scenario environment. The returned cleanup
// closes the store and removes the temp directory.
func newHarness(scenario *Scenario) (*Harness, func(), error) {
	dir, err := os.MkdirTemp("", "bandtrack-harness-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp dir: %w", err)
	}

	local, err := localstore.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		os.RemoveAll(dir)
		return nil, nil, fmt.Errorf("open local store: %w", err)
	}
	cleanup := func() {
		local.Close()
		os.RemoveAll(dir)
	}

	h := &Harness{
		local:    local,
		remote:   remote.NewMemory(),
		scenario: scenario,
		result:   &Result{Pass: true},
	}
	h.worker = syncer.NewWorker(local, h.remote,
		syncer.WithLogger(slog.New(slog.DiscardHandler)))

	clock := testutil.NewDeterministicClock()
	cfg := repo.Config{
		Remote: h.remote,
		Local:  local,
		Now:    clock.Next,
		NewID:  testutil.SequentialIDs("id"),
		Logger: slog.New(slog.DiscardHandler),
	}
	h.songs = repo.NewSongs(cfg)
	h.sugs = repo.NewSuggestions(cfg)
	h.perfs = repo.NewPerformances(cfg)

	return h, cleanup, nil
}

// execute runs the scripted steps and evaluates the assertions.
func (h *Harness) execute(ctx context.Context) error {
	for i, step := range h.scenario.Steps {
		if err := h.runStep(ctx, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Do, err)
		}
	}
	for i, a := range h.scenario.Assertions {
		h.evalAssertion(ctx, i+1, a)
	}
	return nil
}

// resolveID maps "@N" references to the Nth created id.
func (h *Harness) resolveID(ref string) (string, error) {
	if !strings.HasPrefix(ref, "@") {
		return ref, nil
	}
	n, err := strconv.Atoi(ref[1:])
	if err != nil || n < 1 || n > len(h.result.CreatedIDs) {
		return "", fmt.Errorf("bad id reference %q", ref)
	}
	return h.result.CreatedIDs[n-1], nil
}

func (h *Harness) actor(step Step) string {
	if step.User != "" {
		return step.User
	}
	return h.scenario.User
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// checkStepErr validates a step outcome against its expect_error
// clause. Returns a non-nil error only for harness-level problems.
func (h *Harness) checkStepErr(step Step, err error) error {
	switch step.ExpectError {
	case "":
		if err != nil {
			h.result.AddError("step %s failed: %v", step.Do, err)
		}
	case "validation":
		if !repo.IsValidation(err) {
			h.result.AddError("step %s: want validation error, got %v", step.Do, err)
		}
	case "not_found":
		if !repo.IsNotFound(err) {
			h.result.AddError("step %s: want not-found error, got %v", step.Do, err)
		}
	default:
		return fmt.Errorf("unknown expect_error %q", step.ExpectError)
	}
	return nil
}

func (h *Harness) runStep(ctx context.Context, step Step) error {
	group := h.scenario.Group

	switch step.Do {
	case "network_offline":
		h.remote.SetUnreachable(true)
		return nil
	case "network_online":
		h.remote.SetUnreachable(false)
		return nil
	case "drain":
		// Drains are scripted directly instead of going through the
		// scheduler, so scenarios stay deterministic.
		if err := h.worker.Drain(ctx); err != nil {
			h.result.AddError("drain failed: %v", err)
		}
		return nil

	case "create_song":
		id, err := h.songs.Create(ctx, group, model.Song{
			Title:    stringArg(step.Args, "title"),
			Artist:   stringArg(step.Args, "artist"),
			Duration: intArg(step.Args, "duration"),
			Key:      stringArg(step.Args, "key"),
			Tempo:    intArg(step.Args, "tempo"),
		}, h.actor(step))
		if err == nil {
			h.result.CreatedIDs = append(h.result.CreatedIDs, id)
		}
		return h.checkStepErr(step, err)

	case "create_suggestion":
		id, err := h.sugs.Create(ctx, group, model.Suggestion{
			Title:  stringArg(step.Args, "title"),
			Artist: stringArg(step.Args, "artist"),
			Link:   stringArg(step.Args, "link"),
		}, h.actor(step), stringArg(step.Args, "user_name"))
		if err == nil {
			h.result.CreatedIDs = append(h.result.CreatedIDs, id)
		}
		return h.checkStepErr(step, err)

	case "create_performance":
		id, err := h.perfs.Create(ctx, group, model.Performance{
			Type:            model.PerformanceType(stringArg(step.Args, "type")),
			Date:            int64(intArg(step.Args, "date")),
			DurationMinutes: intArg(step.Args, "duration_minutes"),
			Location:        stringArg(step.Args, "location"),
			Title:           stringArg(step.Args, "title"),
		}, h.actor(step))
		if err == nil {
			h.result.CreatedIDs = append(h.result.CreatedIDs, id)
		}
		return h.checkStepErr(step, err)

	case "update_mastery":
		id, err := h.resolveID(step.ID)
		if err != nil {
			return err
		}
		return h.checkStepErr(step,
			h.songs.UpdateMasteryLevel(ctx, group, id, h.actor(step), intArg(step.Args, "level")))

	case "toggle_vote":
		id, err := h.resolveID(step.ID)
		if err != nil {
			return err
		}
		return h.checkStepErr(step, h.sugs.ToggleVote(ctx, group, id, h.actor(step)))

	case "accept_suggestion":
		id, err := h.resolveID(step.ID)
		if err != nil {
			return err
		}
		songID, err := h.resolveID(stringArg(step.Args, "song_id"))
		if err != nil {
			return err
		}
		return h.checkStepErr(step, h.sugs.Accept(ctx, group, id, songID))

	case "update_setlist":
		id, err := h.resolveID(step.ID)
		if err != nil {
			return err
		}
		raw, _ := step.Args["songs"].([]interface{})
		songIDs := make([]string, 0, len(raw))
		for _, v := range raw {
			ref, _ := v.(string)
			resolved, err := h.resolveID(ref)
			if err != nil {
				return err
			}
			songIDs = append(songIDs, resolved)
		}
		return h.checkStepErr(step, h.perfs.UpdateSetlist(ctx, group, id, songIDs))

	case "delete_song":
		id, err := h.resolveID(step.ID)
		if err != nil {
			return err
		}
		return h.checkStepErr(step, h.songs.Delete(ctx, group, id))

	default:
		return fmt.Errorf("unknown step %q", step.Do)
	}
}
