package resave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/regsuite/registry-core/internal/domain/entity"
	errs "github.com/regsuite/registry-core/internal/domain/error"
	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
	"github.com/regsuite/registry-core/internal/domain/port/persistence"
)

const (
	// DefaultParallelism is the number of shards processed concurrently
	DefaultParallelism = 4
	// DefaultShardSize is the number of resources per shard
	DefaultShardSize = 500
)

// Config is the run configuration of one pipeline sweep
type Config struct {
	// Parallelism caps how many shards are processed concurrently
	Parallelism int
	// ShardSize is the number of resources per shard; the shard is also the
	// unit of cursor advancement and of restart reprocessing
	ShardSize int
	// Fast narrows the sweep to resources whose derived state can actually
	// have changed (an expired pending transfer) instead of every resource
	Fast bool
	// RunTime is the fixed logical "now" of the sweep. Zero means the clock's
	// current time; a resumed run must pass the original run's value so
	// completed shards are recognized by their cursors
	RunTime time.Time
}

// ShardResult is the outcome of one shard
type ShardResult struct {
	Scope     string
	Processed int
	Resaved   int
	Skipped   bool
	Err       error
}

// Result is the aggregate outcome of a sweep. Failures are isolated per shard;
// a shard error never aborts the other shards
type Result struct {
	RunTime   time.Time
	Processed int64
	Resaved   int64
	Unchanged int64
	Shards    []ShardResult
}

// FailedShards returns the scopes of shards that did not complete
func (r *Result) FailedShards() []string {
	var failed []string
	for _, s := range r.Shards {
		if s.Err != nil {
			failed = append(failed, s.Scope)
		}
	}
	return failed
}

// shard is one cursor-bounded slice of the resource population
type shard struct {
	typ     entity.ResourceType
	scope   string
	repoIDs []string
}

// Pipeline sweeps every versioned resource, recomputes time-derived state as
// of a fixed logical run time and writes back only when recomputation changed
// persisted fields. Running it twice over unchanged input produces no second
// write. Progress is checkpointed per shard through cursors, so a stopped and
// resumed run reprocesses at most the shards that were in flight when it
// stopped
type Pipeline struct {
	store   persistence.Store
	clock   coreport.Clock
	logger  coreport.Logger
	metrics coreport.Metrics
	cfg     Config
}

// NewPipeline creates a resave pipeline
func NewPipeline(store persistence.Store, clock coreport.Clock, logger coreport.Logger, metrics coreport.Metrics, cfg Config) *Pipeline {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.ShardSize <= 0 {
		cfg.ShardSize = DefaultShardSize
	}
	if metrics == nil {
		metrics = coreport.NoopMetrics{}
	}
	return &Pipeline{
		store:   store,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Run executes one sweep. It returns ctx.Err() if the run was stopped; shards
// whose cursor already reflects this run's logical time are skipped, so the
// same call with the same RunTime resumes where the stopped run left off
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runTime := p.cfg.RunTime
	if runTime.IsZero() {
		runTime = p.clock.Now()
	}

	shards, err := p.planShards(ctx, runTime)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Starting resave sweep", map[string]any{
		"run_time":    runTime,
		"shards":      len(shards),
		"parallelism": p.cfg.Parallelism,
		"fast":        p.cfg.Fast,
	})

	result := &Result{RunTime: runTime}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Parallelism)
	for _, sh := range shards {
		// The stop points of the pipeline are shard boundaries
		if gctx.Err() != nil {
			break
		}
		sh := sh
		g.Go(func() error {
			res := p.runShard(gctx, sh, runTime)
			mu.Lock()
			result.Shards = append(result.Shards, res)
			result.Processed += int64(res.Processed)
			result.Resaved += int64(res.Resaved)
			result.Unchanged += int64(res.Processed - res.Resaved)
			mu.Unlock()
			// A failing shard is isolated; only cancellation stops the sweep
			if res.Err != nil && errors.Is(res.Err, context.Canceled) {
				return res.Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	p.logger.Info("Resave sweep finished", map[string]any{
		"run_time":      runTime,
		"processed":     result.Processed,
		"resaved":       result.Resaved,
		"unchanged":     result.Unchanged,
		"failed_shards": result.FailedShards(),
	})
	return result, nil
}

// planShards partitions the resource population into cursor scopes. Scope
// names depend only on resource type, sweep mode and shard index, so a
// resumed run maps the same resources to the same scopes as long as the
// population is stable
func (p *Pipeline) planShards(ctx context.Context, runTime time.Time) ([]shard, error) {
	var shards []shard
	for _, typ := range entity.AllResourceTypes {
		index := 0
		after := ""
		for {
			var (
				ids []string
				err error
			)
			listErr := p.store.Transact(ctx, func(ctx context.Context) error {
				if p.cfg.Fast {
					ids, err = p.store.Resources(ctx).ListResaveCandidateRepoIDs(ctx, typ, runTime, after, p.cfg.ShardSize)
				} else {
					ids, err = p.store.Resources(ctx).ListRepoIDs(ctx, typ, after, p.cfg.ShardSize)
				}
				return err
			})
			if listErr != nil {
				return nil, listErr
			}
			if len(ids) == 0 {
				break
			}
			shards = append(shards, shard{
				typ:     typ,
				scope:   shardScope(typ, index, p.cfg.Fast),
				repoIDs: ids,
			})
			after = ids[len(ids)-1]
			index++
			if len(ids) < p.cfg.ShardSize {
				break
			}
		}
	}
	return shards, nil
}

// shardScope names a shard's cursor. Fast and full sweeps use disjoint scope
// namespaces: a fast sweep checkpoints only the candidate subset, so its
// cursors must never satisfy a full sweep's done-check at the same run time
func shardScope(typ entity.ResourceType, index int, fast bool) string {
	mode := "full"
	if fast {
		mode = "fast"
	}
	return fmt.Sprintf("%s/%s/%06d", strings.ToLower(string(typ)), mode, index)
}

// runShard processes one shard and, only after every resource in it has
// committed, advances the shard's cursor to the run time. A shard whose
// cursor already reflects this run is skipped wholesale
func (p *Pipeline) runShard(ctx context.Context, sh shard, runTime time.Time) ShardResult {
	res := ShardResult{Scope: sh.scope}

	done, err := p.shardDone(ctx, sh.scope, runTime)
	if err != nil {
		res.Err = err
		return res
	}
	if done {
		res.Skipped = true
		p.logger.Debug("Shard already completed for this run, skipping", map[string]any{
			"scope":    sh.scope,
			"run_time": runTime,
		})
		return res
	}

	for _, repoID := range sh.repoIDs {
		resaved, err := p.resaveOne(ctx, repoID, sh.typ, runTime)
		if err != nil {
			res.Err = fmt.Errorf("resource %s: %w", repoID, err)
			p.logger.Error("Shard failed, cursor not advanced", map[string]any{
				"scope":   sh.scope,
				"repo_id": repoID,
				"error":   err.Error(),
			})
			return res
		}
		res.Processed++
		if resaved {
			res.Resaved++
		}
	}

	if err := p.advanceCursor(ctx, sh.scope, runTime); err != nil {
		res.Err = err
		return res
	}
	return res
}

// shardDone reports whether the shard's cursor already reflects this run
func (p *Pipeline) shardDone(ctx context.Context, scope string, runTime time.Time) (bool, error) {
	var done bool
	err := p.store.Transact(ctx, func(ctx context.Context) error {
		cursor, err := p.store.Cursors(ctx).Get(ctx, entity.NewCursorID(entity.CursorTypeResaveAllResources, scope))
		if errors.Is(err, errs.ErrCursorNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		done = !cursor.CursorTime.Before(runTime)
		return nil
	})
	return done, err
}

func (p *Pipeline) advanceCursor(ctx context.Context, scope string, runTime time.Time) error {
	return p.store.Transact(ctx, func(ctx context.Context) error {
		return p.store.Cursors(ctx).Set(ctx, entity.CursorTypeResaveAllResources, scope, runTime, p.clock.Now())
	})
}

// resaveOne recomputes one resource inside its own transaction and reports
// whether it was rewritten. The update timestamp moves only when recomputation
// actually changed persisted state, which is what makes the sweep idempotent
func (p *Pipeline) resaveOne(ctx context.Context, repoID string, typ entity.ResourceType, runTime time.Time) (bool, error) {
	var resaved bool
	err := p.store.Transact(ctx, func(ctx context.Context) error {
		resource, err := p.store.Resources(ctx).GetByRepoID(ctx, repoID)
		if errors.Is(err, errs.ErrResourceNotFound) {
			// Deleted between planning and processing; nothing to recompute
			return nil
		}
		if err != nil {
			return err
		}

		if !resource.ProjectAt(runTime) {
			p.logger.Debug("Resource unchanged", map[string]any{
				"repo_id": repoID,
			})
			return nil
		}

		resource.UpdateTime = runTime
		if err := p.store.Resources(ctx).Save(ctx, resource); err != nil {
			return err
		}
		resaved = true
		p.logger.Info("Resource resaved", map[string]any{
			"repo_id":     repoID,
			"update_time": runTime,
		})
		return nil
	})
	if err != nil {
		return false, err
	}
	if resaved {
		p.metrics.RecordResourceResaved(string(typ))
	} else {
		p.metrics.RecordResourceUnchanged(string(typ))
	}
	return resaved, nil
}
