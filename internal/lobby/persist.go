package lobby

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Failed archive writes are retried on their own, backing off from
// minRetry up to maxRetry.
const (
	minRetry = time.Second
	maxRetry = time.Minute
)

type archiveJob struct {
	runID string
	teams []engine.Team
}

// pending is the work not yet handed to the backends. A clear always runs
// before the save that follows it.
type pending struct {
	clear    bool
	save     *engine.State
	publish  *engine.State
	archives []archiveJob
}

func (p pending) empty() bool {
	return !p.clear && p.save == nil && p.publish == nil && len(p.archives) == 0
}

// persister runs store, archive and replication I/O for one lobby on its
// own goroutine. Enqueueing never blocks.
type persister struct {
	code     string
	store    Store
	archiver Archiver
	pub      Publisher
	timeout  time.Duration
	clock    clockwork.Clock
	log      *zap.Logger
	warn     func(error)

	mu      sync.Mutex
	work    pending
	retry   clockwork.Timer // armed while failed archives wait
	backoff time.Duration
	signal  chan struct{}
	done    chan struct{}
}

func newPersister(cfg Config, log *zap.Logger, warn func(error)) *persister {
	return &persister{
		code:     cfg.Code,
		store:    cfg.Store,
		archiver: cfg.Archive,
		pub:      cfg.Publisher,
		timeout:  cfg.PersistTimeout,
		clock:    cfg.Clock,
		log:      log,
		warn:     warn,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (p *persister) save(s engine.State) {
	p.mu.Lock()
	p.work.save = &s
	p.work.publish = &s
	p.mu.Unlock()
	p.kick()
}

// clear drops any older queued save; the fresh run is published but not
// written until it is first mutated.
func (p *persister) clear(s engine.State) {
	p.mu.Lock()
	p.work.clear = true
	p.work.save = nil
	p.work.publish = &s
	p.mu.Unlock()
	p.kick()
}

func (p *persister) archive(s engine.State) {
	job := archiveJob{runID: s.RunID, teams: s.Clone().Teams}
	p.mu.Lock()
	p.work.archives = append(p.work.archives, job)
	p.mu.Unlock()
	p.kick()
}

// supersede forgets queued writes after an external replacement, so a stale
// local state never overwrites the newer shared one. Archive jobs are kept.
func (p *persister) supersede() {
	p.mu.Lock()
	p.work.clear = false
	p.work.save = nil
	p.work.publish = nil
	p.mu.Unlock()
}

func (p *persister) kick() {
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *persister) take() pending {
	p.mu.Lock()
	defer p.mu.Unlock()
	w := p.work
	p.work = pending{}
	return w
}

// requeue puts failed jobs back in front and arms the retry timer. An
// empty slice means the archiver caught up, which resets the backoff.
func (p *persister) requeue(jobs []archiveJob) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(jobs) == 0 {
		p.backoff = 0
		return
	}
	p.work.archives = slices.Insert(p.work.archives, 0, jobs...)
	if p.retry != nil {
		return
	}
	p.backoff = min(max(2*p.backoff, minRetry), maxRetry)
	p.retry = p.clock.AfterFunc(p.backoff, func() {
		p.mu.Lock()
		p.retry = nil
		p.mu.Unlock()
		p.kick()
	})
}

func (p *persister) stopRetry() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.retry != nil {
		p.retry.Stop()
		p.retry = nil
	}
}

// run exits when ctx ends, after one final flush. Writes are bounded by the
// persist timeout rather than by ctx, so shutdown does not abort them.
func (p *persister) run(ctx context.Context) {
	defer close(p.done)
	io := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			p.stopRetry()
			p.flush(io, false)
			return
		case <-p.signal:
			p.flush(io, true)
		}
	}
}

func (p *persister) flush(ctx context.Context, retryArchives bool) {
	w := p.take()
	if w.empty() {
		return
	}

	if w.clear && p.store != nil {
		if err := p.call(ctx, p.store.Clear); err != nil {
			p.fail("clear saved auction", err)
		}
	}
	if w.save != nil && p.store != nil {
		s := *w.save
		err := p.call(ctx, func(ctx context.Context) error { return p.store.Save(ctx, s) })
		if err != nil {
			p.fail("save auction", err, zap.String("run_id", s.RunID))
		}
	}

	var failed []archiveJob
	for _, job := range w.archives {
		if p.archiver == nil {
			break
		}
		var written bool
		err := p.call(ctx, func(ctx context.Context) error {
			var err error
			written, err = p.archiver.Record(ctx, job.runID, job.teams)
			return err
		})
		if err != nil {
			p.fail("archive auction", err, zap.String("run_id", job.runID))
			failed = append(failed, job)
			continue
		}
		if written {
			p.log.Info("auction archived", zap.String("run_id", job.runID))
		}
	}
	if retryArchives && len(w.archives) > 0 && p.archiver != nil {
		p.requeue(failed)
	}

	if w.publish != nil && p.pub != nil {
		s := *w.publish
		err := p.call(ctx, func(ctx context.Context) error { return p.pub.Publish(ctx, p.code, s) })
		if err != nil {
			p.log.Warn("publish state failed", zap.Error(err), zap.String("run_id", s.RunID))
		}
	}
}

func (p *persister) call(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return fn(callCtx)
}

func (p *persister) fail(op string, err error, fields ...zap.Field) {
	p.log.Warn(op+" failed", append(fields, zap.Error(err))...)
	p.warn(fmt.Errorf("%s: %w", op, err))
}
