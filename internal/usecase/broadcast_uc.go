package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/adapter"
	"group-broadcast-gateway/internal/domain/ports/repository"
	"group-broadcast-gateway/internal/infra/logging"
	"group-broadcast-gateway/internal/infra/metrics"
	"group-broadcast-gateway/internal/infra/worker"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

var _ BroadcastUseCase = (*broadcastUC)(nil)

type BroadcastUseCase interface {
	// Broadcast sends text to every group owned by sender, one at a time in
	// registration order, and blocks until done.
	Broadcast(ctx context.Context, sender, senderName, text string) (*model.BroadcastResult, error)
	// Start validates and queues a broadcast on the worker pool. done is
	// called from the worker once the run ends.
	Start(ctx context.Context, sender, senderName, text string, done func(*model.BroadcastResult, error)) (*model.BroadcastJob, error)
}

// Locker serializes broadcasts per sender.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// TaskSubmitter is satisfied by *worker.Pool.
type TaskSubmitter interface {
	Submit(task worker.Task) error
}

type BroadcastPacing struct {
	BaseDelay time.Duration
	StepDelay time.Duration
	LockTTL   time.Duration
}

type broadcastUC struct {
	groups    repository.GroupRepository
	messenger adapter.Messenger
	pool      TaskSubmitter
	locker    Locker
	pacing    BroadcastPacing

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	log   *zerolog.Logger
}

// NewBroadcastUseCase falls back to an in-process locker when locker is nil.
func NewBroadcastUseCase(
	groups repository.GroupRepository,
	messenger adapter.Messenger,
	pool TaskSubmitter,
	locker Locker,
	pacing BroadcastPacing,
	logger *zerolog.Logger,
) *broadcastUC {
	if locker == nil {
		locker = newLocalLocker()
	}
	if pacing.LockTTL <= 0 {
		pacing.LockTTL = 30 * time.Minute
	}
	return &broadcastUC{
		groups:    groups,
		messenger: messenger,
		pool:      pool,
		locker:    locker,
		pacing:    pacing,
		now:       time.Now,
		sleep:     sleepCtx,
		log:       logger,
	}
}

func (b *broadcastUC) Broadcast(ctx context.Context, sender, senderName, text string) (*model.BroadcastResult, error) {
	defer logging.TraceDuration(b.log, "BroadcastUC.Broadcast")()

	job, groups, err := b.prepare(ctx, sender, text)
	if err != nil {
		return nil, err
	}
	token, err := b.locker.TryLock(ctx, lockKey(job.Sender), b.pacing.LockTTL)
	if err != nil {
		metrics.IncBroadcast("rejected")
		return nil, err
	}
	defer b.unlock(job.Sender, token)

	return b.run(ctx, job, groups, formatEnvelope(senderName, job.StartedAt, text)), nil
}

func (b *broadcastUC) Start(ctx context.Context, sender, senderName, text string, done func(*model.BroadcastResult, error)) (*model.BroadcastJob, error) {
	defer logging.TraceDuration(b.log, "BroadcastUC.Start")()

	job, groups, err := b.prepare(ctx, sender, text)
	if err != nil {
		return nil, err
	}
	token, err := b.locker.TryLock(ctx, lockKey(job.Sender), b.pacing.LockTTL)
	if err != nil {
		metrics.IncBroadcast("rejected")
		return nil, err
	}

	body := formatEnvelope(senderName, job.StartedAt, text)
	task := func(taskCtx context.Context) error {
		// release before done so the sender can start again from the callback
		res := func() *model.BroadcastResult {
			defer b.unlock(job.Sender, token)
			return b.run(taskCtx, job, groups, body)
		}()
		if done != nil {
			done(res, nil)
		}
		return nil
	}
	if err := b.pool.Submit(task); err != nil {
		b.unlock(job.Sender, token)
		b.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to queue broadcast")
		return nil, fmt.Errorf("queue broadcast: %w", domain.ErrOperationFailed)
	}

	b.log.Info().Str("job_id", job.ID).Str("phone", job.Sender).Int("groups", job.Total).Msg("broadcast queued")
	return job, nil
}

func (b *broadcastUC) prepare(ctx context.Context, sender, text string) (*model.BroadcastJob, []*model.Group, error) {
	sender, err := model.NormalizePhone(sender)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil, domain.ErrInvalidArgument
	}
	groups, err := b.groups.ListByOwner(ctx, repository.NoTX, sender)
	if err != nil {
		return nil, nil, err
	}
	if len(groups) == 0 {
		return nil, nil, domain.ErrNoGroups
	}
	now := b.now()
	job := &model.BroadcastJob{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Sender:    sender,
		Total:     len(groups),
		StartedAt: now,
	}
	return job, groups, nil
}

// run never stops on a failed send. Cancellation stops it between sends and
// the rest is reported as skipped.
func (b *broadcastUC) run(ctx context.Context, job *model.BroadcastJob, groups []*model.Group, body string) *model.BroadcastResult {
	log := b.log.With().Str("job_id", job.ID).Str("phone", job.Sender).Logger()
	res := &model.BroadcastResult{JobID: job.ID, Total: len(groups)}
	start := time.Now()

	for i, g := range groups {
		if ctx.Err() != nil {
			res.Skipped = len(groups) - i
			break
		}
		if err := b.messenger.SendText(ctx, g.GroupID, body); err != nil {
			res.Failed++
			log.Warn().Err(err).Str("group_id", g.GroupID).Msg("broadcast delivery failed")
		} else {
			res.Success++
		}

		if i == len(groups)-1 {
			break
		}
		if err := b.sleep(ctx, b.delayFor(res.Success)); err != nil {
			res.Skipped = len(groups) - i - 1
			break
		}
	}

	metrics.AddBroadcastSends("success", res.Success)
	metrics.AddBroadcastSends("failed", res.Failed)
	metrics.AddBroadcastSends("skipped", res.Skipped)
	metrics.ObserveBroadcastDuration(time.Since(start))
	if res.Skipped > 0 {
		metrics.IncBroadcast("cancelled")
	} else {
		metrics.IncBroadcast("completed")
	}
	log.Info().
		Int("success", res.Success).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Msg("broadcast finished")
	return res
}

// delayFor grows with every delivered message to stay under platform anti-spam limits.
func (b *broadcastUC) delayFor(successes int) time.Duration {
	return b.pacing.BaseDelay + time.Duration(successes)*b.pacing.StepDelay
}

func (b *broadcastUC) unlock(sender, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.locker.Unlock(ctx, lockKey(sender), token); err != nil {
		b.log.Warn().Err(err).Str("phone", sender).Msg("failed to release broadcast lock")
	}
}

func lockKey(sender string) string { return "broadcast:" + sender }

func formatEnvelope(senderName string, at time.Time, text string) string {
	if strings.TrimSpace(senderName) == "" {
		senderName = "a subscriber"
	}
	return fmt.Sprintf("📢 Broadcast from %s\n🕒 %s UTC\n\n%s", senderName, at.UTC().Format("2006-01-02 15:04"), strings.TrimSpace(text))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// localLocker is the single-process stand-in for the redis locker.
type localLocker struct {
	mu   sync.Mutex
	held map[string]string
	seq  int
}

func newLocalLocker() *localLocker {
	return &localLocker{held: make(map[string]string)}
}

func (l *localLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", domain.ErrBroadcastInProgress
	}
	l.seq++
	token := fmt.Sprintf("%s#%d", key, l.seq)
	l.held[key] = token
	return token, nil
}

func (l *localLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}
