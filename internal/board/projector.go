package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/taskboard/internal/client"
	"github.com/adanyl0v/taskboard/internal/models"
)

// TaskAPI is the part of the server API the projector needs.
// *client.Client satisfies it.
type TaskAPI interface {
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	CreateTask(ctx context.Context, task client.NewTask) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ReorderTasks(ctx context.Context, entries []models.ReorderEntry) (int, error)
}

// pendingMove is a move applied to the view but not yet confirmed by
// the server. It is keyed by task id so it can be replayed over a
// freshly fetched board.
type pendingMove struct {
	id     uint64
	taskID string
	dst    models.Status
	dstIdx int

	// turn is closed once every move begun before this one has been
	// confirmed or rolled back.
	turn chan struct{}
}

func (m *pendingMove) applyTo(b Board) Board {
	src, idx, ok := b.Find(m.taskID)
	if !ok {
		return b
	}
	moved, err := b.Move(src, idx, m.dst, m.dstIdx)
	if err != nil {
		return b
	}
	return moved
}

// Projector holds the last board confirmed by the server plus the log of
// moves still in flight. The visible board is the confirmed one with the
// pending moves replayed on top. It is safe for concurrent use; network
// calls are made without holding the lock.
type Projector struct {
	api    TaskAPI
	logger zerolog.Logger

	mu      sync.Mutex
	base    Board
	pending []*pendingMove
	nextID  uint64

	// fetchSeq numbers Load calls; appliedSeq is the newest one whose
	// result replaced base. confirmEpoch changes whenever a move is folded
	// into base, so a fetch started before that can't overwrite it.
	fetchSeq     uint64
	appliedSeq   uint64
	confirmEpoch uint64
}

func NewProjector(api TaskAPI, logger zerolog.Logger) *Projector {
	return &Projector{
		api:    api,
		logger: logger,
		base:   Project(nil),
	}
}

// View returns the board as the user should see it.
func (p *Projector) View() Board {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

// Pending returns how many moves are waiting for the server.
func (p *Projector) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Projector) viewLocked() Board {
	view := p.base
	for _, m := range p.pending {
		view = m.applyTo(view)
	}
	return view
}

// Load refetches the task list and makes it the confirmed board. A
// response that arrives after a newer fetch was applied, or after a move
// was confirmed, is discarded. Pending moves stay on top of the new board.
func (p *Projector) Load(ctx context.Context) error {
	p.mu.Lock()
	p.fetchSeq++
	seq := p.fetchSeq
	epoch := p.confirmEpoch
	p.mu.Unlock()

	tasks, err := p.api.ListTasks(ctx, models.TaskFilter{})
	if err != nil {
		p.logger.Error().
			Err(err).
			Msg("failed to fetch tasks")
		return fmt.Errorf("fetching tasks: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if seq <= p.appliedSeq || epoch != p.confirmEpoch {
		p.logger.Debug().
			Uint64("fetch", seq).
			Uint64("applied", p.appliedSeq).
			Msg("discarded stale fetch")
		return nil
	}

	p.base = Project(tasks)
	p.appliedSeq = seq
	p.logger.Debug().
		Int("count", len(tasks)).
		Int("pending", len(p.pending)).
		Msg("loaded board")
	return nil
}

// Move is an optimistic card move that has been applied locally and is
// waiting to be sent with Commit. Every Move returned by BeginMove must be
// committed: moves reach the server in the order they were begun.
type Move struct {
	p  *Projector
	op *pendingMove
}

// Entries returns the flattened order Commit will send, assuming the
// moves begun before this one are confirmed.
func (m *Move) Entries() []models.ReorderEntry {
	p := m.p
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.base
	for _, op := range p.pending {
		b = op.applyTo(b)
		if op.id == m.op.id {
			break
		}
	}
	return b.Flatten()
}

// BeginMove applies a card move to the view immediately and records it as
// pending. A nil dst means the card was dropped outside any column: the
// board is left alone and a nil Move is returned.
func (p *Projector) BeginMove(src models.Status, srcIdx int, dst *models.Status, dstIdx int) (*Move, error) {
	if dst == nil {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	view := p.viewLocked()
	moved, err := view.Move(src, srcIdx, *dst, dstIdx)
	if err != nil {
		return nil, err
	}

	task := view.columns[src][srcIdx]
	_, finalIdx, _ := moved.Find(task.ID)

	p.nextID++
	op := &pendingMove{
		id:     p.nextID,
		taskID: task.ID,
		dst:    *dst,
		dstIdx: finalIdx,
		turn:   make(chan struct{}),
	}
	if len(p.pending) == 0 {
		close(op.turn)
	}
	p.pending = append(p.pending, op)

	return &Move{p: p, op: op}, nil
}

// Commit waits for the moves begun earlier, then sends this one. The
// order is computed at send time from the confirmed board, so a move
// rolled back before this one is never sent along with it. A column
// change is saved as a status update first, because reorder only writes
// positions. On success the move is folded into the confirmed board; on
// failure it is dropped from the view and the error is returned for the
// user to see.
func (m *Move) Commit(ctx context.Context) error {
	if m == nil {
		return nil
	}
	p := m.p

	select {
	case <-m.op.turn:
	case <-ctx.Done():
		return m.rollback(ctx, ctx.Err(), false)
	}

	p.mu.Lock()
	src, _, ok := p.base.Find(m.op.taskID)
	target := m.op.applyTo(p.base)
	p.mu.Unlock()

	if !ok {
		return m.rollback(ctx, fmt.Errorf("%w: %s", ErrTaskNotOnBoard, m.op.taskID), false)
	}

	statusSaved := false
	if src != m.op.dst {
		dst := m.op.dst
		_, err := p.api.UpdateTask(ctx, m.op.taskID, models.TaskPatch{Status: &dst})
		if err != nil {
			return m.rollback(ctx, err, false)
		}
		statusSaved = true
	}

	_, err := p.api.ReorderTasks(ctx, target.Flatten())
	if err != nil {
		return m.rollback(ctx, err, statusSaved)
	}

	p.mu.Lock()
	p.base = m.op.applyTo(p.base)
	p.confirmEpoch++
	p.removePendingLocked(m.op.id)
	p.mu.Unlock()

	p.logger.Debug().
		Str("task_id", m.op.taskID).
		Str("status", string(m.op.dst)).
		Int("index", m.op.dstIdx).
		Msg("confirmed move")
	return nil
}

func (m *Move) rollback(ctx context.Context, cause error, resync bool) error {
	p := m.p

	p.logger.Error().
		Err(cause).
		Str("task_id", m.op.taskID).
		Msg("failed to move task, rolled back")

	// The status already changed on the server, so the confirmed board
	// is out of date. Refetch before the next move gets its turn.
	if resync {
		if err := p.Load(ctx); err != nil {
			p.logger.Warn().
				Err(err).
				Msg("failed to resync after rollback")
		}
	}

	p.mu.Lock()
	p.removePendingLocked(m.op.id)
	p.mu.Unlock()

	return fmt.Errorf("failed to reorder tasks: %w", cause)
}

// removePendingLocked drops a move from the log and, if it was the
// oldest, hands the turn to the next one.
func (p *Projector) removePendingLocked(id uint64) {
	for i, m := range p.pending {
		if m.id != id {
			continue
		}
		p.pending = append(p.pending[:i], p.pending[i+1:]...)
		if i == 0 && len(p.pending) > 0 {
			close(p.pending[0].turn)
		}
		return
	}
}

// MoveCard applies a move optimistically and waits for the server.
func (p *Projector) MoveCard(ctx context.Context, src models.Status, srcIdx int, dst *models.Status, dstIdx int) error {
	move, err := p.BeginMove(src, srcIdx, dst, dstIdx)
	if err != nil {
		return err
	}
	return move.Commit(ctx)
}

// ToggleComplete marks a task Completed, or back to Pending if it already
// is, and reloads the board. In Progress tasks become Completed.
func (p *Projector) ToggleComplete(ctx context.Context, taskID string) error {
	p.mu.Lock()
	view := p.viewLocked()
	p.mu.Unlock()

	status, _, ok := view.Find(taskID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotOnBoard, taskID)
	}

	next := models.StatusCompleted
	if status == models.StatusCompleted {
		next = models.StatusPending
	}

	_, err := p.api.UpdateTask(ctx, taskID, models.TaskPatch{Status: &next})
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to toggle task")
		return fmt.Errorf("failed to update task: %w", err)
	}
	return p.Load(ctx)
}

func (p *Projector) CreateTask(ctx context.Context, task client.NewTask) (*models.Task, error) {
	created, err := p.api.CreateTask(ctx, task)
	if err != nil {
		p.logger.Error().
			Err(err).
			Msg("failed to create task")
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return created, p.Load(ctx)
}

func (p *Projector) DeleteTask(ctx context.Context, taskID string) error {
	err := p.api.DeleteTask(ctx, taskID)
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return p.Load(ctx)
}
