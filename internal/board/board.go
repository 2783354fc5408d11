// Package board projects a flat, position-ordered task list into status
// columns and keeps an optimistic view of card moves in sync with the
// server.
package board

import (
	"errors"
	"fmt"

	"github.com/adanyl0v/taskboard/internal/models"
)

var (
	ErrUnknownColumn  = errors.New("unknown column")
	ErrCardOutOfRange = errors.New("card index out of range")
	ErrTaskNotOnBoard = errors.New("task is not on the board")
)

// Board is an immutable grouping of tasks by status. Within a column
// tasks keep the order they were fetched in.
type Board struct {
	columns map[models.Status][]models.Task
}

// Project groups tasks into the known status columns. Tasks with any
// other status are dropped.
func Project(tasks []models.Task) Board {
	b := Board{columns: make(map[models.Status][]models.Task, len(models.Statuses))}
	for _, task := range tasks {
		if !task.Status.Valid() {
			continue
		}
		b.columns[task.Status] = append(b.columns[task.Status], task)
	}
	return b
}

// Column returns a copy of the tasks in the status column.
func (b Board) Column(status models.Status) []models.Task {
	return append([]models.Task(nil), b.columns[status]...)
}

// Len returns how many tasks are on the board.
func (b Board) Len() int {
	n := 0
	for _, status := range models.Statuses {
		n += len(b.columns[status])
	}
	return n
}

// Find locates a task by id.
func (b Board) Find(taskID string) (models.Status, int, bool) {
	for _, status := range models.Statuses {
		for i, task := range b.columns[status] {
			if task.ID == taskID {
				return status, i, true
			}
		}
	}
	return "", 0, false
}

// Move returns a board with the card at (src, srcIdx) removed and
// inserted into dst at dstIdx, its status set to dst. dstIdx is clamped
// to the destination column.
func (b Board) Move(src models.Status, srcIdx int, dst models.Status, dstIdx int) (Board, error) {
	if !src.Valid() {
		return b, fmt.Errorf("%w: %q", ErrUnknownColumn, src)
	}
	if !dst.Valid() {
		return b, fmt.Errorf("%w: %q", ErrUnknownColumn, dst)
	}
	srcCol := b.columns[src]
	if srcIdx < 0 || srcIdx >= len(srcCol) {
		return b, fmt.Errorf("%w: %s[%d]", ErrCardOutOfRange, src, srcIdx)
	}

	moved := b.clone()
	task := srcCol[srcIdx]
	task.Status = dst

	remaining := make([]models.Task, 0, len(srcCol)-1)
	remaining = append(remaining, srcCol[:srcIdx]...)
	remaining = append(remaining, srcCol[srcIdx+1:]...)
	moved.columns[src] = remaining

	dstCol := moved.columns[dst]
	dstIdx = max(0, min(dstIdx, len(dstCol)))

	inserted := make([]models.Task, 0, len(dstCol)+1)
	inserted = append(inserted, dstCol[:dstIdx]...)
	inserted = append(inserted, task)
	inserted = append(inserted, dstCol[dstIdx:]...)
	moved.columns[dst] = inserted

	return moved, nil
}

// Flatten concatenates the columns in display order and numbers the
// result from zero.
func (b Board) Flatten() []models.ReorderEntry {
	entries := make([]models.ReorderEntry, 0, b.Len())
	for _, status := range models.Statuses {
		for _, task := range b.columns[status] {
			entries = append(entries, models.ReorderEntry{
				ID:       task.ID,
				Position: len(entries),
			})
		}
	}
	return entries
}

func (b Board) clone() Board {
	c := Board{columns: make(map[models.Status][]models.Task, len(models.Statuses))}
	for status, tasks := range b.columns {
		c.columns[status] = append([]models.Task(nil), tasks...)
	}
	return c
}
