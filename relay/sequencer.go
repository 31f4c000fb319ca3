package relay

import (
	"sync"

	"github.com/eapache/queue/v2"
)

// Sequencer serializes event processing per user. The transport dispatches
// every update on its own goroutine, but the state machine requires that a
// user's text event is fully stored before that user's selection event runs.
// Tasks for one user execute in strict FIFO order on a single worker
// goroutine; tasks for different users run concurrently.
type Sequencer struct {
	mu    sync.Mutex
	users map[int64]*userQueue
}

type userQueue struct {
	tasks   *queue.Queue[func()]
	running bool
}

// NewSequencer creates an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{users: make(map[int64]*userQueue)}
}

// Do enqueues task for the given user and returns immediately. If no worker
// is draining that user's queue, one is started.
func (s *Sequencer) Do(userID int64, task func()) {
	s.mu.Lock()
	uq, ok := s.users[userID]
	if !ok {
		uq = &userQueue{tasks: queue.New[func()]()}
		s.users[userID] = uq
	}
	uq.tasks.Add(task)
	if !uq.running {
		uq.running = true
		go s.drain(userID, uq)
	}
	s.mu.Unlock()
}

// drain runs the user's tasks one at a time until the queue is empty, then
// removes the queue so idle users cost nothing.
func (s *Sequencer) drain(userID int64, uq *userQueue) {
	for {
		s.mu.Lock()
		if uq.tasks.Length() == 0 {
			uq.running = false
			delete(s.users, userID)
			s.mu.Unlock()
			return
		}
		task := uq.tasks.Remove()
		s.mu.Unlock()

		task()
	}
}
