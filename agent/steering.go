package agent

import "sync"

// SteeringMode controls how many queued steering messages Drain releases
// at once, grounded on steering.go's SteeringMode (OneAtATime vs All).
type SteeringMode int

const (
	SteerOneAtATime SteeringMode = iota
	SteerAll
)

// SteeringQueue holds messages injected mid-turn ("steering") or queued
// for the next idle turn ("follow-up"), generalizing steering.go's
// context-scoped singleton into one instance per Agent, matching spec
// §3's single pending_messages field plus the drain behavior spec §4.1
// step 14 describes.
type SteeringQueue struct {
	mu   sync.Mutex
	mode SteeringMode

	steering []string
	followUp []string
}

// NewSteeringQueue constructs an empty queue with the given drain mode.
func NewSteeringQueue(mode SteeringMode) *SteeringQueue {
	return &SteeringQueue{mode: mode}
}

// Steer enqueues text to be injected into the conversation the next time
// the machine checks for steering input (typically between tool batches).
func (q *SteeringQueue) Steer(text string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.steering = append(q.steering, text)
}

// FollowUp enqueues text to be appended once the agent returns to idle.
func (q *SteeringQueue) FollowUp(text string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.followUp = append(q.followUp, text)
}

// HasSteering reports whether any steering messages are queued.
func (q *SteeringQueue) HasSteering() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.steering) > 0
}

// HasFollowUp reports whether any follow-up messages are queued.
func (q *SteeringQueue) HasFollowUp() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.followUp) > 0
}

// DrainSteering removes and returns queued steering messages according to
// the queue's mode: one message, or all of them.
func (q *SteeringQueue) DrainSteering() []string {
	return q.drain(&q.steering)
}

// DrainFollowUp removes and returns queued follow-up messages.
func (q *SteeringQueue) DrainFollowUp() []string {
	return q.drain(&q.followUp)
}

func (q *SteeringQueue) drain(list *[]string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(*list) == 0 {
		return nil
	}

	if q.mode == SteerAll {
		out := *list
		*list = nil
		return out
	}

	out := []string{(*list)[0]}
	*list = (*list)[1:]
	return out
}

// ClearSteering discards all queued steering messages without returning them.
func (q *SteeringQueue) ClearSteering() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.steering = nil
}

// ClearFollowUp discards all queued follow-up messages without returning them.
func (q *SteeringQueue) ClearFollowUp() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.followUp = nil
}
