package hcq

import (
	"github.com/benbjohnson/clock"
)

// Queue is the help-centre aggregate. Students are kept in arrival order with
// the newest at the end; TAs are kept newest first.
type Queue struct {
	courses  []*Course
	waiting  []*Student
	tas      []*Ta
	clock    clock.Clock
	observer Observer
}

// NewQueue builds a queue over a fixed course table. A nil clock means the
// wall clock.
func NewQueue(courses []Course, clk clock.Clock) *Queue {
	if clk == nil {
		clk = clock.New()
	}
	q := &Queue{
		courses: make([]*Course, 0, len(courses)),
		clock:   clk,
	}
	for i := range courses {
		c := courses[i]
		q.courses = append(q.courses, &c)
	}
	return q
}

// SetObserver replaces the event observer. Nil disables events.
func (q *Queue) SetObserver(o Observer) {
	q.observer = o
}

func (q *Queue) emit(ev Event) {
	if q.observer == nil {
		return
	}
	ev.At = q.clock.Now()
	q.observer.Observe(ev)
}

func (q *Queue) FindStudent(name string) *Student {
	for _, s := range q.waiting {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (q *Queue) FindTa(name string) *Ta {
	for _, ta := range q.tas {
		if ta.Name == name {
			return ta
		}
	}
	return nil
}

func (q *Queue) FindCourse(code string) *Course {
	for _, c := range q.courses {
		if c.Code == code {
			return c
		}
	}
	return nil
}

// AddStudent appends a new student to the tail of the queue.
func (q *Queue) AddStudent(name, code string, client Client) error {
	if q.FindStudent(name) != nil {
		return ErrDuplicateName
	}
	course := q.FindCourse(code)
	if course == nil {
		return ErrUnknownCourse
	}
	q.waiting = append(q.waiting, &Student{
		Name:    name,
		Course:  course,
		Arrival: q.clock.Now(),
		Client:  client,
	})
	q.emit(Event{Type: EventJoined, Student: name, Course: code})
	return nil
}

// GiveUpWaiting removes a waiting student that left before being served and
// records the time they waited.
func (q *Queue) GiveUpWaiting(name string) error {
	idx := q.waitingIndex(func(s *Student) bool { return s.Name == name })
	if idx < 0 {
		return ErrNotFound
	}
	q.giveUp(idx)
	return nil
}

func (q *Queue) giveUp(idx int) {
	s := q.removeWaiting(idx)
	waited := q.clock.Since(s.Arrival)
	if waited < 0 {
		waited = 0
	}
	s.Course.Bailed++
	s.Course.WaitTime += waited
	q.emit(Event{Type: EventGaveUp, Student: s.Name, Course: s.Course.Code, Waited: waited})
}

// AddTa puts a new TA at the head of the TA list. Names are not checked.
func (q *Queue) AddTa(name string, client Client) {
	q.tas = append([]*Ta{{Name: name, Client: client}}, q.tas...)
}

// RemoveTa removes the first TA with the given name, finishing the student
// they were serving.
func (q *Queue) RemoveTa(name string) error {
	idx := q.taIndex(func(ta *Ta) bool { return ta.Name == name })
	if idx < 0 {
		return ErrNotFound
	}
	q.removeTaAt(idx)
	return nil
}

func (q *Queue) removeTaAt(idx int) {
	ta := q.tas[idx]
	q.finish(ta)
	q.tas = append(q.tas[:idx], q.tas[idx+1:]...)
}

// TakeNext finishes the TA's current student and assigns the student that
// has waited longest. With nobody waiting the TA is left idle.
func (q *Queue) TakeNext(taName string) error {
	ta := q.FindTa(taName)
	if ta == nil {
		return ErrNotFound
	}
	q.Assign(ta)
	return nil
}

// TakeNextForCourse is TakeNext restricted to students of one course. An
// unknown course still finishes the current student.
func (q *Queue) TakeNextForCourse(taName, code string) error {
	ta := q.FindTa(taName)
	if ta == nil {
		return ErrNotFound
	}
	return q.AssignForCourse(ta, code)
}

// Assign is TakeNext for a TA record already looked up.
func (q *Queue) Assign(ta *Ta) {
	q.take(ta, q.nextWaiting(func(*Student) bool { return true }))
}

// AssignForCourse is TakeNextForCourse for a TA record already looked up.
func (q *Queue) AssignForCourse(ta *Ta, code string) error {
	course := q.FindCourse(code)
	if course == nil {
		q.finish(ta)
		return ErrUnknownCourse
	}
	q.take(ta, q.nextWaiting(func(s *Student) bool { return s.Course == course }))
	return nil
}

// nextWaiting is the oldest matching student whose client is still there.
// Students whose client already closed are left for Release to record as
// giving up.
func (q *Queue) nextWaiting(match func(*Student) bool) int {
	return q.waitingIndex(func(s *Student) bool { return match(s) && !closed(s.Client) })
}

// FindTaByClient returns the TA registered by client. TA names are not
// unique, clients are.
func (q *Queue) FindTaByClient(client Client) *Ta {
	if idx := q.taIndex(func(ta *Ta) bool { return ta.Client == client }); idx >= 0 {
		return q.tas[idx]
	}
	return nil
}

// take finishes ta's current student and assigns waiting[idx], if any.
func (q *Queue) take(ta *Ta, idx int) {
	q.finish(ta)
	if idx < 0 || idx >= len(q.waiting) {
		return
	}
	s := q.removeWaiting(idx)
	now := q.clock.Now()
	waited := now.Sub(s.Arrival)
	if waited < 0 {
		waited = 0
	}
	s.Started = now
	s.Course.WaitTime += waited
	ta.Current = s
	q.emit(Event{Type: EventAssigned, Student: s.Name, Course: s.Course.Code, Ta: ta.Name, Waited: waited})
}

func (q *Queue) finish(ta *Ta) {
	s := ta.Current
	if s == nil {
		return
	}
	ta.Current = nil
	helped := q.clock.Since(s.Started)
	if helped < 0 {
		helped = 0
	}
	s.Course.Helped++
	s.Course.HelpTime += helped
	q.emit(Event{Type: EventFinished, Student: s.Name, Course: s.Course.Code, Ta: ta.Name, Helped: helped})
}

// Release drops whatever record refers to client. A waiting student gives
// up, a TA is removed. Students already being served stay with their TA, and
// a client that never resolved a role releases nothing.
func (q *Queue) Release(client Client) {
	if client == nil {
		return
	}
	if idx := q.waitingIndex(func(s *Student) bool { return s.Client == client }); idx >= 0 {
		q.giveUp(idx)
		return
	}
	if idx := q.taIndex(func(ta *Ta) bool { return ta.Client == client }); idx >= 0 {
		q.removeTaAt(idx)
	}
}

func (q *Queue) waitingIndex(match func(*Student) bool) int {
	for i, s := range q.waiting {
		if match(s) {
			return i
		}
	}
	return -1
}

func (q *Queue) taIndex(match func(*Ta) bool) int {
	for i, ta := range q.tas {
		if match(ta) {
			return i
		}
	}
	return -1
}

func (q *Queue) removeWaiting(idx int) *Student {
	s := q.waiting[idx]
	copy(q.waiting[idx:], q.waiting[idx+1:])
	q.waiting[len(q.waiting)-1] = nil
	q.waiting = q.waiting[:len(q.waiting)-1]
	return s
}
