package hcq

import (
	"fmt"
	"strings"
)

// Courses returns the course table in configuration order.
func (q *Queue) Courses() []*Course {
	return q.courses
}

// Waiting returns the waiting students, oldest first.
func (q *Queue) Waiting() []*Student {
	return q.waiting
}

// Tas returns the TAs on duty, newest first.
func (q *Queue) Tas() []*Ta {
	return q.tas
}

func (q *Queue) WaitingCount(code string) int {
	n := 0
	for _, s := range q.waiting {
		if s.Course.Code == code {
			n++
		}
	}
	return n
}

func (q *Queue) BeingHelpedCount(code string) int {
	n := 0
	for _, ta := range q.tas {
		if ta.Current != nil && ta.Current.Course.Code == code {
			n++
		}
	}
	return n
}

// CourseStats is a point-in-time summary of one course.
type CourseStats struct {
	Code        string
	Description string
	Waiting     int
	BeingHelped int
	Helped      int
	Bailed      int
	WaitSeconds float64
	HelpSeconds float64
}

func (q *Queue) CourseStats(code string) (CourseStats, error) {
	c := q.FindCourse(code)
	if c == nil {
		return CourseStats{}, ErrUnknownCourse
	}
	return CourseStats{
		Code:        c.Code,
		Description: c.Description,
		Waiting:     q.WaitingCount(code),
		BeingHelped: q.BeingHelpedCount(code),
		Helped:      c.Helped,
		Bailed:      c.Bailed,
		WaitSeconds: c.WaitTime.Seconds(),
		HelpSeconds: c.HelpTime.Seconds(),
	}, nil
}

// CurrentlyServing lists which TA is serving whom, one CRLF line per TA.
func (q *Queue) CurrentlyServing() string {
	if len(q.tas) == 0 {
		return "No TAs are currently working.\r\n"
	}
	var b strings.Builder
	for _, ta := range q.tas {
		if ta.Current != nil {
			fmt.Fprintf(&b, "TA: %s is serving %s.\r\n", ta.Name, ta.Current.Name)
		} else {
			fmt.Fprintf(&b, "TA: %s has no student\r\n", ta.Name)
		}
	}
	return b.String()
}

// FullQueue lists every waiting student with their course. Students already
// being served are not included.
func (q *Queue) FullQueue() string {
	var b strings.Builder
	b.WriteString("Full Queue\r\n")
	for _, s := range q.waiting {
		fmt.Fprintf(&b, "Student %s:%s\r\n", s.Name, s.Course.Code)
	}
	return b.String()
}

// AllQueues lists, for every course in configuration order, how many
// students wait for it followed by their names, oldest first.
func (q *Queue) AllQueues() string {
	var b strings.Builder
	for _, c := range q.courses {
		fmt.Fprintf(&b, "%s: %d in queue\r\n", c.Code, q.WaitingCount(c.Code))
		for _, s := range q.waiting {
			if s.Course == c {
				fmt.Fprintf(&b, "\t%s\r\n", s.Name)
			}
		}
	}
	return b.String()
}

// CourseReport renders CourseStats for code.
func (q *Queue) CourseReport(code string) (string, error) {
	st, err := q.CourseStats(code)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%s\r\n", st.Code, st.Description)
	fmt.Fprintf(&b, "\t%d: waiting\r\n", st.Waiting)
	fmt.Fprintf(&b, "\t%d: being helped currently\r\n", st.BeingHelped)
	fmt.Fprintf(&b, "\t%d: already helped\r\n", st.Helped)
	fmt.Fprintf(&b, "\t%d: gave_up\r\n", st.Bailed)
	fmt.Fprintf(&b, "\t%f: total time waiting\r\n", st.WaitSeconds)
	fmt.Fprintf(&b, "\t%f: total time helping\r\n", st.HelpSeconds)
	return b.String(), nil
}
