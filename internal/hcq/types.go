// Package hcq holds the help-centre queue: the static course table, the FIFO
// of waiting students and the list of TAs on duty.
//
// A Queue is not safe for concurrent use. The server owns it from a single
// goroutine.
package hcq

import "time"

// Client is the connection a Student or Ta record refers back to. Records
// never own their client.
type Client interface {
	// Closed reports whether the client has gone away and is only waiting to
	// be released.
	Closed() bool
}

func closed(c Client) bool {
	return c != nil && c.Closed()
}

// Course is a statically configured course code with service statistics.
type Course struct {
	Code        string
	Description string

	Helped   int
	Bailed   int
	WaitTime time.Duration
	HelpTime time.Duration
}

type Student struct {
	Name    string
	Course  *Course
	Arrival time.Time
	// Started is set when a TA takes the student.
	Started time.Time
	Client  Client
}

type Ta struct {
	Name    string
	Current *Student
	Client  Client
}

var (
	ErrDuplicateName = errorString("duplicate_name")
	ErrUnknownCourse = errorString("unknown_course")
	ErrNotFound      = errorString("not_found")
)

type errorString string

func (e errorString) Error() string { return string(e) }
