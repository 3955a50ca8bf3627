package helpcentre

import (
	"errors"
	"strings"

	"github.com/andy6609/helpcentre-queue/internal/hcq"
)

const (
	msgWelcome      = "Welcome to the Help Centre, what is your name?\r\n"
	msgAskRole      = "Are you a TA or a Student (enter T or S)?\r\n"
	msgInvalidRole  = "Invalid role (enter T or S)?\r\n"
	msgMotdTA       = "Valid commands for TA:\r\n\tstats\r\n\tnext\r\n\t(or use Ctrl-C to leave)\r\n"
	msgAskCourse    = "Which course are you asking about?\r\n"
	msgQueued       = "You have been entered into the queue. While you wait, you can use the command stats to see which TAs are currently serving students.\r\n"
	msgBadCourse    = "This is not a valid course. Good-bye.\r\n"
	msgAlreadyQueue = "You are already in the queue and cannot be added again for any course. Good-bye.\r\n"
	msgBadSyntax    = "Incorrect syntax\r\n"
	msgBadCode      = "Invalid course code\r\n"
	msgYourTurn     = "Your turn to see the TA.\r\nWe are disconnecting you from the server now. Press Ctrl-C to close nc\r\n"
)

// prompt writes whatever the connection's prompt state asks for and starts
// reading its reply. ShowMotd falls through to the next state right away.
func (s *Server) prompt(c *Connection) {
	switch c.Prompt() {
	case Invalid:
		return
	case AskUsername:
		c.Write(msgWelcome)
	case AskRole:
		c.Write(msgAskRole)
	case AskRoleInvalid:
		c.Write(msgInvalidRole)
	case ShowMotd:
		switch c.Role() {
		case RoleTA:
			c.Write(msgMotdTA)
			s.queue.AddTa(c.Username(), c)
			c.SetPrompt(AwaitCommand)
		case RoleStudent:
			c.Write(s.courseMenu())
			c.SetPrompt(AskCourse)
		default:
			s.logger.Warn("motd without role", "addr", c.RemoteAddr())
			c.SetPrompt(Invalid)
			c.Close()
			return
		}
	case AskCourse, AwaitCommand:
	}
	if err := c.PrepareRead(); err != nil && c.IOState() != Disconnected {
		s.logger.Error("prepare read", "addr", c.RemoteAddr(), "state", c.IOState().String(), "error", err)
	}
}

func (s *Server) courseMenu() string {
	codes := make([]string, 0, len(s.queue.Courses()))
	for _, course := range s.queue.Courses() {
		codes = append(codes, course.Code)
	}
	return "Valid courses: " + strings.Join(codes, ", ") + "\r\n" + msgAskCourse
}

// dispatch hands a completed line to the handler for the connection's
// prompt state.
func (s *Server) dispatch(c *Connection) {
	msg, err := c.ConsumeMessage()
	if err != nil {
		s.logger.Error("consume message", "addr", c.RemoteAddr(), "error", err)
		return
	}
	switch c.Prompt() {
	case AskUsername:
		s.handleUsername(c, msg)
	case AskRole, AskRoleInvalid:
		s.handleRole(c, msg)
	case AskCourse:
		s.handleCourse(c, msg)
	case AwaitCommand:
		s.handleCommand(c, msg)
	}
}

func (s *Server) handleUsername(c *Connection, msg string) {
	c.SetUsername(strings.TrimSpace(msg))
	s.logger.Info("username set", "addr", c.RemoteAddr(), "username", c.Username())
	c.SetPrompt(AskRole)
}

func (s *Server) handleRole(c *Connection, msg string) {
	switch strings.TrimSpace(msg) {
	case "T":
		c.SetRole(RoleTA)
	case "S":
		c.SetRole(RoleStudent)
	default:
		c.SetPrompt(AskRoleInvalid)
		return
	}
	s.logger.Info("role set", "username", c.Username(), "role", c.Role().String())
	c.SetPrompt(ShowMotd)
}

func (s *Server) handleCourse(c *Connection, msg string) {
	code := strings.TrimSpace(msg)
	err := s.queue.AddStudent(c.Username(), code, c)
	switch {
	case err == nil:
		c.Write(msgQueued)
		c.SetPrompt(AwaitCommand)
		return
	case errors.Is(err, hcq.ErrDuplicateName):
		c.Write(msgAlreadyQueue)
	default:
		c.Write(msgBadCourse)
	}
	s.logger.Info("student rejected", "username", c.Username(), "course", code, "error", err)
	c.SetPrompt(Invalid)
	c.Close()
}

func (s *Server) handleCommand(c *Connection, msg string) {
	fields := strings.Fields(msg)
	cmd := ""
	if len(fields) > 0 {
		cmd = fields[0]
	}

	switch {
	case cmd == "stats" && len(fields) == 1:
		CommandsTotal.WithLabelValues("stats").Inc()
		if c.Role() == RoleTA {
			c.Write(s.queue.FullQueue())
		} else {
			c.Write(s.queue.CurrentlyServing())
		}
	case cmd == "stats" && len(fields) == 2 && fields[1] == "all" && c.Role() == RoleTA:
		CommandsTotal.WithLabelValues("stats_all").Inc()
		c.Write(s.queue.AllQueues())
	case cmd == "stats" && len(fields) == 2 && c.Role() == RoleTA:
		CommandsTotal.WithLabelValues("stats_course").Inc()
		report, err := s.queue.CourseReport(fields[1])
		if err != nil {
			c.Write(msgBadCode)
			return
		}
		c.Write(report)
	case cmd == "next" && len(fields) <= 2 && c.Role() == RoleTA:
		CommandsTotal.WithLabelValues("next").Inc()
		s.handleNext(c, fields[1:])
	default:
		CommandsTotal.WithLabelValues("invalid").Inc()
		c.Write(msgBadSyntax)
	}
}

// handleNext finishes the TA's current student and calls the next one,
// optionally restricted to a course. The called student is told it is their
// turn and then disconnected.
func (s *Server) handleNext(c *Connection, args []string) {
	ta := s.queue.FindTaByClient(c)
	if ta == nil {
		s.logger.Error("next from unregistered ta", "username", c.Username())
		c.Write(msgBadSyntax)
		return
	}

	if len(args) == 1 {
		if err := s.queue.AssignForCourse(ta, args[0]); errors.Is(err, hcq.ErrUnknownCourse) {
			c.Write(msgBadCode)
			return
		}
	} else {
		s.queue.Assign(ta)
	}

	if ta.Current == nil {
		return
	}
	if sc, ok := ta.Current.Client.(*Connection); ok {
		sc.Write(msgYourTurn)
		sc.Close()
	}
	s.logger.Info("student called", "ta", ta.Name, "student", ta.Current.Name, "course", ta.Current.Course.Code)
}
