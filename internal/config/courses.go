package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/andy6609/helpcentre-queue/internal/hcq"
)

// CourseCodeLen is the longest accepted course code.
const CourseCodeLen = 6

// DefaultCourses is used when no course file is configured.
func DefaultCourses() []hcq.Course {
	return []hcq.Course{
		{Code: "CSC108"},
		{Code: "CSC148"},
		{Code: "CSC209"},
	}
}

// LoadCourses reads a course file. The first line holds the number of
// courses; each following line is a code, whitespace, then a description.
//
//	3
//	CSC108 Introduction to Computer Programming
//	CSC148 Introduction to Computer Science
//	CSC209 Software Tools and Systems Programming
func LoadCourses(path string) ([]hcq.Course, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open course file: %w", err)
	}
	defer f.Close()

	courses, err := ParseCourses(f)
	if err != nil {
		return nil, fmt.Errorf("course file %s: %w", path, err)
	}
	return courses, nil
}

func ParseCourses(r io.Reader) ([]hcq.Course, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("missing course count")
	}
	count, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || count <= 0 {
		return nil, fmt.Errorf("invalid course count %q", sc.Text())
	}

	courses := make([]hcq.Course, 0, count)
	seen := make(map[string]bool, count)
	for line := 2; len(courses) < count && sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		code, desc := text, ""
		if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
			code, desc = text[:i], text[i:]
		}
		if len(code) > CourseCodeLen {
			return nil, fmt.Errorf("line %d: course code %q longer than %d", line, code, CourseCodeLen)
		}
		if seen[code] {
			return nil, fmt.Errorf("line %d: duplicate course %q", line, code)
		}
		seen[code] = true
		courses = append(courses, hcq.Course{Code: code, Description: strings.TrimSpace(desc)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(courses) != count {
		return nil, fmt.Errorf("expected %d courses, found %d", count, len(courses))
	}
	return courses, nil
}
