package adoc

import (
	"path/filepath"
	"strings"
)

// SourceLocation identifies a line in a source file. File is empty for
// sources that did not come from a file; Path is then "<stdin>".
type SourceLocation struct {
	File       string
	Dir        string
	Path       string
	LineNumber int
}

const stdinPath = "<stdin>"

// Reader is a line cursor over document source. Peeking never consumes a
// line; every other read operation does.
//
// Readers created by the loader also process preprocessor directives
// (include, ifdef, ifndef, ifeval, endif) as lines are peeked, so include
// targets and conditions see attributes defined earlier in the document.
type Reader struct {
	lines  []string
	lineno int
	file   string
	dir    string
	path   string

	// rawNext marks the head line as already processed.
	rawNext bool

	// Preprocessor state; nil doc disables directive handling.
	doc          *Document
	includes     []includeFrame
	conditionals []conditional
	skipping     bool
	err          error
}

type includeFrame struct {
	lines  []string
	lineno int
	file   string
	dir    string
	path   string
	after  []string
}

// NewReader returns a reader over data. A nil cursor means the source has
// no file and starts at line 1.
func NewReader(data []string, cursor *SourceLocation) *Reader {
	r := &Reader{lines: append([]string(nil), data...), lineno: 1, path: stdinPath}
	if cursor != nil {
		r.file, r.dir = cursor.File, cursor.Dir
		if cursor.Path != "" {
			r.path = cursor.Path
		}
		if cursor.LineNumber > 0 {
			r.lineno = cursor.LineNumber
		}
	}
	return r
}

// NewStringReader splits text into normalized lines and returns a reader over them.
func NewStringReader(text string) *Reader {
	return NewReader(splitLines(text), nil)
}

func newFileReader(data []string, file, dir string) *Reader {
	loc := &SourceLocation{Dir: dir}
	if file != "" {
		loc.File = file
		loc.Path = filepath.Base(file)
		loc.Dir = filepath.Dir(file)
	}
	return NewReader(data, loc)
}

// HasMoreLines reports whether a line can still be read.
func (r *Reader) HasMoreLines() bool {
	_, ok := r.PeekLine()
	return ok
}

// Empty is the negation of HasMoreLines.
func (r *Reader) Empty() bool {
	return !r.HasMoreLines()
}

// PeekLine returns the next line without consuming it.
func (r *Reader) PeekLine() (string, bool) {
	for {
		if len(r.lines) == 0 {
			if !r.popInclude() {
				return "", false
			}
			continue
		}
		if r.doc == nil || r.rawNext || r.err != nil {
			return r.lines[0], true
		}
		if r.processLine(r.lines[0]) {
			r.rawNext = true
			return r.lines[0], true
		}
	}
}

// PeekLines returns up to n upcoming lines without consuming them.
func (r *Reader) PeekLines(n int) []string {
	var out []string
	var restore []string
	for range n {
		line, ok := r.ReadLine()
		if !ok {
			break
		}
		out = append(out, line)
		restore = append(restore, line)
	}
	r.UnshiftLines(restore)
	return out
}

// ReadLine consumes and returns the next line.
func (r *Reader) ReadLine() (string, bool) {
	line, ok := r.PeekLine()
	if !ok {
		return "", false
	}
	r.shift()
	return line, true
}

func (r *Reader) shift() {
	r.lines = r.lines[1:]
	r.lineno++
	r.rawNext = false
}

// Advance consumes the next line, reporting whether there was one.
func (r *Reader) Advance() bool {
	_, ok := r.ReadLine()
	return ok
}

// ReadLines consumes every remaining line.
func (r *Reader) ReadLines() []string {
	var out []string
	for {
		line, ok := r.ReadLine()
		if !ok {
			return out
		}
		out = append(out, line)
	}
}

// Read consumes the remaining lines and joins them with newlines.
func (r *Reader) Read() string {
	return strings.Join(r.ReadLines(), "\n")
}

// Lines returns a copy of the unread lines without processing directives.
func (r *Reader) Lines() []string {
	out := append([]string(nil), r.lines...)
	for i := len(r.includes) - 1; i >= 0; i-- {
		out = append(out, r.includes[i].after...)
		out = append(out, r.includes[i].lines...)
	}
	return out
}

// String joins the unread lines without consuming them.
func (r *Reader) String() string {
	return strings.Join(r.Lines(), "\n")
}

// SetLines replaces the unread lines of the current source.
func (r *Reader) SetLines(lines []string) {
	r.lines = append([]string(nil), lines...)
	r.rawNext = false
}

// Unshift pushes line back onto the front of the reader.
func (r *Reader) Unshift(line string) {
	r.lines = append([]string{line}, r.lines...)
	r.lineno--
	r.rawNext = true
}

// UnshiftLines pushes lines back in order.
func (r *Reader) UnshiftLines(lines []string) {
	if len(lines) == 0 {
		return
	}
	r.lines = append(append([]string(nil), lines...), r.lines...)
	r.lineno -= len(lines)
	r.rawNext = true
}

// SkipBlankLines consumes blank lines and returns how many were skipped.
func (r *Reader) SkipBlankLines() int {
	n := 0
	for {
		line, ok := r.PeekLine()
		if !ok || line != "" {
			return n
		}
		r.shift()
		n++
	}
}

// LineNumber is the number of the next line to be read.
func (r *Reader) LineNumber() int {
	return r.lineno
}

// Cursor returns the location of the next line.
func (r *Reader) Cursor() SourceLocation {
	return SourceLocation{File: r.file, Dir: r.dir, Path: r.path, LineNumber: r.lineno}
}

// readLinesUntil consumes lines until stop reports true for a line, which
// is consumed too when consumeStop is set. The second result is false when
// the reader ran out first.
func (r *Reader) readLinesUntil(stop func(string) bool, consumeStop bool) ([]string, bool) {
	var out []string
	for {
		line, ok := r.PeekLine()
		if !ok {
			return out, false
		}
		if stop(line) {
			if consumeStop {
				r.shift()
			}
			return out, true
		}
		r.shift()
		out = append(out, line)
	}
}

// PushInclude makes lines the next lines returned, tracked as coming from
// file. Reading resumes with the remaining lines of the including source
// once they are exhausted.
func (r *Reader) PushInclude(lines []string, file, path string) {
	r.pushInclude(lines, file, path, nil)
}

func (r *Reader) pushInclude(lines []string, file, path string, after []string) {
	r.includes = append(r.includes, includeFrame{
		lines: r.lines, lineno: r.lineno, file: r.file, dir: r.dir, path: r.path, after: after,
	})
	r.lines = append([]string(nil), lines...)
	r.lineno = 1
	r.file = file
	if file != "" {
		r.dir = filepath.Dir(file)
	}
	r.path = path
	r.rawNext = false
}

func (r *Reader) popInclude() bool {
	if len(r.includes) == 0 {
		return false
	}
	top := r.includes[len(r.includes)-1]
	r.includes = r.includes[:len(r.includes)-1]
	r.lines = append(append([]string(nil), top.after...), top.lines...)
	r.lineno = top.lineno - len(top.after)
	r.file, r.dir, r.path = top.file, top.dir, top.path
	r.rawNext = false
	return true
}

// includeDepth counts the includes currently open.
func (r *Reader) includeDepth() int {
	return len(r.includes)
}
