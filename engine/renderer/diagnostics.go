package renderer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"
)

// ErrorKind is the category of a graphics API error.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindValidation
	ErrorKindOutOfMemory
	ErrorKindInternal
	ErrorKindDeviceLost
)

var errorKindNames = map[ErrorKind]string{
	ErrorKindUnknown:     "UNKNOWN",
	ErrorKindValidation:  "VALIDATION",
	ErrorKindOutOfMemory: "OUT_OF_MEMORY",
	ErrorKindInternal:    "INTERNAL",
	ErrorKindDeviceLost:  "DEVICE_LOST",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// classifiers are matched in order against the lowercased error text.
var classifiers = []struct {
	kind    ErrorKind
	markers []string
}{
	{ErrorKindDeviceLost, []string{"device lost", "devicelost", "device is lost"}},
	{ErrorKindOutOfMemory, []string{"out of memory", "outofmemory", "oom"}},
	{ErrorKindValidation, []string{"validation"}},
	{ErrorKindInternal, []string{"internal"}},
}

// Classify maps an error to its ErrorKind.
//
// Parameters:
//   - err: the error returned by a graphics call
//
// Returns:
//   - ErrorKind: the category, ErrorKindUnknown if nothing matches
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorKindUnknown
	}
	text := strings.ToLower(err.Error())
	for _, c := range classifiers {
		for _, m := range c.markers {
			if strings.Contains(text, m) {
				return c.kind
			}
		}
	}
	return ErrorKindUnknown
}

// Diagnostics collects graphics API errors raised by frame operations. Errors are logged
// and counted, never propagated as fatal.
type Diagnostics struct {
	mu     *sync.Mutex
	counts map[ErrorKind]uint64
	last   map[ErrorKind]string
}

// NewDiagnostics creates an empty collector.
//
// Returns:
//   - *Diagnostics: the collector
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		mu:     &sync.Mutex{},
		counts: make(map[ErrorKind]uint64),
		last:   make(map[ErrorKind]string),
	}
}

// Record logs and counts an error raised during op. A nil error is ignored.
//
// Parameters:
//   - op: the operation sequence that raised the error
//   - err: the error
//
// Returns:
//   - error: err, so callers can record and return in one statement
func (d *Diagnostics) Record(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNoProgram) {
		logger.Debugf("%s skipped: %v", op, err)
		return err
	}
	kind := Classify(err)

	d.mu.Lock()
	d.counts[kind]++
	first := d.counts[kind] == 1
	d.last[kind] = err.Error()
	d.mu.Unlock()

	if first || kind == ErrorKindDeviceLost {
		logger.Errorf("%s during %s: %v", kind, op, err)
	} else {
		logger.Debugf("%s during %s: %v", kind, op, err)
	}
	return err
}

// Count returns how many errors of a kind were recorded.
//
// Parameters:
//   - kind: the category
//
// Returns:
//   - uint64: the count
func (d *Diagnostics) Count(kind ErrorKind) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[kind]
}

// Total returns the number of recorded errors of every kind.
func (d *Diagnostics) Total() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n uint64
	for _, c := range d.counts {
		n += c
	}
	return n
}

// WriteSummary renders the per-kind counts as a table. Nothing is written when no error was recorded.
//
// Parameters:
//   - w: the destination writer
func (d *Diagnostics) WriteSummary(w io.Writer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.counts) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"GPU error", "Count", "Last"})
	for _, kind := range []ErrorKind{ErrorKindValidation, ErrorKindOutOfMemory, ErrorKindInternal, ErrorKindDeviceLost, ErrorKindUnknown} {
		if c, ok := d.counts[kind]; ok {
			table.Append([]string{kind.String(), fmt.Sprintf("%d", c), d.last[kind]})
		}
	}
	table.Render()
}
