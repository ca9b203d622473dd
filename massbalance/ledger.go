// Package massbalance implements the mass-balance ledger: a C++-style
// stream-templated report, here with the output sink taken as an injected
// io.Writer instead of a compile-time template parameter, and the debug
// assertion gated by a runtime flag instead of a build-time #ifdef.
package massbalance

import (
	"fmt"
	"io"
	"math"

	"github.com/cauldronfem/basincore/project"
	"github.com/cpmech/gosl/chk"
)

// Ledger accumulates signed mass-balance entries and prints them in a
// fixed-width two-table report format.
type Ledger struct {
	DebugMassBalance bool

	comments []string

	additionDescriptions []string
	additionQuantities   []float64

	subtractionDescriptions []string
	subtractionQuantities   []float64

	running float64
}

// AddComment appends a free-text line printed before the tables.
func (l *Ledger) AddComment(comment string) {
	l.comments = append(l.comments, comment)
}

// AddToBalance records an inflow of quantity kg under description.
func (l *Ledger) AddToBalance(description string, quantity float64) {
	l.additionDescriptions = append(l.additionDescriptions, description)
	l.additionQuantities = append(l.additionQuantities, quantity)
	l.running += quantity
}

// SubtractFromBalance records an outflow of quantity kg under description.
func (l *Ledger) SubtractFromBalance(description string, quantity float64) {
	l.subtractionDescriptions = append(l.subtractionDescriptions, description)
	l.subtractionQuantities = append(l.subtractionQuantities, quantity)
	l.running -= quantity
}

// Balance returns the running total in - total out. When DebugMassBalance
// is set it panics if the running total has drifted from Σ(+) − Σ(−) by
// more than project.MassBalanceToleranceKg, mirroring the original's
// assert(fabs(totalIn - totalOut - m_massBalance) <= TOLERANCE).
func (l *Ledger) Balance() float64 {
	if l.DebugMassBalance {
		var totalIn, totalOut float64
		for _, q := range l.additionQuantities {
			totalIn += q
		}
		for _, q := range l.subtractionQuantities {
			totalOut += q
		}
		if math.Abs(totalIn-totalOut-l.running) > project.MassBalanceToleranceKg {
			chk.Panic("mass balance drifted beyond tolerance: total-in=%v total-out=%v running=%v", totalIn, totalOut, l.running)
		}
	}
	return l.running
}

// Clear resets the ledger to empty, ready for the next snapshot interval.
func (l *Ledger) Clear() {
	l.additionDescriptions = nil
	l.additionQuantities = nil
	l.subtractionDescriptions = nil
	l.subtractionQuantities = nil
	l.running = 0
	l.comments = nil
}

// Print writes the banner-and-tables report, headed by name alone.
func (l *Ledger) Print(sink io.Writer, name string) {
	fmt.Fprintln(sink)
	fmt.Fprintf(sink, " ---------------------------------- %s --\n", name)
	fmt.Fprintln(sink)
	l.printBalance(sink)
}

// PrintAt writes the same report headed by the snapshot age in Ma.
func (l *Ledger) PrintAt(sink io.Writer, snapshotAge float64, name string) {
	fmt.Fprintln(sink)
	fmt.Fprintf(sink, "-- Snapshot: %v Ma ----------------------------- %s --\n", snapshotAge, name)
	fmt.Fprintln(sink)
	l.printBalance(sink)
}

const (
	labelWidth = 50
	numWidth   = 16
	rule       = "----------------------------------------------------------------------"
	doubleRule = "======================================================================"
)

func (l *Ledger) printBalance(sink io.Writer) {
	for _, c := range l.comments {
		fmt.Fprint(sink, c)
	}

	var totalIn float64
	for i, desc := range l.additionDescriptions {
		printLine(sink, desc, l.additionQuantities[i])
		totalIn += l.additionQuantities[i]
	}
	fmt.Fprintln(sink, rule)
	printLine(sink, "Total in", totalIn)
	fmt.Fprintln(sink)

	var totalOut float64
	for i, desc := range l.subtractionDescriptions {
		printLine(sink, desc, l.subtractionQuantities[i])
		totalOut += l.subtractionQuantities[i]
	}
	fmt.Fprintln(sink, rule)
	printLine(sink, "Total out", totalOut)
	fmt.Fprintln(sink)

	fmt.Fprintln(sink, rule)
	printLine(sink, "Balance", totalIn-totalOut)
	fmt.Fprintln(sink)
	fmt.Fprintln(sink, doubleRule)
	fmt.Fprintln(sink)
	fmt.Fprintln(sink)
}

// printLine renders one "label:" + padding-to-50 + 16-char right-aligned
// quantity + " kg" line, matching printBalance's manual setw/setfill loop.
func printLine(sink io.Writer, label string, quantity float64) {
	field := label + ":"
	for len(field) < labelWidth {
		field += " "
	}
	fmt.Fprintf(sink, "%s%*v kg\n", field, numWidth, quantity)
}
