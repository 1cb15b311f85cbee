package output

import (
	"fmt"
	"io"

	"github.com/Sternrassler/jamfctl/pkg/client"
)

// Report summarizes a drained batch.
type Report struct {
	Succeeded int
	Failed    int
	Errors    []string
}

// OK reports whether every sub-request succeeded and was written.
func (r Report) OK() bool {
	return r.Failed == 0
}

// Drain prints successes as they arrive and failures once ch is closed.
// Failures go to errW; when errW is nil they go to the printer's writer.
func Drain(ch <-chan client.Result, p *Printer, errW io.Writer) Report {
	if errW == nil {
		errW = p.W
	}

	var rep Report
	for r := range ch {
		if r.Err != nil {
			rep.Failed++
			rep.Errors = append(rep.Errors, r.Err.Error())
			continue
		}
		if err := p.Print(r.Body); err != nil {
			rep.Failed++
			rep.Errors = append(rep.Errors, fmt.Sprintf("write output: %v", err))
			continue
		}
		rep.Succeeded++
	}

	for _, msg := range rep.Errors {
		fmt.Fprintf(errW, "\nError: %s\n", msg)
	}
	return rep
}
