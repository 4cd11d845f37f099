// Command wercheck compares a reference and a hypothesis transcript and
// prints the word error rate with its edit breakdown.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"sauti/internal/wer"
)

type demoCase struct {
	reference   string
	hypothesis  string
	description string
}

var demoCases = []demoCase{
	{"nina maumivu ya tumbo", "nina maumivu ya tumbo", "Perfect match"},
	{"nina maumivu ya tumbo", "nina maumivu ya kichwa", "Substitution: tumbo → kichwa"},
	{"nina maumivu ya tumbo", "nina maumivu ya tumbo sana", "Insertion: added 'sana'"},
	{"nina maumivu ya tumbo", "nina maumivu", "Deletion: removed 'ya tumbo'"},
	{"nina homa na joto la mwili", "nina homa na joto la mwili", "Medical terminology - perfect"},
	{"asante sana hujambo", "asante hujambo", "Cultural greeting - deletion"},
	{"jina langu ni john nina tatizo la afya", "jina langu ni john nina tatizo la afya", "Complex sentence - perfect"},
}

type report struct {
	wer.Result
	Confidence  *float64 `json:"confidence,omitempty"`
	AdjustedWER *float64 `json:"adjustedWer,omitempty"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "wercheck:", err)
		}
		os.Exit(2)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("wercheck", flag.ContinueOnError)
	fs.SetOutput(out)
	ref := fs.String("ref", "", "reference transcript")
	hyp := fs.String("hyp", "", "hypothesis transcript")
	confidence := fs.Float64("confidence", -1, "recognition confidence 0-100; adds the confidence penalty when set")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	calc := wer.New()

	if *ref == "" && *hyp == "" {
		runDemo(calc, out)
		return nil
	}

	rep := report{Result: calc.Detailed(*ref, *hyp)}
	if *confidence >= 0 {
		c := wer.ClampConfidence(*confidence)
		adjusted := calc.ConfidenceAdjusted(*ref, *hyp, c)
		rep.Confidence = &c
		rep.AdjustedWER = &adjusted
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	printResult(out, *ref, *hyp, rep)
	return nil
}

func runDemo(calc *wer.Calculator, out io.Writer) {
	fmt.Fprintln(out, "WER (Word Error Rate) demo")
	for i, tc := range demoCases {
		fmt.Fprintf(out, "\nTest %d: %s\n", i+1, tc.description)
		printResult(out, tc.reference, tc.hypothesis, report{Result: calc.Detailed(tc.reference, tc.hypothesis)})
	}
}

func printResult(out io.Writer, ref, hyp string, rep report) {
	fmt.Fprintf(out, "Reference:  %q\n", ref)
	fmt.Fprintf(out, "Hypothesis: %q\n", hyp)
	fmt.Fprintf(out, "WER: %.1f%%\n", rep.WER*100)
	if rep.AdjustedWER != nil {
		fmt.Fprintf(out, "Adjusted WER: %.1f%% (confidence %.0f%%)\n", *rep.AdjustedWER*100, *rep.Confidence)
	}
	fmt.Fprintf(out, "Breakdown: %d substitutions, %d insertions, %d deletions\n",
		rep.Substitutions, rep.Insertions, rep.Deletions)
	fmt.Fprintf(out, "Total words: %d\n", rep.TotalWords)

	if len(rep.Operations) == 0 {
		return
	}
	fmt.Fprintln(out, "Operations:")
	for _, op := range rep.Operations {
		switch op.Kind {
		case wer.OpMatch:
			fmt.Fprintf(out, "  = %q\n", op.Ref)
		case wer.OpSubstitution:
			fmt.Fprintf(out, "  ~ %q -> %q (similarity %.2f)\n", op.Ref, op.Hyp, op.Similarity)
		case wer.OpInsertion:
			fmt.Fprintf(out, "  + %q\n", op.Hyp)
		case wer.OpDeletion:
			fmt.Fprintf(out, "  - %q\n", op.Ref)
		}
	}
}
