package out

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestWriteSensitivitiesWritesOneSortedSpaceSeparatedLine(t *testing.T) {
	chk.PrintTitle("out: WriteSensitivities writes one sorted, space-separated line")

	dir := t.TempDir()
	grad := map[string]float64{"kappa": 1.5, "alpha": -2.25}
	if err := WriteSensitivities(dir, grad); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "sens.dat"))
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(string(b))
	fields := strings.Fields(line)
	if len(fields) != 2 {
		t.Fatalf("expected 2 space-separated fields, got %d: %q", len(fields), line)
	}
	// alphabetical order: alpha before kappa
	if !strings.HasPrefix(fields[0], "-2.25") {
		t.Fatalf("expected alpha's value first (sorted order), got %q", fields[0])
	}
}

func TestNullWriterDiscardsEveryStep(t *testing.T) {
	chk.PrintTitle("out: NullWriter discards every step without error")
	var w Writer = NullWriter{}
	if err := w.WriteStep("block0", StepFields{Time: 0.1}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}
