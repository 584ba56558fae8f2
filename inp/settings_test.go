package inp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestReadSettingsParsesAllSublistsAndFillsSolverDefaults(t *testing.T) {
	chk.PrintTitle("inp: ReadSettings parses all sublists and fills solver defaults")

	dir := t.TempDir()
	path := filepath.Join(dir, "square.sim")
	body := `{
		"mesh": {"dim": 2, "blocks": ["square"], "boundaryTags": ["left","right","top","bottom"]},
		"physics": [{"module": "thermal", "form_param": 1, "coefficients": {"thermal diffusion": "kappa"}}],
		"functions": [{"name": "kappa", "expression": "1.0"}],
		"parameters": [{"name": "kappa", "type": "scalar", "usage": "active", "value": 1.0}],
		"postprocess": {"responseType": "global", "computeObjective": true, "computeSensitivities": true}
	}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := ReadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Mesh.Dim != 2 || len(s.Mesh.Blocks) != 1 || s.Mesh.Blocks[0] != "square" {
		t.Fatalf("unexpected mesh sublist: %+v", s.Mesh)
	}
	if s.Solver.Kind != "steady-state" || s.Solver.MaxNLIter != 20 {
		t.Fatalf("unfilled solver defaults survived unmarshal: %+v", s.Solver)
	}
	if len(s.Physics) != 1 || s.Physics[0].Coefficients["thermal diffusion"] != "kappa" {
		t.Fatalf("unexpected physics sublist: %+v", s.Physics)
	}
	fn, err := s.GetFunction("kappa")
	if err != nil {
		t.Fatal(err)
	}
	if fn.Expression != "1.0" {
		t.Fatalf("expected kappa expression 1.0, got %q", fn.Expression)
	}
	if !s.Postprocess.ComputeSensitivities {
		t.Fatal("expected computeSensitivities to survive unmarshal")
	}
}

func TestReadSettingsReportsAConfigErrorOnAMissingFile(t *testing.T) {
	chk.PrintTitle("inp: ReadSettings reports a ConfigError-shaped error on a missing file")
	if _, err := ReadSettings("/nonexistent/path.sim"); err == nil {
		t.Fatal("expected an error for a missing settings file")
	}
}

func TestGetFunctionReportsAnErrorForAnUnknownName(t *testing.T) {
	chk.PrintTitle("inp: GetFunction reports an error for a name not in Functions")
	s := &Settings{}
	if _, err := s.GetFunction("missing"); err == nil {
		t.Fatal("expected an error for an unregistered function name")
	}
}
