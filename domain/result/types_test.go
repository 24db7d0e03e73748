package result

import (
	"math"
	"testing"
)

func TestParseRandomIndex(t *testing.T) {
	cases := []struct {
		runID string
		k     int
		ok    bool
	}{
		{"random1", 1, true},
		{"random250", 250, true},
		{"real", 0, false},
		{"random0", 0, false},
		{"randomx", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		k, ok := ParseRandomIndex(c.runID)
		if k != c.k || ok != c.ok {
			t.Errorf("ParseRandomIndex(%q) = (%d, %v), want (%d, %v)", c.runID, k, ok, c.k, c.ok)
		}
	}
}

func TestTable_RunIDsAndPathwayIDs(t *testing.T) {
	tbl := &Table{Records: []Record{
		{PathwayID: "GO:1", RunID: "random1"},
		{PathwayID: "GO:2", RunID: "random1"},
		{PathwayID: "GO:1", RunID: "random2"},
	}}
	if runs := tbl.RunIDs(); len(runs) != 2 || runs[0] != "random1" {
		t.Errorf("unexpected runs: %v", runs)
	}
	if ids := tbl.PathwayIDs(); len(ids) != 2 || ids[0] != "GO:1" {
		t.Errorf("unexpected pathways: %v", ids)
	}
}

func TestRecord_HasStat(t *testing.T) {
	if (Record{Stat: math.NaN()}).HasStat() {
		t.Error("NaN stat should read as missing")
	}
	if !(Record{Stat: 0}).HasStat() {
		t.Error("zero is a legitimate stat value")
	}
}
