package model

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

type persistedStub struct {
	BaseEstimator
	Name    string
	Weights []float64
}

func TestSaveLoadModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stub.gob")

	in := &persistedStub{Name: "stub", Weights: []float64{1.5, -2, 0}}
	in.SetFitted()
	if err := SaveModel(in, path); err != nil {
		t.Fatalf("SaveModel() error = %v", err)
	}

	var out persistedStub
	if err := LoadModel(&out, path); err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	if !out.IsFitted() {
		t.Error("fitted state lost in round trip")
	}
	if out.Name != in.Name || len(out.Weights) != 3 || out.Weights[0] != 1.5 {
		t.Errorf("round trip mismatch: %+v", out)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestLoadModelErrors(t *testing.T) {
	var out persistedStub
	if err := LoadModel(&out, filepath.Join(t.TempDir(), "missing.gob")); err == nil {
		t.Error("expected error for missing file")
	}
	if err := LoadModelFromReader(&out, bytes.NewBufferString("not gob")); err == nil {
		t.Error("expected decode error")
	}
}

func TestSaveModelMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "stub.gob")
	if err := SaveModel(&persistedStub{}, path); err == nil {
		t.Error("expected error when directory does not exist")
	}
}

func TestColumnVector(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{1, 10, 2, 20, 3, 30})
	got := ColumnVector(m)
	want := []float64{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ColumnVector[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBaseEstimatorState(t *testing.T) {
	var e BaseEstimator
	if e.IsFitted() || e.State.String() != "not_fitted" {
		t.Error("zero value should be not fitted")
	}
	e.SetFitted()
	if !e.IsFitted() || e.State.String() != "fitted" {
		t.Error("SetFitted should mark fitted")
	}
	e.Reset()
	if e.IsFitted() {
		t.Error("Reset should clear fitted state")
	}
}
