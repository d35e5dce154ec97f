package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	mod := time.Now().Add(-age)
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func TestFindLatestMatrixAndMask(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "old.bgef"), 3*time.Hour)
	touch(t, filepath.Join(dir, "Y00855N1.bgef"), time.Hour)
	touch(t, filepath.Join(dir, "notes.txt"), 0)
	touch(t, filepath.Join(dir, "Y00855N1_ssDNA_regist_mask.tif"), 2*time.Hour)
	touch(t, filepath.Join(dir, "Y00855N1_ssDNA_regist_mask_roi_nocomp.tif"), 0)
	touch(t, filepath.Join(dir, "Y00855N1_ssDNA.tif"), 0)

	matrix, err := FindLatestMatrix(dir)
	if err != nil {
		t.Fatalf("FindLatestMatrix failed: %v", err)
	}
	if filepath.Base(matrix) != "Y00855N1.bgef" {
		t.Errorf("matrix = %s", matrix)
	}

	mask, err := FindLatestMask(dir)
	if err != nil {
		t.Fatalf("FindLatestMask failed: %v", err)
	}
	if filepath.Base(mask) != "Y00855N1_ssDNA_regist_mask.tif" {
		t.Errorf("mask = %s", mask)
	}
}

func TestFindLatestNoMatch(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "readme.md"), 0)

	if _, err := FindLatestMatrix(dir); err == nil {
		t.Error("expected error when no matrix is present")
	}
	if _, err := FindLatest(filepath.Join(dir, "missing"), func(string) bool { return true }); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestMaskFootprint(t *testing.T) {
	if got := MaskFootprint(800, 1000, 4); got != 800*1000*6 {
		t.Errorf("MaskFootprint = %d", got)
	}
}

func TestCheckMemory(t *testing.T) {
	check, err := CheckMemory(1)
	if err != nil {
		t.Skipf("memory stats unavailable: %v", err)
	}
	if check.Available == 0 {
		t.Skip("host reports no available memory")
	}
	if !check.OK() {
		t.Errorf("1 byte should fit in %d available", check.Available)
	}
	if (MemoryCheck{Need: 10, Available: 5}).OK() {
		t.Error("need above available should not be OK")
	}
}
