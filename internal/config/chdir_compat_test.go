package config_test

import (
	"os"
	"testing"
)

// chdir 切换工作目录并在测试结束时恢复 (兼容 Go 1.24 之前的 t.Chdir)
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
