package main

import "testing"

func TestSplitNonEmpty(t *testing.T) {
	t.Run("splits and trims", func(t *testing.T) {
		got := splitNonEmpty(" ./config , ./extra ", ",")
		want := []string{"./config", "./extra"}
		if len(got) != len(want) {
			t.Fatalf("splitNonEmpty = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("splitNonEmpty[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("drops empty segments", func(t *testing.T) {
		got := splitNonEmpty("./config,,./extra,", ",")
		if len(got) != 2 {
			t.Fatalf("splitNonEmpty = %v, want 2 entries", got)
		}
	})

	t.Run("empty input yields nil", func(t *testing.T) {
		got := splitNonEmpty("", ",")
		if got != nil {
			t.Errorf("splitNonEmpty(\"\") = %v, want nil", got)
		}
	})
}

func TestEnvInt(t *testing.T) {
	t.Run("returns default when unset", func(t *testing.T) {
		got := envInt("MOCKSERVER_UNSET_ENV_XYZ", 20)
		if got != 20 {
			t.Errorf("envInt = %d, want 20", got)
		}
	})

	t.Run("parses a valid value", func(t *testing.T) {
		t.Setenv("MOCKSERVER_TEST_CACHE_ENTRIES", "42")
		got := envInt("MOCKSERVER_TEST_CACHE_ENTRIES", 20)
		if got != 42 {
			t.Errorf("envInt = %d, want 42", got)
		}
	})

	t.Run("falls back on a non-numeric value", func(t *testing.T) {
		t.Setenv("MOCKSERVER_TEST_CACHE_ENTRIES", "not-a-number")
		got := envInt("MOCKSERVER_TEST_CACHE_ENTRIES", 20)
		if got != 20 {
			t.Errorf("envInt = %d, want 20", got)
		}
	})

	t.Run("falls back on a non-positive value", func(t *testing.T) {
		t.Setenv("MOCKSERVER_TEST_CACHE_ENTRIES", "0")
		got := envInt("MOCKSERVER_TEST_CACHE_ENTRIES", 20)
		if got != 20 {
			t.Errorf("envInt = %d, want 20", got)
		}
	})
}
