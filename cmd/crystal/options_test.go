package main

import (
	"errors"
	"flag"
	"io"
	"slices"
	"testing"
)

func TestParseOptions(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		o, err := parseOptions(nil, io.Discard)
		if err != nil {
			t.Fatal(err)
		}
		if o.backend != backendPortAudio || o.rate != 44100 || o.block != 512 ||
			o.channels != 2 || o.bpm != 120 || o.logLevel != "info" {
			t.Errorf("unexpected defaults: %+v", o)
		}
	})

	t.Run("RepeatedSet", func(t *testing.T) {
		o, err := parseOptions([]string{
			"-backend", "oto", "-in", "loop.wav", "-seed", "7",
			"-set", "mix=25%", "-set", "hpf_freq=1.2kHz", "-profile",
		}, io.Discard)
		if err != nil {
			t.Fatal(err)
		}
		if o.backend != backendOto || o.in != "loop.wav" || o.seed != 7 || !o.profile {
			t.Errorf("unexpected options: %+v", o)
		}
		if want := []string{"mix=25%", "hpf_freq=1.2kHz"}; !slices.Equal(o.sets, want) {
			t.Errorf("sets = %q, want %q", o.sets, want)
		}
	})

	t.Run("Help", func(t *testing.T) {
		if _, err := parseOptions([]string{"-h"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
			t.Errorf("err = %v, want flag.ErrHelp", err)
		}
	})

	invalid := []struct {
		name string
		args []string
	}{
		{"Backend", []string{"-backend", "alsa"}},
		{"Source", []string{"-source", "noise"}},
		{"Rate", []string{"-rate", "100"}},
		{"BlockSmall", []string{"-block", "8"}},
		{"BlockLarge", []string{"-block", "65536"}},
		{"Channels", []string{"-channels", "6"}},
		{"Tempo", []string{"-bpm", "0"}},
		{"Argument", []string{"extra"}},
	}
	for _, tt := range invalid {
		t.Run("Invalid"+tt.name, func(t *testing.T) {
			if _, err := parseOptions(tt.args, io.Discard); !errors.Is(err, errUsage) {
				t.Errorf("err = %v, want usage error", err)
			}
		})
	}
}
