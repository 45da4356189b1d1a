package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	configFlags := []string{"-c", "-config", "--config"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{"separate value", []string{"-c", "gdc.yaml", "-m", "manifest.tsv"}, configFlags, []string{"-c", "gdc.yaml"}},
		{"equals form", []string{"-w", "4", "--config=gdc.json"}, configFlags, []string{"--config=gdc.json"}},
		{"equals form of other flag", []string{"-retries=2", "-b=s3://tcga-2-open"}, configFlags, []string{}},
		{"order preserved", []string{"-config=a.json", "-o", "/data", "-c", "b.yaml"}, configFlags, []string{"-config=a.json", "-c", "b.yaml"}},
		{"missing value at end", []string{"-m", "m.tsv", "-c"}, configFlags, []string{"-c"}},
		{"next token is a flag", []string{"-c", "-check-only"}, configFlags, []string{"-c"}},
		{"value starting with dash in equals form", []string{"--config=-odd.json"}, configFlags, []string{"--config=-odd.json"}},
		{"several allowed names", []string{"-o", "/data/gdc", "-c", "gdc.yaml", "-e", "bam"}, []string{"-c", "-o"}, []string{"-o", "/data/gdc", "-c", "gdc.yaml"}},
		{"stops at double dash", []string{"-m", "m.tsv", "--", "-c", "ignored.json"}, configFlags, []string{}},
		{"empty", nil, configFlags, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short", []string{"-c", "/etc/gdc.json"}, "/etc/gdc.json"},
		{"long", []string{"-m", "m.tsv", "-config", "gdc.yaml"}, "gdc.yaml"},
		{"double dash equals", []string{"--config=gdc.yaml", "-w", "8"}, "gdc.yaml"},
		{"short equals", []string{"-c=gdc.yaml"}, "gdc.yaml"},
		{"last wins", []string{"-c", "one.json", "-config", "two.json"}, "two.json"},
		{"absent", []string{"-m", "m.tsv", "-w", "2"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigFileFlag(tt.args))
		})
	}
}
