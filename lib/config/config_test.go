// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vigil.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadComplete(t *testing.T) {
	path := writeConfig(t, `
driver: /dev/hwbinder
state_dir: /run/vigil
package: com.example.app
service: com.example.app.CoreService
platform_revision: 28
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Driver != "/dev/hwbinder" {
		t.Errorf("Driver = %q, want /dev/hwbinder", cfg.Driver)
	}
	if cfg.StateDir != "/run/vigil" {
		t.Errorf("StateDir = %q, want /run/vigil", cfg.StateDir)
	}
	if cfg.PlatformRevision != 28 {
		t.Errorf("PlatformRevision = %d, want 28", cfg.PlatformRevision)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
package: com.example.app
service: com.example.app.CoreService
platform_revision: 26
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Driver != "/dev/binder" {
		t.Errorf("Driver = %q, want default /dev/binder", cfg.Driver)
	}
	if cfg.StateDir == "" {
		t.Error("StateDir empty, want default applied")
	}
}

func TestLoadRejectsIncomplete(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing package",
			content: "service: a.B\nplatform_revision: 26\n",
			wantErr: "package is required",
		},
		{
			name:    "missing service",
			content: "package: com.example\nplatform_revision: 26\n",
			wantErr: "service is required",
		},
		{
			name:    "missing revision",
			content: "package: com.example\nservice: a.B\n",
			wantErr: "platform_revision is required",
		},
		{
			name:    "relative state dir",
			content: "state_dir: rel/path\npackage: com.example\nservice: a.B\nplatform_revision: 26\n",
			wantErr: "must be absolute",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Load succeeded on missing file, want error")
	}
}

func TestLoadNoPathNoEnv(t *testing.T) {
	t.Setenv(EnvVar, "")
	_, err := Load("")
	if err == nil {
		t.Fatal("Load succeeded with no path and no env var, want error")
	}
}
