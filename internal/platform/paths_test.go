package platform

import (
	"path/filepath"
	"testing"
)

// TestPathsFor verifies per-OS root selection.
func TestPathsFor(t *testing.T) {
	cases := []struct {
		name       string
		goos       string
		env        map[string]string
		configBase string
		dataBase   string
		wantConfig string
		wantData   string
	}{
		{
			name:       "linux xdg",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data"},
			configBase: "/fallback/config",
			dataBase:   "/fallback/data",
			wantConfig: "/xdg/config",
			wantData:   "/xdg/data",
		},
		{
			name:       "linux without xdg",
			goos:       "linux",
			env:        map[string]string{},
			configBase: "/home/me/.config",
			dataBase:   "/home/me/.local/share",
			wantConfig: "/home/me/.config",
			wantData:   "/home/me/.local/share",
		},
		{
			name:       "windows appdata",
			goos:       "windows",
			env:        map[string]string{"APPDATA": `C:\Users\me\AppData\Roaming`, "LOCALAPPDATA": `C:\Users\me\AppData\Local`},
			configBase: `C:\fallback\config`,
			dataBase:   `C:\fallback\data`,
			wantConfig: `C:\Users\me\AppData\Roaming`,
			wantData:   `C:\Users\me\AppData\Local`,
		},
		{
			name:       "darwin ignores xdg",
			goos:       "darwin",
			env:        map[string]string{"XDG_CONFIG_HOME": "/ignored", "XDG_DATA_HOME": "/ignored"},
			configBase: "/Users/me/Library/Application Support",
			dataBase:   "/Users/me/Library/Application Support",
			wantConfig: "/Users/me/Library/Application Support",
			wantData:   "/Users/me/Library/Application Support",
		},
		{
			name:       "other os uses bases",
			goos:       "freebsd",
			configBase: "/cfg",
			dataBase:   "/data",
			wantConfig: "/cfg",
			wantData:   "/data",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := PathsFor(tc.goos, tc.env, tc.configBase, tc.dataBase, "scorecard")
			if err != nil {
				t.Fatalf("PathsFor() error = %v", err)
			}
			dataDir := filepath.Join(tc.wantData, "scorecard")
			want := Paths{
				ConfigPath: filepath.Join(tc.wantConfig, "scorecard", "config.toml"),
				DataDir:    dataDir,
				DBPath:     filepath.Join(dataDir, "scorecard.db"),
				ExportDir:  filepath.Join(dataDir, "exports"),
				LogDir:     filepath.Join(dataDir, "log"),
			}
			if p != want {
				t.Fatalf("PathsFor() = %#v, want %#v", p, want)
			}
		})
	}
}

// TestPathsForEmptyDirsFails verifies behavior for the covered scenario.
func TestPathsForEmptyDirsFails(t *testing.T) {
	if _, err := PathsFor("darwin", nil, "", "/tmp/data", "scorecard"); err == nil {
		t.Fatal("expected error for empty dirs")
	}
}

// TestDefaultPathsSmoke verifies behavior for the covered scenario.
func TestDefaultPathsSmoke(t *testing.T) {
	p, err := DefaultPaths()
	if err != nil {
		t.Fatalf("DefaultPaths() error = %v", err)
	}
	if p.ConfigPath == "" || p.DBPath == "" || p.DataDir == "" {
		t.Fatalf("expected non-empty paths, got %#v", p)
	}
}

// TestDefaultPathsWithOptionsDevMode verifies behavior for the covered scenario.
func TestDefaultPathsWithOptionsDevMode(t *testing.T) {
	p, err := DefaultPathsWithOptions(Options{AppName: "scorecard", DevMode: true})
	if err != nil {
		t.Fatalf("DefaultPathsWithOptions() error = %v", err)
	}
	if filepath.Base(filepath.Dir(p.ConfigPath)) != "scorecard-dev" {
		t.Fatalf("expected dev config dir suffix, got %q", p.ConfigPath)
	}
	if filepath.Base(p.DBPath) != "scorecard-dev.db" {
		t.Fatalf("expected dev db name, got %q", p.DBPath)
	}
}

// TestAppDirName verifies behavior for the covered scenario.
func TestAppDirName(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want string
	}{
		{name: "default", opts: Options{}, want: DefaultAppName},
		{name: "trimmed", opts: Options{AppName: "  board  "}, want: "board"},
		{name: "dev", opts: Options{AppName: "board", DevMode: true}, want: "board-dev"},
		{name: "default dev", opts: Options{DevMode: true}, want: DefaultAppName + "-dev"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := appDirName(tc.opts); got != tc.want {
				t.Fatalf("appDirName() = %q, want %q", got, tc.want)
			}
		})
	}
}

// TestPathsForBlankOverrideKeepsBase verifies behavior for the covered scenario.
func TestPathsForBlankOverrideKeepsBase(t *testing.T) {
	p, err := PathsFor("linux", map[string]string{"XDG_DATA_HOME": "  "}, "/cfg", "/data", "scorecard")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	if p.DataDir != filepath.Join("/data", "scorecard") {
		t.Fatalf("unexpected data dir %q", p.DataDir)
	}
	if _, err := PathsFor("linux", nil, "/cfg", "/data", " "); err == nil {
		t.Fatal("expected error for blank app name")
	}
}
