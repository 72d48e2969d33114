package root

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AD7six/shop-images/internal/collect"
	"github.com/AD7six/shop-images/internal/config"
	"github.com/AD7six/shop-images/internal/logging"
	"github.com/spf13/afero"
)

// execute runs the command with args and returns stdout and the error.
func execute(t *testing.T, d deps, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(d)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func writeProject(t *testing.T, fsys afero.Fs, root string) {
	t.Helper()
	files := map[string]string{
		filepath.Join(root, "config", "theme.json"):    `{"logo": "shopify://shop_images/logo.png"}`,
		filepath.Join(root, "templates", "index.json"): `["shopify://shop_images/banner.png", "not-an-image", "shopify://shop_images/logo.png"]`,
	}
	for p, content := range files {
		if err := fsys.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("Failed to create test directory %s: %v", filepath.Dir(p), err)
		}
		if err := afero.WriteFile(fsys, p, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to create test file %s: %v", p, err)
		}
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CDN_BASE_URL", "MAX_CONCURRENT_DOWNLOADS", "HTTP_RETRIES", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestRoot_ListProject(t *testing.T) {
	clearEnv(t)
	fsys := afero.NewMemMapFs()
	writeProject(t, fsys, "/theme")

	out, err := execute(t, deps{fs: fsys}, "--in=/theme", "--out=/images", "--cdn=https://cdn.test/store", "--list")
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	want := "https://cdn.test/store/logo.png\nhttps://cdn.test/store/banner.png\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
	if ok, _ := afero.Exists(fsys, "/images"); ok {
		t.Error("--list created the output directory")
	}
}

func TestRoot_CDNFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("CDN_BASE_URL", "https://env.test/files")
	fsys := afero.NewMemMapFs()
	writeProject(t, fsys, "/theme")

	out, err := execute(t, deps{fs: fsys}, "--in", "/theme", "--list")
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "https://env.test/files/logo.png\n") {
		t.Errorf("output = %q, want URLs under CDN_BASE_URL", out)
	}
}

func TestRoot_ListFile(t *testing.T) {
	clearEnv(t)
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/urls.txt", []byte("https://a.test/1.png\n\nhttps://a.test/2.png\nhttps://a.test/1.png\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, deps{fs: fsys}, "--in=/urls.txt", "--list")
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if out != "https://a.test/1.png\nhttps://a.test/2.png\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRoot_DirectoryRequiresCDN(t *testing.T) {
	clearEnv(t)
	fsys := afero.NewMemMapFs()
	writeProject(t, fsys, "/theme")

	_, err := execute(t, deps{fs: fsys}, "--in=/theme", "--out=/images")
	if !errors.Is(err, config.ErrCDNRequired) {
		t.Errorf("Execute() error = %v, want ErrCDNRequired", err)
	}
	if ok, _ := afero.Exists(fsys, "/images"); ok {
		t.Error("output directory created despite configuration error")
	}
}

func TestRoot_MalformedJSON(t *testing.T) {
	clearEnv(t)
	fsys := afero.NewMemMapFs()
	writeProject(t, fsys, "/theme")
	if err := afero.WriteFile(fsys, "/theme/templates/product.json", []byte(`{"a": [}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, deps{fs: fsys}, "--in=/theme", "--cdn=https://cdn.test", "--list")
	var perr *collect.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Execute() error = %v, want *collect.ParseError", err)
	}
	if perr.Path != filepath.Join("/theme", "templates", "product.json") {
		t.Errorf("ParseError.Path = %s", perr.Path)
	}
}

func TestRoot_RejectsUnknownFlagsAndArgs(t *testing.T) {
	clearEnv(t)
	cases := map[string][]string{
		"unknown flag":   {"--input=/theme"},
		"positional arg": {"/theme"},
		"bad int":        {"--concurrency=many"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := execute(t, deps{fs: afero.NewMemMapFs()}, args...); err == nil {
				t.Errorf("Execute(%v) expected error, got nil", args)
			}
		})
	}
}

func TestRoot_Download(t *testing.T) {
	clearEnv(t)
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/store/logo.png":
			w.Write([]byte("LOGO"))
		case "/store/banner.png":
			w.Write([]byte("BANNER"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fsys := afero.NewOsFs()
	project := t.TempDir()
	writeProject(t, fsys, project)
	out := filepath.Join(t.TempDir(), "images")

	stdout, err := execute(t, deps{fs: fsys, httpClient: server.Client()},
		"--in="+project, "--out="+out, "--cdn="+server.URL+"/store", "--concurrency=2")
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	if !strings.Contains(stdout, "Found 2 files. Downloading...") {
		t.Errorf("missing start message in %q", stdout)
	}
	if !strings.Contains(stdout, "Finished downloading 2 of 2 files.") {
		t.Errorf("missing finish message in %q", stdout)
	}

	for name, want := range map[string]string{"logo.png": "LOGO", "banner.png": "BANNER"} {
		got, err := os.ReadFile(filepath.Join(out, name))
		if err != nil {
			t.Fatalf("failed to read %s: %v", name, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestRoot_DownloadFailuresExitNonZero(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_RETRIES", "0")
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok.png" {
			w.Write([]byte("OK"))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	fsys := afero.NewMemMapFs()
	list := server.URL + "/ok.png\n" + server.URL + "/missing.png\n"
	if err := afero.WriteFile(fsys, "/urls.txt", []byte(list), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, err := execute(t, deps{fs: fsys, httpClient: server.Client()}, "--in=/urls.txt", "--out=/images")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Fatalf("Execute() error = %v, want failure summary", err)
	}
	if !strings.Contains(stdout, "Finished downloading 1 of 2 files.") {
		t.Errorf("missing finish message in %q", stdout)
	}
	if ok, _ := afero.Exists(fsys, "/images/ok.png"); !ok {
		t.Error("successful download missing")
	}
}

// inDirWithEnvFile runs the test from a temp dir holding a .env file.
func inDirWithEnvFile(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Chdir(wd)
		logging.InitLogger("info")
	})

	// godotenv never overrides variables that are already set, even to "".
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")
}

func TestRoot_LogLevelFromEnvFile(t *testing.T) {
	clearEnv(t)
	inDirWithEnvFile(t, "LOG_LEVEL=debug\n")
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/urls.txt", []byte("https://a.test/1.png\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, deps{fs: fsys}, "--in=/urls.txt", "--list"); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if !logging.Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("LOG_LEVEL=debug from .env did not enable debug logging")
	}
}

func TestRoot_LogLevelFlagOverridesEnvFile(t *testing.T) {
	clearEnv(t)
	inDirWithEnvFile(t, "LOG_LEVEL=debug\n")
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/urls.txt", []byte("https://a.test/1.png\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, deps{fs: fsys}, "--in=/urls.txt", "--list", "--log-level=error"); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if logging.Logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("--log-level=error did not take precedence over .env")
	}
}
