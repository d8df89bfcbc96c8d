// Package depmanager resolves the external tool binaries the pipeline shells
// out to. It either finds yt-dlp and ffmpeg on the system PATH or downloads
// per-platform builds into a managed bins directory.
package depmanager

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ulikunitz/xz"

	"vodgrab/internal/config"
	"vodgrab/internal/consts"
	"vodgrab/internal/errs"
)

// BinaryName represents the name of a binary dependency.
type BinaryName string

// Binary dependency names.
const (
	BinaryYTdlp   BinaryName = consts.BinYTdlp
	BinaryFFmpeg  BinaryName = consts.BinFFmpeg
	BinaryFFprobe BinaryName = consts.BinFFprobe
)

const (
	platformLinux = "linux"
	archARM64     = "arm64"
	archAMD64     = "amd64"

	// downloadTimeout is the HTTP client timeout for downloading binaries.
	downloadTimeout = 10 * time.Minute
	// filePermExecutable is the file permission for executable binaries.
	filePermExecutable = 0o755
)

// Platform represents the OS and architecture combination.
type Platform struct {
	OS   string
	Arch string
}

// String returns the platform string in format "os/arch".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Manager resolves and installs binary dependencies.
type Manager struct {
	log      *slog.Logger
	cfg      config.DepManager
	platform Platform
	client   *http.Client

	mu       sync.RWMutex
	binPaths map[BinaryName]string
}

// New creates a new dependency manager.
func New(log *slog.Logger, cfg config.DepManager) *Manager {
	return &Manager{
		log: log.With(slog.String("package", "depmanager")),
		cfg: cfg,
		platform: Platform{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
		client: &http.Client{
			Timeout: downloadTimeout,
		},
		binPaths: make(map[BinaryName]string),
	}
}

// Start resolves all required binaries, either from the system PATH or by
// downloading them into the bins directory.
func (m *Manager) Start(ctx context.Context) error {
	if m.cfg.UseSystemBinaries {
		return m.SetSystemBinaries()
	}

	return m.InstallAll(ctx)
}

// SetSystemBinaries looks the required binaries up in the system PATH.
func (m *Manager) SetSystemBinaries() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, binary := range []BinaryName{BinaryYTdlp, BinaryFFmpeg, BinaryFFprobe} {
		path, err := exec.LookPath(string(binary))
		if err != nil {
			return fmt.Errorf("%s not found in system PATH: %w", binary, errs.ErrBinaryNotFound)
		}

		m.binPaths[binary] = path
	}

	m.log.Info("using system binaries", "paths", m.paths())

	return nil
}

// InstallAll downloads the binaries that are not already installed in the
// bins directory.
func (m *Manager) InstallAll(ctx context.Context) error {
	if m.platform.OS != platformLinux {
		return fmt.Errorf("managed binaries on %s: %w", m.platform, errs.ErrUnsupportedPlatform)
	}

	if err := os.MkdirAll(m.cfg.BinsDir, filePermExecutable); err != nil {
		return fmt.Errorf("create bins directory: %w", err)
	}

	for _, binary := range []BinaryName{BinaryFFmpeg, BinaryYTdlp} {
		if m.isInstalled(binary) {
			m.setInstalledPath(binary)
			m.log.Debug("binary already installed", "binary", string(binary))

			continue
		}

		if err := m.downloadAndInstall(ctx, binary); err != nil {
			return fmt.Errorf("install %s: %w", binary, err)
		}
	}

	m.log.Info("all binaries installed", "paths", m.paths())

	return nil
}

// BinPath returns the resolved path for name, or "" when unresolved.
func (m *Manager) BinPath(name BinaryName) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.binPaths[name]
}

func (m *Manager) paths() map[BinaryName]string {
	out := make(map[BinaryName]string, len(m.binPaths))
	for k, v := range m.binPaths {
		out[k] = v
	}

	return out
}

func (m *Manager) installedPath(name BinaryName) string {
	return filepath.Join(m.cfg.BinsDir, string(name))
}

func (m *Manager) isInstalled(name BinaryName) bool {
	_, err := os.Stat(m.installedPath(name))

	return err == nil
}

func (m *Manager) setInstalledPath(name BinaryName) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.binPaths[name] = m.installedPath(name)

	// The ffmpeg archive ships ffprobe alongside.
	if name == BinaryFFmpeg {
		m.binPaths[BinaryFFprobe] = m.installedPath(BinaryFFprobe)
	}
}

func (m *Manager) binaryURL(name BinaryName) string {
	var arm64URL, amd64URL string

	switch name {
	case BinaryYTdlp:
		arm64URL, amd64URL = m.cfg.YTdlpLinuxARM64, m.cfg.YTdlpLinuxAMD64
	case BinaryFFmpeg:
		arm64URL, amd64URL = m.cfg.FFmpegLinuxARM64, m.cfg.FFmpegLinuxAMD64
	default:
		return ""
	}

	switch m.platform.Arch {
	case archARM64:
		return arm64URL
	case archAMD64:
		return amd64URL
	default:
		return ""
	}
}

func (m *Manager) downloadAndInstall(ctx context.Context, name BinaryName) error {
	url := m.binaryURL(name)
	if url == "" {
		return fmt.Errorf("no download URL for %s on %s: %w", name, m.platform, errs.ErrUnsupportedPlatform)
	}

	m.log.Info("downloading binary", "binary", string(name), "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(m.cfg.BinsDir, "download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()

	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return fmt.Errorf("write download: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if strings.HasSuffix(url, ".tar.xz") {
		targets := m.filesNeeded(name)
		if err := m.extractFromTarXZ(tmpPath, targets); err != nil {
			return fmt.Errorf("extract: %w", err)
		}
	} else {
		if err := os.Rename(tmpPath, m.installedPath(name)); err != nil {
			return fmt.Errorf("rename: %w", err)
		}

		if err := os.Chmod(m.installedPath(name), filePermExecutable); err != nil {
			return fmt.Errorf("chmod: %w", err)
		}
	}

	m.setInstalledPath(name)

	m.log.Info("binary installed", "binary", string(name), "path", m.installedPath(name))

	return nil
}

func (m *Manager) filesNeeded(name BinaryName) map[string]struct{} {
	files := make(map[string]struct{})

	if name == BinaryFFmpeg {
		files[string(BinaryFFmpeg)] = struct{}{}
		files[string(BinaryFFprobe)] = struct{}{}
	} else {
		files[string(name)] = struct{}{}
	}

	return files
}

func (m *Manager) extractFromTarXZ(archivePath string, targets map[string]struct{}) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open tar.xz: %w", err)
	}
	defer file.Close()

	xzReader, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("create xz reader: %w", err)
	}

	return m.extractTarSelected(xzReader, targets)
}

func (m *Manager) extractTarSelected(reader io.Reader, targets map[string]struct{}) error {
	tarReader := tar.NewReader(reader)
	extracted := 0

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		filename := filepath.Base(header.Name)
		if _, ok := targets[filename]; !ok {
			continue
		}

		destPath := filepath.Join(m.cfg.BinsDir, filename)

		outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable)
		if err != nil {
			return fmt.Errorf("create dest file: %w", err)
		}

		_, err = io.Copy(outFile, tarReader) //nolint:gosec
		outFile.Close()

		if err != nil {
			return fmt.Errorf("extract file: %w", err)
		}

		extracted++

		if extracted == len(targets) {
			return nil
		}
	}

	if extracted == 0 {
		return fmt.Errorf("no target files found in archive")
	}

	return nil
}
