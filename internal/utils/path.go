package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// AppDirName is the directory name used under the user config dir.
const AppDirName = "suggestserve"

// PathResolver resolves config and snapshot paths for the suggestserve binary
type PathResolver struct {
	executableDir string
	homeDir       string
	configDir     string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}

	// Resolve any symlinks to get the actual binary location
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executableDir: filepath.Dir(execPath),
		homeDir:       homeDir,
		configDir:     configDirFor(homeDir),
	}

	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", pr.executableDir, pr.configDir)
	return pr, nil
}

// configDirFor returns the platform config directory
func configDirFor(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, AppDirName)
		}
		return filepath.Join(homeDir, ".config", AppDirName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppDirName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", AppDirName)
	default:
		return filepath.Join(homeDir, ".config", AppDirName)
	}
}

// GetConfigPath returns the full path for a config file.
// Falls back to other writable locations when the config dir is read-only.
func (pr *PathResolver) GetConfigPath(filename string) (string, error) {
	if DirWritable(pr.configDir) {
		return filepath.Join(pr.configDir, filename), nil
	}

	fallbackDirs := []string{
		filepath.Join(os.TempDir(), AppDirName),
		pr.executableDir,
	}
	for _, dir := range fallbackDirs {
		if DirWritable(dir) {
			path := filepath.Join(dir, filename)
			log.Warnf("Using fallback config location: %s", path)
			return path, nil
		}
	}

	tempPath := filepath.Join(os.TempDir(), filename)
	log.Warnf("Using temporary config file: %s", tempPath)
	return tempPath, nil
}

// ResolveFile finds a data file such as a catalog snapshot.
// Candidates, in order: the path as given, relative to the config dir,
// relative to the executable dir. The first existing one wins; otherwise
// the path is returned as given so the caller can report it.
func (pr *PathResolver) ResolveFile(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	for _, candidate := range pr.fileCandidates(path) {
		if FileExists(candidate) {
			log.Debugf("Resolved %s to %s", path, candidate)
			return candidate
		}
		log.Debugf("File candidate not found: %s", candidate)
	}
	return path
}

func (pr *PathResolver) fileCandidates(path string) []string {
	candidates := []string{path}
	if pr.configDir != "" {
		candidates = append(candidates, filepath.Join(pr.configDir, path))
	}
	if pr.executableDir != "" {
		candidates = append(candidates, filepath.Join(pr.executableDir, path))
	}
	return candidates
}
